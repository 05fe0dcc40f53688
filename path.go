package fdd

import "strings"

// parsePath splits a "<filepath>^<split-spec>" path (spec §6's path
// surface) into its filesystem path and split specifier. A path with no
// "^" returns an empty split specifier, meaning the full view.
func parsePath(path string) (filePath string, splitSpec string) {
	if i := strings.IndexByte(path, '^'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// joinSplitSpec combines a path-embedded split specifier with an
// explicitly passed one, so "f.fdd^train" opened with split="val" is
// equivalent to passing split="train+val".
func joinSplitSpec(embedded, explicit string) string {
	switch {
	case embedded == "":
		return explicit
	case explicit == "":
		return embedded
	default:
		return embedded + "+" + explicit
	}
}
