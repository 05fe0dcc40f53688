/*
Package fdd's on-disk format, for implementers and debugging.

Layout

A file is a sequence of compressed blobs followed by a single footer.
There is no block structure and no sorted key space on disk: every
blob's location is recorded in the footer's index, and blobs are
appended in whatever order the Writer received them.

	File layout:
	+--------+-------+--------+--------+
	| blob 1 |  ...  | blob n | footer |
	+--------+-------+--------+--------+

	Footer layout:
	+-------+----------------------+------------------+
	| magic | gob-encoded payload  | footer length (8) |
	+-------+----------------------+------------------+

Blob

A blob is one column value (or, for an unstructured file, one whole
record) run through the file's compression algorithm. Blobs are not
self-delimiting; only the footer's locators say where one starts and
how long it is.

Footer payload

The footer is a single gob-encoded struct carrying: the file's
compression algorithm and default codec name, its column declaration
(empty for an unstructured file), the ordered list of keys with one
locator per key, the named splits in creation order, and the named
properties in set order. Gob is used instead of a text format because
keys may mix concrete types (a string key alongside an int key in the
same file) behind a single interface{}-typed slice, which a schema-less
text format cannot round-trip without a side channel for type tags.

Reopen

Reopening a file for append seeks to the footer's start (computed from
the trailing length field), truncates the file there, and resumes
appending blobs from that point; the old footer's contents live on only
in memory until Close writes a new footer after the last blob.
*/
package fdd
