// Package recindex implements FDD's in-memory index and split store
// (spec §4.C): an ordered key→locator map, named ordered key lists
// (splits) with union-of-splits view composition, and the
// codec-encoded property table.
//
// This generalizes sntable's block index (an ordered []blockInfo keyed
// by a numeric upper bound, delta-encoded for compactness) from
// uint64-only keys restricted to one sorted sequence, to FDD's
// arbitrary hashable keys across an arbitrary number of named, possibly
// overlapping split views. The split_to_index map in original_source's
// WFDD/RFDD is the direct precedent for storing more than one ordered
// key sequence per file.
package recindex

import (
	"fmt"
	"strings"
)

// OffsetLen is a single blob reference: a byte range strictly before a
// file's footer. An absent column value is represented by Offset < 0.
type OffsetLen struct {
	Offset int64
	Length int64
}

// Present reports whether this reference points at an actual blob, as
// opposed to a column that was never set for this row.
func (o OffsetLen) Present() bool { return o.Offset >= 0 }

// Absent is the sentinel OffsetLen recorded for a missing column.
var Absent = OffsetLen{Offset: -1}

// Locator is a record's on-disk shape: one OffsetLen for an unstructured
// record, or one per declared column for a columnar record.
type Locator struct {
	Columns []OffsetLen
}

// ColumnDef is an ordered, named, codec-bound record slot.
type ColumnDef struct {
	Name  string
	Codec string
}

// Store holds everything the footer persists in memory: the row index,
// splits, properties, and column declaration.
type Store struct {
	keys     []any
	pos      map[any]int
	locators []Locator

	splitOrder []string
	splits     map[string][]any

	propOrder  []string
	properties map[string][]byte

	Columns []ColumnDef
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		pos:        map[any]int{},
		splits:     map[string][]any{},
		properties: map[string][]byte{},
	}
}

// Len returns the number of rows in the index.
func (s *Store) Len() int { return len(s.keys) }

// Contains reports whether key has a locator.
func (s *Store) Contains(key any) bool {
	_, ok := s.pos[key]
	return ok
}

// Get returns the locator for key.
func (s *Store) Get(key any) (Locator, bool) {
	i, ok := s.pos[key]
	if !ok {
		return Locator{}, false
	}
	return s.locators[i], true
}

// Put inserts a new key→locator pair, preserving insertion order. It
// returns false if key is already present (the caller is expected to
// turn that into a DuplicateKey error).
func (s *Store) Put(key any, loc Locator) bool {
	if _, ok := s.pos[key]; ok {
		return false
	}
	s.pos[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.locators = append(s.locators, loc)
	return true
}

// Keys returns all keys in insertion order. The returned slice must not
// be modified by the caller.
func (s *Store) Keys() []any { return s.keys }

// Locators returns all locators, parallel to Keys(). The returned slice
// must not be modified by the caller.
func (s *Store) Locators() []Locator { return s.locators }

// LoadFooter replaces the store's contents wholesale with data decoded
// from a footer, used when opening an existing file for reading or for
// reopen-for-append. keys and locators must be parallel slices.
func (s *Store) LoadFooter(keys []any, locators []Locator, columns []ColumnDef, splitOrder []string, splits map[string][]any, propOrder []string, properties map[string][]byte) {
	s.keys = keys
	s.locators = locators
	s.pos = make(map[any]int, len(keys))
	for i, k := range keys {
		s.pos[k] = i
	}
	s.Columns = columns
	s.splitOrder = splitOrder
	s.splits = splits
	if s.splits == nil {
		s.splits = map[string][]any{}
	}
	s.propOrder = propOrder
	s.properties = properties
	if s.properties == nil {
		s.properties = map[string][]byte{}
	}
}

// MakeSplit creates a new named, ordered split over keys already present
// in the index. It fails if name already exists, any key is absent, or
// keys contains a duplicate.
func (s *Store) MakeSplit(name string, keys []any) error {
	if _, ok := s.splits[name]; ok {
		return fmt.Errorf("split %q already exists", name)
	}
	if err := s.checkKeysPresent(keys); err != nil {
		return err
	}
	if err := checkNoDuplicates(keys, nil); err != nil {
		return fmt.Errorf("split %q: %w", name, err)
	}
	cp := make([]any, len(keys))
	copy(cp, keys)
	s.splitOrder = append(s.splitOrder, name)
	s.splits[name] = cp
	return nil
}

// AddToSplit extends an existing split with more keys, in the order
// given. It fails if any key is absent from the index, already a member
// of this split, or duplicated within keys itself — a split's members
// must be unique (spec: "writer enforces no duplicates on add").
func (s *Store) AddToSplit(name string, keys []any) error {
	existing, ok := s.splits[name]
	if !ok {
		return fmt.Errorf("split %q not found", name)
	}
	if err := s.checkKeysPresent(keys); err != nil {
		return err
	}
	if err := checkNoDuplicates(keys, existing); err != nil {
		return fmt.Errorf("split %q: %w", name, err)
	}
	s.splits[name] = append(existing, keys...)
	return nil
}

// ReplaceSplit overwrites a split's key list wholesale, creating it if
// it didn't already exist.
func (s *Store) ReplaceSplit(name string, keys []any) error {
	if err := s.checkKeysPresent(keys); err != nil {
		return err
	}
	if err := checkNoDuplicates(keys, nil); err != nil {
		return fmt.Errorf("split %q: %w", name, err)
	}
	if _, ok := s.splits[name]; !ok {
		s.splitOrder = append(s.splitOrder, name)
	}
	cp := make([]any, len(keys))
	copy(cp, keys)
	s.splits[name] = cp
	return nil
}

func (s *Store) checkKeysPresent(keys []any) error {
	for _, k := range keys {
		if !s.Contains(k) {
			return fmt.Errorf("key %v is not present in the index", k)
		}
	}
	return nil
}

// checkNoDuplicates rejects a key appearing more than once within keys,
// or any key in keys that is already a member of existing.
func checkNoDuplicates(keys []any, existing []any) error {
	seen := make(map[any]struct{}, len(existing)+len(keys))
	for _, k := range existing {
		seen[k] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return fmt.Errorf("duplicate key %v", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// SplitKeys returns a split's ordered key list.
func (s *Store) SplitKeys(name string) ([]any, bool) {
	k, ok := s.splits[name]
	return k, ok
}

// SplitNames returns all declared split names, in the order they were
// first created.
func (s *Store) SplitNames() []string {
	out := make([]string, len(s.splitOrder))
	copy(out, s.splitOrder)
	return out
}

// SetProperty stores a property's already-codec-encoded bytes under name,
// overwriting any previous value.
func (s *Store) SetProperty(name string, raw []byte) {
	if _, ok := s.properties[name]; !ok {
		s.propOrder = append(s.propOrder, name)
	}
	s.properties[name] = raw
}

// Property returns a property's raw encoded bytes.
func (s *Store) Property(name string) ([]byte, bool) {
	raw, ok := s.properties[name]
	return raw, ok
}

// PropertyNames returns all property names, in first-set order.
func (s *Store) PropertyNames() []string {
	out := make([]string, len(s.propOrder))
	copy(out, s.propOrder)
	return out
}

// View is a read-only projection of a Store's key universe: either every
// row in insertion order (spec == "") or the union of one or more named
// splits, joined by "+", first-occurrence order preserved across the
// listed splits.
type View struct {
	keys []any
	pos  map[any]int
}

// NewView composes a view from spec, which is either "" (all rows) or
// "name1+name2+...".
func NewView(s *Store, spec string) (*View, error) {
	v := &View{pos: map[any]int{}}
	if spec == "" {
		v.appendAll(s.Keys())
		return v, nil
	}
	for _, name := range strings.Split(spec, "+") {
		keys, ok := s.SplitKeys(name)
		if !ok {
			return nil, fmt.Errorf("split %q not found", name)
		}
		v.appendAll(keys)
	}
	return v, nil
}

func (v *View) appendAll(keys []any) {
	for _, k := range keys {
		if _, ok := v.pos[k]; ok {
			continue
		}
		v.pos[k] = len(v.keys)
		v.keys = append(v.keys, k)
	}
}

// Keys returns the view's keys in order. The returned slice must not be
// modified by the caller.
func (v *View) Keys() []any { return v.keys }

// Len returns the number of keys in the view.
func (v *View) Len() int { return len(v.keys) }

// Contains reports whether key is part of this view.
func (v *View) Contains(key any) bool {
	_, ok := v.pos[key]
	return ok
}

// LoadSplit merges another split's keys into this view, deduplicated,
// appended after the view's current keys in the split's own order.
func (v *View) LoadSplit(s *Store, name string) error {
	keys, ok := s.SplitKeys(name)
	if !ok {
		return fmt.Errorf("split %q not found", name)
	}
	v.appendAll(keys)
	return nil
}
