// Package fileinfo implements the File-Info Store: a bijective mapping from
// raw filesystem path (arbitrary bytes, not necessarily valid UTF-8) to the
// (mode, owner-name, group-name) triple captured for that path during a
// snapshot run. It persists as one escaped record per line, the whole file
// block-compressed (fileinfo.bz2 in the repository layout).
//
// Grounded on the original tool's FileInfoDict (exercised by
// TestSavePermissions/TestSavePathInfo in
// _examples/original_source/common/test/test_snapshots.py) and, for the
// escape/compress idiom, on kopia's internal/jsonstream and
// internal/hashcache line-oriented persistence style
// (github.com/kopia/kopia/internal/hashcache).
package fileinfo

// Entry is the per-path metadata triple recorded by the File-Info Store.
type Entry struct {
	Mode  uint32
	Owner []byte
	Group []byte
}

// Store is a mapping from raw byte-sequence path to Entry. The zero value
// is ready to use.
type Store struct {
	entries map[string]Entry
	order   []string // first-insertion order, for reproducible iteration
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Record associates path with (mode, owner, group), overwriting any
// previous entry for the same path.
func (s *Store) Record(path []byte, mode uint32, owner, group []byte) {
	if s.entries == nil {
		s.entries = make(map[string]Entry)
	}

	key := string(path)
	if _, exists := s.entries[key]; !exists {
		s.order = append(s.order, key)
	}

	s.entries[key] = Entry{Mode: mode, Owner: append([]byte(nil), owner...), Group: append([]byte(nil), group...)}
}

// Lookup returns the entry recorded for path, if any.
func (s *Store) Lookup(path []byte) (Entry, bool) {
	e, ok := s.entries[string(path)]
	return e, ok
}

// Len returns the number of recorded paths.
func (s *Store) Len() int { return len(s.entries) }

// Range calls f for every recorded (path, entry) pair in insertion order.
// Iteration stops early if f returns false.
func (s *Store) Range(f func(path []byte, e Entry) bool) {
	for _, key := range s.order {
		if !f([]byte(key), s.entries[key]) {
			return
		}
	}
}

// Equal reports whether s and other hold byte-identical entries,
// independent of insertion order.
func (s *Store) Equal(other *Store) bool {
	if s.Len() != other.Len() {
		return false
	}

	for k, e := range s.entries {
		oe, ok := other.entries[k]
		if !ok || e.Mode != oe.Mode || string(e.Owner) != string(oe.Owner) || string(e.Group) != string(oe.Group) {
			return false
		}
	}

	return true
}
