package handleindex

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/hupe1980/termdex/internal/column"
)

// Set is a HandleIndex holding keys only.
// All methods are safe for concurrent use.
type Set struct {
	t *table
}

// NewSet creates an empty set for keys of keyLen bytes.
func NewSet(keyLen int, optFns ...Option) *Set {
	layout := column.MustRow(column.Bytes("key", keyLen, "handle"))
	return &Set{t: newTable(layout, applyOptions(optFns))}
}

// KeyLen returns the key length in bytes.
func (s *Set) KeyLen() int { return s.t.keyLen }

// Has reports whether key is present.
func (s *Set) Has(key []byte) bool { return s.t.has(key) }

// Put adds key and reports whether it was already present.
func (s *Set) Put(key []byte) (bool, error) {
	if err := s.t.checkKey(key); err != nil {
		return false, err
	}
	p := s.t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.find(s.t, key) >= 0 {
		return true, nil
	}
	return false, s.t.insertLocked(p, append([]byte(nil), key...))
}

// PutUnique adds key or fails with ErrDuplicateKey.
func (s *Set) PutUnique(key []byte) error {
	existed, err := s.Put(key)
	if err != nil {
		return err
	}
	if existed {
		return fmt.Errorf("%w: %x", ErrDuplicateKey, key)
	}
	return nil
}

// Remove deletes key and reports whether it was present.
func (s *Set) Remove(key []byte) bool {
	_, ok := s.t.removeKey(key)
	return ok
}

// RemoveOne removes and returns an arbitrary key.
func (s *Set) RemoveOne() ([]byte, bool) { return s.t.removeOne() }

// SmallestKey returns the smallest key or ErrEmpty.
func (s *Set) SmallestKey() ([]byte, error) { return s.t.extreme(false) }

// LargestKey returns the largest key or ErrEmpty.
func (s *Set) LargestKey() ([]byte, error) { return s.t.extreme(true) }

// Keys iterates keys in order starting at from (inclusive).
func (s *Set) Keys(asc bool, from []byte) iter.Seq[[]byte] { return s.t.keys(asc, from) }

// Dump writes the set to path.
func (s *Set) Dump(ctx context.Context, path string) (int64, error) { return s.t.dump(ctx, path) }

// DumpTo writes the uncompressed dump to w.
func (s *Set) DumpTo(w io.Writer) (int64, error) { return s.t.dumpTo(w) }

// Load reads a dump from path.
func (s *Set) Load(path string) (int64, error) { return s.t.load(path) }

// LoadFrom reads an uncompressed dump from r.
func (s *Set) LoadFrom(r io.Reader) (int64, error) { return s.t.loadFrom(r) }

// Optimize sorts every partition and releases spare memory.
func (s *Set) Optimize() { s.t.optimize() }

// Mem returns the approximate memory footprint in bytes.
func (s *Set) Mem() int64 { return s.t.mem() }

// Size returns the number of keys.
func (s *Set) Size() int { return int(s.t.size.Load()) }

// Capacity returns the entry limit, or 0 if unbounded.
func (s *Set) Capacity() int64 { return s.t.capacity.Load() }

// Grow raises a bounded capacity by n entries.
func (s *Set) Grow(n int64) { s.t.grow(n) }

// Clear removes all keys.
func (s *Set) Clear() { s.t.clear() }
