package handleindex

import (
	"bytes"
	"container/heap"
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/hupe1980/termdex/internal/column"
)

// Map is a HandleIndex from fixed-length keys to int64 values.
// All methods are safe for concurrent use.
type Map struct {
	t *table
}

// NewMap creates an empty map for keys of keyLen bytes.
func NewMap(keyLen int, optFns ...Option) *Map {
	layout := column.MustRow(
		column.Bytes("key", keyLen, "handle"),
		column.MustParse(`long value {b256} "counter, reference count or ordinal"`),
	)
	return &Map{t: newTable(layout, applyOptions(optFns))}
}

func (m *Map) value(row []byte) int64 {
	return int64(column.DecodeB256(row[m.t.keyLen:]))
}

func (m *Map) setValue(row []byte, v int64) {
	_ = column.EncodeB256(row[m.t.keyLen:], uint64(v))
}

func (m *Map) newRow(key []byte, v int64) []byte {
	row := make([]byte, m.t.width)
	copy(row, key)
	m.setValue(row, v)
	return row
}

// KeyLen returns the key length in bytes.
func (m *Map) KeyLen() int { return m.t.keyLen }

// Has reports whether key is present.
func (m *Map) Has(key []byte) bool { return m.t.has(key) }

// Get returns the value of key.
func (m *Map) Get(key []byte) (int64, bool) {
	if len(key) != m.t.keyLen {
		return 0, false
	}
	p := m.t.part(key)
	p.mu.RLock()
	defer p.mu.RUnlock()
	i := p.find(m.t, key)
	if i < 0 {
		return 0, false
	}
	return m.value(p.row(m.t, i)), true
}

// Put sets key to v and returns the previous value if there was one.
func (m *Map) Put(key []byte, v int64) (int64, bool, error) {
	if err := m.t.checkKey(key); err != nil {
		return 0, false, err
	}
	p := m.t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.find(m.t, key); i >= 0 {
		row := p.row(m.t, i)
		prev := m.value(row)
		m.setValue(row, v)
		return prev, true, nil
	}
	return 0, false, m.t.insertLocked(p, m.newRow(key, v))
}

// PutUnique inserts key with value v. It fails with ErrDuplicateKey if key
// is present.
func (m *Map) PutUnique(key []byte, v int64) error {
	if err := m.t.checkKey(key); err != nil {
		return err
	}
	p := m.t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.find(m.t, key) >= 0 {
		return fmt.Errorf("%w: %x", ErrDuplicateKey, key)
	}
	return m.t.insertLocked(p, m.newRow(key, v))
}

// Add adds delta to the value of key and returns the new value. An absent
// key starts at 0.
func (m *Map) Add(key []byte, delta int64) (int64, error) {
	if err := m.t.checkKey(key); err != nil {
		return 0, err
	}
	p := m.t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.find(m.t, key); i >= 0 {
		row := p.row(m.t, i)
		v := m.value(row) + delta
		m.setValue(row, v)
		return v, nil
	}
	if err := m.t.insertLocked(p, m.newRow(key, delta)); err != nil {
		return 0, err
	}
	return delta, nil
}

// Inc increments key by one.
func (m *Map) Inc(key []byte) (int64, error) { return m.Add(key, 1) }

// Dec decrements key by one.
func (m *Map) Dec(key []byte) (int64, error) { return m.Add(key, -1) }

// Remove deletes key and returns its value.
func (m *Map) Remove(key []byte) (int64, bool) {
	row, ok := m.t.removeKey(key)
	if !ok {
		return 0, false
	}
	return m.value(row), true
}

// RemoveOne removes and returns an arbitrary entry.
func (m *Map) RemoveOne() ([]byte, int64, bool) {
	row, ok := m.t.removeOne()
	if !ok {
		return nil, 0, false
	}
	return row[:m.t.keyLen], m.value(row), true
}

// SmallestKey returns the smallest key or ErrEmpty.
func (m *Map) SmallestKey() ([]byte, error) { return m.t.extreme(false) }

// LargestKey returns the largest key or ErrEmpty.
func (m *Map) LargestKey() ([]byte, error) { return m.t.extreme(true) }

// Keys iterates keys in order, starting at from (inclusive) or the next
// key after it. A nil from starts at the first key.
func (m *Map) Keys(asc bool, from []byte) iter.Seq[[]byte] { return m.t.keys(asc, from) }

// Rows iterates (key, value) pairs like Keys.
func (m *Map) Rows(asc bool, from []byte) iter.Seq2[[]byte, int64] {
	return func(yield func([]byte, int64) bool) {
		for row := range m.t.rows(asc, from) {
			if !yield(bytes.Clone(row[:m.t.keyLen]), m.value(row)) {
				return
			}
		}
	}
}

// Top returns up to n keys with the largest values. Ties are broken by
// ascending key.
func (m *Map) Top(n int) [][]byte {
	if n <= 0 {
		return nil
	}
	h := &topHeap{}
	for _, p := range m.t.parts {
		p.mu.RLock()
		for i := 0; i < p.n; i++ {
			row := p.row(m.t, i)
			e := topEntry{key: row[:m.t.keyLen], value: m.value(row)}
			if h.Len() < n {
				e.key = bytes.Clone(e.key)
				heap.Push(h, e)
			} else if h.better(e, (*h)[0]) {
				e.key = bytes.Clone(e.key)
				(*h)[0] = e
				heap.Fix(h, 0)
			}
		}
		p.mu.RUnlock()
	}

	out := make([][]byte, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(topEntry).key
	}
	return out
}

// Dump writes the map to path. See the package documentation for the format.
func (m *Map) Dump(ctx context.Context, path string) (int64, error) { return m.t.dump(ctx, path) }

// DumpTo writes the uncompressed dump to w.
func (m *Map) DumpTo(w io.Writer) (int64, error) { return m.t.dumpTo(w) }

// Load reads a dump from path and returns the number of entries read.
func (m *Map) Load(path string) (int64, error) { return m.t.load(path) }

// LoadFrom reads an uncompressed dump from r.
func (m *Map) LoadFrom(r io.Reader) (int64, error) { return m.t.loadFrom(r) }

// Optimize sorts every partition and releases spare memory.
func (m *Map) Optimize() { m.t.optimize() }

// Mem returns the approximate memory footprint in bytes.
func (m *Map) Mem() int64 { return m.t.mem() }

// Size returns the number of entries.
func (m *Map) Size() int { return int(m.t.size.Load()) }

// Capacity returns the entry limit, or 0 if unbounded.
func (m *Map) Capacity() int64 { return m.t.capacity.Load() }

// Grow raises a bounded capacity by n entries.
func (m *Map) Grow(n int64) { m.t.grow(n) }

// Clear removes all entries.
func (m *Map) Clear() { m.t.clear() }

type topEntry struct {
	key   []byte
	value int64
}

// topHeap keeps the worst retained entry at the root.
type topHeap []topEntry

// better reports whether a ranks before b: larger value, then smaller key.
func (topHeap) better(a, b topEntry) bool {
	if a.value != b.value {
		return a.value > b.value
	}
	return bytes.Compare(a.key, b.key) < 0
}

func (h topHeap) Len() int           { return len(h) }
func (h topHeap) Less(i, j int) bool { return h.better(h[j], h[i]) }
func (h topHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topHeap) Push(x any)        { *h = append(*h, x.(topEntry)) }

func (h *topHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}
