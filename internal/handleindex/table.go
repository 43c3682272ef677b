package handleindex

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/hupe1980/termdex/internal/column"
	"github.com/hupe1980/termdex/internal/fs"
	"github.com/hupe1980/termdex/internal/resource"
)

// partitionOverhead approximates the fixed cost of one partition in bytes.
const partitionOverhead = 96

// table is the storage engine shared by Map and Set.
type table struct {
	layout *column.Row
	keyLen int
	width  int
	parts  []*partition

	capacity atomic.Int64
	size     atomic.Int64
	drain    atomic.Uint32

	rc     *resource.Controller
	fs     fs.FileSystem
	logger *slog.Logger
}

func newTable(layout *column.Row, o options) *table {
	t := &table{
		layout: layout,
		keyLen: layout.Column(0).Width,
		width:  layout.Width(),
		parts:  make([]*partition, o.partitions),
		rc:     o.rc,
		fs:     o.fs,
		logger: o.logger,
	}
	for i := range t.parts {
		t.parts[i] = &partition{}
	}
	t.capacity.Store(o.capacity)
	return t
}

func (t *table) part(key []byte) *partition {
	return t.parts[murmur3.Sum32(key)%uint32(len(t.parts))]
}

func (t *table) checkKey(key []byte) error {
	if len(key) != t.keyLen {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrKeySize, len(key), t.keyLen)
	}
	return nil
}

// admit reserves one entry of capacity.
func (t *table) admit(n int64) error {
	for {
		size := t.size.Load()
		limit := t.capacity.Load()
		if limit > 0 && size+n > limit {
			return fmt.Errorf("%w: %d entries, capacity %d", ErrCapacityExceeded, size, limit)
		}
		if t.size.CompareAndSwap(size, size+n) {
			return nil
		}
	}
}

// insertLocked adds a new row to p, which the caller holds locked.
func (t *table) insertLocked(p *partition, row []byte) error {
	if err := t.admit(1); err != nil {
		return err
	}
	if err := p.insert(t, row); err != nil {
		t.size.Add(-1)
		return err
	}
	return nil
}

func (t *table) removeLocked(p *partition, i int) {
	p.remove(t, i)
	t.size.Add(-1)
}

func (t *table) has(key []byte) bool {
	if len(key) != t.keyLen {
		return false
	}
	p := t.part(key)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.find(t, key) >= 0
}

// removeKey deletes key and returns a copy of its row.
func (t *table) removeKey(key []byte) ([]byte, bool) {
	if len(key) != t.keyLen {
		return nil, false
	}
	p := t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.find(t, key)
	if i < 0 {
		return nil, false
	}
	row := append([]byte(nil), p.row(t, i)...)
	t.removeLocked(p, i)
	return row, true
}

// removeOne removes an arbitrary row, rotating over partitions.
func (t *table) removeOne() ([]byte, bool) {
	start := int(t.drain.Add(1))
	for k := range t.parts {
		p := t.parts[(start+k)%len(t.parts)]
		p.mu.Lock()
		if p.n > 0 {
			i := p.n - 1
			row := append([]byte(nil), p.row(t, i)...)
			t.removeLocked(p, i)
			p.mu.Unlock()
			return row, true
		}
		p.mu.Unlock()
	}
	return nil, false
}

func (t *table) extreme(largest bool) ([]byte, error) {
	var best []byte
	for _, p := range t.parts {
		p.mu.RLock()
		k := p.extreme(t, largest)
		p.mu.RUnlock()
		if k == nil {
			continue
		}
		if best == nil {
			best = k
			continue
		}
		if c := compareKeys(k, best); (largest && c > 0) || (!largest && c < 0) {
			best = k
		}
	}
	if best == nil {
		return nil, ErrEmpty
	}
	return best, nil
}

func (t *table) optimize() {
	for _, p := range t.parts {
		p.mu.Lock()
		p.shrink(t)
		p.mu.Unlock()
	}
}

func (t *table) clear() {
	for _, p := range t.parts {
		p.mu.Lock()
		t.size.Add(-int64(p.n))
		p.reset(t.rc)
		p.mu.Unlock()
	}
}

func (t *table) mem() int64 {
	total := int64(len(t.parts) * partitionOverhead)
	for _, p := range t.parts {
		p.mu.RLock()
		total += int64(cap(p.rows))
		p.mu.RUnlock()
	}
	return total
}

func (t *table) grow(n int64) {
	if n <= 0 {
		return
	}
	for {
		c := t.capacity.Load()
		if c <= 0 || t.capacity.CompareAndSwap(c, c+n) {
			return
		}
	}
}
