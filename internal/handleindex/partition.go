package handleindex

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/termdex/internal/resource"
)

const (
	minTail     = 32
	minGrowRows = 64
)

// partition holds rows as a sorted prefix [0, sorted) followed by an
// unsorted tail [sorted, n).
type partition struct {
	mu       sync.RWMutex
	rows     []byte
	n        int
	sorted   int
	reserved int64
}

func (p *partition) row(t *table, i int) []byte {
	return p.rows[i*t.width : (i+1)*t.width]
}

func (p *partition) key(t *table, i int) []byte {
	off := i * t.width
	return p.rows[off : off+t.keyLen]
}

// find returns the row index of key or -1.
func (p *partition) find(t *table, key []byte) int {
	i := sort.Search(p.sorted, func(i int) bool {
		return bytes.Compare(p.key(t, i), key) >= 0
	})
	if i < p.sorted && bytes.Equal(p.key(t, i), key) {
		return i
	}
	for j := p.sorted; j < p.n; j++ {
		if bytes.Equal(p.key(t, j), key) {
			return j
		}
	}
	return -1
}

// ensure makes room for extra more rows, reserving memory from rc.
func (p *partition) ensure(t *table, extra int) error {
	need := (p.n + extra) * t.width
	if need <= cap(p.rows) {
		return nil
	}
	newCap := max(2*cap(p.rows), need, minGrowRows*t.width)
	delta := int64(newCap - cap(p.rows))
	if err := t.rc.AcquireMemory(delta); err != nil {
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	grown := make([]byte, len(p.rows), newCap)
	copy(grown, p.rows)
	p.rows = grown
	p.reserved += delta
	return nil
}

// insert appends row to the tail. The key must not be present.
func (p *partition) insert(t *table, row []byte) error {
	if err := p.ensure(t, 1); err != nil {
		return err
	}
	p.rows = append(p.rows, row...)
	p.n++
	if tail := p.n - p.sorted; tail > max(minTail, int(math.Sqrt(float64(p.sorted)))) {
		p.sortTail(t)
	}
	return nil
}

// appendSorted appends a row known to be larger than every key present.
func (p *partition) appendSorted(t *table, row []byte) error {
	if err := p.ensure(t, 1); err != nil {
		return err
	}
	p.rows = append(p.rows, row...)
	p.n++
	if p.sorted == p.n-1 {
		p.sorted = p.n
	}
	return nil
}

// remove deletes row i, keeping the prefix sorted.
func (p *partition) remove(t *table, i int) {
	w := t.width
	if i < p.sorted {
		copy(p.rows[i*w:], p.rows[(i+1)*w:p.n*w])
		p.sorted--
	} else if last := p.n - 1; i != last {
		copy(p.rows[i*w:(i+1)*w], p.rows[last*w:p.n*w])
	}
	p.n--
	p.rows = p.rows[:p.n*w]
}

// sortTail sorts the tail and merges it into the prefix in place.
func (p *partition) sortTail(t *table) {
	tailLen := p.n - p.sorted
	if tailLen == 0 {
		return
	}
	w := t.width

	idx := make([]int, tailLen)
	for j := range idx {
		idx[j] = p.sorted + j
	}
	slices.SortFunc(idx, func(a, b int) int {
		return bytes.Compare(p.key(t, a), p.key(t, b))
	})
	tail := make([]byte, 0, tailLen*w)
	for _, j := range idx {
		tail = append(tail, p.row(t, j)...)
	}

	// Merge from the back so no unread prefix row is overwritten.
	i, j, k := p.sorted-1, tailLen-1, p.n-1
	for j >= 0 {
		tk := tail[j*w : j*w+t.keyLen]
		if i >= 0 && bytes.Compare(p.key(t, i), tk) > 0 {
			copy(p.rows[k*w:(k+1)*w], p.rows[i*w:(i+1)*w])
			i--
		} else {
			copy(p.rows[k*w:(k+1)*w], tail[j*w:(j+1)*w])
			j--
		}
		k--
	}
	p.sorted = p.n
}

// shrink sorts the partition and trims spare capacity.
func (p *partition) shrink(t *table) {
	p.sortTail(t)
	want := p.n * t.width
	if cap(p.rows) == want {
		return
	}
	var trimmed []byte
	if want > 0 {
		trimmed = make([]byte, want)
		copy(trimmed, p.rows)
	}
	released := int64(cap(p.rows) - want)
	p.rows = trimmed
	p.reserved -= released
	t.rc.ReleaseMemory(released)
}

func (p *partition) reset(rc *resource.Controller) {
	rc.ReleaseMemory(p.reserved)
	p.rows = nil
	p.n = 0
	p.sorted = 0
	p.reserved = 0
}

// extreme returns the smallest (or largest) key, or nil if empty.
func (p *partition) extreme(t *table, largest bool) []byte {
	var best []byte
	pick := func(k []byte) {
		if best == nil {
			best = k
			return
		}
		c := bytes.Compare(k, best)
		if (largest && c > 0) || (!largest && c < 0) {
			best = k
		}
	}
	if p.sorted > 0 {
		if largest {
			pick(p.key(t, p.sorted-1))
		} else {
			pick(p.key(t, 0))
		}
	}
	for j := p.sorted; j < p.n; j++ {
		pick(p.key(t, j))
	}
	return bytes.Clone(best)
}

// scan appends to dst up to limit rows after from in key order. A nil from
// starts at the first key. inclusive admits from itself.
func (p *partition) scan(t *table, dst []byte, from []byte, inclusive, asc bool, limit int) []byte {
	after := func(k []byte) bool {
		if from == nil {
			return true
		}
		c := bytes.Compare(k, from)
		if !asc {
			c = -c
		}
		return c > 0 || (inclusive && c == 0)
	}
	order := func(a, b []byte) int {
		if asc {
			return bytes.Compare(a, b)
		}
		return bytes.Compare(b, a)
	}

	var tail []int
	for j := p.sorted; j < p.n; j++ {
		if after(p.key(t, j)) {
			tail = append(tail, j)
		}
	}
	slices.SortFunc(tail, func(a, b int) int { return order(p.key(t, a), p.key(t, b)) })

	var i, step int
	if asc {
		i = sort.Search(p.sorted, func(i int) bool { return after(p.key(t, i)) })
		step = 1
	} else {
		i = sort.Search(p.sorted, func(i int) bool { return !after(p.key(t, i)) }) - 1
		step = -1
	}

	ti := 0
	for count := 0; count < limit; count++ {
		havePrefix := i >= 0 && i < p.sorted
		haveTail := ti < len(tail)
		var r int
		switch {
		case havePrefix && haveTail:
			if order(p.key(t, i), p.key(t, tail[ti])) <= 0 {
				r = i
				i += step
			} else {
				r = tail[ti]
				ti++
			}
		case havePrefix:
			r = i
			i += step
		case haveTail:
			r = tail[ti]
			ti++
		default:
			return dst
		}
		dst = append(dst, p.row(t, r)...)
	}
	return dst
}
