package handleindex

import (
	"bytes"
	"iter"
)

// cursorBatch is the number of rows a cursor copies per partition lock.
const cursorBatch = 64

func compareKeys(a, b []byte) int { return bytes.Compare(a, b) }

// source is an ordered stream of rows. peek returns nil when exhausted.
type source interface {
	peek() []byte
	advance()
}

// cursor walks one partition in key order. Between batches it holds no
// lock and re-seeks from the last key it returned.
type cursor struct {
	t         *table
	p         *partition
	asc       bool
	from      []byte
	inclusive bool
	buf       []byte
	pos       int
	done      bool
}

func (c *cursor) fill() {
	if c.done || c.pos < len(c.buf) {
		return
	}
	c.p.mu.RLock()
	c.buf = c.p.scan(c.t, c.buf[:0], c.from, c.inclusive, c.asc, cursorBatch)
	c.p.mu.RUnlock()
	c.pos = 0
	if len(c.buf) == 0 {
		c.done = true
		return
	}
	last := c.buf[len(c.buf)-c.t.width:]
	c.from = append(c.from[:0:0], last[:c.t.keyLen]...)
	c.inclusive = false
}

func (c *cursor) peek() []byte {
	c.fill()
	if c.done {
		return nil
	}
	return c.buf[c.pos : c.pos+c.t.width]
}

func (c *cursor) advance() {
	if !c.done {
		c.pos += c.t.width
	}
}

// merger interleaves two sources by key. Sources never share a key.
type merger struct {
	a, b   source
	asc    bool
	keyLen int
}

func (m *merger) pick() source {
	ra, rb := m.a.peek(), m.b.peek()
	switch {
	case ra == nil && rb == nil:
		return nil
	case ra == nil:
		return m.b
	case rb == nil:
		return m.a
	}
	c := compareKeys(ra[:m.keyLen], rb[:m.keyLen])
	if (m.asc && c <= 0) || (!m.asc && c >= 0) {
		return m.a
	}
	return m.b
}

func (m *merger) peek() []byte {
	if s := m.pick(); s != nil {
		return s.peek()
	}
	return nil
}

func (m *merger) advance() {
	if s := m.pick(); s != nil {
		s.advance()
	}
}

// mergeTree folds sources pairwise into one ordered source.
func mergeTree(srcs []source, asc bool, keyLen int) source {
	for len(srcs) > 1 {
		next := make([]source, 0, (len(srcs)+1)/2)
		for i := 0; i+1 < len(srcs); i += 2 {
			next = append(next, &merger{a: srcs[i], b: srcs[i+1], asc: asc, keyLen: keyLen})
		}
		if len(srcs)%2 == 1 {
			next = append(next, srcs[len(srcs)-1])
		}
		srcs = next
	}
	return srcs[0]
}

// rows yields raw rows in key order starting at from (inclusive). A nil
// from starts at the first key. Yielded slices are only valid during the
// call.
func (t *table) rows(asc bool, from []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		srcs := make([]source, len(t.parts))
		for i, p := range t.parts {
			srcs[i] = &cursor{
				t:         t,
				p:         p,
				asc:       asc,
				from:      bytes.Clone(from),
				inclusive: true,
			}
		}
		it := mergeTree(srcs, asc, t.keyLen)
		for row := it.peek(); row != nil; row = it.peek() {
			if !yield(row) {
				return
			}
			it.advance()
		}
	}
}

func (t *table) keys(asc bool, from []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for row := range t.rows(asc, from) {
			if !yield(bytes.Clone(row[:t.keyLen])) {
				return
			}
		}
	}
}
