package rwi

import (
	"fmt"
	"iter"
	"slices"

	"github.com/hupe1980/termdex/internal/recordstore"
	"github.com/hupe1980/termdex/model"
)

// Container is the posting list of one term. It holds at most one row per
// document and keeps rows in insertion order; replacing a document keeps
// its position. A Container is not safe for concurrent mutation.
type Container struct {
	term model.Handle
	rows []Row
	pos  map[model.Handle]int
}

// NewContainer returns an empty posting list for term.
func NewContainer(term model.Handle, capacity int) *Container {
	return &Container{
		term: term,
		rows: make([]Row, 0, capacity),
		pos:  make(map[model.Handle]int, capacity),
	}
}

// Term returns the term handle.
func (c *Container) Term() model.Handle { return c.term }

// Size returns the number of documents.
func (c *Container) Size() int { return len(c.rows) }

// Add inserts the row, replacing an existing row of the same document in
// place. It reports whether a row was replaced.
func (c *Container) Add(r Row) bool {
	doc := r.Doc()
	if i, ok := c.pos[doc]; ok {
		c.rows[i] = r
		return true
	}
	c.pos[doc] = len(c.rows)
	c.rows = append(c.rows, r)
	return false
}

// AddReference encodes ref and adds it.
func (c *Container) AddReference(ref Reference) bool { return c.Add(ref.Row()) }

// Row returns the encoded row of doc.
func (c *Container) Row(doc model.Handle) (Row, bool) {
	i, ok := c.pos[doc]
	if !ok {
		return Row{}, false
	}
	return c.rows[i], true
}

// Get returns the decoded reference of doc.
func (c *Container) Get(doc model.Handle) (Reference, bool) {
	r, ok := c.Row(doc)
	if !ok {
		return Reference{}, false
	}
	return r.Reference(), true
}

// Has reports whether doc is in the list.
func (c *Container) Has(doc model.Handle) bool {
	_, ok := c.pos[doc]
	return ok
}

// Remove deletes doc and reports whether it was present.
// Later rows shift down by one.
func (c *Container) Remove(doc model.Handle) bool {
	i, ok := c.pos[doc]
	if !ok {
		return false
	}
	c.rows = slices.Delete(c.rows, i, i+1)
	delete(c.pos, doc)
	for j := i; j < len(c.rows); j++ {
		c.pos[c.rows[j].Doc()] = j
	}
	return true
}

// All yields rows in storage order.
func (c *Container) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range c.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Sorted returns a copy of the rows ordered by document handle.
func (c *Container) Sorted() []Row {
	out := slices.Clone(c.rows)
	slices.SortFunc(out, func(a, b Row) int { return a.Doc().Compare(b.Doc()) })
	return out
}

// Docs returns the document handles in storage order.
func (c *Container) Docs() []model.Handle {
	out := make([]model.Handle, len(c.rows))
	for i := range c.rows {
		out[i] = c.rows[i].Doc()
	}
	return out
}

// Merge adds every row of o. Rows of o win on conflict.
func (c *Container) Merge(o *Container) {
	if o == nil {
		return
	}
	for _, r := range o.rows {
		c.Add(r)
	}
}

// Clone returns an independent copy.
func (c *Container) Clone() *Container {
	out := &Container{
		term: c.term,
		rows: slices.Clone(c.rows),
		pos:  make(map[model.Handle]int, len(c.rows)),
	}
	for k, v := range c.pos {
		out.pos[k] = v
	}
	return out
}

// Mem estimates the heap bytes held by the list.
func (c *Container) Mem() int64 {
	return int64(cap(c.rows))*RowSize + int64(len(c.pos))*(model.HandleSize+16)
}

// WriteTo replaces the contents of s with the rows of c.
func (c *Container) WriteTo(s *recordstore.Store) error {
	if s.Width() != RowSize {
		return fmt.Errorf("rwi: store width %d, want %d", s.Width(), RowSize)
	}
	if err := s.Clear(); err != nil {
		return err
	}
	for i := range c.rows {
		if _, err := s.Add(c.rows[i][:]); err != nil {
			return err
		}
	}
	return s.Sync()
}

// LoadContainer reads a posting list from a store written by WriteTo.
// Cleared records are skipped.
func LoadContainer(term model.Handle, s *recordstore.Store) (*Container, error) {
	if s.Width() != RowSize {
		return nil, fmt.Errorf("rwi: store width %d, want %d", s.Width(), RowSize)
	}
	n, err := s.Size()
	if err != nil {
		return nil, err
	}
	c := NewContainer(term, int(n))
	err = s.Scan(func(_ int64, rec []byte) error {
		var r Row
		copy(r[:], rec)
		if !r.IsZero() {
			c.Add(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
