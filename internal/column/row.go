package column

import (
	"fmt"
	"strings"
)

// Row is an ordered set of columns forming a fixed-width record layout.
type Row struct {
	cols    []Column
	offsets []int
	width   int
	byName  map[string]int
}

// NewRow builds a row layout from columns. Names must be unique.
func NewRow(cols ...Column) (*Row, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: row without columns", ErrParse)
	}
	r := &Row{
		cols:    append([]Column(nil), cols...),
		offsets: make([]int, len(cols)),
		byName:  make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Width <= 0 {
			return nil, fmt.Errorf("%w: column %q has width %d", ErrParse, c.Name, c.Width)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrParse, c.Name)
		}
		r.byName[c.Name] = i
		r.offsets[i] = r.width
		r.width += c.Width
	}
	return r, nil
}

// ParseRow parses one declaration per column.
func ParseRow(decls ...string) (*Row, error) {
	cols := make([]Column, 0, len(decls))
	for _, d := range decls {
		c, err := Parse(d)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return NewRow(cols...)
}

// MustRow is like NewRow but panics on error.
func MustRow(cols ...Column) *Row {
	r, err := NewRow(cols...)
	if err != nil {
		panic(err)
	}
	return r
}

// Width returns the row width in bytes.
func (r *Row) Width() int { return r.width }

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.cols) }

// Column returns column i.
func (r *Row) Column(i int) Column { return r.cols[i] }

// Offset returns the byte offset of column i.
func (r *Row) Offset(i int) int { return r.offsets[i] }

// Index returns the position of the named column.
func (r *Row) Index(name string) (int, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// NewEntry returns a zeroed entry.
func (r *Row) NewEntry() Entry {
	return Entry{row: r, b: make([]byte, r.width)}
}

// Wrap views b as an entry without copying. b must be exactly Width bytes.
func (r *Row) Wrap(b []byte) (Entry, error) {
	if len(b) != r.width {
		return Entry{}, fmt.Errorf("%w: got %d bytes, row is %d", ErrWidth, len(b), r.width)
	}
	return Entry{row: r, b: b}, nil
}

// Entry is one row value backed by a byte slice.
type Entry struct {
	row *Row
	b   []byte
}

// Bytes returns the backing bytes.
func (e Entry) Bytes() []byte { return e.b }

// Row returns the layout of the entry.
func (e Entry) Row() *Row { return e.row }

// Col returns the bytes of column i. The slice aliases the entry.
func (e Entry) Col(i int) []byte {
	off := e.row.offsets[i]
	return e.b[off : off+e.row.cols[i].Width]
}

// Int decodes cardinal column i.
func (e Entry) Int(i int) uint64 {
	c := e.row.cols[i]
	if c.Encoder == EncoderB64e {
		v, _ := DecodeB64e(e.Col(i))
		return v
	}
	return DecodeB256(e.Col(i))
}

// SetInt encodes v into cardinal column i.
func (e Entry) SetInt(i int, v uint64) error {
	c := e.row.cols[i]
	switch c.Encoder {
	case EncoderB256:
		return EncodeB256(e.Col(i), v)
	case EncoderB64e:
		return EncodeB64e(e.Col(i), v)
	default:
		return fmt.Errorf("column %q is not cardinal", c.Name)
	}
}

// SetIntSaturated encodes v, clamping it to the column maximum.
func (e Entry) SetIntSaturated(i int, v uint64) {
	if m := e.row.cols[i].MaxValue(); v > m {
		v = m
	}
	_ = e.SetInt(i, v)
}

// SetBytes copies b into column i, zero-padding on the right.
func (e Entry) SetBytes(i int, b []byte) error {
	col := e.Col(i)
	if len(b) > len(col) {
		return fmt.Errorf("%w: %d bytes into column %q of width %d", ErrOverflow, len(b), e.row.cols[i].Name, len(col))
	}
	n := copy(col, b)
	clear(col[n:])
	return nil
}

// String renders the entry as name=value pairs.
func (e Entry) String() string {
	var sb strings.Builder
	for i, c := range e.row.cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.Name)
		sb.WriteByte('=')
		if c.Cardinal() {
			fmt.Fprintf(&sb, "%d", e.Int(i))
		} else {
			fmt.Fprintf(&sb, "%q", e.Col(i))
		}
	}
	return sb.String()
}
