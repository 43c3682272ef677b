package column

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrParse is returned for unknown or malformed column declarations.
	ErrParse = errors.New("column: malformed declaration")

	// ErrOverflow is returned when a value does not fit the column width.
	ErrOverflow = errors.New("column: value exceeds column width")

	// ErrWidth is returned when a payload does not match the row width.
	ErrWidth = errors.New("column: width mismatch")
)

// Encoder selects how a column stores its value.
type Encoder uint8

const (
	// EncoderBytes stores raw bytes.
	EncoderBytes Encoder = iota
	// EncoderB256 stores a cardinal big-endian in base 256.
	EncoderB256
	// EncoderB64e stores a cardinal as big-endian base-64 digits.
	EncoderB64e
)

func (e Encoder) String() string {
	switch e {
	case EncoderB256:
		return "b256"
	case EncoderB64e:
		return "b64e"
	default:
		return "bytes"
	}
}

// maxWidth bounds cardinal widths so the maximum value still fits a uint64.
func (e Encoder) maxWidth() int {
	switch e {
	case EncoderB256:
		return 8
	case EncoderB64e:
		return 10
	default:
		return 1 << 16
	}
}

// Column describes one field of a row.
type Column struct {
	Name        string
	TypeName    string
	Width       int
	Encoder     Encoder
	Description string
}

// Cardinal reports whether the column stores an integer.
func (c Column) Cardinal() bool { return c.Encoder != EncoderBytes }

// MaxValue returns the largest integer the column can hold.
// Binary columns return 0.
func (c Column) MaxValue() uint64 {
	switch c.Encoder {
	case EncoderB256:
		if c.Width >= 8 {
			return ^uint64(0)
		}
		return 1<<(8*uint(c.Width)) - 1
	case EncoderB64e:
		return 1<<(6*uint(c.Width)) - 1
	default:
		return 0
	}
}

// String renders the column in declaration form.
func (c Column) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s-%d", c.TypeName, c.Name, c.Width)
	if c.Cardinal() {
		fmt.Fprintf(&sb, " {%s}", c.Encoder)
	}
	if c.Description != "" {
		fmt.Fprintf(&sb, " %q", c.Description)
	}
	return sb.String()
}

// Bytes returns a binary column of the given width.
func Bytes(name string, width int, description string) Column {
	return Column{Name: name, TypeName: "byte[]", Width: width, Encoder: EncoderBytes, Description: description}
}

type typeInfo struct {
	width    int // 0 = explicit width required
	cardinal bool
}

var types = map[string]typeInfo{
	"boolean":  {1, true},
	"byte":     {1, true},
	"char":     {1, true},
	"short":    {2, true},
	"int":      {4, true},
	"long":     {8, true},
	"float":    {4, true},
	"double":   {8, true},
	"byte[]":   {0, false},
	"String":   {0, false},
	"Bitfield": {0, false},
}

// Parse parses a column declaration.
func Parse(decl string) (Column, error) {
	s := strings.TrimSpace(decl)
	if strings.HasPrefix(s, "<") {
		if !strings.HasSuffix(s, ">") {
			return Column{}, fmt.Errorf("%w: unbalanced brackets in %q", ErrParse, decl)
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	var c Column

	if i := strings.IndexByte(s, '"'); i >= 0 {
		j := strings.LastIndexByte(s, '"')
		if j == i || strings.TrimSpace(s[j+1:]) != "" {
			return Column{}, fmt.Errorf("%w: unterminated description in %q", ErrParse, decl)
		}
		c.Description = s[i+1 : j]
		s = strings.TrimSpace(s[:i])
	}

	encoder, explicitEncoder := EncoderBytes, false
	if i := strings.IndexByte(s, '{'); i >= 0 {
		j := strings.IndexByte(s, '}')
		if j < i || strings.TrimSpace(s[j+1:]) != "" {
			return Column{}, fmt.Errorf("%w: bad encoder clause in %q", ErrParse, decl)
		}
		switch strings.TrimSpace(s[i+1 : j]) {
		case "b256":
			encoder = EncoderB256
		case "b64e":
			encoder = EncoderB64e
		case "bytes":
			encoder = EncoderBytes
		default:
			return Column{}, fmt.Errorf("%w: unknown encoder %q", ErrParse, s[i+1:j])
		}
		explicitEncoder = true
		s = strings.TrimSpace(s[:i])
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Column{}, fmt.Errorf("%w: want <type> <name>, got %q", ErrParse, decl)
	}

	c.TypeName = fields[0]
	info, ok := types[c.TypeName]
	if !ok {
		return Column{}, fmt.Errorf("%w: unknown type %q", ErrParse, c.TypeName)
	}

	name := fields[1]
	c.Width = info.width
	if i := strings.LastIndexByte(name, '-'); i >= 0 {
		w, err := strconv.Atoi(name[i+1:])
		if err != nil || w <= 0 {
			return Column{}, fmt.Errorf("%w: bad width in %q", ErrParse, name)
		}
		c.Width = w
		name = name[:i]
	}
	if !validName(name) {
		return Column{}, fmt.Errorf("%w: bad column name %q", ErrParse, name)
	}
	c.Name = name

	if c.Width == 0 {
		return Column{}, fmt.Errorf("%w: type %s needs an explicit width", ErrParse, c.TypeName)
	}

	switch {
	case !explicitEncoder && info.cardinal:
		encoder = EncoderB256
	case explicitEncoder && encoder != EncoderBytes && !info.cardinal:
		return Column{}, fmt.Errorf("%w: %s cannot use a cardinal encoder", ErrParse, c.TypeName)
	}
	if c.Width > encoder.maxWidth() {
		return Column{}, fmt.Errorf("%w: width %d too large for %s", ErrParse, c.Width, encoder)
	}
	c.Encoder = encoder

	return c, nil
}

// MustParse is like Parse but panics on error. Use it for static schemas.
func MustParse(decl string) Column {
	c, err := Parse(decl)
	if err != nil {
		panic(err)
	}
	return c
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
