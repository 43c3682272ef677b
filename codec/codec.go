// Package codec selects the byte-stream transform applied to index dumps.
//
// A dump file name carries its codec as a suffix ("terms.cnt.zst"), so a
// reload never needs a header to decide how to decode. Changing the codec of
// an index only affects dumps written afterwards.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Codec wraps readers and writers with a compression stream.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name returns the stable codec name used in configuration.
	Name() string
	// Ext returns the file suffix including the dot, or "" for None.
	Ext() string
	// NewWriter returns a writer compressing into w. Close flushes the
	// stream but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader returns a reader decompressing r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

var builtin = []Codec{None{}, Gzip{}, Zstd{}, S2{}, LZ4{}}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	for _, c := range builtin {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// MustByName is ByName for static configuration. It panics on unknown names.
func MustByName(name string) Codec {
	c, ok := ByName(name)
	if !ok {
		panic(fmt.Sprintf("codec: unknown codec %q", name))
	}
	return c
}

// ForPath returns the codec matching the suffix of path, or None.
func ForPath(path string) Codec {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return None{}
	}
	for _, c := range builtin {
		if c.Ext() == ext {
			return c
		}
	}
	return None{}
}

// Names returns the names of all built-in codecs.
func Names() []string {
	names := make([]string, len(builtin))
	for i, c := range builtin {
		names[i] = c.Name()
	}
	return names
}

// Default is the codec used for new dumps unless configured otherwise.
var Default Codec = None{}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// None passes bytes through unchanged. Uncompressed dumps can be memory-mapped on reload.
type None struct{}

func (None) Name() string { return "none" }
func (None) Ext() string  { return "" }

func (None) NewWriter(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil }
func (None) NewReader(r io.Reader) (io.ReadCloser, error)  { return io.NopCloser(r), nil }
