package model

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// HandleSize is the byte length of a Handle.
const HandleSize = 12

// PostingKeySize is the byte length of a term handle followed by a document handle.
const PostingKeySize = 2 * HandleSize

// Handle is a fixed-length key for a term or a document.
type Handle [HandleSize]byte

func hash(s string) Handle {
	sum := md5.Sum([]byte(s))
	var enc [24]byte
	base64.RawURLEncoding.Encode(enc[:], sum[:])
	var h Handle
	copy(h[:], enc[:HandleSize])
	return h
}

// HashTerm returns the handle of a term. Terms are case-insensitive.
func HashTerm(term string) Handle {
	return hash(strings.ToLower(term))
}

// HashURL returns the handle of a document URL. Scheme and host are
// lower-cased and the fragment is dropped; an unparsable URL is hashed as is.
func HashURL(raw string) Handle {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return hash(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	return hash(u.String())
}

// ParseHandle converts a 12-character handle string.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	if len(s) != HandleSize {
		return h, fmt.Errorf("model: handle %q has length %d, want %d", s, len(s), HandleSize)
	}
	copy(h[:], s)
	return h, nil
}

// HandleFrom copies the first HandleSize bytes of b.
func HandleFrom(b []byte) Handle {
	var h Handle
	copy(h[:], b)
	return h
}

// String returns the handle characters.
func (h Handle) String() string { return string(h[:]) }

// Bytes returns a copy of the handle.
func (h Handle) Bytes() []byte { return bytes.Clone(h[:]) }

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// Compare orders handles lexicographically.
func (h Handle) Compare(o Handle) int { return bytes.Compare(h[:], o[:]) }

// PostingKey returns term ‖ doc, the key of one posting in a shared store.
func PostingKey(term, doc Handle) [PostingKeySize]byte {
	var k [PostingKeySize]byte
	copy(k[:HandleSize], term[:])
	copy(k[HandleSize:], doc[:])
	return k
}

// SplitPostingKey is the inverse of PostingKey.
func SplitPostingKey(k []byte) (term, doc Handle) {
	copy(term[:], k[:HandleSize])
	copy(doc[:], k[HandleSize:PostingKeySize])
	return term, doc
}
