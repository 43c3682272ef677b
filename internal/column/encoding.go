package column

import "fmt"

// EncodeB256 writes v big-endian into dst using exactly len(dst) bytes.
func EncodeB256(dst []byte, v uint64) error {
	w := len(dst)
	if w < 8 && v>>(8*uint(w)) != 0 {
		return fmt.Errorf("%w: %d does not fit %d bytes", ErrOverflow, v, w)
	}
	for i := w - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
	return nil
}

// DecodeB256 reads a big-endian cardinal of len(b) bytes.
func DecodeB256(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// b64Alphabet is the URL-safe base-64 alphabet in digit order.
const b64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var b64Digits = func() (t [256]int8) {
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(b64Alphabet); i++ {
		t[b64Alphabet[i]] = int8(i)
	}
	return t
}()

// EncodeB64e writes v as len(dst) big-endian base-64 digits.
func EncodeB64e(dst []byte, v uint64) error {
	w := len(dst)
	if w < 11 && v>>(6*uint(w)) != 0 {
		return fmt.Errorf("%w: %d does not fit %d base-64 digits", ErrOverflow, v, w)
	}
	for i := w - 1; i >= 0; i-- {
		dst[i] = b64Alphabet[v&63]
		v >>= 6
	}
	return nil
}

// DecodeB64e reads big-endian base-64 digits. An all-zero slice (a cleared
// slot) decodes to 0.
func DecodeB64e(b []byte) (uint64, error) {
	var v uint64
	for _, c := range b {
		if c == 0 {
			v <<= 6
			continue
		}
		d := b64Digits[c]
		if d < 0 {
			return 0, fmt.Errorf("column: invalid base-64 digit %q", c)
		}
		v = v<<6 | uint64(d)
	}
	return v, nil
}
