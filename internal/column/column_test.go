package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultWidths(t *testing.T) {
	tests := []struct {
		decl  string
		name  string
		width int
		enc   Encoder
	}{
		{"long countA {b256}", "countA", 8, EncoderB256},
		{"int icountA {b256}", "icountA", 4, EncoderB256},
		{"long countB-8 {b256}", "countB", 8, EncoderB256},
		{"long c-5 {b256}", "c", 5, EncoderB256},
		{"<short s {b256}>", "s", 2, EncoderB256},
		{"byte hitcount", "hitcount", 1, EncoderB256},
		{"int t-2 {b64e}", "t", 2, EncoderB64e},
		{`byte[] h-12 "urlhash"`, "h", 12, EncoderBytes},
		{`< Bitfield z-4 {bytes} "flags" >`, "z", 4, EncoderBytes},
	}

	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			c, err := Parse(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.width, c.Width)
			assert.Equal(t, tt.enc, c.Encoder)
		})
	}
}

func TestParse_Description(t *testing.T) {
	c, err := Parse(`int posintext-2 {b256} "first appearance of the word in text"`)
	require.NoError(t, err)
	assert.Equal(t, "first appearance of the word in text", c.Description)
	assert.Equal(t, uint64(65535), c.MaxValue())

	again, err := Parse(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestParse_Malformed(t *testing.T) {
	for _, decl := range []string{
		"",
		"long",
		"long {b256}",
		"foo bar {b256}",
		"long x {b999}",
		"long x-abc {b256}",
		"long x-0 {b256}",
		"long x-9 {b256}",
		"int x-11 {b64e}",
		"byte[] h",
		"byte[] h-4 {b256}",
		"long x {b256",
		`long x "unterminated`,
		"<long x {b256}",
		"long x y {b256}",
		"long x!y",
	} {
		t.Run(decl, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := Parse(decl)
				assert.ErrorIs(t, err, ErrParse)
			})
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nonsense") })
}

func TestRow_Layout(t *testing.T) {
	r, err := ParseRow(`byte[] key-12`, "long value {b256}", "int hits-2 {b64e}")
	require.NoError(t, err)

	assert.Equal(t, 22, r.Width())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 12, r.Offset(1))
	assert.Equal(t, 20, r.Offset(2))

	i, ok := r.Index("hits")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, err = ParseRow("long a", "int a")
	assert.ErrorIs(t, err, ErrParse)
}

func TestEntry_Roundtrip(t *testing.T) {
	r, err := ParseRow(`byte[] key-4`, "long value {b256}", "short small-1 {b256}", "int digits-2 {b64e}")
	require.NoError(t, err)

	e := r.NewEntry()
	require.NoError(t, e.SetBytes(0, []byte("ab")))
	require.NoError(t, e.SetInt(1, ^uint64(0)))
	require.NoError(t, e.SetInt(2, 255))
	require.NoError(t, e.SetInt(3, 4095))

	assert.Equal(t, []byte{'a', 'b', 0, 0}, e.Col(0))
	assert.Equal(t, ^uint64(0), e.Int(1))
	assert.Equal(t, uint64(255), e.Int(2))
	assert.Equal(t, uint64(4095), e.Int(3))
	assert.Equal(t, "__", string(e.Col(3)))

	assert.ErrorIs(t, e.SetInt(2, 256), ErrOverflow)
	assert.ErrorIs(t, e.SetInt(3, 4096), ErrOverflow)
	assert.ErrorIs(t, e.SetBytes(0, []byte("abcde")), ErrOverflow)

	e.SetIntSaturated(2, 1000)
	assert.Equal(t, uint64(255), e.Int(2))

	w, err := r.Wrap(e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(255), w.Int(2))

	_, err = r.Wrap(make([]byte, 3))
	assert.ErrorIs(t, err, ErrWidth)
}

func TestB256_Minimal(t *testing.T) {
	b := make([]byte, 3)
	require.NoError(t, EncodeB256(b, 0x010203))
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, uint64(0x010203), DecodeB256(b))
	assert.ErrorIs(t, EncodeB256(b, 1<<24), ErrOverflow)
}

func TestB64e_ZeroSlot(t *testing.T) {
	v, err := DecodeB64e([]byte{0, 0})
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = DecodeB64e([]byte("*"))
	assert.Error(t, err)
}
