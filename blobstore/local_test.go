package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()
	s := NewLocalStore(root)
	assert.Equal(t, root, s.Root())

	w, err := s.Create(ctx, "000001/postings.rec")
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names, "upload in progress is listed")
	require.NoError(t, w.Close())
	assert.FileExists(t, filepath.Join(root, "000001", "postings.rec"))

	require.NoError(t, s.Put(ctx, "000001/terms.cnt", []byte("abc")))
	require.NoError(t, s.Put(ctx, "CURRENT", []byte("1")))

	names, err = s.List(ctx, "000001/")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001/postings.rec", "000001/terms.cnt"}, names)

	b, err := s.Open(ctx, "000001/postings.rec")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, int64(10), b.Size())

	buf := make([]byte, 4)
	n, err := b.ReadAt(ctx, buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(buf[:n]))

	r, err := Stream(ctx, b)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "0123456789", string(all))

	require.NoError(t, s.Delete(ctx, "000001/terms.cnt"))
	require.NoError(t, s.Delete(ctx, "000001/terms.cnt"))
	_, err = s.Open(ctx, "000001/terms.cnt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ReadRange(t *testing.T) {
	ctx := t.Context()
	s := NewLocalStore(t.TempDir())
	require.NoError(t, s.Put(ctx, "docs.cnt", []byte("0123456789")))

	b, err := s.Open(ctx, "docs.cnt")
	require.NoError(t, err)
	defer b.Close()

	tests := []struct {
		name      string
		off, size int64
		want      string
	}{
		{"whole", 0, 10, "0123456789"},
		{"middle", 2, 3, "234"},
		{"clamped at end", 8, 5, "89"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := b.ReadRange(ctx, tt.off, tt.size)
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err = b.ReadRange(ctx, 20, 5)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLocalStore_Abort(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()
	s := NewLocalStore(root)

	w, err := s.Create(ctx, "000002/free.bitmap")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	entries, err := os.ReadDir(filepath.Join(root, "000002"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
