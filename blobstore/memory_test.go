package blobstore

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()

	data := []byte("posting data")
	require.NoError(t, s.Put(ctx, "000001/postings.rec", data))
	data[0] = 'X'

	w, err := s.Create(ctx, "000001/terms.cnt")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001/postings.rec"}, names, "uncommitted blob is invisible")
	require.NoError(t, w.Close())

	names, err = s.List(ctx, "000001/")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001/postings.rec", "000001/terms.cnt"}, names)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(len("posting data")+len("streamed")), s.Bytes())

	b, err := s.Open(ctx, "000001/postings.rec")
	require.NoError(t, err)
	buf := make([]byte, 7)
	n, err := b.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "posting", string(buf[:n]))

	n, err = b.ReadAt(ctx, buf, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "data", string(buf[:n]))

	r, err := Stream(ctx, b)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "posting data", string(all))

	require.NoError(t, s.Delete(ctx, "000001/postings.rec"))
	_, err = s.Open(ctx, "000001/postings.rec")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_StreamEmpty(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "blocked.set", nil))

	b, err := s.Open(ctx, "blocked.set")
	require.NoError(t, err)
	r, err := Stream(ctx, b)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_Fault(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()
	boom := errors.New("boom")
	s.SetFault(func(op Op, name string) error {
		if op == OpWrite && name == "bad" {
			return boom
		}
		return nil
	})

	require.NoError(t, s.Put(ctx, "good", []byte("x")))
	require.ErrorIs(t, s.Put(ctx, "bad", []byte("x")), boom)

	w, err := s.Create(ctx, "bad")
	require.NoError(t, err)
	_, err = w.Write([]byte("y"))
	require.NoError(t, err)
	require.ErrorIs(t, w.Close(), boom)

	_, err = s.Open(ctx, "bad")
	require.ErrorIs(t, err, ErrNotFound)

	s.SetFault(nil)
	require.NoError(t, s.Put(ctx, "bad", []byte("x")))
}

func TestMemoryStore_Abort(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()

	w, err := s.Create(ctx, "000001/postings.rec")
	require.NoError(t, err)
	_, err = w.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))
	require.NoError(t, w.Close())

	assert.Zero(t, s.Len())
}
