package recordstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdex/internal/fs"
)

const testWidth = 8

func rec(b byte) []byte {
	p := make([]byte, testWidth)
	for i := range p {
		p[i] = b
	}
	return p
}

func openTest(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.rec")
	s, err := Open(path, testWidth, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_AddGetPut(t *testing.T) {
	s, path := openTest(t)

	for i := range 5 {
		idx, err := s.Add(rec(byte(i + 1)))
		require.NoError(t, err)
		assert.Equal(t, int64(i), idx)
	}

	n, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	got, err := s.Read(3)
	require.NoError(t, err)
	assert.Equal(t, rec(4), got)

	require.NoError(t, s.Put(3, rec(9)))
	got, err = s.Read(3)
	require.NoError(t, err)
	assert.Equal(t, rec(9), got)

	// Put at Size appends.
	require.NoError(t, s.Put(5, rec(6)))
	n, _ = s.Size()
	assert.Equal(t, int64(6), n)

	require.ErrorIs(t, s.Put(7, rec(1)), ErrOutOfRange)
	_, err = s.Read(6)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.Add([]byte{1})
	require.ErrorIs(t, err, ErrInvalidPayload)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(6*testWidth), fi.Size())
}

func TestStore_Clean(t *testing.T) {
	s, _ := openTest(t)
	_, err := s.Add(rec(1))
	require.NoError(t, err)
	_, err = s.Add(rec(2))
	require.NoError(t, err)

	require.NoError(t, s.Clean(0))
	got, err := s.Read(0)
	require.NoError(t, err)
	assert.True(t, IsClean(got))

	n, _ := s.Size()
	assert.Equal(t, int64(2), n)
	assert.False(t, IsClean(rec(2)))
}

func TestStore_CleanLastRemovesExactlyOne(t *testing.T) {
	s, _ := openTest(t)
	_, err := s.Add(rec(7))
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, s.CleanLast(nil))
	}

	n, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStore_CleanLastVerified(t *testing.T) {
	s, path := openTest(t)
	_, err := s.Add(rec(1))
	require.NoError(t, err)
	_, err = s.Add(rec(2))
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.CleanLast(rec(1))
	require.ErrorIs(t, err, ErrVerificationFailed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, s.CleanLast(rec(2)))
	require.NoError(t, s.CleanLast(rec(1)))

	require.ErrorIs(t, s.CleanLast(rec(1)), ErrVerificationFailed)
	require.NoError(t, s.CleanLast(nil))
}

func TestStore_PopLastAndClear(t *testing.T) {
	s, _ := openTest(t)
	dst := make([]byte, testWidth)

	ok, err := s.PopLast(dst)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := range 3 {
		_, err := s.Add(rec(byte(i + 1)))
		require.NoError(t, err)
	}

	ok, err = s.PopLast(dst)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec(3), dst)

	require.NoError(t, s.Clear())
	n, _ := s.Size()
	assert.Equal(t, int64(0), n)
}

func TestStore_Scan(t *testing.T) {
	s, _ := openTest(t)
	total := scanBatch + 10
	for i := range total {
		_, err := s.Add(rec(byte(i % 251)))
		require.NoError(t, err)
	}

	var seen int64
	err := s.Scan(func(i int64, r []byte) error {
		assert.Equal(t, seen, i)
		assert.Equal(t, rec(byte(i%251)), r)
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(total), seen)

	stop := errors.New("stop")
	err = s.Scan(func(i int64, _ []byte) error {
		if i == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.rec")
	s, err := Open(path, testWidth)
	require.NoError(t, err)
	_, err = s.Add(rec(5))
	require.NoError(t, err)
	require.NoError(t, s.Sync())
	require.NoError(t, s.Close())

	s, err = Open(path, testWidth)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Read(0)
	require.NoError(t, err)
	assert.Equal(t, rec(5), got)
}

func TestStore_CorruptLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.rec")
	require.NoError(t, os.WriteFile(path, make([]byte, testWidth*2+3), 0o644))

	_, err := Open(path, testWidth)
	require.ErrorIs(t, err, ErrCorrupt)
	require.ErrorIs(t, err, ErrIO)

	cut, err := Repair(nil, path, testWidth)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cut)

	s, err := Open(path, testWidth)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cut, err = Repair(nil, filepath.Join(t.TempDir(), "missing"), testWidth)
	require.NoError(t, err)
	assert.Zero(t, cut)
}

func TestStore_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.rec")
	s, err := Open(path, testWidth)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Add(rec(1))
	require.ErrorIs(t, err, ErrClosed)
	_, err = s.Size()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.CleanLast(nil), ErrClosed)
	require.ErrorIs(t, s.Sync(), ErrClosed)
	require.ErrorIs(t, s.Close(), ErrClosed)
}

func TestStore_FaultInjection(t *testing.T) {
	t.Run("truncate failure keeps record", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule("records", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true})
		s, _ := openTest(t, WithFileSystem(ffs))

		_, err := s.Add(rec(1))
		require.NoError(t, err)

		err = s.CleanLast(rec(1))
		require.ErrorIs(t, err, ErrIO)
		require.ErrorIs(t, err, fs.ErrInjected)

		n, _ := s.Size()
		assert.Equal(t, int64(1), n)
	})

	t.Run("write failure surfaces as io error", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule("records", fs.Fault{FailAfterBytes: testWidth})
		s, _ := openTest(t, WithFileSystem(ffs))

		_, err := s.Add(rec(1))
		require.NoError(t, err)
		_, err = s.Add(rec(2))
		require.ErrorIs(t, err, ErrIO)

		n, err := s.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("sync failure", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule("records", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
		s, _ := openTest(t, WithFileSystem(ffs))
		require.ErrorIs(t, s.Sync(), ErrIO)
	})
}
