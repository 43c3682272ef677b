package termdex

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdex/blobstore"
	"github.com/hupe1980/termdex/codec"
)

func populate(t *testing.T, ix *Index, n int) {
	t.Helper()
	for i := range n {
		_, err := ix.AddDocument(doc(i), []TermOccurrence{
			{Term: "peer", Reference: ref(doc(i), 1, 1)},
			{Term: "search", Reference: ref(doc(i), 4, 2)},
		})
		require.NoError(t, err)
	}
}

func TestBackup_RoundTrip(t *testing.T) {
	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	for name, blobs := range stores {
		t.Run(name, func(t *testing.T) {
			ix, _ := openTest(t, WithDumpCodec(codec.MustByName("zstd")))
			populate(t, ix, 10)
			_, err := ix.Remove("peer", doc(4))
			require.NoError(t, err)
			require.NoError(t, ix.Block(doc(7)))

			info, err := ix.Backup(t.Context(), blobs)
			require.NoError(t, err)
			require.NoError(t, ix.Close())

			assert.Equal(t, uint64(1), info.ID)
			assert.Equal(t, int64(19), info.Postings)
			assert.Equal(t, int64(2), info.Terms)
			assert.Equal(t, int64(10), info.Documents)
			assert.Equal(t, 7, info.Files)
			assert.Positive(t, info.Bytes)
			assert.False(t, info.CreatedAt.IsZero())

			restored, err := Restore(t.Context(), blobs, filepath.Join(t.TempDir(), "restored"))
			require.NoError(t, err)
			defer restored.Close()

			assert.False(t, restored.dirty)
			assert.Equal(t, codec.MustByName("zstd").Name(), restored.opts.codec.Name())
			assert.Equal(t, int64(9), restored.Count("peer"))
			assert.Equal(t, int64(10), restored.Count("search"))
			assert.True(t, restored.IsBlocked(doc(7)))

			got, ok, err := restored.Get("search", doc(3))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 2, got.HitCount)

			results, err := restored.Search(t.Context(), Query{Include: []string{"peer", "search"}})
			require.NoError(t, err)
			assert.Len(t, results, 8)
		})
	}
}

func TestBackup_VersionsAndPrune(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	ix, _ := openTest(t)
	defer ix.Close()

	for i := range 3 {
		require.NoError(t, ix.Add("peer", ref(doc(i), 1, 1)))
		_, err := ix.Backup(t.Context(), blobs)
		require.NoError(t, err)
	}

	backups, err := ListBackups(t.Context(), blobs)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	for i, b := range backups {
		assert.Equal(t, uint64(i+1), b.ID)
		assert.Equal(t, int64(i+1), b.Postings)
	}

	old, err := RestoreVersion(t.Context(), blobs, 1, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(1), old.Count("peer"))
	require.NoError(t, old.Close())

	deleted, err := PruneBackups(t.Context(), blobs, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	backups, err = ListBackups(t.Context(), blobs)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, uint64(3), backups[0].ID)

	names, err := blobs.List(t.Context(), "000001/")
	require.NoError(t, err)
	assert.Empty(t, names)

	latest, err := Restore(t.Context(), blobs, t.TempDir())
	require.NoError(t, err)
	defer latest.Close()
	assert.Equal(t, int64(3), latest.Count("peer"))
}

func TestBackup_CorruptBlob(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	ix, _ := openTest(t)
	populate(t, ix, 3)
	_, err := ix.Backup(t.Context(), blobs)
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	require.NoError(t, blobs.Put(t.Context(), "000001/"+RecordFile, []byte("not a record file")))

	_, err = Restore(t.Context(), blobs, t.TempDir())
	require.ErrorIs(t, err, ErrCorruptStore)
}

func TestBackup_RestoreErrors(t *testing.T) {
	blobs := blobstore.NewMemoryStore()

	_, err := Restore(t.Context(), blobs, t.TempDir())
	require.ErrorIs(t, err, ErrInvalidArgument)

	ix, dir := openTest(t)
	defer ix.Close()
	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	_, err = ix.Backup(t.Context(), blobs)
	require.NoError(t, err)

	_, err = Restore(t.Context(), blobs, dir)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = RestoreVersion(t.Context(), blobs, 42, t.TempDir())
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBackup_UploadFailureKeepsCurrent(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	ix, _ := openTest(t)
	defer ix.Close()

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	_, err := ix.Backup(t.Context(), blobs)
	require.NoError(t, err)

	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))
	blobs.SetFault(func(op blobstore.Op, name string) error {
		if op == blobstore.OpWrite && strings.HasPrefix(name, "000002/"+DocsFile) {
			return errors.New("disk full")
		}
		return nil
	})
	_, err = ix.Backup(t.Context(), blobs)
	require.ErrorIs(t, err, ErrIO)
	blobs.SetFault(nil)

	backups, err := ListBackups(t.Context(), blobs)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	restored, err := Restore(t.Context(), blobs, t.TempDir())
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, int64(1), restored.Count("peer"))

	info, err := ix.Backup(t.Context(), blobs)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.ID)
	assert.Equal(t, int64(2), info.Postings)
}

func TestBackup_ClosedIndex(t *testing.T) {
	ix, _ := openTest(t)
	require.NoError(t, ix.Close())

	_, err := ix.Backup(t.Context(), blobstore.NewMemoryStore())
	require.ErrorIs(t, err, ErrClosed)
}

func TestBackup_Metrics(t *testing.T) {
	m := &BasicMetricsCollector{}
	ix, _ := openTest(t, WithMetricsCollector(m))
	defer ix.Close()
	populate(t, ix, 2)

	info, err := ix.Backup(t.Context(), blobstore.NewMemoryStore())
	require.NoError(t, err)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Backups)
	assert.Equal(t, int64(0), stats.BackupErrors)
	assert.Equal(t, info.Bytes, stats.BackupBytes)
}
