package termdex

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/termdex/model"
	"github.com/hupe1980/termdex/rwi"
)

func doc(i int) model.Handle {
	return model.HashURL(fmt.Sprintf("https://example.org/page/%d", i))
}

func ref(d model.Handle, pos, hits int) rwi.Reference {
	return rwi.Reference{
		Doc:         d,
		PosInText:   pos,
		HitCount:    hits,
		WordsInText: 100,
		URLLength:   30,
		URLComps:    3,
	}
}

func openTest(t *testing.T, opts ...Option) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	ix, err := Open(dir, opts...)
	require.NoError(t, err)
	return ix, dir
}

// crash drops the index without writing a checkpoint.
func crash(t *testing.T, ix *Index) {
	t.Helper()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
	require.NoError(t, ix.store.Close())
}

func TestIndex_AddGetRemove(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	for i := range 3 {
		require.NoError(t, ix.Add("peer", ref(doc(i), i+1, 2)))
	}
	assert.Equal(t, int64(3), ix.Count("peer"))
	assert.Equal(t, int64(0), ix.Count("missing"))

	got, ok, err := ix.Get("peer", doc(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc(1), got.Doc)
	assert.Equal(t, 2, got.PosInText)

	_, ok, err = ix.Get("peer", doc(9))
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := ix.Remove("peer", doc(1))
	require.NoError(t, err)
	assert.True(t, removed)

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Postings)
	assert.Equal(t, int64(3), stats.Records)
	assert.Equal(t, int64(1), stats.FreeSlots)

	// Removing the last record also cuts the cleared slot before it.
	removed, err = ix.Remove("peer", doc(2))
	require.NoError(t, err)
	assert.True(t, removed)

	stats, err = ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Postings)
	assert.Equal(t, int64(1), stats.Records)
	assert.Equal(t, int64(0), stats.FreeSlots)

	removed, err = ix.Remove("peer", doc(2))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIndex_FreeSlotReuse(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	for i := range 4 {
		require.NoError(t, ix.Add("peer", ref(doc(i), 1, 1)))
	}
	_, err := ix.Remove("peer", doc(2))
	require.NoError(t, err)
	_, err = ix.Remove("peer", doc(0))
	require.NoError(t, err)

	require.NoError(t, ix.Add("search", ref(doc(7), 1, 1)))

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Records)
	assert.Equal(t, int64(1), stats.FreeSlots)
	assert.Equal(t, int64(0), ix.postingOrdinal(t, "search", doc(7)))
}

func (ix *Index) postingOrdinal(t *testing.T, term string, d model.Handle) int64 {
	t.Helper()
	key := model.PostingKey(model.HashTerm(term), d)
	o, ok := ix.postings.Get(key[:])
	require.True(t, ok)
	return o
}

func TestIndex_AddOverwrites(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(1), 5, 9)))

	assert.Equal(t, int64(1), ix.Count("peer"))
	got, ok, err := ix.Get("peer", doc(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, got.HitCount)
	assert.Equal(t, 5, got.PosInText)

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Records)
}

func TestIndex_InvalidArguments(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	err := ix.Add("peer", rwi.Reference{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ix.AddDocument(model.Handle{}, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIndex_AddDocumentAndRemoveDocument(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	d := doc(1)
	n, err := ix.AddDocument(d, []TermOccurrence{
		{Term: "peer", Reference: rwi.Reference{PosInText: 1, HitCount: 1}},
		{Term: "to", Reference: rwi.Reference{PosInText: 2, HitCount: 1}},
		{Term: "peer", Reference: rwi.Reference{PosInText: 3, HitCount: 2}},
		{Term: "search", Reference: rwi.Reference{PosInText: 4, HitCount: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	terms := ix.DocumentTerms(d)
	assert.Len(t, terms, 3)
	assert.Contains(t, terms, model.HashTerm("search"))
	assert.Equal(t, int64(1), ix.Count("peer"))

	got, ok, err := ix.Get("peer", d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.HitCount)

	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))

	removed, err := ix.RemoveDocument(d)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, ix.DocumentTerms(d))
	assert.Equal(t, int64(1), ix.Count("peer"))
	assert.Equal(t, int64(0), ix.Count("search"))

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, int64(1), stats.Terms)
}

func TestIndex_CapacityRollback(t *testing.T) {
	ix, dir := openTest(t, WithCapacity(2))
	defer ix.Close()

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))

	err := ix.Add("search", ref(doc(3), 1, 1))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(2), stats.Postings)
	assert.Equal(t, int64(2), stats.Documents)
	assert.Equal(t, int64(0), ix.Count("search"))

	fi, err := os.Stat(filepath.Join(dir, RecordFile))
	require.NoError(t, err)
	assert.Equal(t, int64(2*RecordWidth), fi.Size())

	// Updating an existing posting needs no capacity.
	require.NoError(t, ix.Add("peer", ref(doc(2), 4, 4)))

	_, err = ix.Remove("peer", doc(1))
	require.NoError(t, err)
	require.NoError(t, ix.Add("search", ref(doc(3), 1, 1)))
	assert.Equal(t, int64(1), ix.Count("search"))
}

func TestIndex_Blocked(t *testing.T) {
	ix, dir := openTest(t)

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Block(doc(1)))
	require.NoError(t, ix.Block(doc(2)))
	assert.True(t, ix.IsBlocked(doc(2)))

	err := ix.Add("peer", ref(doc(2), 1, 1))
	require.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, int64(1), ix.Count("peer"))

	require.NoError(t, ix.Unblock(doc(1)))
	require.NoError(t, ix.Unblock(doc(1)))
	assert.False(t, ix.IsBlocked(doc(1)))

	// The blocked set survives an unclean shutdown.
	crash(t, ix)
	ix, err = Open(dir)
	require.NoError(t, err)
	defer ix.Close()
	assert.True(t, ix.IsBlocked(doc(2)))
	assert.False(t, ix.IsBlocked(doc(1)))
	assert.Equal(t, int64(1), ix.Count("peer"))
}

func TestIndex_ReferencesCache(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	ix, _ := openTest(t, WithMetricsCollector(metrics), WithCacheShards(1))
	defer ix.Close()

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))
	require.NoError(t, ix.Add("other", ref(doc(3), 1, 1)))

	c, err := ix.References("peer")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size())
	assert.True(t, c.Has(doc(2)))
	assert.False(t, c.Has(doc(3)))

	// The returned list is a copy.
	c.Remove(doc(1))
	c, err = ix.References("peer")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size())

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)

	// A write invalidates the cached list.
	require.NoError(t, ix.Add("peer", ref(doc(4), 1, 1)))
	c, err = ix.References("peer")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Size())

	_, err = ix.Remove("peer", doc(1))
	require.NoError(t, err)
	c, err = ix.References("peer")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size())

	empty, err := ix.References("missing")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Size())
}

func TestIndex_TopTerms(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	for i := range 5 {
		require.NoError(t, ix.Add("common", ref(doc(i), 1, 1)))
	}
	for i := range 2 {
		require.NoError(t, ix.Add("rare", ref(doc(i), 1, 1)))
	}
	require.NoError(t, ix.Add("unique", ref(doc(0), 1, 1)))

	top := ix.TopTerms(2)
	require.Len(t, top, 2)
	assert.Equal(t, TermCount{Term: model.HashTerm("common"), Count: 5}, top[0])
	assert.Equal(t, TermCount{Term: model.HashTerm("rare"), Count: 2}, top[1])
}

func TestIndex_Closed(t *testing.T) {
	ix, _ := openTest(t)
	require.NoError(t, ix.Close())

	require.ErrorIs(t, ix.Close(), ErrClosed)
	require.ErrorIs(t, ix.Add("peer", ref(doc(1), 1, 1)), ErrClosed)
	_, err := ix.References("peer")
	require.ErrorIs(t, err, ErrClosed)
	_, err = ix.Stats()
	require.ErrorIs(t, err, ErrClosed)
	_, err = ix.Search(t.Context(), Query{Include: []string{"peer"}})
	require.ErrorIs(t, err, ErrClosed)
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	ix, _ := openTest(t, WithCacheSize(4))
	defer ix.Close()

	const (
		writers = 8
		perW    = 50
	)
	var g errgroup.Group
	for w := range writers {
		g.Go(func() error {
			for i := range perW {
				d := doc(w*perW + i)
				if err := ix.Add("peer", ref(d, i, 1)); err != nil {
					return err
				}
				if _, err := ix.References("peer"); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(writers*perW), ix.Count("peer"))
	c, err := ix.References("peer")
	require.NoError(t, err)
	assert.Equal(t, writers*perW, c.Size())
}

func TestIndex_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	ix, _ := openTest(t, WithMetricsCollector(metrics), WithLogger(nil))

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.Error(t, ix.Add("peer", rwi.Reference{}))
	_, err := ix.Remove("peer", doc(1))
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.AddCount)
	assert.Equal(t, int64(1), stats.AddErrors)
	assert.Equal(t, int64(1), stats.RemoveCount)
	assert.Equal(t, int64(1), stats.RemovedRefs)
	assert.Equal(t, int64(1), stats.Checkpoints)
}

func TestIndex_ColdCacheReads(t *testing.T) {
	ix, dir := openTest(t)
	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))
	require.NoError(t, ix.Add("search", ref(doc(2), 2, 1)))
	require.NoError(t, ix.Close())

	ix, err := Open(dir)
	require.NoError(t, err)
	defer ix.Close()

	c, err := ix.References("peer")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Size())

	c, err = ix.References("missing")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Zero(t, c.Size())

	results, err := ix.Search(t.Context(), Query{Include: []string{"search", "peer"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc(2), results[0].Doc)
}

func TestIndex_ColdCacheExclude(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()
	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))
	require.NoError(t, ix.Add("spam", ref(doc(1), 1, 1)))

	results, err := ix.Search(t.Context(), Query{Include: []string{"peer"}, Exclude: []string{"spam"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc(2), results[0].Doc)
}

func TestIndex_ReadsAfterClose(t *testing.T) {
	ix, _ := openTest(t)
	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Block(doc(2)))
	require.NoError(t, ix.Close())

	assert.Zero(t, ix.Count("peer"))
	assert.Nil(t, ix.DocumentTerms(doc(1)))
	assert.Nil(t, ix.TopTerms(5))
	assert.False(t, ix.IsBlocked(doc(2)))

	_, err := ix.References("peer")
	require.ErrorIs(t, err, ErrClosed)
}
