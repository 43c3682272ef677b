package termdex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdex/model"
	"github.com/hupe1980/termdex/rwi"
)

func TestSearch_PrefersCloseTerms(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	near, far := doc(1), doc(2)
	_, err := ix.AddDocument(near, []TermOccurrence{
		{Term: "peer", Reference: ref(near, 10, 1)},
		{Term: "search", Reference: ref(near, 11, 1)},
	})
	require.NoError(t, err)
	_, err = ix.AddDocument(far, []TermOccurrence{
		{Term: "peer", Reference: ref(far, 10, 1)},
		{Term: "search", Reference: ref(far, 200, 1)},
	})
	require.NoError(t, err)

	results, err := ix.Search(t.Context(), Query{Include: []string{"peer", "search"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, near, results[0].Doc)
	assert.Equal(t, far, results[1].Doc)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, 1, results[0].Reference.WordDistance)
	assert.Equal(t, 190, results[1].Reference.WordDistance)
}

func TestSearch_RequiresAllTerms(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(2), 1, 1)))
	require.NoError(t, ix.Add("search", ref(doc(2), 2, 1)))

	results, err := ix.Search(t.Context(), Query{Include: []string{"peer", "search"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc(2), results[0].Doc)

	results, err = ix.Search(t.Context(), Query{Include: []string{"peer", "missing"}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ExcludeAndBlocked(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	for i := range 3 {
		require.NoError(t, ix.Add("peer", ref(doc(i), 1, 1)))
	}
	require.NoError(t, ix.Add("spam", ref(doc(1), 5, 1)))

	results, err := ix.Search(t.Context(), Query{Include: []string{"peer"}, Exclude: []string{"spam"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Handle{doc(0), doc(2)}, docsOf(results))

	require.NoError(t, ix.Block(doc(2)))
	results, err = ix.Search(t.Context(), Query{Include: []string{"peer"}, Exclude: []string{"spam"}})
	require.NoError(t, err)
	assert.Equal(t, []model.Handle{doc(0)}, docsOf(results))
}

func docsOf(rs []Result) []model.Handle {
	out := make([]model.Handle, len(rs))
	for i, r := range rs {
		out[i] = r.Doc
	}
	return out
}

func TestSearch_FlagsRecencyAndLimit(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	plain := ref(doc(1), 1, 1)
	titled := ref(doc(2), 1, 1)
	titled.Flags = rwi.FlagInTitle
	recent := ref(doc(3), 1, 1)
	recent.LastModified = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	plain.LastModified = time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	titled.LastModified = plain.LastModified

	for _, r := range []rwi.Reference{plain, titled, recent} {
		require.NoError(t, ix.Add("peer", r))
	}

	results, err := ix.Search(t.Context(), Query{Include: []string{"peer"}})
	require.NoError(t, err)
	assert.Equal(t, []model.Handle{doc(2), doc(3), doc(1)}, docsOf(results))

	results, err = ix.Search(t.Context(), Query{Include: []string{"peer"}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []model.Handle{doc(2)}, docsOf(results))
}

func TestSearch_TiesOrderedByDoc(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	for i := range 5 {
		require.NoError(t, ix.Add("peer", ref(doc(i), 1, 1)))
	}
	results, err := ix.Search(t.Context(), Query{Include: []string{"peer"}})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0].Score, results[i].Score)
		assert.Negative(t, results[i-1].Doc.Compare(results[i].Doc))
	}
}

func TestSearch_CustomRanking(t *testing.T) {
	ix, _ := openTest(t, WithRanking(Ranking{HitCount: 1}))
	defer ix.Close()

	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))
	require.NoError(t, ix.Add("peer", ref(doc(2), 90, 9)))

	results, err := ix.Search(t.Context(), Query{Include: []string{"peer"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, doc(2), results[0].Doc)
	assert.InDelta(t, 255.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)
}

func TestSearch_InvalidQuery(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()

	_, err := ix.Search(t.Context(), Query{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearch_ContextCanceled(t *testing.T) {
	ix, _ := openTest(t)
	defer ix.Close()
	require.NoError(t, ix.Add("peer", ref(doc(1), 1, 1)))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := ix.Search(ctx, Query{Include: []string{"peer"}})
	require.ErrorIs(t, err, context.Canceled)
}
