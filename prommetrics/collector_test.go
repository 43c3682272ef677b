package prommetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdex"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(WithRegisterer(reg))
	require.NoError(t, err)

	c.RecordAdd(time.Millisecond, nil)
	c.RecordAdd(time.Millisecond, errors.New("boom"))
	c.RecordRemove(3, time.Millisecond, nil)
	c.RecordSearch(2, 7, time.Millisecond, nil)
	c.RecordCacheLookup(true)
	c.RecordCacheLookup(false)
	c.RecordCacheLookup(false)
	c.RecordBackup(1024, time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("add", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.removed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cache.WithLabelValues("miss")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.backupSize))
	assert.Equal(t, 1, testutil.CollectAndCount(c.results))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(WithRegisterer(reg))
	require.NoError(t, err)

	_, err = New(WithRegisterer(reg))
	require.Error(t, err)

	_, err = New(WithRegisterer(reg), WithNamespace("other"))
	require.NoError(t, err)
}

func TestCollector_WithIndex(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(WithRegisterer(reg))
	require.NoError(t, err)

	ix, err := termdex.Open(t.TempDir(), termdex.WithMetricsCollector(c))
	require.NoError(t, err)
	d := termdex.TermOccurrence{Term: "peer"}
	d.Reference.Doc[0] = 1
	d.Reference.HitCount = 1
	_, err = ix.AddDocument(d.Reference.Doc, []termdex.TermOccurrence{d})
	require.NoError(t, err)
	_, err = ix.Search(t.Context(), termdex.Query{Include: []string{"peer"}})
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("search", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("checkpoint", "success")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "termdex_operations_total"))
}
