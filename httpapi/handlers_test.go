package httpapi

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravendb/ravenidx/index"
	"github.com/ravendb/ravenidx/index/vfs"
)

func newTestIndex(t *testing.T, name string) *index.Index {
	t.Helper()
	def := &index.Definition{
		Name:   name,
		Fields: map[string]index.FieldDefinition{"title": {Indexing: index.Analyzed}},
	}
	idx, err := index.NewIndex(def, vfs.NewMemDir(), index.DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)
	return idx
}

func newTestManager(t *testing.T, idx *index.Index) *index.Manager {
	t.Helper()
	mgr := index.NewManager()
	require.NoError(t, mgr.Register(idx))
	return mgr
}

func TestStatsHandlerUnknownIndex(t *testing.T) {
	mgr := index.NewManager()
	req := httptest.NewRequest("GET", "http://example.com/indexes/missing/stats", nil)
	w := httptest.NewRecorder()
	Handler(mgr, index.DiscardLogger).ServeHTTP(w, req)

	require.Equal(t, 404, w.Code)
}

func TestStatsHandlerReturnsPriorityAndGeneration(t *testing.T) {
	idx := newTestIndex(t, "products")
	defer idx.Dispose()
	mgr := newTestManager(t, idx)

	req := httptest.NewRequest("GET", "http://example.com/indexes/products/stats", nil)
	w := httptest.NewRecorder()
	Handler(mgr, index.DiscardLogger).ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `"priority":"Normal"`)
	require.Contains(t, w.Body.String(), `"name":"products"`)
	require.Contains(t, w.Body.String(), `"generation":0`)
}

func TestPriorityHandlerChangesPriority(t *testing.T) {
	idx := newTestIndex(t, "products")
	defer idx.Dispose()
	mgr := newTestManager(t, idx)

	req := httptest.NewRequest("POST", "http://example.com/indexes/products/priority", jsonBody(`{"priority":"Idle"}`))
	w := httptest.NewRecorder()
	Handler(mgr, index.DiscardLogger).ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.Equal(t, index.PriorityIdle, idx.Priority())
}

func TestPriorityHandlerRejectsUnknownName(t *testing.T) {
	idx := newTestIndex(t, "products")
	defer idx.Dispose()
	mgr := newTestManager(t, idx)

	req := httptest.NewRequest("POST", "http://example.com/indexes/products/priority", jsonBody(`{"priority":"Sideways"}`))
	w := httptest.NewRecorder()
	Handler(mgr, index.DiscardLogger).ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}

func TestBackupHandlerRequiresDest(t *testing.T) {
	idx := newTestIndex(t, "products")
	defer idx.Dispose()
	mgr := newTestManager(t, idx)

	req := httptest.NewRequest("POST", "http://example.com/indexes/products/backup", jsonBody(`{}`))
	w := httptest.NewRecorder()
	Handler(mgr, index.DiscardLogger).ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }
