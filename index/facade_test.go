package index

import (
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravendb/ravenidx/index/vfs"
)

func TestIndexDocumentsUpdatesLastIndexTimeAndStats(t *testing.T) {
	clock := NewFixedClock(fixedTestTime)
	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), DefaultConfig(), nil, clock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	assert.True(t, idx.LastIndexTime().IsZero())

	_, err = idx.IndexDocuments("batch-1", Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	assert.Equal(t, fixedTestTime, idx.LastIndexTime())
	assert.Len(t, idx.Stats(), 1)
	assert.EqualValues(t, 1, idx.Generation())
}

func TestIndexPriorityLatchesToErrorAfterThreshold(t *testing.T) {
	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), DefaultConfig(), nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	for i := 0; i < WriteErrorThreshold-1; i++ {
		idx.onWriteFailure()
	}
	assert.Equal(t, PriorityNormal, idx.Priority())

	idx.onWriteFailure()
	assert.Equal(t, PriorityError, idx.Priority())

	assert.False(t, idx.SetPriority(PriorityIdle), "priority must not leave Error once latched")
}

func TestIndexDocumentsRejectedOnceDisabled(t *testing.T) {
	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), DefaultConfig(), nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	idx.priority.ForceError()

	_, err = idx.IndexDocuments("batch-1", Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	assert.Error(t, err)
	assert.IsType(t, &IndexDisabledError{}, err)
}

func TestMaterializationDefersCloseUntilSearcherReleased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()

	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), cfg, nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	_, err = idx.IndexDocuments("batch-1", Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	state, release := idx.Holder().Acquire()
	require.NotNil(t, state)

	require.NoError(t, idx.writer.ForceMaterializeToDisk(cfg.DiskPath))
	idx.publishSearcher()

	_, err = state.Index().Search(bleve.NewSearchRequest(bleve.NewMatchAllQuery()))
	assert.NoError(t, err, "a SearcherState acquired before materialization must stay usable until released")

	release()

	_, err = state.Index().Search(bleve.NewSearchRequest(bleve.NewMatchAllQuery()))
	assert.Error(t, err, "the retired index must be closed once the last holder of its SearcherState releases it")
}

func TestIndexDisposeIsIdempotent(t *testing.T) {
	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), DefaultConfig(), nil, SystemClock, DiscardLogger)
	require.NoError(t, err)

	require.NoError(t, idx.Dispose())
	require.NoError(t, idx.Dispose())
	assert.True(t, idx.Disposed())

	_, err = idx.IndexDocuments("batch-1", Batch{})
	assert.Equal(t, ErrAlreadyDisposed, err)
}
