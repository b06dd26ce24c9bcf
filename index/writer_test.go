package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravendb/ravenidx/index/vfs"
)

var fixedTestTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func simpleDefinition() *Definition {
	return &Definition{
		Name:   "products",
		Fields: map[string]FieldDefinition{"title": {Indexing: Analyzed}},
	}
}

func TestWriterApplyCommitsAndTracksGeneration(t *testing.T) {
	w, err := NewWriter(simpleDefinition(), vfs.NewMemDir(), DefaultConfig(), nil, NewFixedClock(fixedTestTime), DiscardLogger)
	require.NoError(t, err)
	defer w.Close()

	info, err := w.Apply(Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	assert.Equal(t, 1, info.ChangedDocs)
	assert.EqualValues(t, 1, w.Generation())
	assert.Len(t, w.StoredFieldsSnapshot(), 1)
}

func TestWriterApplyDeleteRemovesStoredFields(t *testing.T) {
	w, err := NewWriter(simpleDefinition(), vfs.NewMemDir(), DefaultConfig(), nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Apply(Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	_, err = w.Apply(Batch{Deletes: []string{"docs/1"}})
	require.NoError(t, err)

	assert.Empty(t, w.StoredFieldsSnapshot())
}

func TestWriterMaterializesToDiskWhenForced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceWriteToDisk = true
	cfg.DiskPath = t.TempDir()

	w, err := NewWriter(simpleDefinition(), vfs.NewMemDir(), cfg, nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Apply(Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	assert.True(t, w.Dir().OnDisk())
}
