package index

import (
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravendb/ravenidx/index/vfs"
)

func TestBackupCopiesManifestAndSegmentFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()

	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), cfg, nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	_, err = idx.IndexDocuments("batch-1", Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	dest, err := vfs.OpenDiskDir(t.TempDir(), true)
	require.NoError(t, err)
	defer dest.Close()

	report, err := idx.Backup(dest)
	require.NoError(t, err)

	assert.Equal(t, "products", report.IndexID)
	assert.NotEmpty(t, report.IncrementalID)

	names, err := dest.ListFiles()
	require.NoError(t, err)
	assert.Contains(t, names, vfs.ManifestFileName)
	assert.Contains(t, names, vfs.VersionFileName)
}

func TestBackupIsIncremental(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()

	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), cfg, nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	_, err = idx.IndexDocuments("batch-1", Batch{Puts: []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}}})
	require.NoError(t, err)

	dest, err := vfs.OpenDiskDir(t.TempDir(), true)
	require.NoError(t, err)
	defer dest.Close()

	first, err := idx.Backup(dest)
	require.NoError(t, err)
	require.Greater(t, first.FilesCopied, 0)

	second, err := idx.Backup(dest)
	require.NoError(t, err)
	assert.Less(t, second.FilesCopied, first.FilesCopied+1, "re-running backup against an unchanged index should not recopy already-logged files")
}

func TestBackupRestoresQueryableIndex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()

	idx, err := NewIndex(simpleDefinition(), vfs.NewMemDir(), cfg, nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	_, err = idx.IndexDocuments("batch-1", Batch{Puts: []Entry{
		{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}},
		{DocumentID: "docs/2", Fields: map[string]interface{}{"title": "Gadget"}},
	}})
	require.NoError(t, err)

	dest, err := vfs.OpenDiskDir(t.TempDir(), true)
	require.NoError(t, err)
	defer dest.Close()

	report, err := idx.Backup(dest)
	require.NoError(t, err)
	require.Greater(t, report.FilesCopied, 0)

	restoredDir, err := vfs.OpenDiskDir(dest.Path(), false)
	require.NoError(t, err)
	defer restoredDir.Close()

	restored, err := NewWriter(simpleDefinition(), restoredDir, cfg, nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer restored.Close()

	sr, err := restored.Index().Search(bleve.NewSearchRequest(bleve.NewMatchAllQuery()))
	require.NoError(t, err)
	assert.EqualValues(t, 2, sr.Total, "restoring a backup of a memory-backed index must see the real segment data, not an empty store")
}
