package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravendb/ravenidx/index/vfs"
)

func newTestIndexWithDocs(t *testing.T, docs map[string]string) *Index {
	t.Helper()
	def := &Definition{
		Name:   "products",
		Fields: map[string]FieldDefinition{"title": {Indexing: Analyzed}},
	}
	idx, err := NewIndex(def, vfs.NewMemDir(), DefaultConfig(), nil, SystemClock, DiscardLogger)
	require.NoError(t, err)

	var puts []Entry
	for id, title := range docs {
		puts = append(puts, Entry{DocumentID: id, Fields: map[string]interface{}{"title": title}})
	}
	_, err = idx.IndexDocuments("seed", Batch{Puts: puts})
	require.NoError(t, err)

	return idx
}

func TestQueryOperationMatchAllOnEmptyQuery(t *testing.T) {
	idx := newTestIndexWithDocs(t, map[string]string{
		"docs/1": "Widget",
		"docs/2": "Gadget",
	})
	defer idx.Dispose()

	op := NewQueryOperation(idx, &AnalyzerStack{})
	result, err := op.Execute(context.Background(), &Query{RawQuery: "", Size: 10})

	require.NoError(t, err)
	assert.Len(t, result.Hits, 2)
}

func TestQueryOperationRejectsUnindexedField(t *testing.T) {
	idx := newTestIndexWithDocs(t, map[string]string{"docs/1": "Widget"})
	defer idx.Dispose()

	op := NewQueryOperation(idx, &AnalyzerStack{})
	_, err := op.Execute(context.Background(), &Query{RawQuery: "widget", Size: 10, SortFields: []string{"not_a_field"}})

	assert.Error(t, err)
	assert.IsType(t, &FieldNotIndexedError{}, err)
}

func TestQueryOperationGuardsErrorPriority(t *testing.T) {
	idx := newTestIndexWithDocs(t, map[string]string{"docs/1": "Widget"})
	defer idx.Dispose()
	idx.priority.ForceError()

	op := NewQueryOperation(idx, &AnalyzerStack{})
	_, err := op.Execute(context.Background(), &Query{RawQuery: "", Size: 10})

	assert.IsType(t, &IndexDisabledError{}, err)
}

func TestQueryOperationIntersectionFindsMatchBeyondSmallClauseWindow(t *testing.T) {
	def := &Definition{
		Name: "products",
		Fields: map[string]FieldDefinition{
			"title": {Indexing: Analyzed},
			"tag":   {Indexing: Analyzed},
		},
	}
	idx, err := NewIndex(def, vfs.NewMemDir(), DefaultConfig(), nil, SystemClock, DiscardLogger)
	require.NoError(t, err)
	defer idx.Dispose()

	puts := []Entry{{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget", "tag": "common"}}}
	for i := 0; i < 20; i++ {
		puts = append(puts, Entry{
			DocumentID: fmt.Sprintf("docs/other-%d", i),
			Fields:     map[string]interface{}{"title": "Other", "tag": "common"},
		})
	}
	_, err = idx.IndexDocuments("seed", Batch{Puts: puts})
	require.NoError(t, err)

	op := NewQueryOperation(idx, &AnalyzerStack{})
	result, err := op.Execute(context.Background(), &Query{RawQuery: "title:Widget INTERSECT tag:common", Size: 10})

	require.NoError(t, err)
	require.Len(t, result.Hits, 1, "the intersecting document must be found even though 20 other documents also match the second clause")
	assert.Equal(t, "docs/1", result.Hits[0].DocumentID)
}

func TestQueryOperationDistinctDropsDuplicateProjections(t *testing.T) {
	idx := newTestIndexWithDocs(t, map[string]string{
		"docs/1": "Widget",
		"docs/2": "Widget",
	})
	defer idx.Dispose()

	op := NewQueryOperation(idx, &AnalyzerStack{})
	result, err := op.Execute(context.Background(), &Query{RawQuery: "", Size: 10, Distinct: true})

	require.NoError(t, err)
	assert.Len(t, result.Hits, 1, "both documents project to the same {title: Widget} value")
}
