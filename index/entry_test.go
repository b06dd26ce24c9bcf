package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryAsStoredDocument(t *testing.T) {
	e := &Entry{DocumentID: "docs/1", ReduceKey: "category/1", Fields: map[string]interface{}{"title": "Widget"}}
	doc := e.AsStoredDocument()

	assert.Equal(t, "docs/1", doc[DocumentIDField])
	assert.Equal(t, "category/1", doc[ReduceKeyField])
	assert.Equal(t, "Widget", doc["title"])
}

func TestEntryAsStoredDocumentWithoutReduceKey(t *testing.T) {
	e := &Entry{DocumentID: "docs/1", Fields: map[string]interface{}{"title": "Widget"}}
	doc := e.AsStoredDocument()

	_, ok := doc[ReduceKeyField]
	assert.False(t, ok)
}

func TestEtagLessAndString(t *testing.T) {
	var a, b Etag
	b[15] = 1
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Zero())
	assert.False(t, b.Zero())
	assert.Equal(t, "00000000000000000000000000000001", b.String())
}

func TestStripReservedFields(t *testing.T) {
	fields := map[string]interface{}{
		DocumentIDField: "docs/1",
		ReduceKeyField:  "cat/1",
		"title":         "Widget",
		"price_Range":   "10 TO 20",
	}
	out := StripReservedFields(fields)

	assert.Equal(t, map[string]interface{}{"title": "Widget"}, out)
}
