package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFieldIndexed(t *testing.T) {
	def := &Definition{
		Fields: map[string]FieldDefinition{
			"title":       {Indexing: Analyzed},
			"internal_id": {Indexing: NotIndexed},
		},
	}

	assert.True(t, def.IsFieldIndexed("title"))
	assert.True(t, def.IsFieldIndexed("title_Range"))
	assert.False(t, def.IsFieldIndexed("internal_id"))
	assert.False(t, def.IsFieldIndexed("unknown"))
	assert.True(t, def.IsFieldIndexed(TempScoreField))
	assert.True(t, def.IsFieldIndexed(RandomFieldPrefix+"seed"))
}

func TestIsFieldIndexedWithCatchAll(t *testing.T) {
	def := &Definition{HasCatchAllField: true}
	assert.True(t, def.IsFieldIndexed("anything"))
}

func TestMaxOutputsPerDocument(t *testing.T) {
	assert.Equal(t, MaxSimpleIndexOutputsPerDocument, (&Definition{}).MaxOutputsPerDocument())
	assert.Equal(t, MaxMapReduceIndexOutputsPerDocument, (&Definition{IsMapReduce: true}).MaxOutputsPerDocument())
	assert.Equal(t, 3, (&Definition{MaxIndexOutputsPerDocument: 3}).MaxOutputsPerDocument())
	assert.Equal(t, paginationFanOutClamp, (&Definition{MaxIndexOutputsPerDocument: -1}).MaxOutputsPerDocument())
}

func TestIsReservedSuffix(t *testing.T) {
	assert.True(t, IsReservedSuffix("price_Range"))
	assert.True(t, IsReservedSuffix("tags_IsArray"))
	assert.True(t, IsReservedSuffix("meta_ConvertToJson"))
	assert.False(t, IsReservedSuffix("price"))
}
