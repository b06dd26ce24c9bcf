package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectionKeyStructuralEquality(t *testing.T) {
	a := map[string]interface{}{"title": "Widget", "price": 10.0}
	b := map[string]interface{}{"price": 10.0, "title": "Widget"}

	assert.Equal(t, projectionKey(a), projectionKey(b), "field order must not affect the projection key")
}

func TestProjectionKeyEmptyNeverDeduplicated(t *testing.T) {
	assert.Equal(t, "", projectionKey(nil))
	assert.Equal(t, "", projectionKey(map[string]interface{}{}))
}

func TestProjectionKeyDiffersOnValue(t *testing.T) {
	a := map[string]interface{}{"title": "Widget"}
	b := map[string]interface{}{"title": "Gadget"}
	assert.NotEqual(t, projectionKey(a), projectionKey(b))
}
