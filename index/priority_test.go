package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityStateSet(t *testing.T) {
	s := newPriorityState(PriorityNormal)
	assert.Equal(t, PriorityNormal, s.Get())

	assert.True(t, s.Set(PriorityIdle))
	assert.Equal(t, PriorityIdle, s.Get())
}

func TestPriorityStateErrorIsOneWay(t *testing.T) {
	s := newPriorityState(PriorityNormal)

	assert.True(t, s.ForceError())
	assert.Equal(t, PriorityError, s.Get())

	assert.False(t, s.Set(PriorityNormal))
	assert.Equal(t, PriorityError, s.Get())

	assert.False(t, s.ForceError(), "second ForceError call should report no transition")
}

func TestParsePriorityRoundTrips(t *testing.T) {
	for _, p := range []Priority{PriorityNormal, PriorityIdle, PriorityDisabled, PriorityAbandoned, PriorityForced, PriorityError} {
		parsed, ok := ParsePriority(p.String())
		assert.True(t, ok)
		assert.Equal(t, p, parsed)
	}

	_, ok := ParsePriority("Sideways")
	assert.False(t, ok)
}
