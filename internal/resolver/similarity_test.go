package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceRatioIdentical(t *testing.T) {
	sim := SequenceRatio{}
	assert.Equal(t, 1.0, sim.Ratio("joe rogan", "joe rogan"))
}

func TestSequenceRatioEmpty(t *testing.T) {
	sim := SequenceRatio{}
	assert.Equal(t, 1.0, sim.Ratio("", ""))
	assert.Equal(t, 0.0, sim.Ratio("joe", ""))
	assert.Equal(t, 0.0, sim.Ratio("", "joe"))
}

func TestSequenceRatioDisjoint(t *testing.T) {
	sim := SequenceRatio{}
	assert.Equal(t, 0.0, sim.Ratio("abc", "xyz"))
}

func TestSequenceRatioPartial(t *testing.T) {
	sim := SequenceRatio{}
	// One shared 4-char block out of 4+6 characters.
	assert.InDelta(t, 0.8, sim.Ratio("rush", "brush "), 0.001)
}

func TestSequenceRatioNearMatch(t *testing.T) {
	sim := SequenceRatio{}
	score := sim.Ratio("jordan peterson", "jordan b peterson")
	assert.Greater(t, score, 0.9)
	assert.Less(t, score, 1.0)
}

func TestSequenceRatioSymmetricBounds(t *testing.T) {
	sim := SequenceRatio{}
	pairs := [][2]string{
		{"terry gross", "terri gross"},
		{"ira glass", "ira glas"},
		{"malcolm gladwell", "gladwell malcolm"},
	}
	for _, p := range pairs {
		score := sim.Ratio(p[0], p[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
