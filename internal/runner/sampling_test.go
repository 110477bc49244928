package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplingModeResolution(t *testing.T) {
	k, p := 5, 0.9

	assert.Equal(t, SamplingArgMax, SamplingConfig{Temperature: 0}.Mode())
	assert.Equal(t, SamplingAll, SamplingConfig{Temperature: 0.8}.Mode())
	assert.Equal(t, SamplingTopK, SamplingConfig{Temperature: 0.8, TopK: &k}.Mode())
	assert.Equal(t, SamplingTopP, SamplingConfig{Temperature: 0.8, TopP: &p}.Mode())
	assert.Equal(t, SamplingTopKThenTopP, SamplingConfig{Temperature: 0.8, TopK: &k, TopP: &p}.Mode())
}

func TestLogitsProcessorArgMaxIsDeterministic(t *testing.T) {
	proc := NewLogitsProcessor(SamplingConfig{Temperature: 0})
	logits := []float32{0.1, 5.0, -3.0, 2.0}
	got, err := proc.Sample(logits)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, got)
}

func TestLogitsProcessorSameSeedReproducesSequence(t *testing.T) {
	logits := []float32{1, 2, 3, 4}
	a := NewLogitsProcessor(SamplingConfig{Temperature: 0.8, Seed: 42})
	b := NewLogitsProcessor(SamplingConfig{Temperature: 0.8, Seed: 42})

	for i := 0; i < 5; i++ {
		ta, err := a.Sample(logits)
		assert.NoError(t, err)
		tb, err := b.Sample(logits)
		assert.NoError(t, err)
		assert.Equal(t, ta, tb)
	}
}

func TestApplyRepeatPenaltyPositiveScoreDivides(t *testing.T) {
	logits := []float32{4.0, -4.0, 1.0}
	out := ApplyRepeatPenalty(logits, 2.0, []uint32{0, 1})
	assert.InDelta(t, 2.0, out[0], 1e-6)
	assert.InDelta(t, -8.0, out[1], 1e-6)
	assert.InDelta(t, 1.0, out[2], 1e-6) // untouched, not in context
}

func TestApplyRepeatPenaltyNoopAtOne(t *testing.T) {
	logits := []float32{4.0, -4.0}
	out := ApplyRepeatPenalty(logits, 1.0, []uint32{0, 1})
	assert.Equal(t, logits, out)
}

func TestRestrictTopKKeepsOnlyKHighest(t *testing.T) {
	probs := []float64{0.1, 0.5, 0.05, 0.35}
	out := restrictTopK(probs, 2)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.0, out[2])
	assert.Greater(t, out[1], 0.0)
	assert.Greater(t, out[3], 0.0)
}
