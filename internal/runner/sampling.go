package runner

import (
	"math"
	"math/rand"
	"sort"
)

// SamplingMode mirrors candle_transformers::generation::Sampling: argmax
// when temperature is non-positive, otherwise one of All/TopK/TopP/
// TopKThenTopP depending on which knobs the request set.
type SamplingMode int

const (
	SamplingArgMax SamplingMode = iota
	SamplingAll
	SamplingTopK
	SamplingTopP
	SamplingTopKThenTopP
)

// SamplingConfig is the decode-time knob set derived from request config.
type SamplingConfig struct {
	Seed        uint64
	Temperature float64
	TopK        *int
	TopP        *float64
}

// Mode resolves which sampling strategy applies from the (top_k, top_p)
// combination in the config.
func (c SamplingConfig) Mode() SamplingMode {
	if c.Temperature <= 0 {
		return SamplingArgMax
	}
	switch {
	case c.TopK == nil && c.TopP == nil:
		return SamplingAll
	case c.TopK != nil && c.TopP == nil:
		return SamplingTopK
	case c.TopK == nil && c.TopP != nil:
		return SamplingTopP
	default:
		return SamplingTopKThenTopP
	}
}

// LogitsProcessor samples a token ID from a logits vector, carrying its own
// deterministic RNG state across calls so that a fixed seed always
// reproduces the same generation.
type LogitsProcessor struct {
	cfg SamplingConfig
	rng *rand.Rand
}

func NewLogitsProcessor(cfg SamplingConfig) *LogitsProcessor {
	return &LogitsProcessor{cfg: cfg, rng: rand.New(rand.NewSource(int64(cfg.Seed)))}
}

// Sample picks the next token ID from logits according to the processor's
// resolved sampling mode.
func (p *LogitsProcessor) Sample(logits []float32) (uint32, error) {
	if p.cfg.Mode() == SamplingArgMax {
		return argMax(logits), nil
	}

	probs := softmax(logits, p.cfg.Temperature)

	switch p.cfg.Mode() {
	case SamplingTopK:
		probs = restrictTopK(probs, *p.cfg.TopK)
	case SamplingTopP:
		probs = restrictTopP(probs, *p.cfg.TopP)
	case SamplingTopKThenTopP:
		probs = restrictTopK(probs, *p.cfg.TopK)
		probs = restrictTopP(probs, *p.cfg.TopP)
	}

	return sampleFromDistribution(p.rng, probs), nil
}

func argMax(logits []float32) uint32 {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return uint32(best)
}

func softmax(logits []float32, temperature float64) []float64 {
	probs := make([]float64, len(logits))
	maxLogit := float64(logits[0])
	for _, v := range logits {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp((float64(v) - maxLogit) / temperature)
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// restrictTopK zeroes every probability outside the k highest, ties
// broken by ascending index.
func restrictTopK(probs []float64, k int) []float64 {
	if k <= 0 || k >= len(probs) {
		return renormalize(probs)
	}
	idx := argsortDescending(probs)
	kept := make(map[int]bool, k)
	for _, i := range idx[:k] {
		kept[i] = true
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		if kept[i] {
			out[i] = p
		}
	}
	return renormalize(out)
}

// restrictTopP keeps the smallest prefix (by descending probability) whose
// cumulative mass reaches p.
func restrictTopP(probs []float64, p float64) []float64 {
	idx := argsortDescending(probs)
	out := make([]float64, len(probs))
	var cum float64
	for _, i := range idx {
		out[i] = probs[i]
		cum += probs[i]
		if cum >= p {
			break
		}
	}
	return renormalize(out)
}

func argsortDescending(probs []float64) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	return idx
}

func renormalize(probs []float64) []float64 {
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if sum == 0 {
		return probs
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		out[i] = p / sum
	}
	return out
}

func sampleFromDistribution(rng *rand.Rand, probs []float64) uint32 {
	r := rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if r <= cum {
			return uint32(i)
		}
	}
	return uint32(len(probs) - 1)
}

// ApplyRepeatPenalty divides (for positive logits) or multiplies (for
// negative logits) each logit whose token appears in the trailing window
// by penalty, in place on a copy, matching
// candle_transformers::utils::apply_repeat_penalty.
func ApplyRepeatPenalty(logits []float32, penalty float32, context []uint32) []float32 {
	if penalty == 1.0 {
		return logits
	}
	out := make([]float32, len(logits))
	copy(out, logits)

	seen := make(map[uint32]bool, len(context))
	for _, tok := range context {
		if seen[tok] || int(tok) >= len(out) {
			continue
		}
		seen[tok] = true
		score := out[tok]
		if score >= 0 {
			out[tok] = score / penalty
		} else {
			out[tok] = score * penalty
		}
	}
	return out
}
