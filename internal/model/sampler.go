package model

import (
	"math"
	"math/rand/v2"
	"sort"
)

// sampler turns logits into token choices. It keeps the set of tokens seen so
// far so repetition penalty covers the prompt as well as prior samples.
type sampler struct {
	rng     *rand.Rand
	temp    float64
	penalty float64
	topP    float64
	seen    map[int64]struct{}
	probs   []float64
}

func newSampler(rng *rand.Rand, cfg GenerationConfig) *sampler {
	s := &sampler{
		rng:     rng,
		temp:    cfg.Temperature,
		penalty: cfg.RepetitionPenalty,
		seen:    make(map[int64]struct{}),
	}
	if v, ok := cfg.AdditionalGenConfig["top_p"]; ok {
		if p, ok := toFloat(v); ok && p > 0 && p < 1 {
			s.topP = p
		}
	}
	return s
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (s *sampler) observe(ids []int64) {
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
}

func (s *sampler) sample(logits []float32) int64 {
	scores := s.penalized(logits)

	var next int64
	if s.temp <= 0 {
		next = argmax(scores)
	} else {
		next = s.draw(scores)
	}

	s.seen[next] = struct{}{}
	return next
}

// penalized applies repetition penalty to previously seen tokens: positive
// logits are divided by the penalty, negative ones multiplied.
func (s *sampler) penalized(logits []float32) []float64 {
	scores := make([]float64, len(logits))
	for i, l := range logits {
		scores[i] = float64(l)
	}
	if s.penalty <= 0 || s.penalty == 1 {
		return scores
	}

	for id := range s.seen {
		if id < 0 || int(id) >= len(scores) {
			continue
		}
		if scores[id] > 0 {
			scores[id] /= s.penalty
		} else {
			scores[id] *= s.penalty
		}
	}
	return scores
}

func (s *sampler) draw(scores []float64) int64 {
	if cap(s.probs) < len(scores) {
		s.probs = make([]float64, len(scores))
	}
	probs := s.probs[:len(scores)]

	max := scores[argmax(scores)]
	var sum float64
	for i, sc := range scores {
		p := math.Exp((sc - max) / s.temp)
		probs[i] = p
		sum += p
	}

	if s.topP > 0 {
		sum = truncateNucleus(probs, sum, s.topP)
	}

	r := s.rng.Float64() * sum
	for i, p := range probs {
		r -= p
		if r <= 0 {
			return int64(i)
		}
	}
	return int64(len(probs) - 1)
}

// truncateNucleus zeroes the probability tail outside the smallest set of
// tokens whose mass reaches topP, returning the remaining mass.
func truncateNucleus(probs []float64, sum, topP float64) float64 {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })

	var kept float64
	cut := len(order)
	for rank, i := range order {
		kept += probs[i]
		if kept >= topP*sum {
			cut = rank + 1
			break
		}
	}
	for _, i := range order[cut:] {
		probs[i] = 0
	}
	return kept
}

func argmax(scores []float64) int64 {
	best := 0
	for i, sc := range scores {
		if sc > scores[best] {
			best = i
		}
	}
	return int64(best)
}
