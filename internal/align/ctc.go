package align

import (
	"errors"
	"math"
)

const blank = 0

// span is the frame range attributed to one transcript token.
type span struct {
	token      int
	start, end int
}

// forcedAlign finds the most likely monotonic assignment of transcript
// tokens to emission frames. emissions is frames x labels of log
// probabilities; tokens are label indices. Each token's span runs from the
// frame where it is first emitted to the start of the next token (the last
// token extends to the final frame).
func forcedAlign(emissions [][]float32, tokens []int) ([]span, error) {
	frames := len(emissions)
	n := len(tokens)
	if frames < n {
		return nil, errors.New("audio is too short for the transcript")
	}

	negInf := math.Inf(-1)

	// trellis[t][j]: best log-prob after consuming t frames and j tokens.
	trellis := make([][]float64, frames+1)
	for t := range trellis {
		trellis[t] = make([]float64, n+1)
		for j := range trellis[t] {
			trellis[t][j] = negInf
		}
	}
	trellis[0][0] = 0
	for t := 1; t <= frames; t++ {
		trellis[t][0] = trellis[t-1][0] + float64(emissions[t-1][blank])
	}

	for t := 1; t <= frames; t++ {
		for j := 1; j <= n; j++ {
			stay := trellis[t-1][j] + float64(emissions[t-1][blank])
			advance := trellis[t-1][j-1] + float64(emissions[t-1][tokens[j-1]])
			trellis[t][j] = math.Max(stay, advance)
		}
	}

	if math.IsInf(trellis[frames][n], -1) {
		return nil, errors.New("no feasible alignment path")
	}

	// Backtrack, recording the frame at which each token was emitted. Ties
	// prefer staying so each token lands on its earliest strong frame.
	emitFrame := make([]int, n)
	j := n
	for t := frames; t > 0 && j > 0; t-- {
		stay := trellis[t-1][j] + float64(emissions[t-1][blank])
		advance := trellis[t-1][j-1] + float64(emissions[t-1][tokens[j-1]])
		if advance > stay {
			j--
			emitFrame[j] = t - 1
		}
	}
	if j != 0 {
		return nil, errors.New("alignment backtrack failed")
	}

	spans := make([]span, n)
	for i, tok := range tokens {
		end := frames
		if i+1 < n {
			end = emitFrame[i+1]
		}
		spans[i] = span{token: tok, start: emitFrame[i], end: end}
	}

	return spans, nil
}
