package align

import "testing"

// emissionsFor builds frames x labels log-probs where each token in sequence
// owns framesPer consecutive frames with near-certain probability.
func emissionsFor(tokens []int, framesPer, numLabels int) [][]float32 {
	em := make([][]float32, len(tokens)*framesPer)
	for f := range em {
		row := make([]float32, numLabels)
		for l := range row {
			row[l] = -20
		}
		row[tokens[f/framesPer]] = 0
		em[f] = row
	}
	return em
}

func TestForcedAlignMonotonicSpans(t *testing.T) {
	tokens := []int{1, 2, 3, 2}
	em := emissionsFor(tokens, 5, 4)

	spans, err := forcedAlign(em, tokens)
	if err != nil {
		t.Fatalf("forcedAlign error: %v", err)
	}
	if len(spans) != len(tokens) {
		t.Fatalf("got %d spans; want %d", len(spans), len(tokens))
	}

	prevEnd := 0
	for i, s := range spans {
		if s.token != tokens[i] {
			t.Errorf("span %d token = %d; want %d", i, s.token, tokens[i])
		}
		if s.start < prevEnd {
			t.Errorf("span %d starts at %d before previous end %d", i, s.start, prevEnd)
		}
		if s.end <= s.start && i < len(spans)-1 {
			t.Errorf("span %d is empty (%d..%d)", i, s.start, s.end)
		}
		prevEnd = s.start
	}

	// Last span extends to the final frame.
	if got, want := spans[len(spans)-1].end, len(em); got != want {
		t.Errorf("last span end = %d; want %d", got, want)
	}
}

func TestForcedAlignLocatesTokens(t *testing.T) {
	tokens := []int{1, 2}
	em := emissionsFor(tokens, 10, 3)

	spans, err := forcedAlign(em, tokens)
	if err != nil {
		t.Fatalf("forcedAlign error: %v", err)
	}

	// Token 2's block begins at frame 10; its emission must land there.
	if spans[1].start < 9 || spans[1].start > 11 {
		t.Errorf("second token starts at frame %d; want ~10", spans[1].start)
	}
}

func TestForcedAlignAudioTooShort(t *testing.T) {
	em := emissionsFor([]int{1}, 1, 3)
	if _, err := forcedAlign(em, []int{1, 2, 1}); err == nil {
		t.Fatal("expected error when frames < tokens")
	}
}
