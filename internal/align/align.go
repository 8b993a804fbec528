// Package align maps a known transcript onto time boundaries within a
// matching recording. Alignment is only needed transiently during speaker
// enrollment, so the engine supports explicit resource release via Free.
package align

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/example/go-oute-tts/internal/audio"
)

var (
	// ErrEmptyTranscript is returned before alignment is attempted when the
	// transcript is empty after any transcription fallback.
	ErrEmptyTranscript = errors.New("transcript text is empty")

	// ErrUnsupportedLanguage is returned when no dictionary exists for the
	// requested language.
	ErrUnsupportedLanguage = errors.New("language is not supported for alignment")
)

// AcousticModel produces per-frame label log-probabilities for CTC
// alignment. Label index 0 is the blank symbol. Implementations own device
// memory and release it on Close.
type AcousticModel interface {
	Emissions(ctx context.Context, samples []float32) ([][]float32, error)
	Labels() []string
	SampleRate() int
	Close() error
}

// Loader opens an acoustic model and dictionary for a language.
type Loader func(language string) (AcousticModel, error)

// AlignedWord is one word of the transcript with its sample-index boundaries
// into the loaded waveform.
type AlignedWord struct {
	Word    string
	Samples []float32
	X0, X1  int
}

// Engine performs CTC forced alignment. Its loaded acoustic model holds
// device memory; callers must Free the engine as soon as enrollment for one
// sample completes.
type Engine struct {
	loader    Loader
	languages map[string]struct{}
	model     AcousticModel
	modelLang string
}

func NewEngine(loader Loader, languages []string) (*Engine, error) {
	if loader == nil {
		return nil, errors.New("acoustic model loader is required")
	}
	if len(languages) == 0 {
		return nil, errors.New("at least one language is required")
	}

	set := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		set[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}

	return &Engine{loader: loader, languages: set}, nil
}

// SampleRate reports the loaded acoustic model's rate. Valid only after a
// successful Align and before Free.
func (e *Engine) SampleRate() int {
	if e.model == nil {
		return 0
	}
	return e.model.SampleRate()
}

// Align loads the audio at audioPath and returns word-level boundaries for
// the transcript. The waveform is resampled to the acoustic model's rate, so
// X0/X1 index the resampled signal returned in each AlignedWord.
func (e *Engine) Align(ctx context.Context, audioPath, transcript, language string) ([]AlignedWord, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	language = strings.ToLower(strings.TrimSpace(language))
	if _, ok := e.languages[language]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	if err := e.ensureModel(language); err != nil {
		return nil, err
	}

	samples, rate, err := audio.Load(audioPath)
	if err != nil {
		return nil, fmt.Errorf("load alignment audio: %w", err)
	}
	samples = audio.Resample(samples, rate, e.model.SampleRate())

	emissions, err := e.model.Emissions(ctx, samples)
	if err != nil {
		return nil, fmt.Errorf("acoustic emissions: %w", err)
	}
	if len(emissions) == 0 {
		return nil, errors.New("acoustic model produced no frames")
	}

	dict := labelIndex(e.model.Labels())
	tokens, words, ranges := tokenizeTranscript(transcript, dict)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: transcript has no alignable characters for %q", ErrUnsupportedLanguage, language)
	}

	spans, err := forcedAlign(emissions, tokens)
	if err != nil {
		return nil, fmt.Errorf("forced alignment: %w", err)
	}

	return wordBoundaries(samples, emissions, spans, words, ranges), nil
}

// Free releases the loaded acoustic model. It is idempotent and must be
// called once enrollment for a sample completes, even on error paths.
func (e *Engine) Free() {
	if e.model == nil {
		return
	}
	_ = e.model.Close()
	e.model = nil
	e.modelLang = ""
}

func (e *Engine) ensureModel(language string) error {
	if e.model != nil && e.modelLang == language {
		return nil
	}
	e.Free()

	model, err := e.loader(language)
	if err != nil {
		return fmt.Errorf("load acoustic model for %q: %w", language, err)
	}

	e.model = model
	e.modelLang = language
	return nil
}

func labelIndex(labels []string) map[rune]int {
	dict := make(map[rune]int, len(labels))
	for i, label := range labels {
		if i == 0 {
			continue // blank
		}
		for _, r := range label {
			dict[r] = i
			break
		}
	}
	return dict
}

// tokenizeTranscript converts the transcript into label indices. It returns
// the flat token sequence, the original words, and each word's half-open
// token index range. Characters missing from the dictionary are dropped; a
// word may end up with an empty range, which collapses to a zero-width span
// at the previous boundary.
func tokenizeTranscript(transcript string, dict map[rune]int) ([]int, []string, [][2]int) {
	words := strings.Fields(transcript)
	var tokens []int
	ranges := make([][2]int, len(words))

	for i, word := range words {
		start := len(tokens)
		for _, r := range strings.ToLower(word) {
			if idx, ok := dict[r]; ok {
				tokens = append(tokens, idx)
			}
		}
		ranges[i] = [2]int{start, len(tokens)}
	}

	return tokens, words, ranges
}

func wordBoundaries(samples []float32, emissions [][]float32, spans []span, words []string, ranges [][2]int) []AlignedWord {
	samplesPerFrame := float64(len(samples)) / float64(len(emissions))

	out := make([]AlignedWord, len(words))
	prevEnd := 0
	for i, word := range words {
		r := ranges[i]
		x0, x1 := prevEnd, prevEnd
		if r[0] < r[1] {
			x0 = int(math.Round(float64(spans[r[0]].start) * samplesPerFrame))
			x1 = int(math.Round(float64(spans[r[1]-1].end) * samplesPerFrame))
		}
		if x0 < prevEnd {
			x0 = prevEnd
		}
		if x1 > len(samples) {
			x1 = len(samples)
		}
		if x1 < x0 {
			x1 = x0
		}

		out[i] = AlignedWord{Word: word, Samples: samples[x0:x1], X0: x0, X1: x1}
		prevEnd = x1
	}

	return out
}
