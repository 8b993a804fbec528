// Package codec adapts a neural audio codec to the synthesis pipeline. The
// codec maps waveforms to discrete token sequences and back at a fixed token
// rate; all duration math in the system derives from that rate.
package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/go-oute-tts/internal/audio"
)

// TokenRate is the number of codec tokens per second of audio.
const TokenRate = 75

// ErrDecode is returned when a token sequence is structurally invalid.
var ErrDecode = errors.New("malformed codec token sequence")

// Model is the underlying neural codec. Implementations own their device
// placement; the adapter assumes exclusive access.
type Model interface {
	// Encode converts mono samples at SampleRate into a flat token sequence.
	Encode(ctx context.Context, samples []float32) ([]int64, error)
	// Decode converts a flat token sequence back into mono samples.
	Decode(ctx context.Context, codes []int64) ([]float32, error)
	// SampleRate is the codec's native rate for both directions.
	SampleRate() int
}

// Adapter wraps a codec Model with format conversion. It holds exclusive
// ownership of the model's execution context and is not safe for concurrent
// use without external serialization.
type Adapter struct {
	model Model
}

func NewAdapter(model Model) (*Adapter, error) {
	if model == nil {
		return nil, errors.New("codec model is required")
	}
	return &Adapter{model: model}, nil
}

// SampleRate is the fixed output rate of decoded audio.
func (a *Adapter) SampleRate() int {
	return a.model.SampleRate()
}

// Encode resamples the waveform to the codec's native rate as needed and
// returns token IDs shaped batch x channel x time.
func (a *Adapter) Encode(ctx context.Context, samples []float32, sourceRate int) ([][][]int64, error) {
	if len(samples) == 0 {
		return nil, errors.New("encode: empty audio samples")
	}
	if sourceRate < 1 {
		return nil, fmt.Errorf("encode: invalid source sample rate %d", sourceRate)
	}

	converted := audio.Resample(samples, sourceRate, a.model.SampleRate())

	codes, err := a.model.Encode(ctx, converted)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return [][][]int64{{codes}}, nil
}

// Decode converts a batch x channel x time token sequence into a waveform at
// the adapter's fixed output rate. Structurally invalid input fails with
// ErrDecode.
func (a *Adapter) Decode(ctx context.Context, tokens [][][]int64) ([]float32, error) {
	flat, err := flatten(tokens)
	if err != nil {
		return nil, err
	}

	samples, err := a.model.Decode(ctx, flat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return samples, nil
}

func flatten(tokens [][][]int64) ([]int64, error) {
	if len(tokens) != 1 {
		return nil, fmt.Errorf("%w: expected batch size 1, got %d", ErrDecode, len(tokens))
	}
	if len(tokens[0]) != 1 {
		return nil, fmt.Errorf("%w: expected single channel, got %d", ErrDecode, len(tokens[0]))
	}
	if len(tokens[0][0]) == 0 {
		return nil, fmt.Errorf("%w: empty token sequence", ErrDecode)
	}
	return tokens[0][0], nil
}
