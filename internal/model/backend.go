// Package model implements the autoregressive generation backends. Each
// backend drives a Decoder (prefill plus single-token steps against a KV
// cache) and owns sampling; engine loading and token semantics live with the
// caller.
package model

import (
	"context"
	"errors"
	"fmt"
)

// Backend kinds. Values match the configuration file spelling.
const (
	KindFull = "full"
	KindGGUF = "gguf"
	KindEXL2 = "exl2"
)

var (
	// ErrContextOverflow is returned when a generation request cannot fit
	// the backend's sequence window, either because the prompt fills it or
	// because the requested MaxLength exceeds it.
	ErrContextOverflow = errors.New("generation exceeds the model context window")

	// ErrUnknownBackend is returned by New for an unrecognized kind.
	ErrUnknownBackend = errors.New("unknown backend kind")
)

// Decoder is the stateful inference engine a backend drives. Prefill
// processes the whole prompt and returns logits for the next position; Step
// appends one token and returns the following logits. Implementations keep
// the KV cache between calls and release it on Close.
type Decoder interface {
	Prefill(ctx context.Context, ids []int64) ([]float32, error)
	Step(ctx context.Context, id int64) ([]float32, error)
	VocabSize() int
	Close() error
}

// GenerationConfig carries per-call sampling parameters. MaxLength caps the
// total sequence length, prompt included; zero means the full window. A
// MaxLength the window cannot honor fails with ErrContextOverflow instead of
// being clamped.
type GenerationConfig struct {
	Temperature         float64
	RepetitionPenalty   float64
	MaxLength           int
	AdditionalGenConfig map[string]any
}

// Backend generates token sequences from an encoded prompt. Generate returns
// only the newly generated tokens, ending with the EOS token when the model
// produced one within budget.
type Backend interface {
	Generate(ctx context.Context, prompt []int64, cfg GenerationConfig) ([]int64, error)
	MaxSeqLength() int
	Kind() string
	Close() error
}

// Streamer is implemented by backends that can hand out tokens as they are
// decoded. Backends without it only support batch generation.
type Streamer interface {
	GenerateStream(ctx context.Context, prompt []int64, cfg GenerationConfig) (*TokenStream, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind         string
	Device       string
	MaxSeqLength int
	EOS          int64
	Seed         uint64
	NGPULayers   int
}

// New builds the backend for cfg.Kind around an already-loaded decoder.
func New(cfg Config, dec Decoder) (Backend, error) {
	if dec == nil {
		return nil, errors.New("decoder is required")
	}
	if cfg.MaxSeqLength <= 0 {
		return nil, errors.New("max sequence length must be positive")
	}

	switch cfg.Kind {
	case KindFull:
		return newFullBackend(cfg, dec), nil
	case KindGGUF:
		return newGGUFBackend(cfg, dec), nil
	case KindEXL2:
		return newEXL2Backend(cfg, dec), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
	}
}
