package model

import "context"

// fullBackend drives a full-precision decoder. It is batch-only; callers that
// need streaming use the gguf backend.
type fullBackend struct {
	base
}

func newFullBackend(cfg Config, dec Decoder) *fullBackend {
	b := &fullBackend{base: newBase(cfg)}
	b.dec = dec
	return b
}

func (b *fullBackend) Kind() string { return KindFull }

func (b *fullBackend) Generate(ctx context.Context, prompt []int64, cfg GenerationConfig) ([]int64, error) {
	cfg.AdditionalGenConfig = nil
	return b.generate(ctx, prompt, cfg)
}
