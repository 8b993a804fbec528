package model

import (
	"context"
	"log/slog"
)

// ggufBackend drives a quantized-file decoder. It is the only backend that
// supports token streaming.
type ggufBackend struct {
	base
	nGPULayers int
}

func newGGUFBackend(cfg Config, dec Decoder) *ggufBackend {
	b := &ggufBackend{base: newBase(cfg), nGPULayers: cfg.NGPULayers}
	b.dec = dec
	if b.device == "cpu" && b.nGPULayers > 0 {
		slog.Warn("gpu layer offload requested on cpu device", "n_gpu_layers", b.nGPULayers)
	}
	return b
}

func (b *ggufBackend) Kind() string { return KindGGUF }

func (b *ggufBackend) Generate(ctx context.Context, prompt []int64, cfg GenerationConfig) ([]int64, error) {
	cfg.AdditionalGenConfig = nil
	return b.generate(ctx, prompt, cfg)
}

func (b *ggufBackend) GenerateStream(ctx context.Context, prompt []int64, cfg GenerationConfig) (*TokenStream, error) {
	cfg.AdditionalGenConfig = nil
	return b.generateStream(ctx, prompt, cfg)
}
