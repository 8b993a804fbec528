package model

import "context"

// exl2Backend drives an exllamav2 decoder. It is the only backend that
// honors AdditionalGenConfig; supported keys are passed to the sampler.
type exl2Backend struct {
	base
}

func newEXL2Backend(cfg Config, dec Decoder) *exl2Backend {
	b := &exl2Backend{base: newBase(cfg)}
	b.dec = dec
	return b
}

func (b *exl2Backend) Kind() string { return KindEXL2 }

func (b *exl2Backend) Generate(ctx context.Context, prompt []int64, cfg GenerationConfig) ([]int64, error) {
	return b.generate(ctx, prompt, cfg)
}
