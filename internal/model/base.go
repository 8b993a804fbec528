package model

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// base carries the state shared by all backend kinds.
type base struct {
	dec    Decoder
	maxSeq int
	eos    int64
	device string
	rng    *rand.Rand
}

func newBase(cfg Config) base {
	return base{
		maxSeq: cfg.MaxSeqLength,
		eos:    cfg.EOS,
		device: ResolveDevice(cfg.Device),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

func (b *base) MaxSeqLength() int { return b.maxSeq }

func (b *base) Close() error {
	if b.dec == nil {
		return nil
	}
	err := b.dec.Close()
	b.dec = nil
	return err
}

// budget converts the total-sequence cap into a count of tokens to generate
// after the prompt. A cap the window cannot honor, or a prompt that already
// consumes it, is a hard failure rather than a silent truncation.
func (b *base) budget(promptLen int, cfg GenerationConfig) (int, error) {
	if cfg.MaxLength > b.maxSeq {
		return 0, fmt.Errorf("%w: max length %d, window %d", ErrContextOverflow, cfg.MaxLength, b.maxSeq)
	}

	limit := b.maxSeq
	if cfg.MaxLength > 0 {
		limit = cfg.MaxLength
	}
	n := limit - promptLen
	if n <= 0 {
		return 0, fmt.Errorf("%w: prompt holds %d of %d tokens", ErrContextOverflow, promptLen, limit)
	}
	return n, nil
}

// generate runs the prefill-then-step decode loop, sampling each token from
// the decoder's logits until EOS or the budget is exhausted.
func (b *base) generate(ctx context.Context, prompt []int64, cfg GenerationConfig) ([]int64, error) {
	budget, err := b.budget(len(prompt), cfg)
	if err != nil {
		return nil, err
	}

	s := newSampler(b.rng, cfg)
	s.observe(prompt)

	logits, err := b.dec.Prefill(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("prefill: %w", err)
	}

	out := make([]int64, 0, budget)
	for len(out) < budget {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := s.sample(logits)
		out = append(out, next)
		if next == b.eos {
			break
		}
		if len(out) == budget {
			slog.Warn("generation hit token budget before EOS", "budget", budget)
			break
		}

		logits, err = b.dec.Step(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("decode step %d: %w", len(out), err)
		}
	}

	return out, nil
}
