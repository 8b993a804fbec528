package model

import (
	"context"
	"fmt"
)

// TokenStream hands out generated tokens one at a time. The prompt is
// prefilled when the stream is created; each Next call samples one token and
// advances the decoder. Streams are single-use and not safe for concurrent
// callers.
type TokenStream struct {
	ctx      context.Context
	dec      Decoder
	sampler  *sampler
	eos      int64
	budget   int
	produced int

	logits   []float32
	last     int64
	needStep bool
	err      error
	done     bool
}

// Next returns the next generated token. ok is false once the stream ends,
// whether by EOS, budget, cancellation, or a decoder error; check Err to
// distinguish.
func (ts *TokenStream) Next() (int64, bool) {
	if ts.done {
		return 0, false
	}
	if err := ts.ctx.Err(); err != nil {
		ts.err = err
		ts.done = true
		return 0, false
	}

	if ts.needStep {
		logits, err := ts.dec.Step(ts.ctx, ts.last)
		if err != nil {
			ts.err = fmt.Errorf("decode step %d: %w", ts.produced, err)
			ts.done = true
			return 0, false
		}
		ts.logits = logits
	}

	next := ts.sampler.sample(ts.logits)
	ts.produced++
	ts.last = next
	ts.needStep = true

	if next == ts.eos || ts.produced >= ts.budget {
		ts.done = true
	}
	return next, true
}

// Err reports the error that terminated the stream, if any.
func (ts *TokenStream) Err() error { return ts.err }

// Close abandons the stream. The decoder stays open; it belongs to the
// backend.
func (ts *TokenStream) Close() { ts.done = true }

func (b *base) generateStream(ctx context.Context, prompt []int64, cfg GenerationConfig) (*TokenStream, error) {
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

	return &TokenStream{
		ctx:     ctx,
		dec:     b.dec,
		sampler: s,
		eos:     b.eos,
		budget:  budget,
		logits:  logits,
	}, nil
}
