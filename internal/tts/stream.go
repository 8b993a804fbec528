package tts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/go-oute-tts/internal/codec"
	"github.com/example/go-oute-tts/internal/model"
	"github.com/example/go-oute-tts/internal/prompt"
)

// Stream hands out synthesized audio chunk by chunk. It is consumer-driven:
// each Next call pulls one chunk of tokens from the backend and decodes it,
// so a caller abandoning iteration simply stops pulling (Close releases the
// underlying token stream). Streams are single-use and not safe for
// concurrent callers.
type Stream struct {
	ctx       context.Context
	ts        *model.TokenStream
	scanner   *prompt.AudioScanner
	adapter   *codec.Adapter
	chunkSize int
	index     int
	err       error
	done      bool
}

// GenerateStream starts an incremental synthesis of opts.Text. Options are
// validated before any model work, exactly as in Generate.
func (i *Interface) GenerateStream(ctx context.Context, opts GenerateOptions) (*Stream, error) {
	streamer, ok := i.backend.(model.Streamer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamingUnsupported, i.backend.Kind())
	}

	ids, gen, err := i.prepare(opts)
	if err != nil {
		return nil, err
	}

	ts, err := streamer.GenerateStream(ctx, ids, gen)
	if err != nil {
		return nil, fmt.Errorf("generate stream: %w", err)
	}

	return &Stream{
		ctx:       ctx,
		ts:        ts,
		scanner:   i.processor.NewAudioScanner(),
		adapter:   i.adapter,
		chunkSize: i.chunkSize,
	}, nil
}

// Next returns the next decoded chunk. ok is false once the stream ends;
// check Err to distinguish completion from failure. Chunks whose audio fails
// to decode are logged and skipped, so consecutive Next calls may span a
// dropped chunk.
func (s *Stream) Next() (*ModelOutput, bool) {
	for {
		if s.done {
			return nil, false
		}

		chunk := make([]int64, 0, s.chunkSize)
		for len(chunk) < s.chunkSize {
			id, ok := s.ts.Next()
			if !ok {
				s.done = true
				break
			}
			chunk = append(chunk, id)
		}
		if err := s.ts.Err(); err != nil {
			s.err = fmt.Errorf("generate stream: %w", err)
			return nil, false
		}
		if len(chunk) == 0 {
			return nil, false
		}

		index := s.index
		s.index++

		// A chunk with no codec tokens still produces an output so chunk
		// accounting stays aligned with the raw token stream.
		codes := s.scanner.Scan(chunk)
		if len(codes) == 0 {
			return &ModelOutput{SampleRate: s.adapter.SampleRate()}, true
		}

		samples, err := s.adapter.Decode(s.ctx, [][][]int64{{codes}})
		if err != nil {
			slog.Error("dropping undecodable audio chunk", "chunk", index, "codes", len(codes), "error", err)
			continue
		}
		return &ModelOutput{Audio: samples, SampleRate: s.adapter.SampleRate()}, true
	}
}

// Err reports the error that terminated the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close abandons the stream and releases the backend token stream.
func (s *Stream) Close() {
	s.done = true
	s.ts.Close()
}
