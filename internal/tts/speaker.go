package tts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/example/go-oute-tts/internal/align"
	"github.com/example/go-oute-tts/internal/codec"
	"github.com/example/go-oute-tts/internal/speaker"
)

// CreateSpeakerOptions parameterizes speaker enrollment. Transcript may be
// empty, in which case the audio is transcribed first.
type CreateSpeakerOptions struct {
	AudioPath    string
	Transcript   string
	WhisperModel string
}

// CreateSpeaker enrolls a voice from a short reference recording. The
// transcript is force-aligned against the audio, the aligned waveform is
// encoded once through the codec, and the code sequence is split into
// per-word spans by each word's end time.
func (i *Interface) CreateSpeaker(ctx context.Context, opts CreateSpeakerOptions) (*speaker.Profile, error) {
	transcript := strings.TrimSpace(opts.Transcript)
	if transcript == "" {
		var err error
		transcript, err = i.transcribe(ctx, opts)
		if err != nil {
			return nil, err
		}
	}
	if transcript == "" {
		return nil, align.ErrEmptyTranscript
	}

	if i.deps.Acoustic == nil {
		return nil, errors.New("no acoustic model loader configured")
	}

	engine, err := align.NewEngine(i.deps.Acoustic, i.processor.Languages())
	if err != nil {
		return nil, err
	}
	defer engine.Free()

	words, err := engine.Align(ctx, opts.AudioPath, transcript, i.language)
	if err != nil {
		return nil, fmt.Errorf("align transcript: %w", err)
	}

	var samples []float32
	for _, w := range words {
		samples = append(samples, w.Samples...)
	}

	encoded, err := i.adapter.Encode(ctx, samples, engine.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("encode reference audio: %w", err)
	}
	codes := encoded[0][0]

	profile := &speaker.Profile{
		Text:     transcript,
		Language: i.language,
		Words:    splitWordCodes(words, codes, engine.SampleRate()),
	}
	return profile, nil
}

func (i *Interface) transcribe(ctx context.Context, opts CreateSpeakerOptions) (string, error) {
	if i.deps.Transcriber == nil {
		return "", errors.New("no transcript given and no transcriber configured")
	}
	transcript, err := i.deps.Transcriber.Transcribe(ctx, opts.AudioPath, opts.WhisperModel, i.language)
	if err != nil {
		return "", fmt.Errorf("transcribe reference audio: %w", err)
	}
	return strings.TrimSpace(transcript), nil
}

// splitWordCodes slices the utterance code sequence into per-word spans. A
// word's span ends at its end-sample position converted to the codec token
// rate; words too short to claim a code get a placeholder so the prompt
// block stays well formed.
func splitWordCodes(words []align.AlignedWord, codes []int64, sampleRate int) []speaker.Word {
	out := make([]speaker.Word, len(words))
	start := 0
	for idx, w := range words {
		end := int(math.Round(float64(w.X1) / float64(sampleRate) * codec.TokenRate))
		if end > len(codes) {
			end = len(codes)
		}
		if idx == len(words)-1 {
			end = len(codes)
		}
		if end < start {
			end = start
		}

		span := codes[start:end]
		if len(span) == 0 {
			span = []int64{speaker.PlaceholderCode}
		}

		out[idx] = speaker.Word{
			Word:     w.Word,
			Duration: math.Round(float64(len(span))/codec.TokenRate*100) / 100,
			Codes:    append([]int64(nil), span...),
		}
		start = end
	}
	return out
}
