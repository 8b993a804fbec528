// Package tts wires the prompt protocol, generation backend, and neural
// codec into the synthesis interface the commands expose.
package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/go-oute-tts/internal/align"
	"github.com/example/go-oute-tts/internal/audio"
	"github.com/example/go-oute-tts/internal/codec"
	"github.com/example/go-oute-tts/internal/config"
	"github.com/example/go-oute-tts/internal/model"
	"github.com/example/go-oute-tts/internal/prompt"
	"github.com/example/go-oute-tts/internal/speaker"
	"github.com/example/go-oute-tts/internal/text"
)

var (
	// ErrMaxLengthMissing is returned when no generation token limit is set.
	ErrMaxLengthMissing = errors.New("max generation length is not set")

	// ErrMaxLengthExceeded is returned when the requested limit is larger
	// than the backend's sequence window.
	ErrMaxLengthExceeded = errors.New("max generation length exceeds the model window")

	// ErrUnsupportedLanguage is returned for languages outside the model's
	// training set.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrStreamingUnsupported is returned when the active backend cannot
	// stream tokens.
	ErrStreamingUnsupported = errors.New("backend does not support streaming")
)

// Transcriber recovers a transcript from an audio file for enrollment.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, modelName, language string) (string, error)
}

// Deps are the engine-backed components the interface drives. Decoder and
// Codec are required; Transcriber, Acoustic, and Player are only needed for
// the operations that use them.
type Deps struct {
	Decoder     model.Decoder
	Codec       codec.Model
	Transcriber Transcriber
	Acoustic    align.Loader
	Player      audio.Player

	// Encoder overrides the sentencepiece text encoder; when nil the
	// tokenizer model at cfg.Paths.TokenizerPath is loaded.
	Encoder prompt.TextEncoder
}

// GenerateOptions parameterizes one synthesis call. Zero sampling values
// fall back to the configured defaults; MaxLength has no fallback beyond the
// configuration and must end up set.
type GenerateOptions struct {
	Text                string
	Speaker             *speaker.Profile
	Temperature         float64
	RepetitionPenalty   float64
	MaxLength           int
	AdditionalGenConfig map[string]any
}

// Interface is the top-level synthesis API.
type Interface struct {
	processor *prompt.Processor
	backend   model.Backend
	adapter   *codec.Adapter
	deps      Deps
	defaults  config.TTSConfig
	language  string
	chunkSize int
}

// New builds an Interface from configuration and loaded engine components.
func New(cfg config.Config, deps Deps) (*Interface, error) {
	if deps.Codec == nil {
		return nil, errors.New("codec model is required")
	}

	var (
		processor *prompt.Processor
		err       error
	)
	if deps.Encoder != nil {
		processor, err = prompt.NewProcessorWithEncoder(deps.Encoder, cfg.TTS.Languages)
	} else {
		processor, err = prompt.NewProcessor(cfg.Paths.TokenizerPath, cfg.TTS.Languages)
	}
	if err != nil {
		return nil, fmt.Errorf("prompt processor: %w", err)
	}

	backend, err := model.New(model.Config{
		Kind:         cfg.TTS.Backend,
		Device:       cfg.TTS.Device,
		MaxSeqLength: cfg.TTS.MaxSeqLength,
		EOS:          prompt.EOSToken(),
		Seed:         uint64(cfg.TTS.Seed),
		NGPULayers:   cfg.TTS.NGPULayers,
	}, deps.Decoder)
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}

	adapter, err := codec.NewAdapter(deps.Codec)
	if err != nil {
		return nil, err
	}

	language := strings.ToLower(strings.TrimSpace(cfg.TTS.Language))
	if !supportedLanguage(processor, language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	chunkSize := cfg.TTS.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 50
	}

	return &Interface{
		processor: processor,
		backend:   backend,
		adapter:   adapter,
		deps:      deps,
		defaults:  cfg.TTS,
		language:  language,
		chunkSize: chunkSize,
	}, nil
}

// Language reports the active synthesis language.
func (i *Interface) Language() string { return i.language }

// ChangeLanguage switches the active language for synthesis and enrollment.
func (i *Interface) ChangeLanguage(language string) error {
	language = strings.ToLower(strings.TrimSpace(language))
	if !supportedLanguage(i.processor, language) {
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedLanguage, language, strings.Join(i.processor.Languages(), ", "))
	}
	i.language = language
	return nil
}

// LoadDefaultSpeaker returns a bundled speaker profile for the active
// language.
func (i *Interface) LoadDefaultSpeaker(name string) (*speaker.Profile, error) {
	return speaker.Default(i.language, name)
}

// LoadSpeaker reads a speaker profile from disk.
func (i *Interface) LoadSpeaker(path string) (*speaker.Profile, error) {
	return speaker.Load(path)
}

// SaveSpeaker writes a speaker profile to disk.
func (i *Interface) SaveSpeaker(profile *speaker.Profile, path string) error {
	return speaker.Save(profile, path)
}

// Play sends a synthesized output to the configured player.
func (i *Interface) Play(o *ModelOutput) {
	o.Play(i.deps.Player)
}

// Close releases the generation backend.
func (i *Interface) Close() error {
	return i.backend.Close()
}

// Generate synthesizes speech for opts.Text in one pass.
func (i *Interface) Generate(ctx context.Context, opts GenerateOptions) (*ModelOutput, error) {
	ids, gen, err := i.prepare(opts)
	if err != nil {
		return nil, err
	}

	out, err := i.backend.Generate(ctx, ids, gen)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	codes := prompt.ExtractAudioTokens(out)
	if len(codes) == 0 {
		slog.Warn("model produced no audio tokens", "generated", len(out))
		return &ModelOutput{SampleRate: i.adapter.SampleRate()}, nil
	}

	samples, err := i.adapter.Decode(ctx, [][][]int64{{codes}})
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	return &ModelOutput{Audio: samples, SampleRate: i.adapter.SampleRate()}, nil
}

// prepare validates options, fills configured defaults, and encodes the
// completion prompt. The length check runs before any model work.
func (i *Interface) prepare(opts GenerateOptions) ([]int64, model.GenerationConfig, error) {
	var zero model.GenerationConfig

	gen := model.GenerationConfig{
		Temperature:         opts.Temperature,
		RepetitionPenalty:   opts.RepetitionPenalty,
		MaxLength:           opts.MaxLength,
		AdditionalGenConfig: opts.AdditionalGenConfig,
	}
	if gen.Temperature == 0 {
		gen.Temperature = i.defaults.Temperature
	}
	if gen.RepetitionPenalty == 0 {
		gen.RepetitionPenalty = i.defaults.RepetitionPenalty
	}
	if gen.MaxLength == 0 {
		gen.MaxLength = i.defaults.MaxLength
	}

	if gen.MaxLength == 0 {
		return nil, zero, ErrMaxLengthMissing
	}
	if gen.MaxLength > i.backend.MaxSeqLength() {
		return nil, zero, fmt.Errorf("%w: %d > %d", ErrMaxLengthExceeded, gen.MaxLength, i.backend.MaxSeqLength())
	}

	normalized, err := text.Normalize(opts.Text)
	if err != nil {
		return nil, zero, err
	}

	if opts.Speaker != nil && opts.Speaker.Language != "" && opts.Speaker.Language != i.language {
		slog.Warn("speaker language differs from synthesis language",
			"speaker", opts.Speaker.Language, "language", i.language)
	}

	promptText := i.processor.CompletionPrompt(normalized, i.language, opts.Speaker)
	ids, err := i.processor.EncodePrompt(promptText)
	if err != nil {
		return nil, zero, fmt.Errorf("encode prompt: %w", err)
	}

	return ids, gen, nil
}

func supportedLanguage(p *prompt.Processor, language string) bool {
	for _, l := range p.Languages() {
		if l == language {
			return true
		}
	}
	return false
}
