package tts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/example/go-oute-tts/internal/config"
	"github.com/example/go-oute-tts/internal/prompt"
	"github.com/example/go-oute-tts/internal/speaker"
	"github.com/example/go-oute-tts/internal/text"
)

// fakeEncoder hashes each whitespace-separated piece to one stable text ID.
type fakeEncoder struct{}

func (fakeEncoder) Encode(s string) ([]int64, error) {
	fields := strings.Fields(s)
	ids := make([]int64, len(fields))
	for i, f := range fields {
		var h int64
		for _, r := range f {
			h = (h*31 + int64(r)) % 40000
		}
		ids[i] = h + 1
	}
	return ids, nil
}

// scriptedDecoder favors one scripted token per position, then EOS.
type scriptedDecoder struct {
	script   []int64
	pos      int
	prefills int
	closed   int
}

func (d *scriptedDecoder) logits() []float32 {
	target := prompt.EOSToken()
	if d.pos < len(d.script) {
		target = d.script[d.pos]
	}
	logits := make([]float32, prompt.VocabSize())
	for i := range logits {
		logits[i] = -10
	}
	logits[target] = 10
	return logits
}

func (d *scriptedDecoder) Prefill(_ context.Context, _ []int64) ([]float32, error) {
	d.prefills++
	return d.logits(), nil
}

func (d *scriptedDecoder) Step(_ context.Context, _ int64) ([]float32, error) {
	d.pos++
	return d.logits(), nil
}

func (d *scriptedDecoder) VocabSize() int { return int(prompt.VocabSize()) }
func (d *scriptedDecoder) Close() error   { d.closed++; return nil }

// fakeCodec synthesizes 320 samples per token and can be told to fail
// decoding after a number of calls.
type fakeCodec struct {
	decodes     int
	failDecodes map[int]bool
}

func (c *fakeCodec) Encode(_ context.Context, samples []float32) ([]int64, error) {
	n := len(samples) / 320
	codes := make([]int64, n)
	for i := range codes {
		codes[i] = int64(i % 100)
	}
	return codes, nil
}

func (c *fakeCodec) Decode(_ context.Context, codes []int64) ([]float32, error) {
	c.decodes++
	if c.failDecodes[c.decodes] {
		return nil, fmt.Errorf("codec fault on decode %d", c.decodes)
	}
	return make([]float32, len(codes)*320), nil
}

func (c *fakeCodec) SampleRate() int { return 24000 }

func testConfig(backend string) config.Config {
	cfg := config.DefaultConfig()
	cfg.TTS.Backend = backend
	return cfg
}

func newTestInterface(t *testing.T, cfg config.Config, deps Deps) *Interface {
	t.Helper()
	if deps.Codec == nil {
		deps.Codec = &fakeCodec{}
	}
	deps.Encoder = fakeEncoder{}
	i, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return i
}

// audioScript builds a generated-token sequence: audio region with n codes,
// closed and followed by EOS.
func audioScript(n int) []int64 {
	script := []int64{prompt.AudioStartToken()}
	for c := 0; c < n; c++ {
		script = append(script, prompt.CodeToken(int64(c%100)))
	}
	return append(script, prompt.AudioEndToken(), prompt.EOSToken())
}

func TestGenerateDecodesAudioRegion(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(30)}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	out, err := i.Generate(context.Background(), GenerateOptions{Text: "hello world"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Empty() {
		t.Fatal("expected audio output")
	}
	if len(out.Audio) != 30*320 {
		t.Errorf("got %d samples; want %d", len(out.Audio), 30*320)
	}
	if out.SampleRate != 24000 {
		t.Errorf("sample rate = %d; want 24000", out.SampleRate)
	}
	if math.Abs(out.Duration()-float64(30*320)/24000) > 1e-9 {
		t.Errorf("Duration = %f", out.Duration())
	}
}

func TestGenerateWithoutAudioRegion(t *testing.T) {
	// The model rambles text tokens and stops without opening an audio
	// region; synthesis degrades to an empty output, not an error.
	dec := &scriptedDecoder{script: []int64{100, 101, 102, prompt.EOSToken()}}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	out, err := i.Generate(context.Background(), GenerateOptions{Text: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !out.Empty() {
		t.Fatal("expected empty output")
	}
	if out.SampleRate != 24000 {
		t.Errorf("sample rate = %d; want 24000", out.SampleRate)
	}
}

func TestGenerateMaxLengthMissing(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	cfg := testConfig(config.BackendFull)
	cfg.TTS.MaxLength = 0
	i := newTestInterface(t, cfg, Deps{Decoder: dec})

	_, err := i.Generate(context.Background(), GenerateOptions{Text: "hello"})
	if !errors.Is(err, ErrMaxLengthMissing) {
		t.Fatalf("err = %v; want ErrMaxLengthMissing", err)
	}
	if dec.prefills != 0 {
		t.Errorf("decoder was invoked %d times before validation", dec.prefills)
	}
}

func TestGenerateMaxLengthExceeded(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	_, err := i.Generate(context.Background(), GenerateOptions{Text: "hello", MaxLength: 1 << 20})
	if !errors.Is(err, ErrMaxLengthExceeded) {
		t.Fatalf("err = %v; want ErrMaxLengthExceeded", err)
	}
	if dec.prefills != 0 {
		t.Errorf("decoder was invoked %d times before validation", dec.prefills)
	}
}

func TestGenerateEmptyText(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	_, err := i.Generate(context.Background(), GenerateOptions{Text: "   "})
	if !errors.Is(err, text.ErrEmptyText) {
		t.Fatalf("err = %v; want ErrEmptyText", err)
	}
}

func TestChangeLanguage(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	if err := i.ChangeLanguage(" JA "); err != nil {
		t.Fatalf("ChangeLanguage: %v", err)
	}
	if i.Language() != "ja" {
		t.Errorf("language = %q; want ja", i.Language())
	}

	if err := i.ChangeLanguage("fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("err = %v; want ErrUnsupportedLanguage", err)
	}
	if i.Language() != "ja" {
		t.Errorf("failed change mutated language to %q", i.Language())
	}
}

func TestLoadDefaultSpeakerFollowsLanguage(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	spk, err := i.LoadDefaultSpeaker("male_1")
	if err != nil {
		t.Fatalf("LoadDefaultSpeaker: %v", err)
	}
	if spk.Language != "en" {
		t.Errorf("speaker language = %q; want en", spk.Language)
	}

	if err := i.ChangeLanguage("ja"); err != nil {
		t.Fatalf("ChangeLanguage: %v", err)
	}
	if _, err := i.LoadDefaultSpeaker("male_2"); !errors.Is(err, speaker.ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound for ja/male_2", err)
	}
}

func drainStream(t *testing.T, s *Stream) []*ModelOutput {
	t.Helper()
	var outputs []*ModelOutput
	for {
		out, ok := s.Next()
		if !ok {
			break
		}
		outputs = append(outputs, out)
	}
	return outputs
}

func TestGenerateStreamChunking(t *testing.T) {
	// 122 codes plus region sentinels and EOS is 125 raw tokens; with chunk
	// size 50 that is chunks of 50, 50, and a final partial of 25.
	dec := &scriptedDecoder{script: audioScript(122)}
	i := newTestInterface(t, testConfig(config.BackendGGUF), Deps{Decoder: dec})

	stream, err := i.GenerateStream(context.Background(), GenerateOptions{Text: "hello"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	defer stream.Close()

	outputs := drainStream(t, stream)
	if stream.Err() != nil {
		t.Fatalf("stream error: %v", stream.Err())
	}
	if len(outputs) != 3 {
		t.Fatalf("got %d outputs; want 3", len(outputs))
	}

	var total int
	for idx, out := range outputs {
		if out.Empty() {
			t.Errorf("output %d is empty", idx)
		}
		total += len(out.Audio)
	}
	if total != 122*320 {
		t.Errorf("streamed %d samples; want %d", total, 122*320)
	}
}

func TestGenerateStreamDropsUndecodableChunk(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(123)}
	cdc := &fakeCodec{failDecodes: map[int]bool{2: true}}
	i := newTestInterface(t, testConfig(config.BackendGGUF), Deps{Decoder: dec, Codec: cdc})

	stream, err := i.GenerateStream(context.Background(), GenerateOptions{Text: "hello"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	defer stream.Close()

	outputs := drainStream(t, stream)
	if stream.Err() != nil {
		t.Fatalf("stream error: %v", stream.Err())
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs after one dropped chunk; want 2", len(outputs))
	}
}

func TestGenerateStreamAbandoned(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(123)}
	i := newTestInterface(t, testConfig(config.BackendGGUF), Deps{Decoder: dec})

	stream, err := i.GenerateStream(context.Background(), GenerateOptions{Text: "hello"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	// Take one chunk, then walk away. Nothing runs on the consumer's behalf
	// after Close, so the backend must stop being driven.
	if _, ok := stream.Next(); !ok {
		t.Fatal("first Next failed")
	}
	steps := dec.pos
	stream.Close()

	if out, ok := stream.Next(); ok {
		t.Errorf("Next after Close yielded %v", out)
	}
	if dec.pos != steps {
		t.Errorf("decoder advanced from %d to %d after Close", steps, dec.pos)
	}
	if stream.Err() != nil {
		t.Errorf("Close set an error: %v", stream.Err())
	}
}

func TestGenerateStreamUnsupportedBackend(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	i := newTestInterface(t, testConfig(config.BackendFull), Deps{Decoder: dec})

	_, err := i.GenerateStream(context.Background(), GenerateOptions{Text: "hello"})
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("err = %v; want ErrStreamingUnsupported", err)
	}
}

func TestGenerateStreamValidatesBeforeDecoding(t *testing.T) {
	dec := &scriptedDecoder{script: audioScript(5)}
	cfg := testConfig(config.BackendGGUF)
	i := newTestInterface(t, cfg, Deps{Decoder: dec})

	_, err := i.GenerateStream(context.Background(), GenerateOptions{Text: "hello", MaxLength: 1 << 20})
	if !errors.Is(err, ErrMaxLengthExceeded) {
		t.Fatalf("err = %v; want ErrMaxLengthExceeded", err)
	}
	if dec.prefills != 0 {
		t.Errorf("decoder was invoked %d times before validation", dec.prefills)
	}
}
