// Package prompt owns the prompt/response token format that bridges text,
// speaker conditioning, and codec tokens. It is the only package that knows
// where audio tokens live inside a generated sequence.
package prompt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/go-oute-tts/internal/speaker"
)

// Processor builds completion prompts and parses generated token streams.
type Processor struct {
	enc       TextEncoder
	languages []string
}

// NewProcessor loads the SentencePiece tokenizer at tokenizerPath and
// validates that every requested language is supported by the vocabulary.
// An unsupported combination fails here, not at first use.
func NewProcessor(tokenizerPath string, languages []string) (*Processor, error) {
	enc, err := NewSentencePieceEncoder(tokenizerPath)
	if err != nil {
		return nil, err
	}
	return NewProcessorWithEncoder(enc, languages)
}

// NewProcessorWithEncoder is NewProcessor with an injected text encoder.
func NewProcessorWithEncoder(enc TextEncoder, languages []string) (*Processor, error) {
	if enc == nil {
		return nil, fmt.Errorf("text encoder is required")
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}

	normalized := make([]string, 0, len(languages))
	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if _, ok := controlIDs[langToken(lang)]; !ok {
			return nil, fmt.Errorf("language %q is not supported by the tokenizer vocabulary", lang)
		}
		normalized = append(normalized, lang)
	}

	return &Processor{enc: enc, languages: normalized}, nil
}

// Languages returns the validated language set.
func (p *Processor) Languages() []string {
	return append([]string(nil), p.languages...)
}

// CompletionPrompt renders the structured prompt for text in the given
// language, optionally conditioned on a speaker profile. The model is
// expected to continue the prompt with an audio region:
//
//	<|audio_start|> codes... <|audio_end|><|im_end|>
//
// When spk is nil the conditioning block is omitted and the model synthesizes
// a default voice for the language.
func (p *Processor) CompletionPrompt(text, language string, spk *speaker.Profile) string {
	var b strings.Builder

	b.WriteString(tokImStart)
	b.WriteString("\n")
	b.WriteString(langToken(language))
	b.WriteString("\n")

	words := strings.Fields(text)
	if spk != nil {
		words = append(strings.Fields(spk.Text), words...)
	}
	b.WriteString(tokTextStart)
	b.WriteString(strings.Join(words, tokTextSep))
	b.WriteString(tokTextEnd)
	b.WriteString("\n")

	if spk != nil {
		b.WriteString(tokSpeakerStart)
		b.WriteString("\n")
		for _, w := range spk.Words {
			b.WriteString(w.Word)
			b.WriteString(durationToken(w.Duration))
			b.WriteString(tokCodeStart)
			for _, c := range w.Codes {
				b.WriteString(codeToken(c))
			}
			b.WriteString(tokCodeEnd)
			b.WriteString("\n")
		}
		b.WriteString(tokSpeakerEnd)
		b.WriteString("\n")
	}

	return b.String()
}

func durationToken(seconds float64) string {
	return fmt.Sprintf("<|t_%.2f|>", seconds)
}

func codeToken(code int64) string {
	return fmt.Sprintf("<|%d|>", code)
}

var specialPattern = regexp.MustCompile(`<\|[^|>]+\|>`)

// EncodePrompt converts a rendered prompt into model input IDs. Special
// tokens map to their reserved IDs; the text in between goes through the
// SentencePiece encoder.
func (p *Processor) EncodePrompt(prompt string) ([]int64, error) {
	var ids []int64

	pos := 0
	for _, loc := range specialPattern.FindAllStringIndex(prompt, -1) {
		if loc[0] > pos {
			textIDs, err := p.encodeText(prompt[pos:loc[0]])
			if err != nil {
				return nil, err
			}
			ids = append(ids, textIDs...)
		}

		id, err := specialTokenID(prompt[loc[0]:loc[1]])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		pos = loc[1]
	}

	if pos < len(prompt) {
		textIDs, err := p.encodeText(prompt[pos:])
		if err != nil {
			return nil, err
		}
		ids = append(ids, textIDs...)
	}

	return ids, nil
}

func (p *Processor) encodeText(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	ids, err := p.enc.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("encode text %q: %w", s, err)
	}

	return ids, nil
}

func specialTokenID(tok string) (int64, error) {
	if id, ok := controlIDs[tok]; ok {
		return id, nil
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "<|"), "|>")

	if rest, ok := strings.CutPrefix(inner, "t_"); ok {
		seconds, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration token %q: %w", tok, err)
		}
		centis := int64(math.Round(seconds * 100))
		if centis < 0 || centis > maxDurationCentis {
			return 0, fmt.Errorf("duration token %q out of range", tok)
		}
		return durationOffset + centis, nil
	}

	if code, err := strconv.ParseInt(inner, 10, 64); err == nil {
		if code < 0 || code >= CodebookSize {
			return 0, fmt.Errorf("code token %q out of range", tok)
		}
		return codeOffset + code, nil
	}

	return 0, fmt.Errorf("unknown special token %q", tok)
}

// ExtractAudioTokens scans ids for the audio region opened by the
// audio-start sentinel and returns the codec token IDs it encloses. The
// region runs to the audio-end sentinel, or to the end of the sequence when
// generation stopped before emitting one. A sequence with no opening
// sentinel yields an empty result; the caller treats that as "nothing to
// decode", not an error.
func ExtractAudioTokens(ids []int64) []int64 {
	start := -1
	for i, id := range ids {
		if id == idAudioStart {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var codes []int64
	for _, id := range ids[start+1:] {
		if id == idAudioEnd {
			break
		}
		if id >= codeOffset && id < codeOffset+CodebookSize {
			codes = append(codes, id-codeOffset)
		}
	}

	return codes
}

// EOSToken is the model-defined end-of-generation marker.
func EOSToken() int64 { return idImEnd }

// AudioStartToken and AudioEndToken expose the audio region sentinels for
// stream plumbing and tests.
func AudioStartToken() int64 { return idAudioStart }
func AudioEndToken() int64   { return idAudioEnd }

// CodeToken maps a codec token ID into the vocabulary's code range.
func CodeToken(code int64) int64 { return codeOffset + code }
