package prompt

import (
	"errors"
	"fmt"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

// Vocabulary layout of the generation model's embedding table. Plain text
// occupies the SentencePiece range below specialOffset; control tokens,
// duration tokens, and codec-code tokens live in fixed reserved blocks above
// it. The layout is part of the model contract and must not change.
const (
	specialOffset     int64 = 49152
	durationOffset    int64 = specialOffset + 64
	maxDurationCentis int64 = 1500
	codeOffset        int64 = durationOffset + maxDurationCentis + 1

	// CodebookSize is the number of distinct codec token IDs.
	CodebookSize int64 = 4096
)

// Control token surface forms.
const (
	tokImStart      = "<|im_start|>"
	tokImEnd        = "<|im_end|>"
	tokTextStart    = "<|text_start|>"
	tokTextSep      = "<|text_sep|>"
	tokTextEnd      = "<|text_end|>"
	tokSpeakerStart = "<|speaker_start|>"
	tokSpeakerEnd   = "<|speaker_end|>"
	tokAudioStart   = "<|audio_start|>"
	tokAudioEnd     = "<|audio_end|>"
	tokCodeStart    = "<|code_start|>"
	tokCodeEnd      = "<|code_end|>"
)

// Control token IDs, assigned in declaration order from specialOffset.
const (
	idImStart int64 = specialOffset + iota
	idImEnd
	idTextStart
	idTextSep
	idTextEnd
	idSpeakerStart
	idSpeakerEnd
	idAudioStart
	idAudioEnd
	idCodeStart
	idCodeEnd
	idLangBase // language tokens follow, one per entry of langOrder
)

// langOrder fixes the ID assignment of <|lang_xx|> tokens. Order matters;
// appending new languages is safe, reordering is not.
var langOrder = []string{"en", "ja", "ko", "zh"}

var controlIDs = map[string]int64{
	tokImStart:      idImStart,
	tokImEnd:        idImEnd,
	tokTextStart:    idTextStart,
	tokTextSep:      idTextSep,
	tokTextEnd:      idTextEnd,
	tokSpeakerStart: idSpeakerStart,
	tokSpeakerEnd:   idSpeakerEnd,
	tokAudioStart:   idAudioStart,
	tokAudioEnd:     idAudioEnd,
	tokCodeStart:    idCodeStart,
	tokCodeEnd:      idCodeEnd,
}

func init() {
	for i, lang := range langOrder {
		controlIDs[langToken(lang)] = idLangBase + int64(i)
	}
}

func langToken(language string) string {
	return fmt.Sprintf("<|lang_%s|>", language)
}

// VocabSize is the total embedding table size implied by the layout.
func VocabSize() int64 {
	return codeOffset + CodebookSize
}

// TextEncoder converts plain text into token IDs within the text range of the
// vocabulary.
type TextEncoder interface {
	Encode(text string) ([]int64, error)
}

// ErrEmptyTokenizerPath is returned when a tokenizer model path is missing.
var ErrEmptyTokenizerPath = errors.New("tokenizer model path must not be empty")

// sentencePieceEncoder implements TextEncoder over a SentencePiece model.
type sentencePieceEncoder struct {
	proc gosp.Sentencepiece
}

// NewSentencePieceEncoder loads a SentencePiece model from the given path.
func NewSentencePieceEncoder(modelPath string) (TextEncoder, error) {
	if modelPath == "" {
		return nil, ErrEmptyTokenizerPath
	}

	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", modelPath, err)
	}

	return &sentencePieceEncoder{proc: proc}, nil
}

func (e *sentencePieceEncoder) Encode(text string) ([]int64, error) {
	if text == "" {
		return []int64{}, nil
	}

	ids := e.proc.TokenizeToIDs(text)

	result := make([]int64, len(ids))
	for i, id := range ids {
		result[i] = int64(id)
	}

	return result, nil
}
