package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-oute-tts/internal/audio"
	"github.com/example/go-oute-tts/internal/config"
	"github.com/example/go-oute-tts/internal/engine"
	"github.com/example/go-oute-tts/internal/speaker"
	"github.com/example/go-oute-tts/internal/tts"
	"github.com/example/go-oute-tts/internal/whisper"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var text string
	var out string
	var speakerRef string
	var language string
	var stream bool
	var play bool
	var temperature float64
	var repetitionPenalty float64
	var maxLength int

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to WAV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, os.Stdin)
			if err != nil {
				return err
			}

			iface, err := newInterface(cfg)
			if err != nil {
				return err
			}
			defer iface.Close()

			if language != "" {
				if err := iface.ChangeLanguage(language); err != nil {
					return err
				}
			}

			spk, err := resolveSpeaker(iface, speakerRef)
			if err != nil {
				return err
			}

			opts := tts.GenerateOptions{
				Text:              inputText,
				Speaker:           spk,
				Temperature:       temperature,
				RepetitionPenalty: repetitionPenalty,
				MaxLength:         maxLength,
			}

			var output *tts.ModelOutput
			if stream {
				output, err = collectStream(cmd, iface, opts)
			} else {
				output, err = iface.Generate(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			if play {
				iface.Play(output)
			}
			return output.Save(out)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path")
	cmd.Flags().StringVar(&speakerRef, "speaker", "", "Default speaker name or speaker profile path")
	cmd.Flags().StringVar(&language, "language", "", "Synthesis language override")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream generation chunk by chunk (gguf backend only)")
	cmd.Flags().BoolVar(&play, "play", false, "Play the synthesized audio")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature override")
	cmd.Flags().Float64Var(&repetitionPenalty, "repetition-penalty", 0, "Repetition penalty override")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Maximum total token count override")

	return cmd
}

// newInterface opens the inference runtime and wires the synthesis
// interface around it.
func newInterface(cfg config.Config) (*tts.Interface, error) {
	comps, err := engine.Open(cfg)
	if err != nil {
		return nil, err
	}

	return tts.New(cfg, tts.Deps{
		Decoder:     comps.Decoder,
		Codec:       comps.Codec,
		Acoustic:    comps.Acoustic,
		Transcriber: whisper.NewClient(cfg.Whisper.BaseURL),
		Player:      audio.NullPlayer{},
	})
}

// resolveSpeaker treats anything that looks like a file path as a stored
// profile; plain names select the bundled catalog for the active language.
func resolveSpeaker(iface *tts.Interface, ref string) (*speaker.Profile, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if strings.ContainsAny(ref, "/\\") || strings.HasSuffix(ref, ".json") {
		return iface.LoadSpeaker(ref)
	}
	return iface.LoadDefaultSpeaker(ref)
}

// collectStream drains the streaming path into one merged output, so synth
// writes a single WAV either way.
func collectStream(cmd *cobra.Command, iface *tts.Interface, opts tts.GenerateOptions) (*tts.ModelOutput, error) {
	stream, err := iface.GenerateStream(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	merged := &tts.ModelOutput{}
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		merged.Audio = append(merged.Audio, chunk.Audio...)
		merged.SampleRate = chunk.SampleRate
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return merged, nil
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}
