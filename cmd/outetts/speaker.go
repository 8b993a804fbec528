package main

import (
	"fmt"
	"strings"

	"github.com/example/go-oute-tts/internal/speaker"
	"github.com/example/go-oute-tts/internal/tts"
	"github.com/spf13/cobra"
)

func newSpeakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speaker",
		Short: "Manage speaker profiles",
	}
	cmd.AddCommand(newSpeakerCreateCmd())
	cmd.AddCommand(newSpeakerListCmd())
	return cmd
}

func newSpeakerCreateCmd() *cobra.Command {
	var audioPath string
	var transcript string
	var out string
	var language string
	var whisperModel string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Enroll a speaker profile from a reference recording",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if audioPath == "" {
				return fmt.Errorf("--audio is required")
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

			model := whisperModel
			if model == "" {
				model = cfg.Whisper.Model
			}

			profile, err := iface.CreateSpeaker(cmd.Context(), tts.CreateSpeakerOptions{
				AudioPath:    audioPath,
				Transcript:   transcript,
				WhisperModel: model,
			})
			if err != nil {
				return err
			}

			if err := iface.SaveSpeaker(profile, out); err != nil {
				return err
			}
			cmd.Printf("saved speaker profile with %d words to %s\n", len(profile.Words), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Reference recording (WAV)")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript of the recording (transcribed if empty)")
	cmd.Flags().StringVar(&out, "out", "speaker.json", "Output profile path")
	cmd.Flags().StringVar(&language, "language", "", "Enrollment language override")
	cmd.Flags().StringVar(&whisperModel, "whisper-model", "", "Transcription model override")

	return cmd
}

func newSpeakerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bundled default speakers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, lang := range speaker.DefaultLanguages() {
				cmd.Printf("%s: %s\n", lang, strings.Join(speaker.DefaultNames(lang), ", "))
			}
			return nil
		},
	}
}
