package tts

import (
	"log/slog"

	"github.com/example/go-oute-tts/internal/audio"
)

// ModelOutput is one synthesized waveform. Audio may be empty when the model
// produced no audio tokens; consumers must tolerate that.
type ModelOutput struct {
	Audio      []float32
	SampleRate int
}

// Empty reports whether the output carries audio.
func (o *ModelOutput) Empty() bool { return len(o.Audio) == 0 }

// Duration returns the audio length in seconds.
func (o *ModelOutput) Duration() float64 {
	if o.SampleRate == 0 {
		return 0
	}
	return float64(len(o.Audio)) / float64(o.SampleRate)
}

// Save writes the audio as a WAV file. Empty output is skipped with a
// warning rather than failing the synthesis that produced it.
func (o *ModelOutput) Save(path string) error {
	if o.Empty() {
		slog.Warn("no audio to save", "path", path)
		return nil
	}
	return audio.Save(path, o.Audio, o.SampleRate)
}

// Play sends the audio to the player. Playback problems are reported as
// warnings; synthesis already succeeded.
func (o *ModelOutput) Play(p audio.Player) {
	if o.Empty() {
		slog.Warn("no audio to play")
		return
	}
	if p == nil {
		p = audio.NullPlayer{}
	}
	if err := p.Play(o.Audio, o.SampleRate); err != nil {
		slog.Warn("audio playback failed", "error", err)
	}
}
