package audio

import "log/slog"

// Player abstracts an audio output device. Implementations block until
// playback completes.
type Player interface {
	Play(samples []float32, sampleRate int) error
}

// NullPlayer is used when no playback device is available. Playback requests
// degrade to a logged warning instead of failing the caller.
type NullPlayer struct{}

func (NullPlayer) Play(_ []float32, _ int) error {
	slog.Warn("audio playback is disabled: no playback device available")
	return nil
}
