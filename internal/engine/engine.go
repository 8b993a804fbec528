// Package engine opens the inference components behind the synthesis
// pipeline. Runtime bindings register themselves at init time from their own
// build-constrained files; a binary built without any registers none and
// every open fails with ErrUnavailable.
package engine

import (
	"errors"
	"fmt"

	"github.com/example/go-oute-tts/internal/align"
	"github.com/example/go-oute-tts/internal/codec"
	"github.com/example/go-oute-tts/internal/config"
	"github.com/example/go-oute-tts/internal/model"
)

// ErrUnavailable is returned when no runtime binding is compiled in.
var ErrUnavailable = errors.New("no inference runtime built into this binary")

// Components are the loaded engine pieces the synthesis interface drives.
type Components struct {
	Decoder  model.Decoder
	Codec    codec.Model
	Acoustic align.Loader
}

// opener is set by runtime-specific builds.
var opener func(config.Config) (*Components, error)

// Register installs the runtime binding. Only one binding may be compiled
// into a binary.
func Register(open func(config.Config) (*Components, error)) {
	if opener != nil {
		panic("engine: runtime binding already registered")
	}
	opener = open
}

// Open loads the decoder, codec, and acoustic models named in cfg.Paths.
func Open(cfg config.Config) (*Components, error) {
	if opener == nil {
		return nil, fmt.Errorf("%w (backend %q)", ErrUnavailable, cfg.TTS.Backend)
	}
	return opener(cfg)
}
