// Package speaker defines voice-conditioning profiles and their storage.
// A profile captures a reference utterance as transcript, per-word timing,
// and per-word codec tokens; it is immutable once created.
package speaker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// PlaceholderCode is substituted for words whose aligned span yields no codec
// tokens, so that no word silently vanishes from the conditioning sequence.
const PlaceholderCode int64 = 1

// ErrNotFound is returned when a requested speaker does not exist.
var ErrNotFound = errors.New("speaker not found")

// Profile is a named voice-conditioning record. Words are ordered by original
// utterance time; concatenating all word codes reconstructs the full encoded
// utterance.
type Profile struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Words    []Word `json:"words"`
}

// Word is one aligned word of the reference utterance. Duration is seconds
// rounded to two decimals; Codes is never empty.
type Word struct {
	Word     string  `json:"word"`
	Duration float64 `json:"duration"`
	Codes    []int64 `json:"codes"`
}

// Save writes the profile to path as indented JSON. Profiles round-trip
// exactly through Save and Load.
func Save(p *Profile, path string) error {
	if p == nil {
		return errors.New("speaker profile is nil")
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal speaker profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write speaker profile: %w", err)
	}

	return nil
}

// Load reads a profile previously written by Save.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read speaker profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode speaker profile: %w", err)
	}

	return &p, nil
}
