package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, BackendFull, cfg.TTS.Backend)
	assert.Equal(t, "en", cfg.TTS.Language)
	assert.Equal(t, []string{"en", "ja", "ko", "zh"}, cfg.TTS.Languages)
	assert.Equal(t, 4096, cfg.TTS.MaxSeqLength)
	assert.Equal(t, 50, cfg.TTS.ChunkSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNormalizeBackend(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", BackendFull, false},
		{"full", BackendFull, false},
		{"HF", BackendFull, false},
		{"full-precision", BackendFull, false},
		{"gguf", BackendGGUF, false},
		{"quantized-file", BackendGGUF, false},
		{" exl2 ", BackendEXL2, false},
		{"exllamav2", BackendEXL2, false},
		{"onnx", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeBackend(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outetts.yaml")
	body := []byte("tts:\n  backend: quantized-file\n  language: ja\n  max_seq_length: 2048\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(LoadOptions{ConfigFile: path, Defaults: DefaultConfig()})
	require.NoError(t, err)

	assert.Equal(t, BackendGGUF, cfg.TTS.Backend)
	assert.Equal(t, "ja", cfg.TTS.Language)
	assert.Equal(t, 2048, cfg.TTS.MaxSeqLength)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep defaults.
	assert.Equal(t, 50, cfg.TTS.ChunkSize)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outetts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tts:\n  backend: mlx\n"), 0o644))

	_, err := Load(LoadOptions{ConfigFile: path, Defaults: DefaultConfig()})
	assert.Error(t, err)
}
