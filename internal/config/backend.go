package config

import (
	"fmt"
	"strings"
)

// Backend kinds. The values double as the generation backend registry keys.
const (
	BackendFull = "full"
	BackendGGUF = "gguf"
	BackendEXL2 = "exl2"
)

// NormalizeBackend maps user-facing backend names and aliases onto the
// canonical kind constants. An empty value selects the full-precision backend.
func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendFull
	}
	switch backend {
	case BackendFull, BackendGGUF, BackendEXL2:
		return backend, nil
	case "hf", "full-precision":
		return BackendFull, nil
	case "quantized-file", "llama-cpp":
		return BackendGGUF, nil
	case "exllama", "exllamav2":
		return BackendEXL2, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s|%s)",
			raw,
			BackendFull,
			BackendGGUF,
			BackendEXL2,
		)
	}
}
