package model

import (
	"os"
	"strings"
)

// ResolveDevice maps a requested device name onto what the process can
// actually use. An empty or "auto" request picks cuda when the runtime
// advertises GPUs and falls back to cpu otherwise; anything explicit is
// honored as given.
func ResolveDevice(requested string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested != "" && requested != "auto" {
		return requested
	}
	if gpus := os.Getenv("CUDA_VISIBLE_DEVICES"); gpus != "" && gpus != "-1" {
		return "cuda"
	}
	return "cpu"
}
