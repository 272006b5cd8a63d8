package domain

import (
	"fmt"
	"strings"
)

const (
	ChunkPresetSmall  = "small"
	ChunkPresetMedium = "medium"
	ChunkPresetLarge  = "large"

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ChunkSizeForPreset maps a preset name to a chunk size in characters.
// An empty name returns 0, which leaves the configured chunk size in effect.
func ChunkSizeForPreset(preset string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case ChunkPresetSmall:
		return 500, nil
	case "":
		return 0, nil
	case ChunkPresetMedium:
		return DefaultChunkSize, nil
	case ChunkPresetLarge:
		return 2000, nil
	default:
		return 0, WrapError(ErrInvalidInput, "chunk size preset", fmt.Errorf("unknown preset %q", preset))
	}
}
