// Package embeddings turns skill descriptions into vectors.
package embeddings

import (
	"context"
)

// Embedder converts text to a fixed-dimension vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Config configures an embedder.
type Config struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	MaxChars  int    `yaml:"max_chars"`
}

func DefaultConfig() Config {
	return Config{
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		MaxChars:  8192 * 4,
	}
}
