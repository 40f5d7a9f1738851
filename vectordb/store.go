// Package vectordb stores embedding vectors with string metadata.
package vectordb

import (
	"context"
)

// Hit is one search result.
type Hit struct {
	ID    string
	Score float64
	Meta  map[string]string
}

// VectorStore is a nearest-neighbour index.
type VectorStore interface {
	// Upsert stores or replaces the vector for id.
	Upsert(ctx context.Context, id string, vec []float32, meta map[string]string) error
	// Search returns up to topK hits ordered by descending score.
	Search(ctx context.Context, vec []float32, topK int) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
