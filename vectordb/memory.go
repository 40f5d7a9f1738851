package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryVectorStore is an exhaustive cosine-similarity index held in memory.
type MemoryVectorStore struct {
	dim      int
	vectors  map[string][]float32
	metadata map[string]map[string]string
	mu       sync.RWMutex
}

var _ VectorStore = (*MemoryVectorStore)(nil)

func NewMemoryVectorStore(dim int) *MemoryVectorStore {
	return &MemoryVectorStore{
		dim:      dim,
		vectors:  make(map[string][]float32),
		metadata: make(map[string]map[string]string),
	}
}

func (m *MemoryVectorStore) Upsert(ctx context.Context, id string, vec []float32, meta map[string]string) error {
	if len(vec) != m.dim {
		return fmt.Errorf("vector dimension %d does not match expected %d", len(vec), m.dim)
	}
	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalize(normalized)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[id] = normalized
	m.metadata[id] = copyMeta(meta)
	return nil
}

// Search ranks every stored vector. Equal scores are ordered by id.
func (m *MemoryVectorStore) Search(ctx context.Context, vec []float32, topK int) ([]Hit, error) {
	if len(vec) != m.dim {
		return nil, fmt.Errorf("vector dimension %d does not match expected %d", len(vec), m.dim)
	}
	query := make([]float32, len(vec))
	copy(query, vec)
	normalize(query)

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.vectors))
	for id, stored := range m.vectors {
		hits = append(hits, Hit{ID: id, Score: dot(query, stored), Meta: copyMeta(m.metadata[id])})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if topK > 0 && topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryVectorStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, id)
	delete(m.metadata, id)
	return nil
}

func (m *MemoryVectorStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

// dot of two unit vectors is their cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

func copyMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
