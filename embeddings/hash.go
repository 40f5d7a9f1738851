package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic bag-of-words embedder. Each lower-cased
// word and word bigram is hashed into a bucket; the vector is L2 normalized.
// It needs no network and is safe for concurrent use.
type HashEmbedder struct {
	dim int
}

var _ Embedder = (*HashEmbedder)(nil)

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dimension() int { return h.dim }

func (h *HashEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	words := tokenize(text)
	for i, w := range words {
		vec[h.bucket(w)] += 1
		if i > 0 {
			vec[h.bucket(words[i-1]+" "+w)] += 0.5
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (h *HashEmbedder) bucket(token string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(token))
	return int(f.Sum32() % uint32(h.dim))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
