package scoring

import (
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1},
		{"identical", "Paris is large.", "Paris is large.", 1},
		{"case and spacing ignored", "  Paris   IS large. ", "paris is large.", 1},
		{"one empty", "abc", "", 0},
		{"disjoint", "abc", "xyz", 0},
		{"one substitution", "kitten", "sitten", 1 - 1.0/6},
		{"classic", "kitten", "sitting", 1 - 3.0/7},
		{"runes not bytes", "café", "cafe", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, got, Similarity(tt.b, tt.a), 1e-9, "symmetric")
		})
	}
}

func TestMaxSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, MaxSimilarity("anything", nil))
	refs := []string{"xyz", "abd", "abc"}
	assert.Equal(t, 1.0, MaxSimilarity("abc", refs))
	assert.InDelta(t, 2.0/3, MaxSimilarity("abe", refs[:2]), 1e-9)
}

func TestRank(t *testing.T) {
	skills := []core.Skill{
		{ID: "s-1", Description: "Count the cafes in Berlin."},
		{ID: "s-2", Description: "Tokyo has more people than Paris."},
		{ID: "s-3", Description: "Count the cafes in Bern."},
	}

	got := Rank("Count the cafes in Berlin.", skills, 2)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "s-1", got[0].ID)
		assert.Equal(t, "s-3", got[1].ID)
	}

	assert.Len(t, Rank("x", skills, 10), 3)
	assert.Nil(t, Rank("x", skills, 0))
	assert.Nil(t, Rank("x", nil, 3))
}
