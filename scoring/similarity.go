package scoring

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/snow-ghost/sleuth/core"
)

// Similarity is 1 minus the Levenshtein distance normalized by the longer
// string's rune length. Comparison ignores case and surrounding space.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return clamp01(1 - float64(d)/float64(longest))
}

// MaxSimilarity returns the highest similarity of candidate to refs, or 0.
func MaxSimilarity(candidate string, refs []string) float64 {
	best := 0.0
	for _, r := range refs {
		if s := Similarity(candidate, r); s > best {
			best = s
			if best == 1 {
				break
			}
		}
	}
	return best
}

// Rank orders skills by similarity of their description to description and
// returns at most k of them.
func Rank(description string, skills []core.Skill, k int) []core.Skill {
	if k <= 0 || len(skills) == 0 {
		return nil
	}
	type scored struct {
		skill core.Skill
		sim   float64
	}
	all := make([]scored, 0, len(skills))
	for _, s := range skills {
		all = append(all, scored{skill: s, sim: Similarity(description, s.Description)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].sim > all[j].sim })
	if k > len(all) {
		k = len(all)
	}
	out := make([]core.Skill, k)
	for i := range out {
		out[i] = all[i].skill
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
