package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validator is a named predicate over one line of generated text.
type Validator struct {
	Name  string
	Allow func(line string) bool
}

// Validators run in order; the first failing one rejects the line.
type Validators []Validator

// Accept returns ok=true if every validator allows line, otherwise the name
// of the first validator that rejected it.
func (vs Validators) Accept(line string) (bool, string) {
	for _, v := range vs {
		if !v.Allow(line) {
			return false, v.Name
		}
	}
	return true, ""
}

func NotEmpty() Validator {
	return Validator{Name: "not_empty", Allow: func(line string) bool {
		return strings.TrimSpace(line) != ""
	}}
}

// EndsWith requires the sentence-final punctuation suffix.
func EndsWith(suffix string) Validator {
	return Validator{Name: "ends_with_" + suffix, Allow: func(line string) bool {
		return strings.HasSuffix(strings.TrimSpace(line), suffix)
	}}
}

// NoWords rejects lines containing any of words as a whole word, ignoring case.
// Multi-word phrases are matched with flexible whitespace.
func NoWords(words ...string) Validator {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		fields := strings.Fields(w)
		for i, f := range fields {
			fields[i] = regexp.QuoteMeta(f)
		}
		if len(fields) > 0 {
			parts = append(parts, strings.Join(fields, `\s+`))
		}
	}
	if len(parts) == 0 {
		return Validator{Name: "no_words", Allow: func(string) bool { return true }}
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
	return Validator{Name: "no_words", Allow: func(line string) bool {
		return !re.MatchString(line)
	}}
}

// NoSubstring rejects lines containing token. An empty token allows everything.
func NoSubstring(name, token string) Validator {
	return Validator{Name: name, Allow: func(line string) bool {
		return token == "" || !strings.Contains(line, token)
	}}
}

func MaxLength(n int) Validator {
	return Validator{Name: "max_length", Allow: func(line string) bool {
		return utf8.RuneCountInString(line) <= n
	}}
}

// HedgeWords mark non-atomic or leapfrog phrasings.
var HedgeWords = []string{"all", "others", "etc", "and so on"}

// StatementValidators is the chain for hypothesis and task lines.
func StatementValidators(poisonToken string) Validators {
	return Validators{
		NotEmpty(),
		NoSubstring("poison", poisonToken),
		EndsWith("."),
		NoWords(HedgeWords...),
		MaxLength(400),
	}
}

// QuestionValidators is the chain for proposed questions.
func QuestionValidators(poisonToken string) Validators {
	return Validators{
		NotEmpty(),
		NoSubstring("poison", poisonToken),
		EndsWith("?"),
		NoWords(HedgeWords...),
		MaxLength(400),
	}
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// CleanLine strips list markers and surrounding whitespace.
func CleanLine(line string) string {
	return strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
}
