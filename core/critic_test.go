package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementValidators(t *testing.T) {
	vs := StatementValidators("<<POISON>>")

	cases := []struct {
		line   string
		ok     bool
		reason string
	}{
		{"Confirm City A's density exceeds City B's.", true, ""},
		{"Confirm City A's density exceeds City B's", false, "ends_with_."},
		{"Check all districts of City A.", false, "no_words"},
		{"Compare City A with others.", false, "no_words"},
		{"Fetch population, area, etc.", false, "no_words"},
		{"Fetch population and so on.", false, "no_words"},
		{"Confirm the <<POISON>> value.", false, "poison"},
		{"   ", false, "not_empty"},
		{"Confirm the tallest building is in Ballarat.", true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			ok, reason := vs.Accept(tc.line)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestQuestionValidators(t *testing.T) {
	vs := QuestionValidators("")
	ok, _ := vs.Accept("Which of two cities has higher density?")
	assert.True(t, ok)
	ok, reason := vs.Accept("Which city is denser.")
	assert.False(t, ok)
	assert.Equal(t, "ends_with_?", reason)
}

func TestMaxLength(t *testing.T) {
	v := MaxLength(5)
	assert.True(t, v.Allow("héllo"))
	assert.False(t, v.Allow("hello!"))
}

func TestCleanLine(t *testing.T) {
	assert.Equal(t, "Confirm x.", CleanLine("  - Confirm x.  "))
	assert.Equal(t, "Confirm x.", CleanLine("1. Confirm x."))
	assert.Equal(t, "Confirm x.", CleanLine("2) Confirm x."))
	assert.Equal(t, "Confirm x.", CleanLine("* Confirm x."))
	assert.Equal(t, "3.5 is larger.", CleanLine("3.5 is larger."))
}
