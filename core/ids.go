package core

import "github.com/google/uuid"

// Id prefixes per entity.
const (
	PrefixQuestion   = "q"
	PrefixHypothesis = "h"
	PrefixTask       = "t"
	PrefixSkill      = "s"
)

// NewID returns prefix-xxxxxxxx with 8 hex characters of a random UUID.
func NewID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
