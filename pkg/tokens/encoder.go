// Package tokens counts prompt tokens so that prompts stay within budget.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter returns the number of tokens in text.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts with a BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads encodingName, e.g. "cl100k_base". tiktoken-go
// fetches encoding files on first use, so this can fail offline.
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// ApproxCounter estimates four bytes per token, rounding up.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// ForModel returns a tiktoken counter for model, or ApproxCounter when the
// model is unknown to tiktoken or its encoding cannot be loaded.
func ForModel(model string) Counter {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return ApproxCounter{}
	}
	return &TiktokenCounter{encoding: encoding}
}

// Fit keeps the leading parts whose running total stays within budget.
// A non-positive budget keeps everything.
func Fit(c Counter, budget int, parts []string) []string {
	if budget <= 0 {
		return parts
	}
	used := 0
	for i, p := range parts {
		used += c.Count(p)
		if used > budget {
			return parts[:i]
		}
	}
	return parts
}
