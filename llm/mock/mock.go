// Package mock provides scripted generators for tests and offline runs.
package mock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/snow-ghost/sleuth/core"
	"gopkg.in/yaml.v3"
)

// ErrScriptExhausted is returned once every scripted reply was consumed.
var ErrScriptExhausted = errors.New("mock script exhausted")

// Reply is one scripted generator answer.
type Reply struct {
	Text string `yaml:"text"`
	Err  error  `yaml:"-"`
}

// Generator replays a queue of replies in order and records every prompt.
type Generator struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

var _ core.Generator = (*Generator)(nil)

// New returns a generator that answers with texts in order.
func New(texts ...string) *Generator {
	g := &Generator{}
	for _, t := range texts {
		g.Push(t)
	}
	return g
}

// LoadScript reads a YAML list of replies.
func LoadScript(path string) (*Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mock script: %w", err)
	}
	var replies []Reply
	if err := yaml.Unmarshal(data, &replies); err != nil {
		return nil, fmt.Errorf("failed to parse mock script: %w", err)
	}
	return &Generator{replies: replies}, nil
}

func (g *Generator) Push(text string) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, Reply{Text: text})
	return g
}

func (g *Generator) PushError(err error) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, Reply{Err: err})
	return g
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "", ErrScriptExhausted
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Calls is the number of Generate invocations so far.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of every prompt received.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Remaining is the number of replies not yet consumed.
func (g *Generator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.replies)
}

// Func adapts a function to core.Generator.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
