// Package openai implements core.Generator on an OpenAI compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/pkg/limiter"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4oMini

// Config configures the generator.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	System      string
}

// Generator sends each prompt as a single user message.
type Generator struct {
	client *openai.Client
	config Config
}

var _ core.Generator = (*Generator)(nil)

func New(config Config) (*Generator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &Generator{client: openai.NewClientWithConfig(cc), config: config}, nil
}

func (g *Generator) Model() string { return g.config.Model }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.config.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.config.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    messages,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps API failures carrying a status code onto limiter.HTTPError
// so the retry policy can see them.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return limiter.NewHTTPError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return limiter.NewHTTPError(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return err
}
