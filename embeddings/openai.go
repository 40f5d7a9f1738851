package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds a client for apiKey. A non-empty baseURL points
// it at a compatible server.
func NewOpenAIEmbedder(apiKey, baseURL string, config Config) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required for embeddings")
	}
	def := DefaultConfig()
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Dimension <= 0 {
		config.Dimension = def.Dimension
	}
	if config.MaxChars <= 0 {
		config.MaxChars = def.MaxChars
	}

	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(cc), config: config}, nil
}

func (o *OpenAIEmbedder) Dimension() int { return o.config.Dimension }

func (o *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{truncate(text, o.config.MaxChars)},
		Model:      openai.EmbeddingModel(o.config.Model),
		Dimensions: o.config.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	vec := resp.Data[0].Embedding
	if len(vec) != o.config.Dimension {
		return nil, fmt.Errorf("embedding has dimension %d, want %d", len(vec), o.config.Dimension)
	}
	return vec, nil
}

// truncate cuts text at the last space within maxChars.
func truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut
}
