package providers

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
)

// OpenAILLMProvider implements domain.Generator for OpenAI-compatible services.
type OpenAILLMProvider struct {
	client openai.Client
	config config.ProviderConfig
}

// NewOpenAILLMProvider creates a new OpenAI LLM provider.
func NewOpenAILLMProvider(cfg config.ProviderConfig) (*OpenAILLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: provider API key is required", domain.ErrConfigurationError)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAILLMProvider{
		client: openai.NewClient(opts...),
		config: cfg,
	}, nil
}

// Generate runs a single chat completion and returns the generated text.
func (p *OpenAILLMProvider) Generate(ctx context.Context, prompt string, opts *domain.GenerationOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", domain.ErrInvalidInput)
	}

	params := openai.ChatCompletionNewParams{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	temperature := p.config.Temperature
	maxTokens := 0
	if opts != nil {
		if opts.Temperature > 0 {
			temperature = opts.Temperature
		}
		maxTokens = opts.MaxTokens
	}
	if temperature > 0 {
		params.Temperature = param.NewOpt(temperature)
	}
	if maxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(maxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrGenerationFailed)
	}

	return completion.Choices[0].Message.Content, nil
}

// Health checks that the chat endpoint is reachable.
func (p *OpenAILLMProvider) Health(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

// OpenAIEmbedderProvider implements domain.Embedder for OpenAI-compatible services.
type OpenAIEmbedderProvider struct {
	client openai.Client
	config config.ProviderConfig
}

// NewOpenAIEmbedderProvider creates a new OpenAI embedding provider.
func NewOpenAIEmbedderProvider(cfg config.ProviderConfig) (*OpenAIEmbedderProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: provider API key is required", domain.ErrConfigurationError)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIEmbedderProvider{
		client: openai.NewClient(opts...),
		config: cfg,
	}, nil
}

// Embed generates an embedding vector for the given text.
func (p *OpenAIEmbedderProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}

	embedding, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}

	if len(embedding.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data returned", domain.ErrEmbeddingFailed)
	}

	vec := make([]float64, len(embedding.Data[0].Embedding))
	for i, v := range embedding.Data[0].Embedding {
		vec[i] = float64(v)
	}

	return vec, nil
}

// Health checks that the embeddings endpoint is reachable.
func (p *OpenAIEmbedderProvider) Health(ctx context.Context) error {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String("test"),
		},
	}

	_, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	return nil
}
