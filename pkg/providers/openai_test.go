package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
)

func TestNewOpenAILLMProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      config.ProviderConfig
		shouldError bool
	}{
		{
			name:   "valid config with API key",
			config: config.ProviderConfig{APIKey: "test-api-key", Model: "gpt-4o-mini"},
		},
		{
			name:   "valid config with base URL",
			config: config.ProviderConfig{APIKey: "test-api-key", BaseURL: "http://localhost:11434/v1", Model: "gpt-4o-mini"},
		},
		{
			name:        "missing API key",
			config:      config.ProviderConfig{Model: "gpt-4o-mini"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewOpenAILLMProvider(tt.config)

			if tt.shouldError {
				assert.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrConfigurationError)
				assert.Nil(t, provider)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, provider)
			}
		})
	}
}

func TestOpenAILLMProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": "Milvus is a vector database.",
					},
				},
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAILLMProvider(config.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)

	answer, err := provider.Generate(context.Background(), "What is Milvus?", &domain.GenerationOptions{Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "Milvus is a vector database.", answer)
}

func TestOpenAILLMProvider_Generate_EmptyPrompt(t *testing.T) {
	provider, err := NewOpenAILLMProvider(config.ProviderConfig{APIKey: "test-key", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenAIEmbedderProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{
					"object":    "embedding",
					"index":     0,
					"embedding": []float64{0.1, 0.2, 0.3},
				},
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIEmbedderProvider(config.ProviderConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)

	vec, err := provider.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedderProvider_Embed_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	provider, err := NewOpenAIEmbedderProvider(config.ProviderConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = provider.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
}
