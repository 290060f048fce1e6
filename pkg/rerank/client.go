// Package rerank provides a client for a hosted cross-encoder reranking API.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
)

const defaultTimeout = 30 * time.Second

// Client calls an external reranking endpoint. Failures are propagated as
// hard errors; there is no local fallback scoring.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a rerank client from configuration.
func NewClient(cfg config.RerankConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: rerank URL is required", domain.ErrConfigurationError)
	}

	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// Rerank reorders candidates by relevance to the query and truncates to topK.
// The returned chunks are always a subset of the input candidates.
func (c *Client) Rerank(ctx context.Context, query string, candidates []domain.Chunk, topK int) ([]domain.Chunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if len(candidates) == 0 {
		return []domain.Chunk{}, nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, chunk := range candidates {
		documents[i] = chunk.Content
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: rerank API returned %d: %s", domain.ErrRerankFailed, resp.StatusCode, string(data))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", domain.ErrRerankFailed, err)
	}

	if len(parsed.Results) > topK {
		parsed.Results = parsed.Results[:topK]
	}

	reranked := make([]domain.Chunk, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if result.Index < 0 || result.Index >= len(candidates) {
			return nil, fmt.Errorf("%w: result index %d out of range", domain.ErrRerankFailed, result.Index)
		}
		chunk := candidates[result.Index]
		chunk.Score = result.RelevanceScore
		reranked = append(reranked, chunk)
	}

	return reranked, nil
}
