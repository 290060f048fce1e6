// Package retrieve implements the retriever variants: dense vector search,
// sparse keyword search, hypothetical-document expansion, and hybrid fusion.
package retrieve

import (
	"context"
	"fmt"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

// DenseRetriever embeds the query and searches the vector store.
type DenseRetriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
}

// NewDenseRetriever creates a dense retriever.
func NewDenseRetriever(embedder domain.Embedder, store domain.VectorStore) (*DenseRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrConfigurationError)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", domain.ErrConfigurationError)
	}
	return &DenseRetriever{embedder: embedder, store: store}, nil
}

// Retrieve returns up to topK chunks nearest to the query embedding.
func (r *DenseRetriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 5
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return r.store.SearchWithFilters(ctx, vector, topK, filters)
}
