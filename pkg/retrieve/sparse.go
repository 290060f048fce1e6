package retrieve

import (
	"context"
	"fmt"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

// SparseRetriever searches the BM25 keyword index. Metadata filters are
// applied as a post-filter over the returned chunks.
type SparseRetriever struct {
	store domain.KeywordStore
}

// NewSparseRetriever creates a sparse retriever.
func NewSparseRetriever(store domain.KeywordStore) (*SparseRetriever, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: keyword store is required", domain.ErrConfigurationError)
	}
	return &SparseRetriever{store: store}, nil
}

// Retrieve returns up to topK chunks ranked by keyword relevance.
func (r *SparseRetriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 5
	}

	chunks, err := r.store.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if len(filters) == 0 {
		return chunks, nil
	}

	filtered := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if matchesFilters(chunk.Metadata, filters) {
			filtered = append(filtered, chunk)
		}
	}
	return filtered, nil
}

func matchesFilters(metadata map[string]interface{}, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}
