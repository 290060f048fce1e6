package retrieve

import (
	"context"
	"fmt"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/log"
)

// HybridRetriever runs dense and sparse retrieval in sequence, merges the
// deduplicated union of candidates, and ranks the merged set with the
// reranker when one is configured, falling back to RRF otherwise.
type HybridRetriever struct {
	dense    domain.Retriever
	sparse   domain.Retriever
	reranker domain.Reranker
	fuser    *RRFFuser
}

// NewHybridRetriever creates a hybrid retriever. reranker may be nil, in
// which case merged candidates are ranked by Reciprocal Rank Fusion.
func NewHybridRetriever(dense, sparse domain.Retriever, reranker domain.Reranker, rrfConstant int) (*HybridRetriever, error) {
	if dense == nil {
		return nil, fmt.Errorf("%w: dense retriever is required", domain.ErrConfigurationError)
	}
	if sparse == nil {
		return nil, fmt.Errorf("%w: sparse retriever is required", domain.ErrConfigurationError)
	}
	return &HybridRetriever{
		dense:    dense,
		sparse:   sparse,
		reranker: reranker,
		fuser:    NewRRFFuser(rrfConstant),
	}, nil
}

// Retrieve returns up to topK chunks from the fused candidate set. Each
// branch is asked for topK candidates; the merged set is the deduplicated
// union of both result lists.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 5
	}

	denseChunks, err := r.dense.Retrieve(ctx, query, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("dense branch: %w", err)
	}

	sparseChunks, err := r.sparse.Retrieve(ctx, query, topK, filters)
	if err != nil {
		// Keyword search is best-effort; vector results still stand.
		log.Warn("keyword branch failed, using vector results only", "error", err)
		sparseChunks = nil
	}

	if r.reranker != nil {
		candidates := dedupeChunks(append(denseChunks, sparseChunks...))
		if len(candidates) == 0 {
			return nil, nil
		}
		ranked, err := r.reranker.Rerank(ctx, query, candidates, topK)
		if err != nil {
			return nil, fmt.Errorf("rerank merged candidates: %w", err)
		}
		return ranked, nil
	}

	fused := r.fuser.Fuse(denseChunks, sparseChunks)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// dedupeChunks keeps the first occurrence of each chunk ID, preserving
// order.
func dedupeChunks(chunks []domain.Chunk) []domain.Chunk {
	seen := make(map[string]bool, len(chunks))
	unique := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if seen[chunk.ID] {
			continue
		}
		seen[chunk.ID] = true
		unique = append(unique, chunk)
	}
	return unique
}
