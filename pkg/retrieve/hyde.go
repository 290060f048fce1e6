package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/log"
)

const hydePromptTemplate = `Write a short passage that directly answers the question below, as if it were an excerpt from a reference document. Do not say you are unsure; write the most plausible answer passage.

Question: %s

Passage:`

// HyDERetriever expands the query into a hypothetical answer document using
// the LLM, then uses that document as the dense search key.
type HyDERetriever struct {
	generator domain.Generator
	dense     *DenseRetriever
}

// NewHyDERetriever creates a HyDE retriever delegating to dense.
func NewHyDERetriever(generator domain.Generator, dense *DenseRetriever) (*HyDERetriever, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", domain.ErrConfigurationError)
	}
	if dense == nil {
		return nil, fmt.Errorf("%w: dense retriever is required", domain.ErrConfigurationError)
	}
	return &HyDERetriever{generator: generator, dense: dense}, nil
}

// Retrieve generates a hypothetical document for the query and searches
// with it.
func (r *HyDERetriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	hypothetical, err := r.generator.Generate(ctx, fmt.Sprintf(hydePromptTemplate, query), &domain.GenerationOptions{
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("hypothetical document generation: %w", err)
	}

	hypothetical = strings.TrimSpace(hypothetical)
	if hypothetical == "" {
		return nil, fmt.Errorf("%w: empty hypothetical document", domain.ErrGenerationFailed)
	}

	log.Debug("hyde expansion", "query", query, "document_length", len(hypothetical))

	return r.dense.Retrieve(ctx, hypothetical, topK, filters)
}
