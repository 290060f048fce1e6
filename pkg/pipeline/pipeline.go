// Package pipeline wires retrieval, reranking, and generation into one
// linear question-answering flow. A pipeline is stateless per request;
// all clients are injected at construction.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/generate"
	"github.com/ragpipe/ragpipe/pkg/log"
)

// Retriever kinds selectable per request.
const (
	RetrieverDense  = "dense"
	RetrieverSparse = "sparse"
	RetrieverHyDE   = "hyde"
	RetrieverHybrid = "hybrid"
)

// rerankCandidateFactor widens the retrieval pool when a reranker is
// configured, so the reranker has more than topK candidates to order.
const rerankCandidateFactor = 4

// Options configures a Pipeline.
type Options struct {
	Retrievers       map[string]domain.Retriever
	DefaultRetriever string
	Reranker         domain.Reranker
	Generator        *generate.Generator
	TopK             int
}

// Pipeline runs retrieve, optionally rerank, then generate.
type Pipeline struct {
	retrievers       map[string]domain.Retriever
	defaultRetriever string
	reranker         domain.Reranker
	generator        *generate.Generator
	topK             int
}

// New validates the options and builds a pipeline.
func New(opts Options) (*Pipeline, error) {
	if len(opts.Retrievers) == 0 {
		return nil, fmt.Errorf("%w: at least one retriever is required", domain.ErrConfigurationError)
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("%w: generator is required", domain.ErrConfigurationError)
	}
	if opts.DefaultRetriever == "" {
		opts.DefaultRetriever = RetrieverHybrid
	}
	if _, ok := opts.Retrievers[opts.DefaultRetriever]; !ok {
		return nil, fmt.Errorf("%w: default retriever %q not registered", domain.ErrConfigurationError, opts.DefaultRetriever)
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Pipeline{
		retrievers:       opts.Retrievers,
		defaultRetriever: opts.DefaultRetriever,
		reranker:         opts.Reranker,
		generator:        opts.Generator,
		topK:             opts.TopK,
	}, nil
}

// Answer runs the full pipeline with defaults and returns the generated
// answer text.
func (p *Pipeline) Answer(ctx context.Context, query string) (string, error) {
	resp, err := p.Query(ctx, domain.QueryRequest{Query: query})
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Query runs retrieve, optional rerank, and generate for one request.
func (p *Pipeline) Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	start := time.Now()

	chunks, err := p.Retrieve(ctx, req)
	if err != nil {
		return domain.QueryResponse{}, err
	}

	var genOpts *domain.GenerationOptions
	if req.Temperature > 0 || req.MaxTokens > 0 {
		genOpts = &domain.GenerationOptions{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
	}

	answer, err := p.generator.Answer(ctx, req.Query, chunks, genOpts)
	if err != nil {
		return domain.QueryResponse{}, err
	}

	resp := domain.QueryResponse{
		Answer:  answer,
		Elapsed: time.Since(start).String(),
	}
	if req.ShowSources {
		resp.Sources = chunks
	}
	return resp, nil
}

// Retrieve runs the retrieval and rerank stages only, returning at most
// topK chunks.
func (p *Pipeline) Retrieve(ctx context.Context, req domain.QueryRequest) ([]domain.Chunk, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	name := req.Retriever
	if name == "" {
		name = p.defaultRetriever
	}
	retriever, ok := p.retrievers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown retriever %q", domain.ErrInvalidInput, name)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = p.topK
	}

	candidateK := topK
	if p.reranker != nil {
		candidateK = topK * rerankCandidateFactor
	}

	chunks, err := retriever.Retrieve(ctx, req.Query, candidateK, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("retrieve (%s): %w", name, err)
	}
	log.Debug("retrieval complete", "retriever", name, "candidates", len(chunks))

	if p.reranker != nil && len(chunks) > 0 {
		chunks, err = p.reranker.Rerank(ctx, req.Query, chunks, topK)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
	}

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}
