package ragpipe

import (
	"fmt"
	"strings"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/generate"
	"github.com/ragpipe/ragpipe/pkg/ingest"
	"github.com/ragpipe/ragpipe/pkg/pipeline"
	"github.com/ragpipe/ragpipe/pkg/providers"
	"github.com/ragpipe/ragpipe/pkg/rerank"
	"github.com/ragpipe/ragpipe/pkg/retrieve"
	"github.com/ragpipe/ragpipe/pkg/store"
)

// buildEngine wires the ingestion engine over the opened stores.
func buildEngine(cfg *config.Config, stores *store.Stores) (*ingest.Engine, error) {
	embedder, err := providers.NewOpenAIEmbedderProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return ingest.NewEngine(ingest.Options{
		Embedder:    embedder,
		VectorStore: stores.Vector,
		DocStore:    stores.Docs,
		Keyword:     stores.Keyword,
		ChunkMethod: cfg.Chunker.Method,
		Concurrency: cfg.Ingest.Concurrency,
	})
}

// buildPipeline wires retrievers, the optional reranker, and the generator
// over the opened stores. The reranker is applied at the pipeline level, so
// the hybrid retriever merges its branches with reciprocal rank fusion.
func buildPipeline(cfg *config.Config, stores *store.Stores) (*pipeline.Pipeline, error) {
	embedder, err := providers.NewOpenAIEmbedderProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	llm, err := providers.NewOpenAILLMProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}

	dense, err := retrieve.NewDenseRetriever(embedder, stores.Vector)
	if err != nil {
		return nil, err
	}
	sparse, err := retrieve.NewSparseRetriever(stores.Keyword)
	if err != nil {
		return nil, err
	}
	hyde, err := retrieve.NewHyDERetriever(llm, dense)
	if err != nil {
		return nil, err
	}
	hybrid, err := retrieve.NewHybridRetriever(dense, sparse, nil, int(cfg.Retrieval.RRFConstant))
	if err != nil {
		return nil, err
	}

	var reranker domain.Reranker
	if cfg.Rerank.Enabled {
		client, err := rerank.NewClient(cfg.Rerank)
		if err != nil {
			return nil, fmt.Errorf("failed to create reranker: %w", err)
		}
		reranker = client
	}

	generator, err := generate.New(llm)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Options{
		Retrievers: map[string]domain.Retriever{
			pipeline.RetrieverDense:  dense,
			pipeline.RetrieverSparse: sparse,
			pipeline.RetrieverHyDE:   hyde,
			pipeline.RetrieverHybrid: hybrid,
		},
		DefaultRetriever: pipeline.RetrieverHybrid,
		Reranker:         reranker,
		Generator:        generator,
		TopK:             cfg.Retrieval.TopK,
	})
}

// parseKeyValues parses repeated key=value flags into a metadata map.
func parseKeyValues(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
