package domain

import (
	"context"
	"time"
)

type Document struct {
	ID       string                 `json:"id"`
	Path     string                 `json:"path,omitempty"`
	URL      string                 `json:"url,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Created  time.Time              `json:"created"`
}

type Chunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Content    string                 `json:"content"`
	Vector     []float64              `json:"vector,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Position   int                    `json:"position,omitempty"`
	Score      float64                `json:"score,omitempty"`
}

type IngestRequest struct {
	Content   string                 `json:"content,omitempty"`
	FilePath  string                 `json:"file_path,omitempty"`
	URL       string                 `json:"url,omitempty"`
	ChunkSize int                    `json:"chunk_size"`
	Overlap   int                    `json:"overlap"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type IngestResponse struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

type QueryRequest struct {
	Query       string                 `json:"query"`
	TopK        int                    `json:"top_k"`
	Temperature float64                `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens"`
	Retriever   string                 `json:"retriever,omitempty"`
	Filters     map[string]interface{} `json:"filters,omitempty"`
	ShowSources bool                   `json:"show_sources"`
}

type QueryResponse struct {
	Answer  string  `json:"answer"`
	Sources []Chunk `json:"sources,omitempty"`
	Elapsed string  `json:"elapsed"`
}

// EvalRecord is one row of an evaluation dataset: a question, the contexts
// retrieved for it, the generated answer, and the reference answer.
type EvalRecord struct {
	Question    string   `json:"question"`
	Contexts    []string `json:"contexts"`
	Answer      string   `json:"answer"`
	GroundTruth string   `json:"ground_truth"`
}

type Stats struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
}

type Generator interface {
	Generate(ctx context.Context, prompt string, opts *GenerationOptions) (string, error)
}

// Retriever produces at most topK chunks ordered by descending score.
// Filters are metadata equality constraints applied by the backend.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, filters map[string]interface{}) ([]Chunk, error)
}

// Reranker reorders candidates by relevance to the query and truncates to
// topK. The output is always a subset of the input candidate set.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Chunk, topK int) ([]Chunk, error)
}

type Chunker interface {
	Split(text string, options ChunkOptions) ([]string, error)
}

type ChunkOptions struct {
	Size    int
	Overlap int
	Method  string
}

type VectorStore interface {
	Store(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, vector []float64, topK int) ([]Chunk, error)
	SearchWithFilters(ctx context.Context, vector []float64, topK int, filters map[string]interface{}) ([]Chunk, error)
	Delete(ctx context.Context, documentID string) error
	Reset(ctx context.Context) error
	Close() error
}

type DocumentStore interface {
	Store(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context) error
}

type KeywordStore interface {
	Index(ctx context.Context, chunk Chunk) error
	Search(ctx context.Context, query string, topK int) ([]Chunk, error)
	Delete(ctx context.Context, documentID string) error
	Reset(ctx context.Context) error
	Close() error
}
