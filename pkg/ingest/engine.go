// Package ingest turns source documents into embedded chunks stored in the
// vector, document, and keyword backends.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/ingest/extract"
	"github.com/ragpipe/ragpipe/pkg/log"
)

// Engine runs the ingestion pipeline: extract, chunk, embed, store.
// All collaborators are injected at construction.
type Engine struct {
	embedder    domain.Embedder
	vectorStore domain.VectorStore
	docStore    domain.DocumentStore
	keyword     domain.KeywordStore
	chunker     domain.Chunker
	chunkMethod string
	extractor   *extract.Extractor
	concurrency int
	logger      *slog.Logger
}

// Options configures an ingest engine.
type Options struct {
	Embedder    domain.Embedder
	VectorStore domain.VectorStore
	DocStore    domain.DocumentStore
	Keyword     domain.KeywordStore
	Chunker     domain.Chunker
	ChunkMethod string
	Concurrency int
}

// NewEngine creates an ingest engine. Embedder, vector store, and document
// store are required; the keyword index is optional.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrConfigurationError)
	}
	if opts.VectorStore == nil {
		return nil, fmt.Errorf("%w: vector store is required", domain.ErrConfigurationError)
	}
	if opts.DocStore == nil {
		return nil, fmt.Errorf("%w: document store is required", domain.ErrConfigurationError)
	}

	chunker := opts.Chunker
	if chunker == nil {
		chunker = NewChunker()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Engine{
		embedder:    opts.Embedder,
		vectorStore: opts.VectorStore,
		docStore:    opts.DocStore,
		keyword:     opts.Keyword,
		chunker:     chunker,
		chunkMethod: opts.ChunkMethod,
		extractor:   extract.NewExtractor(),
		concurrency: concurrency,
		logger:      log.WithModule("ingest"),
	}, nil
}

// Ingest processes a single document end to end. Re-ingesting a document
// with the same identity yields ErrDocumentExists; nothing is written twice.
func (e *Engine) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResponse, error) {
	doc, err := e.resolveDocument(ctx, req)
	if err != nil {
		return domain.IngestResponse{}, err
	}

	exists, err := e.docStore.Exists(ctx, doc.ID)
	if err != nil {
		return domain.IngestResponse{}, err
	}
	if exists {
		return domain.IngestResponse{}, fmt.Errorf("%w: %s", domain.ErrDocumentExists, doc.ID)
	}

	texts, err := e.chunker.Split(doc.Content, domain.ChunkOptions{
		Size:    req.ChunkSize,
		Overlap: req.Overlap,
		Method:  e.chunkMethod,
	})
	if err != nil {
		return domain.IngestResponse{}, err
	}
	if len(texts) == 0 {
		return domain.IngestResponse{}, fmt.Errorf("%w: document produced no chunks", domain.ErrInvalidInput)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         chunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    text,
			Position:   i,
			Metadata:   req.Metadata,
		}
	}

	// Embed through a bounded worker pool, then write once.
	if err := e.embedChunks(ctx, chunks); err != nil {
		return domain.IngestResponse{}, err
	}

	// The document record commits last: chunk writes are idempotent
	// upserts keyed by deterministic IDs, so a failure before the record
	// exists leaves the source re-ingestable instead of stuck behind
	// ErrDocumentExists.
	if err := e.vectorStore.Store(ctx, chunks); err != nil {
		return domain.IngestResponse{}, err
	}
	if e.keyword != nil {
		for _, chunk := range chunks {
			if err := e.keyword.Index(ctx, chunk); err != nil {
				return domain.IngestResponse{}, err
			}
		}
	}
	if err := e.docStore.Store(ctx, doc); err != nil {
		return domain.IngestResponse{}, err
	}

	e.logger.Info("document ingested", "document_id", doc.ID, "chunks", len(chunks))

	return domain.IngestResponse{
		DocumentID: doc.ID,
		ChunkCount: len(chunks),
	}, nil
}

func (e *Engine) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := range chunks {
		g.Go(func() error {
			vector, err := e.embedder.Embed(ctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			chunks[i].Vector = vector
			return nil
		})
	}

	return g.Wait()
}

// resolveDocument turns the request into a Document with extracted content
// and a deterministic identity.
func (e *Engine) resolveDocument(ctx context.Context, req domain.IngestRequest) (domain.Document, error) {
	doc := domain.Document{
		Metadata: req.Metadata,
		Created:  time.Now(),
	}

	switch {
	case req.Content != "":
		doc.Content = req.Content
		doc.ID = documentID("text", contentHash(req.Content))
	case req.FilePath != "":
		content, err := e.extractor.ExtractFile(req.FilePath)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		abs, err := filepath.Abs(req.FilePath)
		if err != nil {
			abs = req.FilePath
		}
		doc.Content = content
		doc.Path = abs
		doc.ID = documentID("file", abs)
	case req.URL != "":
		page, err := e.extractor.ExtractURL(ctx, req.URL)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		doc.Content = page.Content
		doc.URL = req.URL
		doc.ID = documentID("url", req.URL)
		if page.Title != "" {
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]interface{})
			}
			doc.Metadata["title"] = page.Title
		}
	default:
		return domain.Document{}, fmt.Errorf("%w: one of content, file_path, or url is required", domain.ErrInvalidInput)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return domain.Document{}, fmt.Errorf("%w: document is empty", domain.ErrInvalidInput)
	}

	return doc, nil
}

// documentID derives a stable UUID from the document's source identity, so
// the same source always maps to the same primary key.
func documentID(kind, identity string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+identity)).String()
}

func chunkID(docID string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", docID, position))).String()
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
