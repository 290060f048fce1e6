package domain

import "errors"

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentExists     = errors.New("document already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmbeddingFailed    = errors.New("embedding generation failed")
	ErrGenerationFailed   = errors.New("text generation failed")
	ErrChunkingFailed     = errors.New("text chunking failed")
	ErrVectorStoreFailed  = errors.New("vector store operation failed")
	ErrRerankFailed       = errors.New("reranking failed")
	ErrEvaluationFailed   = errors.New("evaluation failed")
	ErrConfigurationError = errors.New("configuration error")
	ErrServiceUnavailable = errors.New("service unavailable")
)
