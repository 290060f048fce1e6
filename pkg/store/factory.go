package store

import (
	"fmt"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
)

// Stores bundles the storage backends used by a pipeline.
type Stores struct {
	Vector  domain.VectorStore
	Docs    domain.DocumentStore
	Keyword domain.KeywordStore

	sqlite        *SQLiteStore
	vectorIsLocal bool
}

// Open creates the configured vector store together with the local document
// store and keyword index. Document metadata always lives in SQLite; vectors
// go to Qdrant or SQLite depending on configuration.
func Open(cfg *config.Config) (*Stores, error) {
	sqlite, err := NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	keyword, err := NewKeywordStore(cfg.Keyword.IndexPath)
	if err != nil {
		_ = sqlite.Close()
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}

	stores := &Stores{
		Docs:    sqlite.DocStore(),
		Keyword: keyword,
		sqlite:  sqlite,
	}

	switch cfg.Store.Backend {
	case "sqlite":
		stores.Vector = sqlite
		stores.vectorIsLocal = true
	case "qdrant":
		qdrant, err := NewQdrantStore(cfg.Store.URL, cfg.Store.Collection)
		if err != nil {
			_ = keyword.Close()
			_ = sqlite.Close()
			return nil, fmt.Errorf("failed to open qdrant store: %w", err)
		}
		stores.Vector = qdrant
	default:
		_ = keyword.Close()
		_ = sqlite.Close()
		return nil, fmt.Errorf("%w: unsupported store backend: %s", domain.ErrConfigurationError, cfg.Store.Backend)
	}

	return stores, nil
}

// Close closes every open backend, returning the first error encountered.
func (s *Stores) Close() error {
	var firstErr error

	if s.Keyword != nil {
		if err := s.Keyword.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Vector != nil && !s.vectorIsLocal {
		if err := s.Vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Local returns the underlying SQLite store for stats queries.
func (s *Stores) Local() *SQLiteStore {
	return s.sqlite
}
