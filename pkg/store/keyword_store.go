package store

import (
	"context"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

// KeywordStore provides BM25-style full-text search over document chunks.
type KeywordStore struct {
	path  string
	index bleve.Index
}

// keywordDoc is the shape indexed into bleve.
type keywordDoc struct {
	Content    string                 `json:"content"`
	DocumentID string                 `json:"document_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewKeywordStore creates or opens a keyword index at the given path.
func NewKeywordStore(path string) (*KeywordStore, error) {
	index, err := openOrCreateBleveIndex(path)
	if err != nil {
		return nil, err
	}

	return &KeywordStore{
		path:  path,
		index: index,
	}, nil
}

func openOrCreateBleveIndex(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		index, err := bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, err
		}
		return index, nil
	}

	index, err := bleve.Open(path)
	if err != nil {
		return nil, err
	}
	return index, nil
}

// buildIndexMapping analyzes content for full-text search but keeps
// document_id and metadata values as exact keywords; UUIDs tokenize under
// the standard analyzer, which would break term queries on them.
func buildIndexMapping() mapping.IndexMapping {
	contentField := bleve.NewTextFieldMapping()

	docIDField := bleve.NewTextFieldMapping()
	docIDField.Analyzer = keyword.Name

	metaMapping := bleve.NewDocumentMapping()
	metaMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("document_id", docIDField)
	docMapping.AddSubDocumentMapping("metadata", metaMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or updates a chunk in the keyword index.
func (s *KeywordStore) Index(ctx context.Context, chunk domain.Chunk) error {
	return s.index.Index(chunk.ID, keywordDoc{
		Content:    chunk.Content,
		DocumentID: chunk.DocumentID,
		Metadata:   chunk.Metadata,
	})
}

// Search performs a full-text search and returns up to topK chunks ordered
// by descending BM25 score.
func (s *KeywordStore) Search(ctx context.Context, query string, topK int) ([]domain.Chunk, error) {
	matchQuery := bleve.NewMatchQuery(query)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = topK
	searchRequest.Fields = []string{"*"}

	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, hit := range searchResult.Hits {
		chunk := domain.Chunk{
			ID:    hit.ID,
			Score: hit.Score,
		}
		for field, value := range hit.Fields {
			switch field {
			case "content":
				if v, ok := value.(string); ok {
					chunk.Content = v
				}
			case "document_id":
				if v, ok := value.(string); ok {
					chunk.DocumentID = v
				}
			default:
				if name, ok := strings.CutPrefix(field, "metadata."); ok {
					if chunk.Metadata == nil {
						chunk.Metadata = make(map[string]interface{})
					}
					chunk.Metadata[name] = value
				}
			}
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Delete removes all chunks associated with a document from the index.
func (s *KeywordStore) Delete(ctx context.Context, documentID string) error {
	query := bleve.NewTermQuery(documentID)
	query.SetField("document_id")

	searchRequest := bleve.NewSearchRequest(query)
	searchRequest.Size = 1000
	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return err
	}

	batch := s.index.NewBatch()
	for _, hit := range searchResult.Hits {
		batch.Delete(hit.ID)
	}

	return s.index.Batch(batch)
}

// Reset deletes the entire index and creates a new, empty one.
func (s *KeywordStore) Reset(ctx context.Context) error {
	if err := s.index.Close(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.path); err != nil {
		return err
	}

	newIndex, err := openOrCreateBleveIndex(s.path)
	if err != nil {
		return err
	}
	s.index = newIndex
	return nil
}

// Close closes the underlying index.
func (s *KeywordStore) Close() error {
	if s.index != nil {
		err := s.index.Close()
		s.index = nil
		return err
	}
	return nil
}
