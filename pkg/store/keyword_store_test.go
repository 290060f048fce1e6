package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

func newTestKeywordStore(t *testing.T) *KeywordStore {
	t.Helper()
	indexPath := filepath.Join(t.TempDir(), "test_index.bleve")

	store, err := NewKeywordStore(indexPath)
	if err != nil {
		t.Fatalf("failed to create keyword store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return store
}

func TestKeywordStore_IndexAndSearch(t *testing.T) {
	store := newTestKeywordStore(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Content: "Milvus is a vector database built for scalable similarity search."},
		{ID: "c2", DocumentID: "doc-1", Content: "BM25 ranks documents by keyword frequency."},
		{ID: "c3", DocumentID: "doc-2", Content: "Bananas are rich in potassium."},
	}
	for _, chunk := range chunks {
		if err := store.Index(ctx, chunk); err != nil {
			t.Fatalf("Index failed for %s: %v", chunk.ID, err)
		}
	}

	results, err := store.Search(ctx, "vector database", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ID != "c1" {
		t.Errorf("expected c1 as top hit, got %s", results[0].ID)
	}
	if results[0].Content == "" {
		t.Error("expected stored content in result")
	}
	if results[0].DocumentID != "doc-1" {
		t.Errorf("expected document_id doc-1, got %s", results[0].DocumentID)
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("results not ordered by descending score")
		}
	}
}

func TestKeywordStore_Search_TopKBound(t *testing.T) {
	store := newTestKeywordStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		chunk := domain.Chunk{
			ID:         string(rune('a' + i)),
			DocumentID: "doc-1",
			Content:    "every chunk mentions retrieval",
		}
		if err := store.Index(ctx, chunk); err != nil {
			t.Fatalf("Index failed: %v", err)
		}
	}

	results, err := store.Search(ctx, "retrieval", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) > 3 {
		t.Errorf("expected at most 3 results, got %d", len(results))
	}
}

func TestKeywordStore_Delete(t *testing.T) {
	store := newTestKeywordStore(t)
	ctx := context.Background()

	if err := store.Index(ctx, domain.Chunk{ID: "c1", DocumentID: "doc-1", Content: "searchable text"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := store.Index(ctx, domain.Chunk{ID: "c2", DocumentID: "doc-2", Content: "searchable text"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	results, err := store.Search(ctx, "searchable", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.DocumentID == "doc-1" {
			t.Error("chunk from deleted document still indexed")
		}
	}
}

func TestKeywordStore_DeleteUUIDDocumentID(t *testing.T) {
	store := newTestKeywordStore(t)
	ctx := context.Background()

	// Document IDs are hyphenated UUIDs; the term query must match them
	// whole, not as standard-analyzer tokens.
	docA := uuid.NewSHA1(uuid.NameSpaceOID, []byte("file:/tmp/a.txt")).String()
	docB := uuid.NewSHA1(uuid.NameSpaceOID, []byte("file:/tmp/b.txt")).String()

	if err := store.Index(ctx, domain.Chunk{ID: "c1", DocumentID: docA, Content: "shared searchable text"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := store.Index(ctx, domain.Chunk{ID: "c2", DocumentID: docB, Content: "shared searchable text"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if err := store.Delete(ctx, docA); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	results, err := store.Search(ctx, "searchable", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 remaining chunk, got %d", len(results))
	}
	if results[0].DocumentID != docB {
		t.Errorf("wrong document survived delete: %s", results[0].DocumentID)
	}
}

func TestKeywordStore_MetadataRoundTrip(t *testing.T) {
	store := newTestKeywordStore(t)
	ctx := context.Background()

	err := store.Index(ctx, domain.Chunk{
		ID:         "c1",
		DocumentID: "doc-1",
		Content:    "release notes for the gateway",
		Metadata:   map[string]interface{}{"version": "2.2", "source": "docs"},
	})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	results, err := store.Search(ctx, "gateway", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := results[0].Metadata["version"]; got != "2.2" {
		t.Errorf("expected metadata version 2.2, got %v", got)
	}
	if got := results[0].Metadata["source"]; got != "docs" {
		t.Errorf("expected metadata source docs, got %v", got)
	}
}

func TestKeywordStore_Reset(t *testing.T) {
	store := newTestKeywordStore(t)
	ctx := context.Background()

	if err := store.Index(ctx, domain.Chunk{ID: "c1", DocumentID: "doc-1", Content: "some text"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	results, err := store.Search(ctx, "text", 10)
	if err != nil {
		t.Fatalf("Search after reset failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty index after reset, got %d results", len(results))
	}
}
