package retrieve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

type fakeRetriever struct {
	chunks []domain.Chunk
	err    error
	gotK   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, topK int, _ map[string]interface{}) ([]domain.Chunk, error) {
	f.gotK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type fakeReranker struct {
	got []domain.Chunk
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []domain.Chunk, topK int) ([]domain.Chunk, error) {
	f.got = candidates
	out := make([]domain.Chunk, len(candidates))
	copy(out, candidates)
	// Reverse to make the reordering visible to assertions.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ *domain.GenerationOptions) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1, 0}, nil
}

type fakeVectorStore struct {
	domain.VectorStore
	chunks     []domain.Chunk
	gotFilters map[string]interface{}
}

func (f *fakeVectorStore) SearchWithFilters(_ context.Context, _ []float64, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	f.gotFilters = filters
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

func chunkList(ids ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = domain.Chunk{ID: id, Content: "content " + id}
	}
	return chunks
}

func TestHybridRetriever_DeduplicatedUnion(t *testing.T) {
	// 4 dense + 4 sparse with 2 overlapping IDs must yield 6 unique
	// candidates.
	dense := &fakeRetriever{chunks: chunkList("a", "b", "c", "d")}
	sparse := &fakeRetriever{chunks: chunkList("c", "d", "e", "f")}
	reranker := &fakeReranker{}

	r, err := NewHybridRetriever(dense, sparse, reranker, 0)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "query", 10, nil)
	require.NoError(t, err)

	assert.Len(t, reranker.got, 6)
	assert.Len(t, results, 6)

	seen := make(map[string]bool)
	for _, c := range reranker.got {
		assert.False(t, seen[c.ID], "duplicate candidate %s", c.ID)
		seen[c.ID] = true
	}
}

func TestHybridRetriever_TopKBound(t *testing.T) {
	dense := &fakeRetriever{chunks: chunkList("a", "b", "c", "d", "e")}
	sparse := &fakeRetriever{chunks: chunkList("f", "g", "h")}

	r, err := NewHybridRetriever(dense, sparse, nil, 0)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "query", 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestHybridRetriever_RRFOrder(t *testing.T) {
	// "b" appears in both lists so it must outrank chunks seen once.
	dense := &fakeRetriever{chunks: chunkList("a", "b")}
	sparse := &fakeRetriever{chunks: chunkList("b", "c")}

	r, err := NewHybridRetriever(dense, sparse, nil, 0)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "query", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "b", results[0].ID)
}

func TestHybridRetriever_SparseFailureFallsBack(t *testing.T) {
	dense := &fakeRetriever{chunks: chunkList("a", "b")}
	sparse := &fakeRetriever{err: fmt.Errorf("index offline: %w", domain.ErrServiceUnavailable)}

	r, err := NewHybridRetriever(dense, sparse, nil, 0)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "query", 5, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHybridRetriever_DenseFailureIsFatal(t *testing.T) {
	dense := &fakeRetriever{err: fmt.Errorf("search: %w", domain.ErrVectorStoreFailed)}
	sparse := &fakeRetriever{chunks: chunkList("a")}

	r, err := NewHybridRetriever(dense, sparse, nil, 0)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "query", 5, nil)
	assert.ErrorIs(t, err, domain.ErrVectorStoreFailed)
}

func TestHybridRetriever_EmptyQuery(t *testing.T) {
	r, err := NewHybridRetriever(&fakeRetriever{}, &fakeRetriever{}, nil, 0)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "", 5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRRFFuser_SharedChunkWins(t *testing.T) {
	fuser := NewRRFFuser(0)

	fused := fuser.Fuse(chunkList("a", "b", "c"), chunkList("d", "c", "e"))
	require.Len(t, fused, 5)
	assert.Equal(t, "c", fused[0].ID)

	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
	}
}

func TestRRFFuser_EmptyLists(t *testing.T) {
	fuser := NewRRFFuser(60)
	assert.Empty(t, fuser.Fuse(nil, nil))
}

func TestDenseRetriever_PassesFilters(t *testing.T) {
	store := &fakeVectorStore{chunks: chunkList("a", "b")}
	r, err := NewDenseRetriever(fakeEmbedder{}, store)
	require.NoError(t, err)

	filters := map[string]interface{}{"version": "2.2"}
	results, err := r.Retrieve(context.Background(), "query", 2, filters)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, filters, store.gotFilters)
}

type fakeKeywordStore struct {
	domain.KeywordStore
	chunks []domain.Chunk
}

func (f *fakeKeywordStore) Search(_ context.Context, _ string, topK int) ([]domain.Chunk, error) {
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

func TestSparseRetriever_MetadataFilter(t *testing.T) {
	store := &fakeKeywordStore{chunks: []domain.Chunk{
		{ID: "c1", Content: "release notes", Metadata: map[string]interface{}{"version": "2.2"}},
		{ID: "c2", Content: "release notes", Metadata: map[string]interface{}{"version": "2.3"}},
		{ID: "c3", Content: "release notes"},
	}}

	r, err := NewSparseRetriever(store)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "release", 10, map[string]interface{}{"version": "2.2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)

	unfiltered, err := r.Retrieve(context.Background(), "release", 10, nil)
	require.NoError(t, err)
	assert.Len(t, unfiltered, 3)
}

func TestHyDERetriever_SearchesWithHypothetical(t *testing.T) {
	store := &fakeVectorStore{chunks: chunkList("a")}
	dense, err := NewDenseRetriever(fakeEmbedder{}, store)
	require.NoError(t, err)

	gen := &fakeGenerator{response: "A hypothetical answer passage."}
	r, err := NewHyDERetriever(gen, dense)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "what is quantization?", 1, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Contains(t, gen.prompt, "what is quantization?")
}

func TestHyDERetriever_GenerationFailure(t *testing.T) {
	dense, err := NewDenseRetriever(fakeEmbedder{}, &fakeVectorStore{})
	require.NoError(t, err)

	gen := &fakeGenerator{err: fmt.Errorf("llm down: %w", domain.ErrGenerationFailed)}
	r, err := NewHyDERetriever(gen, dense)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question", 1, nil)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestHyDERetriever_EmptyHypothetical(t *testing.T) {
	dense, err := NewDenseRetriever(fakeEmbedder{}, &fakeVectorStore{})
	require.NoError(t, err)

	gen := &fakeGenerator{response: "   "}
	r, err := NewHyDERetriever(gen, dense)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question", 1, nil)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestDedupeChunks_PreservesFirstOccurrence(t *testing.T) {
	in := append(chunkList("a", "b"), domain.Chunk{ID: "a", Content: "second copy"})
	out := dedupeChunks(in)
	require.Len(t, out, 2)
	assert.Equal(t, "content a", out[0].Content)
}
