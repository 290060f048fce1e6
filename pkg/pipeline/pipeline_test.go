package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/generate"
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
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

type fakeReranker struct {
	calls int
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []domain.Chunk, topK int) ([]domain.Chunk, error) {
	f.calls++
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

type fakeLLM struct {
	response string
	prompt   string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ *domain.GenerationOptions) (string, error) {
	f.prompt = prompt
	return f.response, nil
}

func chunkList(ids ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = domain.Chunk{ID: id, Content: "content " + id}
	}
	return chunks
}

func newTestPipeline(t *testing.T, retriever domain.Retriever, reranker domain.Reranker, llm domain.Generator) *Pipeline {
	t.Helper()
	gen, err := generate.New(llm)
	require.NoError(t, err)

	p, err := New(Options{
		Retrievers:       map[string]domain.Retriever{RetrieverHybrid: retriever},
		DefaultRetriever: RetrieverHybrid,
		Reranker:         reranker,
		Generator:        gen,
		TopK:             3,
	})
	require.NoError(t, err)
	return p
}

func TestPipeline_Answer(t *testing.T) {
	llm := &fakeLLM{response: "The answer."}
	p := newTestPipeline(t, &fakeRetriever{chunks: chunkList("a", "b")}, nil, llm)

	answer, err := p.Answer(context.Background(), "what is this?")
	require.NoError(t, err)
	assert.Equal(t, "The answer.", answer)
	assert.Contains(t, llm.prompt, "content a")
	assert.Contains(t, llm.prompt, "what is this?")
}

func TestPipeline_QueryWithSources(t *testing.T) {
	p := newTestPipeline(t, &fakeRetriever{chunks: chunkList("a", "b")}, nil, &fakeLLM{response: "ok"})

	resp, err := p.Query(context.Background(), domain.QueryRequest{
		Query:       "q",
		ShowSources: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Sources, 2)
	assert.NotEmpty(t, resp.Elapsed)
}

func TestPipeline_RerankWidensCandidatePool(t *testing.T) {
	retriever := &fakeRetriever{chunks: chunkList("a", "b", "c", "d", "e", "f")}
	reranker := &fakeReranker{}
	p := newTestPipeline(t, retriever, reranker, &fakeLLM{response: "ok"})

	chunks, err := p.Retrieve(context.Background(), domain.QueryRequest{Query: "q", TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, 2*rerankCandidateFactor, retriever.gotK)
	assert.Equal(t, 1, reranker.calls)
	assert.Len(t, chunks, 2)
}

func TestPipeline_TopKBound(t *testing.T) {
	p := newTestPipeline(t, &fakeRetriever{chunks: chunkList("a", "b", "c", "d", "e")}, nil, &fakeLLM{response: "ok"})

	chunks, err := p.Retrieve(context.Background(), domain.QueryRequest{Query: "q", TopK: 2})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestPipeline_UnknownRetriever(t *testing.T) {
	p := newTestPipeline(t, &fakeRetriever{}, nil, &fakeLLM{})

	_, err := p.Retrieve(context.Background(), domain.QueryRequest{Query: "q", Retriever: "semantic"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_EmptyQuery(t *testing.T) {
	p := newTestPipeline(t, &fakeRetriever{}, nil, &fakeLLM{})

	_, err := p.Query(context.Background(), domain.QueryRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_RetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("store: %w", domain.ErrVectorStoreFailed)}
	p := newTestPipeline(t, retriever, nil, &fakeLLM{})

	_, err := p.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrVectorStoreFailed)
}

func TestNew_Validation(t *testing.T) {
	gen, err := generate.New(&fakeLLM{})
	require.NoError(t, err)

	_, err = New(Options{Generator: gen})
	assert.ErrorIs(t, err, domain.ErrConfigurationError)

	_, err = New(Options{
		Retrievers:       map[string]domain.Retriever{RetrieverDense: &fakeRetriever{}},
		DefaultRetriever: RetrieverHybrid,
		Generator:        gen,
	})
	assert.ErrorIs(t, err, domain.ErrConfigurationError)
}
