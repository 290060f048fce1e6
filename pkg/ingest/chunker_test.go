package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

func TestChunker_Split_Sentence(t *testing.T) {
	chunker := NewChunker()

	text := "First sentence here. Second sentence follows. Third one ends the text."
	chunks, err := chunker.Split(text, domain.ChunkOptions{Size: 50, Overlap: 0, Method: "sentence"})
	require.NoError(t, err)

	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 50+1, "chunk exceeds size bound: %q", chunk)
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestChunker_Split_Fixed(t *testing.T) {
	chunker := NewChunker()

	text := strings.Repeat("abcde ", 50) // 300 chars
	chunks, err := chunker.Split(text, domain.ChunkOptions{Size: 100, Overlap: 20, Method: "fixed"})
	require.NoError(t, err)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 100)
	}
}

func TestChunker_Split_Paragraph(t *testing.T) {
	chunker := NewChunker()

	text := "Paragraph one with some text.\n\nParagraph two with other text.\n\nParagraph three."
	chunks, err := chunker.Split(text, domain.ChunkOptions{Size: 40, Overlap: 0, Method: "paragraph"})
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestChunker_Split_Token(t *testing.T) {
	chunker := NewChunker()

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)
	chunks, err := chunker.Split(text, domain.ChunkOptions{Size: 50, Overlap: 10, Method: "token"})
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
}

func TestChunker_Split_SmallInput(t *testing.T) {
	chunker := NewChunker()

	chunks, err := chunker.Split("Short text.", domain.ChunkOptions{Size: 500, Overlap: 50})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short text.", chunks[0])
}

func TestChunker_Split_Empty(t *testing.T) {
	chunker := NewChunker()

	chunks, err := chunker.Split("   \n\t  ", domain.ChunkOptions{Size: 500, Overlap: 50})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunker_Split_InvalidOptions(t *testing.T) {
	chunker := NewChunker()

	_, err := chunker.Split("text", domain.ChunkOptions{Size: 0})
	assert.ErrorIs(t, err, domain.ErrChunkingFailed)

	_, err = chunker.Split("text", domain.ChunkOptions{Size: 100, Overlap: 100})
	assert.ErrorIs(t, err, domain.ErrChunkingFailed)

	_, err = chunker.Split("text", domain.ChunkOptions{Size: 100, Method: "semantic"})
	assert.ErrorIs(t, err, domain.ErrChunkingFailed)
}

func TestChunker_Split_OverlapCarriesContext(t *testing.T) {
	chunker := NewChunker()

	text := "Alpha sentence one is long enough. Beta sentence two is long enough. Gamma sentence three is long enough."
	chunks, err := chunker.Split(text, domain.ChunkOptions{Size: 60, Overlap: 20, Method: "sentence"})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// Each later chunk opens with trailing words carried over from the
	// previous one.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], firstWord,
			"chunk %d does not start with overlap from chunk %d", i, i-1)
	}
}
