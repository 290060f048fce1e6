package ragpipe

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
)

func TestParseKeyValues(t *testing.T) {
	out, err := parseKeyValues([]string{"version=2.2", "source=docs"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"version": "2.2", "source": "docs"}, out)

	out, err = parseKeyValues(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = parseKeyValues([]string{"noequals"})
	assert.Error(t, err)

	_, err = parseKeyValues([]string{"=value"})
	assert.Error(t, err)

	out, err = parseKeyValues([]string{"key=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", out["key"])
}

func TestRenderDefaultConfig(t *testing.T) {
	content, err := renderDefaultConfig()
	require.NoError(t, err)

	var parsed defaultConfigFile
	require.NoError(t, toml.Unmarshal(content, &parsed))

	assert.Equal(t, "sqlite", parsed.Store.Backend)
	assert.Equal(t, 500, parsed.Chunker.ChunkSize)
	assert.Equal(t, 5, parsed.Retrieval.TopK)
	assert.False(t, parsed.Rerank.Enabled)
}

func TestApplyChunkDefaults(t *testing.T) {
	chunker := config.ChunkerConfig{ChunkSize: 500, Overlap: 50}

	// Overlap flag alone must not be clobbered by config.
	req := domain.IngestRequest{Overlap: 25}
	applyChunkDefaults(&req, chunker)
	assert.Equal(t, 500, req.ChunkSize)
	assert.Equal(t, 25, req.Overlap)

	req = domain.IngestRequest{ChunkSize: 200}
	applyChunkDefaults(&req, chunker)
	assert.Equal(t, 200, req.ChunkSize)
	assert.Equal(t, 50, req.Overlap)

	req = domain.IngestRequest{}
	applyChunkDefaults(&req, chunker)
	assert.Equal(t, 500, req.ChunkSize)
	assert.Equal(t, 50, req.Overlap)
}

func TestRootCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"init", "ingest", "query", "search", "evaluate", "list", "reset", "status", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
