package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkFixedCoversText(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	c := New()

	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 10, ChunkOverlap: 2, Strategy: "fixed"})
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefghij", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)

	// Consecutive chunks share exactly the overlap.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		overlap := prev[len(prev)-2:]
		assert.True(t, strings.HasPrefix(chunks[i].Content, overlap))
	}
}

func TestChunkFixedReconstruction(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	opts := ChunkOptions{ChunkSize: 100, ChunkOverlap: 20, Strategy: "fixed"}
	chunks := New().Chunk(text, opts)
	require.NotEmpty(t, chunks)

	var sb strings.Builder
	for i, ch := range chunks {
		content := ch.Content
		if i > 0 {
			content = content[opts.ChunkOverlap:]
		}
		sb.WriteString(content)
	}
	assert.Equal(t, text, sb.String())
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon. ", 100)
	opts := DefaultOptions()

	first := New().Chunk(text, opts)
	second := New().Chunk(text, opts)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestChunkShortText(t *testing.T) {
	chunks := New().Chunk("short", ChunkOptions{ChunkSize: 100, ChunkOverlap: 10})
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Content)
}

func TestChunkEmptyText(t *testing.T) {
	chunks := New().Chunk("", DefaultOptions())
	assert.Empty(t, chunks)
}

func TestChunkLastChunkMayBeShort(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := New().Chunk(text, ChunkOptions{ChunkSize: 100, ChunkOverlap: 0})
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2].Content, 50)
}
