package chunker

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

func TestChunk_EmptyText(t *testing.T) {
	c, err := New(Config{ChunkSize: 1000, Overlap: 150, MaxChunksPerDocument: 10})
	require.NoError(t, err)

	chunks, err := c.Chunk("doc1", "doc1.md", "   \n\t  ", time.Now())
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestChunk_IndexDensityAndOrder(t *testing.T) {
	c, err := New(Config{ChunkSize: 200, Overlap: 30, MaxChunksPerDocument: 100})
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	chunks, err := c.Chunk("doc1", "doc1.md", text, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		require.Equal(t, i, ch.Index)
	}
}

func TestChunk_BoundAndDeterminism(t *testing.T) {
	c, err := New(Config{ChunkSize: 1000, Overlap: 150, MaxChunksPerDocument: 100})
	require.NoError(t, err)

	text := strings.Repeat("x", 3000)
	now := time.Now()
	first, err := c.Chunk("doc1", "doc1.md", text, now)
	require.NoError(t, err)
	require.LessOrEqual(t, len(first), 4)

	for _, ch := range first {
		require.LessOrEqual(t, len([]rune(ch.Text)), 1100)
	}

	second, err := c.Chunk("doc1", "doc1.md", text, now)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Hash, second[i].Hash)
	}
}

func TestChunk_Completeness(t *testing.T) {
	c, err := New(Config{ChunkSize: 50, Overlap: 10, MaxChunksPerDocument: 1000})
	require.NoError(t, err)

	text := "Check the processor dashboard first. Then check the gateway logs.\nFinally escalate to payments-oncall if nothing resolves within ten minutes."
	chunks, err := c.Chunk("doc1", "doc1.md", text, time.Now())
	require.NoError(t, err)

	var covered strings.Builder
	for _, ch := range chunks {
		covered.WriteString(ch.Text)
		covered.WriteString(" ")
	}
	coveredSet := make(map[rune]bool)
	for _, r := range covered.String() {
		coveredSet[r] = true
	}
	for _, r := range normalize(text) {
		if unicode.IsSpace(r) {
			continue
		}
		require.True(t, coveredSet[r], "character %q not covered by any chunk", r)
	}
}

func TestChunk_OverlapMonotonicity(t *testing.T) {
	c, err := New(Config{ChunkSize: 80, Overlap: 20, MaxChunksPerDocument: 1000})
	require.NoError(t, err)

	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 20)
	chunks, err := c.Chunk("doc1", "doc1.md", text, time.Now())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	normalized := normalize(text)
	offsets := make([]int, len(chunks))
	searchFrom := 0
	for i, ch := range chunks {
		at := strings.Index(normalized[searchFrom:], ch.Text)
		require.GreaterOrEqual(t, at, 0)
		offsets[i] = searchFrom + at
		searchFrom = offsets[i] + 1
	}
	for i := 1; i < len(offsets); i++ {
		require.Greater(t, offsets[i], offsets[i-1])
	}
}

func TestChunk_Explosion(t *testing.T) {
	c, err := New(Config{ChunkSize: 10, Overlap: 2, MaxChunksPerDocument: 3})
	require.NoError(t, err)

	text := strings.Repeat("word ", 100)
	_, err = c.Chunk("doc1", "doc1.md", text, time.Now())
	require.ErrorIs(t, err, domain.ErrChunkExplosion)
}
