package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholarlens/models"
)

func TestChunkerNormalize(t *testing.T) {
	c := NewChunker(zap.NewNop(), ChunkOptions{ChunkSize: 10, Overlap: 2})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ligatures", "eﬃcient ﬁne-tuning", "efficient fine-tuning"},
		{"hyphenation", "trans-\nformer models", "transformer models"},
		{"whitespace", "a \t b  c", "a b c"},
		{"blank lines", "one\n\n\n\ntwo\r\n", "one\n\ntwo"},
		{"keeps compound hyphen", "self-\nAttention", "self-\nAttention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Normalize(tt.in))
		})
	}
}

func TestSectionHeading(t *testing.T) {
	tests := []struct {
		line  string
		label string
		ok    bool
	}{
		{"1 Introduction", "introduction", true},
		{"III. RESULTS", "results", true},
		{"Methods:", "methods", true},
		{"3.2 Related Work", "related_work", true},
		{"We introduce a new method", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		label, ok := sectionHeading(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.label, label, tt.line)
	}
}

func TestChunkerSplit(t *testing.T) {
	c := NewChunker(zap.NewNop(), ChunkOptions{ChunkSize: 4, Overlap: 1})
	text := "Preface words here\n1 Introduction\none two three four five six\n2 Conclusion\nthe end"

	chunks := c.Split(text)
	normalized := []rune(c.Normalize(text))

	require.NotEmpty(t, chunks)
	assert.Nil(t, chunks[0].Section, "text before the first heading has no section")

	sections := map[string]int{}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		require.NotNil(t, ch.StartChar)
		require.NotNil(t, ch.EndChar)
		assert.Equal(t, ch.ChunkText, string(normalized[*ch.StartChar:*ch.EndChar]))
		assert.LessOrEqual(t, *ch.NumTokens, 4)
		if ch.Section != nil {
			sections[*ch.Section]++
			if *ch.Section == "introduction" {
				assert.NotContains(t, ch.ChunkText, "Conclusion")
			}
		}
	}
	assert.Equal(t, 3, sections["introduction"])
	assert.Equal(t, 1, sections["conclusion"])

	// Overlap: das letzte Token eines Chunks beginnt den nächsten im selben Abschnitt.
	var intro []models.TextChunk
	for _, ch := range chunks {
		if ch.Section != nil && *ch.Section == "introduction" {
			intro = append(intro, ch)
		}
	}
	first := strings.Fields(intro[0].ChunkText)
	second := strings.Fields(intro[1].ChunkText)
	assert.Equal(t, first[len(first)-1], second[0])
}

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(zap.NewNop(), ChunkOptions{ChunkSize: 0, Overlap: -3})
	assert.Equal(t, 512, c.opts.ChunkSize)
	assert.Equal(t, 51, c.opts.Overlap)
}

func TestReplaceChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPaper(t, s, "1706.03762", "Attention Is All You Need")

	require.NoError(t, s.ReplaceChunks(ctx, p.ID, []models.TextChunk{
		{ChunkIndex: 0, ChunkText: "alpha"},
		{ChunkIndex: 1, ChunkText: "beta"},
	}))
	require.NoError(t, s.ReplaceChunks(ctx, p.ID, []models.TextChunk{
		{ChunkIndex: 0, ChunkText: "gamma"},
	}))

	chunks, err := s.ListChunks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "gamma", chunks[0].ChunkText)

	d, err := s.GetPaper(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, d.TextExtracted)
	require.NotNil(t, d.ExtractionDate)
	assert.True(t, d.ExtractionDate.Equal(testClock))

	require.NoError(t, s.SetEmbeddingRef(ctx, chunks[0].ID, "vec-42"))
	chunks, err = s.ListChunks(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "vec-42", *chunks[0].EmbeddingRef)
	assert.ErrorIs(t, s.SetEmbeddingRef(ctx, 999, "vec"), ErrNotFound)
	assert.ErrorIs(t, s.SetEmbeddingRef(ctx, chunks[0].ID, " "), ErrValidation)

	err = s.ReplaceChunks(ctx, p.ID, []models.TextChunk{
		{ChunkIndex: 0, ChunkText: "a"},
		{ChunkIndex: 0, ChunkText: "b"},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, s.ReplaceChunks(ctx, 999, nil), ErrNotFound)
}

func TestChunkPaper(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPaper(t, s, "1706.03762", "Attention Is All You Need")
	c := NewChunker(zap.NewNop(), ChunkOptions{ChunkSize: 3, Overlap: 0})

	_, err := s.ChunkPaper(ctx, p.ID, c)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.UpdatePaper(ctx, p.ID, PaperUpdate{FullText: ptr("Abstract\nThe dominant sequence transduction models")})
	require.NoError(t, err)

	chunks, err := s.ChunkPaper(ctx, p.ID, c)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	stored, err := s.ListChunks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "abstract", *stored[0].Section)
	assert.Equal(t, "Abstract The dominant", strings.ReplaceAll(stored[0].ChunkText, "\n", " "))
}
