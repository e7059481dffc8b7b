package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfuse/docfuse/internal/errors"
)

func TestNewChunker_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeChunkParams, errors.GetCode(err))
		})
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	c, err := NewChunker(100, 20)
	require.NoError(t, err)

	chunks := c.Split(NewDocument("empty.txt", "txt", ""))
	assert.Empty(t, chunks)
}

func TestSplit_ShortText_SingleChunk(t *testing.T) {
	c, err := NewChunker(100, 20)
	require.NoError(t, err)

	doc := NewDocument("short.txt", "txt", "hello world")
	chunks := c.Split(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 11, chunks[0].End)
}

func TestSplit_OverlapAndCoverage(t *testing.T) {
	const size, overlap = 100, 20
	c, err := NewChunker(size, overlap)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 35) // 350 chars
	doc := NewDocument("doc.txt", "txt", text)
	chunks := c.Split(doc)

	require.NotEmpty(t, chunks)

	// Every character covered at least once, offsets ordered.
	covered := make([]bool, len(text))
	for _, ch := range chunks {
		assert.Less(t, ch.Start, ch.End)
		assert.LessOrEqual(t, ch.End, len(text))
		assert.Equal(t, text[ch.Start:ch.End], ch.Text)
		for i := ch.Start; i < ch.End; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		assert.True(t, ok, "character %d not covered", i)
	}

	// Consecutive chunks overlap by exactly min(overlap, remaining).
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		want := overlap
		if remaining := len(text) - cur.Start; remaining < want {
			want = remaining
		}
		assert.Equal(t, want, prev.End-cur.Start, "overlap between chunks %d and %d", i-1, i)
	}

	// Last chunk reaches the end of the text.
	assert.Equal(t, len(text), chunks[len(chunks)-1].End)
}

func TestSplit_TextEqualToChunkSize(t *testing.T) {
	c, err := NewChunker(10, 3)
	require.NoError(t, err)

	chunks := c.Split(NewDocument("d", "txt", "0123456789"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "0123456789", chunks[0].Text)
}

func TestSplit_MultiByteRunesNeverSplit(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	text := "日本語のテキストです" // 10 runes
	chunks := c.Split(NewDocument("cjk.md", "md", text))

	require.NotEmpty(t, chunks)
	runes := []rune(text)
	for _, ch := range chunks {
		// Offsets are rune offsets and every chunk is valid UTF-8 of whole runes.
		assert.Equal(t, string(runes[ch.Start:ch.End]), ch.Text)
		assert.True(t, len([]rune(ch.Text)) <= 4)
	}
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
}

func TestSplit_DeterministicIDs(t *testing.T) {
	c, err := NewChunker(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("deterministic identity ", 20)
	a := c.Split(NewDocument("a.md", "md", text))
	b := c.Split(NewDocument("a.md", "md", text))

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Text, b[i].Text)
	}

	// Different content yields different IDs.
	other := c.Split(NewDocument("a.md", "md", text+"!"))
	assert.NotEqual(t, a[0].ID, other[0].ID)
}

func TestChunkID_Format(t *testing.T) {
	id := ChunkID("cafebabe", 0)
	assert.Len(t, id, 32)
	assert.NotEqual(t, id, ChunkID("cafebabe", 1))
	assert.NotEqual(t, id, ChunkID("deadbeef", 0))
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"markdown heading", "# My Title\n\nSome content", "My Title"},
		{"deep heading", "\n### Deep Title\nbody", "Deep Title"},
		{"first line", "First line content\n\nMore content", "First line content"},
		{"skips blank lines", "\n\n  \nActual title", "Actual title"},
		{"empty falls back to file name", "", "file.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.text, "file.md"))
		})
	}
}

func TestExtractTitle_LongFirstLineTruncated(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := ExtractTitle(long, "file.md")
	assert.Len(t, got, 103) // 100 chars + "..."
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNewDocument_ContentHashStable(t *testing.T) {
	a := NewDocument("a.txt", "txt", "same content")
	b := NewDocument("b.txt", "txt", "same content")
	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.Len(t, a.ContentHash, 64)
}
