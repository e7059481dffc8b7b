package chunk

import (
	"fmt"
	"strings"

	"github.com/docfuse/docfuse/internal/errors"
)

// Chunker splits document text into overlapping character spans.
// Parameters are validated at construction, before any I/O.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. size must be positive and overlap must
// satisfy 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeChunkParams,
			fmt.Sprintf("chunk size must be positive, got %d", size), nil)
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New(errors.ErrCodeChunkParams,
			fmt.Sprintf("chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d",
				overlap, size), nil)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks a document into ordered spans.
//
// The stride is size-overlap. Spans are [start, min(start+size, len)) over
// whole characters; a multi-byte code point is never split. The final span
// is emitted once it reaches the text end, so consecutive chunks overlap by
// exactly min(overlap, remaining) characters. Empty text yields zero chunks.
func (c *Chunker) Split(doc Document) []Chunk {
	runes := []rune(doc.Text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	stride := c.size - c.overlap

	var chunks []Chunk
	for start := 0; start < total; start += stride {
		end := start + c.size
		if end > total {
			end = total
		}

		chunks = append(chunks, Chunk{
			ID:         ChunkID(doc.ContentHash, len(chunks)),
			DocPath:    doc.Path,
			SourceType: doc.SourceType,
			Title:      doc.Title,
			Index:      len(chunks),
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
		})

		if end >= total {
			break
		}
	}

	return chunks
}

// ExtractTitle returns a display title for a document: the first markdown
// heading, else the first non-empty line (truncated to 100 characters),
// else the file name.
func ExtractTitle(text, fileName string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		if trimmed != "" {
			runes := []rune(trimmed)
			if len(runes) > 100 {
				return string(runes[:100]) + "..."
			}
			return trimmed
		}
	}
	return fileName
}
