// Package chunk splits normalized document text into overlapping spans with
// deterministic identities. Chunk IDs are a pure function of the document's
// content identity and the chunk index, so re-ingesting unchanged content
// reproduces identical IDs and enables overwrite semantics in the stores.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Document is an already-extracted text document handed to the chunker.
// Binary-format extraction happens upstream; Text is plain UTF-8.
type Document struct {
	// Path is the source path the document was read from.
	Path string
	// SourceType is the lowercased extension ("md", "txt", "pdf", ...).
	SourceType string
	// Title is the extracted document title (first heading or line).
	Title string
	// Text is the full normalized text.
	Text string
	// ContentHash is the content identity: SHA-256 of Text, hex encoded.
	ContentHash string
}

// NewDocument builds a Document with its content identity computed.
func NewDocument(path, sourceType, text string) Document {
	sum := sha256.Sum256([]byte(text))
	return Document{
		Path:        path,
		SourceType:  sourceType,
		Title:       ExtractTitle(text, path),
		Text:        text,
		ContentHash: hex.EncodeToString(sum[:]),
	}
}

// Chunk is a contiguous character span of a document; the unit of indexing
// and retrieval.
type Chunk struct {
	// ID is deterministic: a function of the document content hash and the
	// chunk index. See ChunkID.
	ID string
	// DocPath is the source path of the parent document.
	DocPath string
	// SourceType is inherited from the parent document.
	SourceType string
	// Title is inherited from the parent document.
	Title string
	// Index is the 0-based position of this chunk within the document.
	Index int
	// Start and End are character (rune) offsets into the document text,
	// forming the half-open interval [Start, End).
	Start int
	End   int
	// Text is the chunk's text.
	Text string
	// Embedding is populated during ingest; its length must equal the
	// configured embedding dimension.
	Embedding []float32
}

// ChunkID derives the deterministic chunk identifier from a document
// content hash and chunk index. The first 32 hex characters of the SHA-256
// are plenty for collision resistance at this scale.
func ChunkID(contentHash string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", contentHash, index)))
	return hex.EncodeToString(sum[:])[:32]
}
