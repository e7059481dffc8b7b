package store

import (
	"github.com/docfuse/docfuse/internal/config"
	"github.com/docfuse/docfuse/internal/errors"
)

// NewTextStore builds the configured full-text backend at the configured
// path. Both backends satisfy TextStore and are interchangeable behind
// the dual-index writer.
func NewTextStore(cfg config.Config) (TextStore, error) {
	switch cfg.TextIndex.Backend {
	case "bleve":
		return NewBleveTextStore(cfg.TextIndexPath(), cfg.TextIndex.Tokenizer)
	case "sqlite":
		return NewSQLiteTextStore(cfg.TextIndexPath(), cfg.TextIndex.Tokenizer)
	default:
		return nil, errors.ConfigError("unknown text index backend: "+cfg.TextIndex.Backend, nil)
	}
}

// NewVectorStore builds the vector store at the configured path with the
// configured embedding dimension.
func NewVectorStore(cfg config.Config) (VectorStore, error) {
	return NewHNSWStore(cfg.VectorPath(), cfg.Embedding.Dimension)
}
