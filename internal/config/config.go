// Package config loads and validates the docfuse configuration.
//
// The configuration is constructed once at startup and passed by value to
// every component. Changing chunk parameters, the embedding dimension, or
// the tokenizer invalidates existing chunk identities and index structures,
// so such changes require an explicit reset — never a live mutation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docfuse/docfuse/internal/errors"
)

// Defaults for the retrieval core.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	DefaultEmbeddingProvider  = "ollama"
	DefaultEmbeddingModel     = "nomic-embed-text"
	DefaultEmbeddingDimension = 768
	DefaultEmbeddingBatchSize = 20

	DefaultTextBackend = "bleve"
	DefaultTokenizer   = "standard"

	// DefaultLegTimeout bounds each retrieval leg on the query path.
	// On expiry the leg degrades to an empty candidate list.
	DefaultLegTimeout = 5 * time.Second
)

// Config is the complete, immutable docfuse configuration.
type Config struct {
	// Sources are the directories scanned for documents during ingest.
	Sources []string `yaml:"sources"`

	// DataDir holds index structures, the snapshot lock file, and logs.
	DataDir string `yaml:"data_dir"`

	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	TextIndex TextIndexConfig `yaml:"text_index"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig controls how documents are split.
type ChunkingConfig struct {
	// Size is the chunk length in characters.
	Size int `yaml:"size"`
	// Overlap is the number of characters shared by consecutive chunks.
	// Must satisfy 0 <= Overlap < Size.
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig selects and parameterizes the embedding provider.
// Provider and dimension are fixed for the lifetime of an index; a change
// requires a reset.
type EmbeddingConfig struct {
	// Provider is one of "ollama", "openai", "static".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// Dimension is the vector length every provider call must return.
	Dimension int    `yaml:"dimension"`
	Host      string `yaml:"host"`     // provider endpoint (ollama)
	APIKey    string `yaml:"api_key"`  // provider credential (openai); env OPENAI_API_KEY wins
	BatchSize int    `yaml:"batch_size"`
	// RateLimit caps embedding calls per second during ingest. 0 disables.
	RateLimit float64 `yaml:"rate_limit"`
}

// TextIndexConfig selects the full-text store backend and tokenizer.
type TextIndexConfig struct {
	// Backend is "bleve" (default) or "sqlite" (FTS5).
	Backend string `yaml:"backend"`
	// Tokenizer is "standard" or "cjk". It is baked into the stored index
	// structures; changing it requires a full reindex.
	Tokenizer string `yaml:"tokenizer"`
}

// SearchConfig tunes the query path.
type SearchConfig struct {
	// LegTimeout bounds each engine leg; an expired leg degrades to an
	// empty list rather than failing the query.
	LegTimeout time.Duration `yaml:"leg_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File is an optional log file path; empty logs to stderr only.
	File string `yaml:"file"`
}

// Default returns the default configuration rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Chunking: ChunkingConfig{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:  DefaultEmbeddingProvider,
			Model:     DefaultEmbeddingModel,
			Dimension: DefaultEmbeddingDimension,
			BatchSize: DefaultEmbeddingBatchSize,
		},
		TextIndex: TextIndexConfig{
			Backend:   DefaultTextBackend,
			Tokenizer: DefaultTokenizer,
		},
		Search: SearchConfig{
			LegTimeout: DefaultLegTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from path. A missing file yields the default
// configuration; a present but invalid file is a configuration error.
func Load(path string) (Config, error) {
	cfg := Default(defaultDataDir())

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return Config{}, errors.New(errors.ErrCodeConfigNotFound,
			fmt.Sprintf("cannot read config %s", path), err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.ConfigError(
			fmt.Sprintf("cannot parse config %s", path), err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = DefaultChunkSize
		if c.Chunking.Overlap == 0 {
			c.Chunking.Overlap = DefaultChunkOverlap
		}
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = DefaultEmbeddingProvider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = DefaultEmbeddingModel
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = DefaultEmbeddingDimension
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = DefaultEmbeddingBatchSize
	}
	if c.TextIndex.Backend == "" {
		c.TextIndex.Backend = DefaultTextBackend
	}
	if c.TextIndex.Tokenizer == "" {
		c.TextIndex.Tokenizer = DefaultTokenizer
	}
	if c.Search.LegTimeout == 0 {
		c.Search.LegTimeout = DefaultLegTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for fatal errors.
// Validation happens before any I/O so a bad configuration never touches
// the stores.
func (c Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return errors.New(errors.ErrCodeChunkParams,
			fmt.Sprintf("chunk size must be positive, got %d", c.Chunking.Size), nil)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return errors.New(errors.ErrCodeChunkParams,
			fmt.Sprintf("chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d",
				c.Chunking.Overlap, c.Chunking.Size), nil)
	}
	if c.Embedding.Dimension <= 0 {
		return errors.ConfigError(
			fmt.Sprintf("embedding dimension must be positive, got %d", c.Embedding.Dimension), nil)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "static":
	default:
		return errors.ConfigError(
			fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider), nil)
	}
	switch c.TextIndex.Backend {
	case "bleve", "sqlite":
	default:
		return errors.ConfigError(
			fmt.Sprintf("unknown text index backend %q", c.TextIndex.Backend), nil)
	}
	switch c.TextIndex.Tokenizer {
	case "standard", "cjk":
	default:
		return errors.ConfigError(
			fmt.Sprintf("unknown tokenizer %q", c.TextIndex.Tokenizer), nil)
	}
	if c.Search.LegTimeout < 0 {
		return errors.ConfigError(
			fmt.Sprintf("leg timeout must not be negative, got %s", c.Search.LegTimeout), nil)
	}
	return nil
}

// VectorPath returns the vector store location under DataDir.
func (c Config) VectorPath() string {
	return filepath.Join(c.DataDir, "vectors.hnsw")
}

// TextIndexPath returns the full-text store location under DataDir.
func (c Config) TextIndexPath() string {
	switch c.TextIndex.Backend {
	case "sqlite":
		return filepath.Join(c.DataDir, "text.db")
	default:
		return filepath.Join(c.DataDir, "text.bleve")
	}
}

// LockPath returns the advisory lock file guarding maintenance operations.
func (c Config) LockPath() string {
	return filepath.Join(c.DataDir, ".writer.lock")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docfuse"
	}
	return filepath.Join(home, ".docfuse")
}
