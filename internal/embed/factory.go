package embed

import (
	"os"

	"github.com/docfuse/docfuse/internal/config"
	"github.com/docfuse/docfuse/internal/errors"
)

// New builds the embedder stack from configuration: the configured
// provider, wrapped with rate limiting when a limit is set and with the
// query-embedding LRU cache.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var base Embedder

	switch cfg.Provider {
	case "ollama":
		base = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimension,
			BatchSize:  cfg.BatchSize,
		})
	case "openai":
		apiKey := cfg.APIKey
		if env := os.Getenv("OPENAI_API_KEY"); env != "" {
			apiKey = env
		}
		var err error
		base, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     apiKey,
			BaseURL:    cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
	case "static":
		base = NewStaticEmbedder(cfg.Dimension)
	default:
		return nil, errors.ConfigError("unknown embedding provider: "+cfg.Provider, nil)
	}

	if cfg.RateLimit > 0 {
		base = NewRateLimitedEmbedder(base, cfg.RateLimit)
	}

	return NewCachedEmbedder(base, DefaultCacheSize)
}
