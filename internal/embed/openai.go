package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/docfuse/docfuse/internal/errors"
)

// OpenAI defaults
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
	DefaultOpenAITimeout = 60 * time.Second
)

// OpenAIConfig configures the OpenAI embedder. BaseURL can point at any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAIEmbedder generates embeddings using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *http.Client
	config OpenAIConfig
}

// Verify interface implementation at compile time
var _ Embedder = (*OpenAIEmbedder)(nil)

type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder creates a new OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.ConfigError("openai provider requires an API key", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOpenAITimeout
	}

	return &OpenAIEmbedder{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}, nil
}

// Embed generates embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.ProviderError("openai returned no embedding", nil)
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := openAIEmbedRequest{Model: e.config.Model, Input: texts}
	// Only text-embedding-3-* models accept a dimensions override.
	if e.config.Model == "text-embedding-3-small" || e.config.Model == "text-embedding-3-large" {
		reqBody.Dimensions = e.config.Dimensions
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "create embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.ProviderError("openai request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ProviderError("read openai response", err)
	}

	var result openAIEmbedResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.ProviderError("decode openai response", err)
	}
	if result.Error != nil {
		return nil, errors.ProviderError("openai: "+result.Error.Message, nil)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.New(errors.ErrCodeProviderRateLimited, "openai rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.ProviderError("openai status "+resp.Status, nil)
	}

	// Responses arrive indexed, not necessarily ordered.
	out := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.ProviderError("openai returned out-of-range index", nil)
		}
		if err := verifyDimension(d.Embedding, e.config.Dimensions); err != nil {
			return nil, err
		}
		out[d.Index] = normalizeVector(d.Embedding)
	}
	for i, vec := range out {
		if vec == nil {
			return nil, errors.ProviderError("openai response missing embedding for input", nil).
				WithDetail("index", strconv.Itoa(i))
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.config.Dimensions }

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.config.Model }

// Available validates connectivity with a lightweight models listing.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.BaseURL+"/models", http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error { return nil }
