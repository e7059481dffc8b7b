package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfuse/docfuse/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultChunkSize, cfg.Chunking.Size)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultEmbeddingDimension, cfg.Embedding.Dimension)
	assert.Equal(t, "bleve", cfg.TextIndex.Backend)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.Size)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunking:
  size: 500
  overlap: 50
embedding:
  provider: static
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	// Unspecified fields keep defaults.
	assert.Equal(t, DefaultEmbeddingDimension, cfg.Embedding.Dimension)
	assert.Equal(t, DefaultLegTimeout, cfg.Search.LegTimeout)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestValidate_ChunkParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			cfg.Chunking.Size = tt.size
			cfg.Chunking.Overlap = tt.overlap

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeChunkParams, errors.GetCode(err))
				assert.True(t, errors.IsFatal(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Dimension(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Embedding.Dimension = 0
	require.Error(t, cfg.Validate())

	cfg.Embedding.Dimension = -5
	require.Error(t, cfg.Validate())
}

func TestValidate_UnknownProviderAndBackend(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Embedding.Provider = "mystery"
	require.Error(t, cfg.Validate())

	cfg = Default(t.TempDir())
	cfg.TextIndex.Backend = "tantivy"
	require.Error(t, cfg.Validate())

	cfg = Default(t.TempDir())
	cfg.TextIndex.Tokenizer = "whitespace9000"
	require.Error(t, cfg.Validate())
}

func TestPaths_FollowBackend(t *testing.T) {
	cfg := Default("/data")
	assert.Equal(t, filepath.Join("/data", "vectors.hnsw"), cfg.VectorPath())
	assert.Equal(t, filepath.Join("/data", "text.bleve"), cfg.TextIndexPath())

	cfg.TextIndex.Backend = "sqlite"
	assert.Equal(t, filepath.Join("/data", "text.db"), cfg.TextIndexPath())
}

func TestLoad_FullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sources:
  - /docs/notes
  - /docs/wiki
data_dir: /tmp/docfuse-test
chunking:
  size: 800
  overlap: 100
embedding:
  provider: ollama
  model: nomic-embed-text
  dimension: 768
  batch_size: 16
  rate_limit: 4
text_index:
  backend: sqlite
  tokenizer: cjk
search:
  leg_timeout: 2s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/docs/notes", "/docs/wiki"}, cfg.Sources)
	assert.Equal(t, "/tmp/docfuse-test", cfg.DataDir)
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 4.0, cfg.Embedding.RateLimit)
	assert.Equal(t, "cjk", cfg.TextIndex.Tokenizer)
	assert.Equal(t, 2*time.Second, cfg.Search.LegTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
