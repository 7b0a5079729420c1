package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultDataDir), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, DefaultDataDir, DefaultDBFile), cfg.DBPath)
	assert.Equal(t, 1200, cfg.Chunking.ChunkSize)
	assert.Equal(t, 180, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, DefaultDataDir)
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	yaml := []byte("chunking:\n  chunk_size: 800\nretrieval:\n  top_k: 10\nembedding:\n  disable_semantic: true\n")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), yaml, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.True(t, cfg.Embedding.DisableSemantic)
	// Untouched keys keep defaults.
	assert.Equal(t, 180, cfg.Chunking.ChunkOverlap)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CODERAG_EMBEDDING_BASE_URL", "http://example.test:11434")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:11434", cfg.Embedding.BaseURL)
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.EnsureDataDir())
	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
