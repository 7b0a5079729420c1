package engine

import (
	"fmt"

	"github.com/coderag-dev/coderag/internal/backend"
	"github.com/coderag-dev/coderag/internal/chunker"
	"github.com/coderag-dev/coderag/internal/config"
	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/internal/persist"
)

// FromConfig assembles an engine from application configuration: the
// snapshot store at cfg.DBPath, the backend selector tuned by the
// embedding section, and the configured chunker.
func FromConfig(cfg *config.Config) (*Engine, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := persist.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	sel := backend.NewSelector(backend.Config{
		Provider: embedder.ProviderConfig{
			Kind:    cfg.Embedding.Provider,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			Timeout: cfg.Embedding.Timeout,
		},
		DisableSemantic: cfg.Embedding.DisableSemantic,
		DisableFeature:  cfg.Embedding.DisableFeature,
		CacheSize:       cfg.Embedding.CacheSize,
	})

	return New(sel, store, Config{
		Chunker: chunker.Config{
			ChunkSize: cfg.Chunking.ChunkSize,
			Overlap:   cfg.Chunking.ChunkOverlap,
		},
		DefaultTopK: cfg.Retrieval.TopK,
	}), nil
}

// Close releases the snapshot store and the active backend.
func (e *Engine) Close() error {
	firstErr := e.selector.Close()
	if e.store != nil {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
