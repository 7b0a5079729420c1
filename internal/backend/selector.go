package backend

import (
	"context"
	"log"
	"sync"

	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/pkg/types"
)

// DefaultCacheSize bounds the embedding caches the selector hands to the
// vector tiers.
const DefaultCacheSize = 2048

// Config controls which tiers the selector may pick and how the semantic
// provider is reached.
type Config struct {
	Provider        embedder.ProviderConfig
	DisableSemantic bool
	DisableFeature  bool
	CacheSize       int
}

// Selector picks the best available backend at startup and only ever moves
// down the chain afterwards. A degraded selector stays degraded until
// Reinitialize is called; transient provider recoveries never flip the
// active tier on their own.
type Selector struct {
	mu     sync.RWMutex
	cfg    Config
	active Backend
}

func NewSelector(cfg Config) *Selector {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	return &Selector{cfg: cfg}
}

// Initialize walks the fallback chain from the top and installs the first
// backend that constructs successfully. The keyword tier cannot fail, so
// the only possible error is context cancellation. A selector that already
// holds a backend keeps it; concurrent first-use callers all see the same
// instance. Use Reinitialize to force selection from the top.
func (s *Selector) Initialize(ctx context.Context) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return s.active, nil
	}
	return s.initLocked(ctx, types.CapabilityFullSemantic)
}

// Reinitialize closes the active backend and re-runs selection from the
// top. This is the only path back to a higher tier.
func (s *Selector) Reinitialize(ctx context.Context) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		_ = s.active.Close()
		s.active = nil
	}
	return s.initLocked(ctx, types.CapabilityFullSemantic)
}

// Demote replaces the active backend with the next tier down. Called when
// the active backend's provider fails mid-flight. The keyword tier has
// nothing below it and is returned unchanged.
func (s *Selector) Demote(ctx context.Context) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return s.initLocked(ctx, types.CapabilityFullSemantic)
	}

	var from types.BackendCapability
	switch s.active.Capability() {
	case types.CapabilityFullSemantic:
		from = types.CapabilityFeatureHeuristic
	case types.CapabilityFeatureHeuristic:
		from = types.CapabilityKeywordOnly
	default:
		return s.active, nil
	}

	log.Printf("backend: demoting from %s", s.active.Capability())
	_ = s.active.Close()
	s.active = nil
	return s.initLocked(ctx, from)
}

// Active returns the current backend, initializing on first use.
func (s *Selector) Active(ctx context.Context) (Backend, error) {
	s.mu.RLock()
	if s.active != nil {
		defer s.mu.RUnlock()
		return s.active, nil
	}
	s.mu.RUnlock()
	return s.Initialize(ctx)
}

// Capability reports the active tier, Uninitialized before first selection.
func (s *Selector) Capability() types.BackendCapability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return types.CapabilityUninitialized
	}
	return s.active.Capability()
}

// Close releases the active backend, if any. The selector returns to the
// uninitialized state.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	err := s.active.Close()
	s.active = nil
	return err
}

func (s *Selector) initLocked(ctx context.Context, from types.BackendCapability) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if from == types.CapabilityFullSemantic && !s.cfg.DisableSemantic {
		provider, err := embedder.NewProvider(ctx, s.cfg.Provider, embedder.NewCache(s.cfg.CacheSize))
		if err == nil {
			s.active = newVectorBackend(provider)
			log.Printf("backend: %s (%s, %d dims)",
				types.CapabilityFullSemantic, provider.Kind(), provider.Dimension())
			return s.active, nil
		}
		log.Printf("backend: semantic provider unavailable: %v", err)
	}

	if from != types.CapabilityKeywordOnly && !s.cfg.DisableFeature {
		s.active = newVectorBackend(embedder.NewFeatureEmbedder(embedder.NewCache(s.cfg.CacheSize)))
		log.Printf("backend: %s (%d dims)",
			types.CapabilityFeatureHeuristic, embedder.FeatureDimension)
		return s.active, nil
	}

	s.active = newKeywordBackend()
	log.Printf("backend: %s", types.CapabilityKeywordOnly)
	return s.active, nil
}
