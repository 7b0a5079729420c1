package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/pkg/types"
)

func newEmbeddingStub(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = float32(len(req.Prompt)+i) / float32(dim)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vec})
	}))
}

func TestSelector_PicksSemanticWhenProviderUp(t *testing.T) {
	srv := newEmbeddingStub(t, 64)
	defer srv.Close()

	sel := NewSelector(Config{
		Provider: embedder.ProviderConfig{Kind: embedder.KindOllama, BaseURL: srv.URL},
	})
	b, err := sel.Initialize(context.Background())
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	assert.Equal(t, types.CapabilityFullSemantic, b.Capability())
	assert.Equal(t, 64, b.Dimension())
	assert.Equal(t, types.CapabilityFullSemantic, sel.Capability())
}

func TestSelector_FallsToFeatureWhenProviderDown(t *testing.T) {
	srv := newEmbeddingStub(t, 64)
	srv.Close() // refuse connections

	sel := NewSelector(Config{
		Provider: embedder.ProviderConfig{Kind: embedder.KindOllama, BaseURL: srv.URL},
	})
	b, err := sel.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.CapabilityFeatureHeuristic, b.Capability())
	assert.Equal(t, embedder.FeatureDimension, b.Dimension())
}

func TestSelector_KeywordIsLastResort(t *testing.T) {
	sel := NewSelector(Config{DisableSemantic: true, DisableFeature: true})
	b, err := sel.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.CapabilityKeywordOnly, b.Capability())
	assert.Equal(t, 0, b.Dimension())
}

func TestSelector_UninitializedBeforeFirstUse(t *testing.T) {
	sel := NewSelector(Config{DisableSemantic: true})
	assert.Equal(t, types.CapabilityUninitialized, sel.Capability())

	b, err := sel.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CapabilityFeatureHeuristic, b.Capability())
	assert.Equal(t, types.CapabilityFeatureHeuristic, sel.Capability())
}

func TestSelector_DemoteWalksDown(t *testing.T) {
	sel := NewSelector(Config{DisableSemantic: true})
	b, err := sel.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.CapabilityFeatureHeuristic, b.Capability())

	b, err = sel.Demote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CapabilityKeywordOnly, b.Capability())

	// Nothing below keyword.
	b, err = sel.Demote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CapabilityKeywordOnly, b.Capability())
}

func TestSelector_NoRepromotionWithoutReinitialize(t *testing.T) {
	srv := newEmbeddingStub(t, 32)
	defer srv.Close()

	sel := NewSelector(Config{
		Provider: embedder.ProviderConfig{Kind: embedder.KindOllama, BaseURL: srv.URL},
	})
	_, err := sel.Initialize(context.Background())
	require.NoError(t, err)

	// Provider failure demotes even though the stub is still serving.
	b, err := sel.Demote(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.CapabilityFeatureHeuristic, b.Capability())

	// The selector stays degraded on its own...
	b2, err := sel.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CapabilityFeatureHeuristic, b2.Capability())

	// ...until an explicit reinitialize walks the chain from the top.
	b3, err := sel.Reinitialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CapabilityFullSemantic, b3.Capability())
}

func TestSelector_InitializeKeepsExistingBackend(t *testing.T) {
	sel := NewSelector(Config{DisableSemantic: true})

	b1, err := sel.Initialize(context.Background())
	require.NoError(t, err)
	b2, err := sel.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, b1 == b2, "second Initialize must not replace the backend")
}

func TestSelector_ConcurrentFirstUseSharesOneBackend(t *testing.T) {
	sel := NewSelector(Config{DisableSemantic: true})

	const callers = 16
	backends := make([]Backend, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := sel.Active(context.Background())
			assert.NoError(t, err)
			backends[i] = b
		}()
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.True(t, backends[0] == backends[i], "caller %d got a different backend", i)
	}
}

func TestSelector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sel := NewSelector(Config{DisableSemantic: true})
	_, err := sel.Initialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
