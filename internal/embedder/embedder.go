package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coderag-dev/coderag/pkg/types"
)

// Common errors
var (
	ErrEmptyText        = errors.New("text cannot be empty")
	ErrProviderFailed   = errors.New("embedding provider failed")
	ErrDimensionChanged = errors.New("provider dimension changed")
)

// Embedder converts text into a fixed-length numeric vector. Implementations
// are deterministic for a frozen vocabulary: the same text produces the same
// vector.
type Embedder interface {
	// Embed produces the vector for text. The vector length always equals
	// Dimension().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension declared by this strategy.
	Dimension() int

	// Capability reports the backend tier this embedder serves.
	Capability() types.BackendCapability

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. The copy prevents caller
// mutations from reaching the cached value.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector with automatic LRU eviction.
func (c *Cache) Set(hash string, v []float32) {
	c.cache.Add(hash, v)
}

// Len returns the current cache size.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.cache.Purge()
}

// ComputeHash computes the SHA-256 content hash used as a cache key.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Normalize scales a vector to unit length so that inner product equals
// cosine similarity. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}
