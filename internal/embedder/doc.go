// Package embedder converts chunks and queries into fixed-length numeric
// vectors through one of two strategies.
//
// # Strategies
//
// Provider delegates to an external embedding service (Ollama-compatible or
// OpenAI) with a provider-declared dimension. Construction probes the
// service once; an unreachable provider fails fast with
// types.ErrBackendUnavailable so the selector can fall back. Provider
// failures are not retried here: fallback, not retry, is the recovery path.
//
// FeatureEmbedder builds a fixed 512-dimension vector with no external model
// by combining disjoint sub-signals: code construct counts, risk pattern
// presence, structural complexity indicators, and an incrementally-grown
// term-frequency vocabulary signature. The vocabulary is corpus-local and is
// frozen after ingestion for deterministic query embeddings.
//
// Both strategies share an LRU cache keyed by content hash:
//
//	cache := embedder.NewCache(10000)
//	emb := embedder.NewFeatureEmbedder(cache)
//	vec, err := emb.Embed(ctx, chunk.Text)
package embedder
