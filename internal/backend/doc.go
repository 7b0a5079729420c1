// Package backend pairs an embedding strategy with the index it searches
// and selects the best pairing the environment can support.
//
// Three tiers exist: full-semantic (HTTP embedding provider), the
// feature-heuristic embedder, and keyword token overlap. The Selector
// walks that chain at startup and again on Demote when the active
// provider fails. Degradation is one-way; only Reinitialize can move the
// selector back up, so a flaky provider cannot flip the active tier back
// and forth between requests.
package backend
