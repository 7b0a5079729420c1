package types

// BackendCapability declares what a concrete retrieval backend can offer.
// The selector uses the ordering FullSemantic > FeatureHeuristic > KeywordOnly
// when ranking fallbacks.
type BackendCapability string

const (
	// CapabilityUninitialized is the selector's initial state before any
	// backend has been constructed.
	CapabilityUninitialized BackendCapability = "uninitialized"

	// CapabilityFullSemantic delegates embedding to an external provider.
	CapabilityFullSemantic BackendCapability = "full_semantic"

	// CapabilityFeatureHeuristic builds hand-engineered feature vectors
	// without any external model.
	CapabilityFeatureHeuristic BackendCapability = "feature_heuristic"

	// CapabilityKeywordOnly scores by token overlap with no vectors at all.
	// It has no external dependency and always succeeds.
	CapabilityKeywordOnly BackendCapability = "keyword_only"
)

// Valid reports whether the capability is one of the declared tiers.
func (c BackendCapability) Valid() bool {
	switch c {
	case CapabilityUninitialized, CapabilityFullSemantic,
		CapabilityFeatureHeuristic, CapabilityKeywordOnly:
		return true
	}
	return false
}
