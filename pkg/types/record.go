package types

// Metadata carries denormalized analysis facts attached to a chunk at
// ingestion time. It supports display and metadata-filtered ranking and is
// never part of the similarity math.
type Metadata struct {
	ChunkID         string
	FileName        string
	Language        Language
	IssueCount      int
	ComplexityScore float64
	ChunkIndex      int
}

// IndexRecord is the unit the vector index stores and returns: a chunk, its
// metadata, and the embedding produced by the active backend. KeywordOnly
// backends leave Vector nil.
type IndexRecord struct {
	Chunk      CodeChunk
	Meta       Metadata
	Vector     []float32
	BackendTag BackendCapability
}

// ScoredRecord pairs an index record with its similarity score for a query.
type ScoredRecord struct {
	Record IndexRecord
	Score  float64
}

// RetrievalResult is an ordered sequence of scored records, descending by
// score. Ties preserve insertion order.
type RetrievalResult []ScoredRecord
