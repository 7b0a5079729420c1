package backend

import (
	"context"

	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/internal/vindex"
	"github.com/coderag-dev/coderag/pkg/types"
)

// Backend is the uniform retrieval contract the engine works against. A
// backend owns both the embedding strategy and the index it searches, so
// callers never pair a vector with the wrong index.
type Backend interface {
	// Capability reports which tier this backend implements.
	Capability() types.BackendCapability

	// Dimension is the vector length this backend produces, 0 for
	// keyword-only.
	Dimension() int

	// EmbedChunk produces the vector for one chunk of text. Keyword-only
	// backends return (nil, nil).
	EmbedChunk(ctx context.Context, text string) ([]float32, error)

	// Add inserts records into the backend's index. Records must carry
	// this backend's tag and dimension.
	Add(records []types.IndexRecord) error

	// Search embeds the query and returns up to k scored records in
	// descending score order.
	Search(ctx context.Context, query string, k int) (types.RetrievalResult, error)

	// Size is the number of indexed records.
	Size() int

	// Records returns a copy of the indexed records in insertion order.
	Records() []types.IndexRecord

	// Restore replaces the backend's state from a persisted snapshot.
	Restore(records []types.IndexRecord, vocabulary map[string]int) error

	// Vocabulary exposes the term mapping to persist, nil when the
	// backend has none.
	Vocabulary() map[string]int

	// Freeze pins the backend's embedding function after ingestion so
	// query embeddings see the same mapping the index was built with.
	// Unfreeze reopens it at the start of the next ingestion.
	Freeze()
	Unfreeze()

	Close() error
}

// vectorBackend pairs an embedder with a vector index. It serves both the
// full-semantic and feature-heuristic tiers; the embedder decides which.
type vectorBackend struct {
	emb     embedder.Embedder
	idx     *vindex.Index
	feature *embedder.FeatureEmbedder
}

func newVectorBackend(emb embedder.Embedder) *vectorBackend {
	vb := &vectorBackend{
		emb: emb,
		idx: vindex.New(emb.Capability(), emb.Dimension()),
	}
	if f, ok := emb.(*embedder.FeatureEmbedder); ok {
		vb.feature = f
	}
	return vb
}

func (b *vectorBackend) Capability() types.BackendCapability {
	return b.emb.Capability()
}

func (b *vectorBackend) Dimension() int {
	return b.emb.Dimension()
}

func (b *vectorBackend) EmbedChunk(ctx context.Context, text string) ([]float32, error) {
	return b.emb.Embed(ctx, text)
}

func (b *vectorBackend) Add(records []types.IndexRecord) error {
	return b.idx.Add(records)
}

func (b *vectorBackend) Search(ctx context.Context, query string, k int) (types.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := b.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return b.idx.Search(vec, k)
}

func (b *vectorBackend) Size() int {
	return b.idx.Size()
}

func (b *vectorBackend) Records() []types.IndexRecord {
	return b.idx.Snapshot()
}

func (b *vectorBackend) Restore(records []types.IndexRecord, vocabulary map[string]int) error {
	if b.feature != nil && vocabulary != nil {
		b.feature.SetVocabulary(vocabulary)
	}
	return b.idx.Restore(records)
}

func (b *vectorBackend) Vocabulary() map[string]int {
	if b.feature == nil {
		return nil
	}
	return b.feature.Vocabulary()
}

func (b *vectorBackend) Freeze() {
	if b.feature != nil {
		b.feature.Freeze()
	}
}

func (b *vectorBackend) Unfreeze() {
	if b.feature != nil {
		b.feature.Unfreeze()
	}
}

func (b *vectorBackend) Close() error {
	return b.emb.Close()
}
