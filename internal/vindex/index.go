package vindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/pkg/types"
)

var (
	// ErrDimensionMismatch is returned when a record's vector length does
	// not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrBackendMismatch is returned when a record carries a different
	// backend tag than the index. An index never mixes backends.
	ErrBackendMismatch = errors.New("backend tag mismatch")
)

// Index is an in-memory vector index scoring by cosine similarity.
// Vectors are L2-normalized at insertion so inner product equals cosine.
// Result ordering is deterministic: ties break by insertion order, earliest
// inserted first.
type Index struct {
	mu      sync.RWMutex
	tag     types.BackendCapability
	dim     int
	records []types.IndexRecord
	byID    map[string]int // chunk ID -> position in records
}

// New creates an empty index for one backend tag and dimension.
func New(tag types.BackendCapability, dim int) *Index {
	return &Index{
		tag:  tag,
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Add inserts records into the index. Vectors are normalized in place of a
// copy held by the index; the caller's slice is not modified. Add is
// idempotent by chunk ID: a record with an existing ID replaces the prior
// entry at its original insertion position.
func (ix *Index) Add(records []types.IndexRecord) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, rec := range records {
		if rec.BackendTag != ix.tag {
			return fmt.Errorf("%w: record %s has tag %s, index has %s",
				ErrBackendMismatch, rec.Chunk.ID, rec.BackendTag, ix.tag)
		}
		if len(rec.Vector) != ix.dim {
			return fmt.Errorf("%w: record %s has %d dims, index has %d",
				ErrDimensionMismatch, rec.Chunk.ID, len(rec.Vector), ix.dim)
		}

		rec.Vector = embedder.Normalize(rec.Vector)

		if pos, ok := ix.byID[rec.Chunk.ID]; ok {
			ix.records[pos] = rec
			continue
		}
		ix.byID[rec.Chunk.ID] = len(ix.records)
		ix.records = append(ix.records, rec)
	}
	return nil
}

// Search returns the top k records by similarity to queryVector, descending.
// k greater than Size returns every record; k <= 0 returns nothing.
func (ix *Index) Search(queryVector []float32, k int) (types.RetrievalResult, error) {
	if len(queryVector) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d",
			ErrDimensionMismatch, len(queryVector), ix.dim)
	}
	if k <= 0 {
		return types.RetrievalResult{}, nil
	}

	q := embedder.Normalize(queryVector)

	// One critical section covers scoring and materialization so a
	// concurrent Restore or Clear cannot shrink records between them.
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scored := make([]scoredPos, 0, len(ix.records))
	for pos, rec := range ix.records {
		scored = append(scored, scoredPos{pos: pos, score: dot(q, rec.Vector)})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if k > len(scored) {
		k = len(scored)
	}

	result := make(types.RetrievalResult, 0, k)
	for _, s := range scored[:k] {
		result = append(result, types.ScoredRecord{
			Record: ix.records[s.pos],
			Score:  s.score,
		})
	}
	return result, nil
}

// Size returns the number of stored records.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Dimension returns the index vector dimension.
func (ix *Index) Dimension() int {
	return ix.dim
}

// Tag returns the backend tag all stored records carry.
func (ix *Index) Tag() types.BackendCapability {
	return ix.tag
}

// Snapshot returns a copy of the stored records in insertion order. Queries
// issued during an ingestion read from such snapshots.
func (ix *Index) Snapshot() []types.IndexRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]types.IndexRecord, len(ix.records))
	copy(out, ix.records)
	return out
}

// Restore replaces the index contents with records, preserving their order.
// Vectors are assumed already normalized (they come from a snapshot that
// stored them post-normalization).
func (ix *Index) Restore(records []types.IndexRecord) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	byID := make(map[string]int, len(records))
	for pos, rec := range records {
		if rec.BackendTag != ix.tag {
			return fmt.Errorf("%w: record %s has tag %s, index has %s",
				ErrBackendMismatch, rec.Chunk.ID, rec.BackendTag, ix.tag)
		}
		if len(rec.Vector) != ix.dim {
			return fmt.Errorf("%w: record %s has %d dims, index has %d",
				ErrDimensionMismatch, rec.Chunk.ID, len(rec.Vector), ix.dim)
		}
		byID[rec.Chunk.ID] = pos
	}

	ix.records = make([]types.IndexRecord, len(records))
	copy(ix.records, records)
	ix.byID = byID
	return nil
}

// Clear drops every record.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = nil
	ix.byID = make(map[string]int)
}

type scoredPos struct {
	pos   int
	score float64
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
