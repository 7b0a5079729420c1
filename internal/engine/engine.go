package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/coderag-dev/coderag/internal/analysis"
	"github.com/coderag-dev/coderag/internal/backend"
	"github.com/coderag-dev/coderag/internal/chunker"
	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/internal/persist"
	"github.com/coderag-dev/coderag/pkg/types"
)

var (
	// ErrIngestInProgress is returned when Ingest is called while another
	// ingestion holds the write lock.
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

// DefaultTopK is the result count used when a query does not specify one.
const DefaultTopK = 5

// Config tunes the engine. Zero values take defaults.
type Config struct {
	Chunker     chunker.Config
	DefaultTopK int

	// ChunkWorkers bounds the goroutines splitting and analyzing files.
	ChunkWorkers int
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	Backend        types.BackendCapability `json:"backend"`
	IndexedChunks  int                     `json:"indexed_chunks"`
	Persisted      bool                    `json:"persisted"`
	VocabularySize int                     `json:"vocabulary_size,omitempty"`
	Languages      map[string]int          `json:"languages,omitempty"`
}

// Engine is the retrieval facade: it owns the chunker, the backend
// selector, and the persistence store, and exposes ingest and query as
// the only entry points. One writer at a time; queries read a consistent
// snapshot of the index.
type Engine struct {
	cfg      Config
	selector *backend.Selector
	chunker  *chunker.Chunker
	store    *persist.Store // nil disables persistence

	lock ingestLock

	mu          sync.RWMutex
	fingerprint string
	persisted   bool
}

// New builds an engine on top of a selector and an optional store.
func New(selector *backend.Selector, store *persist.Store, cfg Config) *Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.ChunkWorkers <= 0 {
		cfg.ChunkWorkers = 4
	}
	return &Engine{
		cfg:      cfg,
		selector: selector,
		chunker:  chunker.New(cfg.Chunker),
		store:    store,
	}
}

// chunkedFile is one file after splitting and analysis, kept in input
// order so embedding sees a deterministic sequence.
type chunkedFile struct {
	chunks []types.CodeChunk
	report analysis.Report
}

// Ingest chunks, analyzes, embeds, and indexes files, then persists a
// snapshot keyed by the corpus fingerprint. Files that produce no chunks
// are skipped. Re-ingesting an unchanged corpus yields the same chunk IDs
// and count. Only one ingestion runs at a time; concurrent callers get
// ErrIngestInProgress.
//
// Reports may carry externally computed analysis keyed by file path; files
// without an entry are analyzed in-process.
func (e *Engine) Ingest(ctx context.Context, files []types.SourceFile, reports map[string]analysis.Report) (int, error) {
	if !e.lock.TryAcquire() {
		return 0, ErrIngestInProgress
	}
	defer e.lock.Release()

	b, err := e.selector.Active(ctx)
	if err != nil {
		return 0, err
	}

	chunked, err := e.chunkAll(ctx, files, reports)
	if err != nil {
		return 0, err
	}

	b.Unfreeze()
	records, b, err := e.embedAll(ctx, b, files, chunked)
	if err != nil {
		return 0, err
	}

	if err := b.Add(records); err != nil {
		return 0, fmt.Errorf("index records: %w", err)
	}
	b.Freeze()

	fingerprint := corpusFingerprint(files)
	e.mu.Lock()
	e.fingerprint = fingerprint
	e.persisted = false
	e.mu.Unlock()

	if e.store != nil {
		snap := &persist.Snapshot{
			Fingerprint: fingerprint,
			BackendTag:  b.Capability(),
			Dimension:   b.Dimension(),
			Vocabulary:  b.Vocabulary(),
			Records:     b.Records(),
		}
		if err := e.store.Save(ctx, snap); err != nil {
			log.Printf("engine: snapshot save failed: %v", err)
		} else {
			e.mu.Lock()
			e.persisted = true
			e.mu.Unlock()
		}
	}

	return len(records), nil
}

// chunkAll splits and analyzes files concurrently, preserving input order.
func (e *Engine) chunkAll(ctx context.Context, files []types.SourceFile, reports map[string]analysis.Report) ([]chunkedFile, error) {
	chunked := make([]chunkedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ChunkWorkers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := files[i]
			content := string(f.Content)

			report, ok := reports[f.Path]
			if !ok {
				report = analysis.Analyze(content, f.Language)
			}
			chunked[i] = chunkedFile{
				chunks: e.chunker.Split(f.Path, content, f.Language),
				report: report,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunked, nil
}

// embedAll embeds every chunk sequentially so vocabulary growth is
// deterministic. A provider failure demotes the backend and restarts the
// pass on the lower tier.
func (e *Engine) embedAll(ctx context.Context, b backend.Backend, files []types.SourceFile, chunked []chunkedFile) ([]types.IndexRecord, backend.Backend, error) {
	for {
		records, err := e.embedPass(ctx, b, files, chunked)
		if err == nil {
			return records, b, nil
		}
		if !isProviderFailure(err) {
			return nil, b, err
		}

		log.Printf("engine: %s backend failed during ingest: %v", b.Capability(), err)
		next, derr := e.selector.Demote(ctx)
		if derr != nil {
			return nil, b, derr
		}
		if next.Capability() == b.Capability() {
			return nil, b, err // nothing below this tier
		}
		b = next
	}
}

func (e *Engine) embedPass(ctx context.Context, b backend.Backend, files []types.SourceFile, chunked []chunkedFile) ([]types.IndexRecord, error) {
	var records []types.IndexRecord
	for i, cf := range chunked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, chunk := range cf.chunks {
			vec, err := b.EmbedChunk(ctx, chunk.Text)
			if err != nil {
				if errors.Is(err, embedder.ErrEmptyText) {
					continue
				}
				return nil, fmt.Errorf("embed %s chunk %d: %w", files[i].Path, chunk.Ordinal, err)
			}
			records = append(records, types.IndexRecord{
				Chunk: chunk,
				Meta: types.Metadata{
					ChunkID:         chunk.ID,
					FileName:        chunk.SourceFile,
					Language:        chunk.Language,
					IssueCount:      cf.report.IssueCount(),
					ComplexityScore: cf.report.Complexity,
					ChunkIndex:      chunk.Ordinal,
				},
				Vector:     vec,
				BackendTag: b.Capability(),
			})
		}
	}
	return records, nil
}

func isProviderFailure(err error) bool {
	return errors.Is(err, embedder.ErrProviderFailed) ||
		errors.Is(err, embedder.ErrDimensionChanged)
}

// Query embeds the question with the active backend, searches the index,
// and renders the top matches as labeled context blocks. An empty index,
// an empty question, or zero-relevance results yield "".
func (e *Engine) Query(ctx context.Context, question string, topK int) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil
	}
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}

	b, err := e.selector.Active(ctx)
	if err != nil {
		return "", err
	}
	if b.Size() == 0 {
		return "", nil
	}

	result, err := b.Search(ctx, question, topK)
	if err != nil {
		if isProviderFailure(err) {
			// The index was built by the failing tier; demote so the
			// caller can re-ingest on the lower tier.
			if _, derr := e.selector.Demote(ctx); derr == nil {
				return "", fmt.Errorf("%w: embedding provider failed, re-ingest required", types.ErrBackendUnavailable)
			}
		}
		return "", err
	}

	return FormatContext(result), nil
}

// IsAvailable reports whether a backend has been selected. The keyword
// tier counts: any selected tier can serve queries.
func (e *Engine) IsAvailable() bool {
	return e.selector.Capability() != types.CapabilityUninitialized
}

// Stats reports the active tier and index contents.
func (e *Engine) Stats(ctx context.Context) Stats {
	stats := Stats{Backend: e.selector.Capability()}

	e.mu.RLock()
	stats.Persisted = e.persisted
	e.mu.RUnlock()

	if stats.Backend == types.CapabilityUninitialized {
		return stats
	}
	b, err := e.selector.Active(ctx)
	if err != nil {
		return stats
	}

	stats.IndexedChunks = b.Size()
	stats.VocabularySize = len(b.Vocabulary())
	records := b.Records()
	if len(records) > 0 {
		stats.Languages = make(map[string]int)
		for _, rec := range records {
			stats.Languages[string(rec.Chunk.Language)]++
		}
	}
	return stats
}

// LoadSnapshot warm-starts the engine from the store when the corpus
// fingerprint matches a persisted snapshot built by the active tier.
// A miss of any kind returns types.ErrSnapshotNotFound; callers fall back
// to Ingest.
func (e *Engine) LoadSnapshot(ctx context.Context, files []types.SourceFile) error {
	if e.store == nil {
		return types.ErrSnapshotNotFound
	}
	if !e.lock.TryAcquire() {
		return ErrIngestInProgress
	}
	defer e.lock.Release()

	fingerprint := corpusFingerprint(files)
	snap, err := e.store.Load(ctx, fingerprint)
	if err != nil {
		return err
	}

	b, err := e.selector.Active(ctx)
	if err != nil {
		return err
	}
	if snap.BackendTag != b.Capability() {
		log.Printf("engine: snapshot built by %s, active backend is %s, rebuilding",
			snap.BackendTag, b.Capability())
		return types.ErrSnapshotNotFound
	}
	if err := b.Restore(snap.Records, snap.Vocabulary); err != nil {
		log.Printf("engine: snapshot restore failed: %v", err)
		return types.ErrSnapshotNotFound
	}

	e.mu.Lock()
	e.fingerprint = fingerprint
	e.persisted = true
	e.mu.Unlock()

	log.Printf("engine: warm start with %d chunks (%s)", b.Size(), b.Capability())
	return nil
}

// Reset drops the index, the persisted snapshot for the current corpus,
// and re-runs backend selection from the top.
func (e *Engine) Reset(ctx context.Context) error {
	if !e.lock.TryAcquire() {
		return ErrIngestInProgress
	}
	defer e.lock.Release()

	e.mu.Lock()
	fingerprint := e.fingerprint
	e.fingerprint = ""
	e.persisted = false
	e.mu.Unlock()

	if e.store != nil && fingerprint != "" {
		if err := e.store.Delete(ctx, fingerprint); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
	}

	_, err := e.selector.Reinitialize(ctx)
	return err
}

func corpusFingerprint(files []types.SourceFile) string {
	states := make([]persist.FileState, len(files))
	for i, f := range files {
		states[i] = persist.StateOf(f.Path, f.Content, f.ModTime)
	}
	return persist.Fingerprint(states)
}
