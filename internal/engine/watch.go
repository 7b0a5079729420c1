package engine

import (
	"context"
	"errors"
	"log"

	"github.com/coderag-dev/coderag/internal/corpus"
)

// WatchCorpus re-ingests the corpus whenever files under root change. Each
// change batch triggers a fresh Discover so deletions and renames are
// reflected, not just the changed paths. A batch arriving while an
// ingestion is still running is dropped; the next batch sees the
// accumulated state. Stop the returned watcher to end watching.
func (e *Engine) WatchCorpus(ctx context.Context, root string, opts corpus.Options) (*corpus.Watcher, error) {
	w, err := corpus.NewWatcher(root, opts, func(paths []string) {
		log.Printf("engine: %d corpus paths changed, re-ingesting", len(paths))
		files, err := corpus.Discover(root, opts)
		if err != nil {
			log.Printf("engine: corpus discovery failed: %v", err)
			return
		}
		if _, err := e.Ingest(ctx, files, nil); err != nil {
			if errors.Is(err, ErrIngestInProgress) {
				return
			}
			log.Printf("engine: re-ingest failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
