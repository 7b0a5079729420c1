package backend

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/coderag-dev/coderag/pkg/types"
)

var keywordToken = regexp.MustCompile(`\w+`)

// keywordBackend is the last-resort tier. It keeps no vectors; queries are
// scored by token overlap between the question and each chunk's text.
type keywordBackend struct {
	mu      sync.RWMutex
	records []types.IndexRecord
	tokens  []map[string]struct{}
	byID    map[string]int
}

func newKeywordBackend() *keywordBackend {
	return &keywordBackend{byID: make(map[string]int)}
}

func tokenize(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range keywordToken.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 2 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func (b *keywordBackend) Capability() types.BackendCapability {
	return types.CapabilityKeywordOnly
}

func (b *keywordBackend) Dimension() int { return 0 }

func (b *keywordBackend) EmbedChunk(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (b *keywordBackend) Add(records []types.IndexRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range records {
		rec.Vector = nil
		rec.BackendTag = types.CapabilityKeywordOnly
		if pos, ok := b.byID[rec.Chunk.ID]; ok {
			b.records[pos] = rec
			b.tokens[pos] = tokenize(rec.Chunk.Text)
			continue
		}
		b.byID[rec.Chunk.ID] = len(b.records)
		b.records = append(b.records, rec)
		b.tokens = append(b.tokens, tokenize(rec.Chunk.Text))
	}
	return nil
}

func (b *keywordBackend) Search(ctx context.Context, query string, k int) (types.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || k <= 0 {
		return types.RetrievalResult{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var result types.RetrievalResult
	for i, rec := range b.records {
		matched := 0
		for tok := range queryTokens {
			if _, ok := b.tokens[i][tok]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		result = append(result, types.ScoredRecord{
			Record: rec,
			Score:  float64(matched) / float64(len(queryTokens)),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if k < len(result) {
		result = result[:k]
	}
	if result == nil {
		result = types.RetrievalResult{}
	}
	return result, nil
}

func (b *keywordBackend) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *keywordBackend) Records() []types.IndexRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.IndexRecord, len(b.records))
	copy(out, b.records)
	return out
}

func (b *keywordBackend) Restore(records []types.IndexRecord, _ map[string]int) error {
	b.mu.Lock()
	b.records = nil
	b.tokens = nil
	b.byID = make(map[string]int)
	b.mu.Unlock()
	return b.Add(records)
}

func (b *keywordBackend) Vocabulary() map[string]int { return nil }

func (b *keywordBackend) Freeze() {}

func (b *keywordBackend) Unfreeze() {}

func (b *keywordBackend) Close() error { return nil }
