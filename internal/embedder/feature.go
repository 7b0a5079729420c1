package embedder

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/coderag-dev/coderag/pkg/types"
)

// FeatureDimension is the fixed vector size of the hand-engineered strategy.
const FeatureDimension = 512

// Vector slice layout. Each sub-signal occupies a disjoint, fixed-width
// region; unused capacity inside a region stays zero.
const (
	patternSliceStart = 0   // language construct pattern counts
	riskSliceStart    = 16  // known risk pattern presence
	structSliceStart  = 32  // structural complexity indicators
	vocabSliceStart   = 64  // term-frequency vocabulary signature
	vocabSliceWidth   = FeatureDimension - vocabSliceStart
)

// codePatterns are counted into the pattern slice in declaration order.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(def|function|func|fn|method)\b`),
	regexp.MustCompile(`(?i)\b(class|interface|struct|trait)\b`),
	regexp.MustCompile(`(?i)\b(var|let|const)\b`),
	regexp.MustCompile(`(?i)\b(import|from|include|require|use)\b`),
	regexp.MustCompile(`(?i)\b(for|while|foreach|range)\b`),
	regexp.MustCompile(`(?i)\b(if|else|elif|switch|case|match)\b`),
	regexp.MustCompile(`(?i)\b(try|catch|except|finally|throw|raise|panic)\b`),
	regexp.MustCompile(`(?i)\b(async|await|promise|future)\b`),
	regexp.MustCompile(`(?i)\b(return|yield)\b`),
	regexp.MustCompile(`(?i)\b(public|private|protected|static)\b`),
}

// riskPatterns flag dangerous constructs: dynamic code execution, unsafe
// deserialization, and string-built queries.
var riskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(eval|exec|compile)\s*\(`),
	regexp.MustCompile(`(?i)(pickle\.loads|yaml\.load|unserialize|marshal\.loads)`),
	regexp.MustCompile(`(?i)\b(select|insert|update|delete)\b[^\n]*(\+|%s|format|sprintf)`),
	regexp.MustCompile(`(?i)\b(os\.system|subprocess|popen|shell=true)\b`),
	regexp.MustCompile(`(?i)\b(md5|sha1)\s*\(`),
}

var wordPattern = regexp.MustCompile(`\w+`)

// FeatureEmbedder builds a fixed 512-dimension vector without any external
// model by combining independently-normalized sub-signals: construct pattern
// counts, risk pattern presence, structural complexity indicators, and a
// term-frequency vocabulary signature built incrementally across the corpus
// being indexed.
//
// The vocabulary is corpus-local and grows monotonically while unfrozen, so
// embedding the same text can change as new terms are seen. Callers that
// need strict consistency freeze the vocabulary after ingestion; frozen,
// the embedder is fully deterministic and safe for concurrent use.
type FeatureEmbedder struct {
	mu     sync.RWMutex
	vocab  map[string]int
	frozen bool
	cache  *Cache
}

// NewFeatureEmbedder creates a feature embedder with an empty, unfrozen
// vocabulary. One instance serves exactly one corpus fingerprint.
func NewFeatureEmbedder(cache *Cache) *FeatureEmbedder {
	return &FeatureEmbedder{
		vocab: make(map[string]int),
		cache: cache,
	}
}

// Embed extracts the feature vector for text. While the vocabulary is
// unfrozen, unseen terms are assigned new vocabulary slots.
func (f *FeatureEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	// The cache is only sound once the vocabulary stops moving.
	var hash string
	if f.cache != nil && f.isFrozen() {
		hash = ComputeHash(text)
		if v, ok := f.cache.Get(hash); ok {
			return v, nil
		}
	}

	vec := make([]float32, FeatureDimension)

	for i, p := range codePatterns {
		n := len(p.FindAllStringIndex(text, -1))
		vec[patternSliceStart+i] = clamp(float32(n) / 10.0)
	}

	for i, p := range riskPatterns {
		n := len(p.FindAllStringIndex(text, -1))
		vec[riskSliceStart+i] = clamp(float32(n) / 5.0)
	}

	f.structuralSignals(text, vec)
	f.vocabularySignature(text, vec)

	if f.cache != nil && hash != "" {
		f.cache.Set(hash, vec)
	}
	return vec, nil
}

// structuralSignals fills the structural slice with normalized size and
// nesting indicators.
func (f *FeatureEmbedder) structuralSignals(text string, vec []float32) {
	lines := strings.Count(text, "\n") + 1
	words := len(wordPattern.FindAllString(text, -1))

	vec[structSliceStart+0] = clamp(float32(len(text)) / 1000.0)
	vec[structSliceStart+1] = clamp(float32(words) / 100.0)
	vec[structSliceStart+2] = clamp(float32(lines) / 50.0)
	vec[structSliceStart+3] = clamp(float32(strings.Count(text, "    ")) / 20.0)
	vec[structSliceStart+4] = clamp(float32(strings.Count(text, "{")) / 10.0)
	vec[structSliceStart+5] = clamp(float32(strings.Count(text, "(")) / 20.0)
	vec[structSliceStart+6] = clamp(float32(maxIndentDepth(text)) / 8.0)
}

// vocabularySignature fills the vocabulary slice with normalized term
// frequencies hashed into fixed slots.
func (f *FeatureEmbedder) vocabularySignature(text string, vec []float32) {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int)
	total := 0
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		counts[w]++
		total++
	}
	if total == 0 {
		return
	}

	f.mu.Lock()
	if !f.frozen {
		// Assign slots to unseen terms in sorted order so the mapping is
		// reproducible across runs, not subject to map iteration order.
		var unseen []string
		for w := range counts {
			if _, ok := f.vocab[w]; !ok {
				unseen = append(unseen, w)
			}
		}
		sort.Strings(unseen)
		for _, w := range unseen {
			f.vocab[w] = len(f.vocab)
		}
	}
	slots := make(map[string]int, len(counts))
	for w := range counts {
		if idx, ok := f.vocab[w]; ok {
			slots[w] = vocabSliceStart + idx%vocabSliceWidth
		}
	}
	f.mu.Unlock()

	for w, c := range counts {
		if slot, ok := slots[w]; ok {
			v := clamp(float32(c) / float32(total))
			if v > vec[slot] {
				vec[slot] = v
			}
		}
	}
}

// Freeze stops vocabulary growth. Subsequent embeddings, including query
// embeddings, see a stable term mapping.
func (f *FeatureEmbedder) Freeze() {
	f.mu.Lock()
	f.frozen = true
	f.mu.Unlock()
}

// Unfreeze re-opens the vocabulary for a fresh ingestion pass and clears the
// embedding cache, which is invalidated by vocabulary movement.
func (f *FeatureEmbedder) Unfreeze() {
	f.mu.Lock()
	f.frozen = false
	f.mu.Unlock()
	if f.cache != nil {
		f.cache.Purge()
	}
}

func (f *FeatureEmbedder) isFrozen() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.frozen
}

// VocabSize returns the number of distinct terms seen so far.
func (f *FeatureEmbedder) VocabSize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vocab)
}

// Vocabulary returns a copy of the term mapping for snapshot persistence.
func (f *FeatureEmbedder) Vocabulary() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int, len(f.vocab))
	for k, v := range f.vocab {
		out[k] = v
	}
	return out
}

// SetVocabulary restores a persisted term mapping and freezes it, so that
// queries against a loaded snapshot reproduce the ingest-time embeddings.
func (f *FeatureEmbedder) SetVocabulary(vocab map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vocab = make(map[string]int, len(vocab))
	for k, v := range vocab {
		f.vocab[k] = v
	}
	f.frozen = true
}

// Dimension returns the fixed feature vector size.
func (f *FeatureEmbedder) Dimension() int {
	return FeatureDimension
}

// Capability reports the feature-heuristic tier.
func (f *FeatureEmbedder) Capability() types.BackendCapability {
	return types.CapabilityFeatureHeuristic
}

// Close is a no-op; the feature embedder holds no external resources.
func (f *FeatureEmbedder) Close() error {
	return nil
}

func clamp(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

// maxIndentDepth estimates nesting by the deepest leading whitespace run,
// counting tabs as four spaces.
func maxIndentDepth(text string) int {
	max := 0
	for _, line := range strings.Split(text, "\n") {
		depth := 0
		for _, r := range line {
			if r == ' ' {
				depth++
			} else if r == '\t' {
				depth += 4
			} else {
				break
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth /= 4
		if depth > max {
			max = depth
		}
	}
	return max
}
