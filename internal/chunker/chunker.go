package chunker

import (
	"strings"

	"github.com/coderag-dev/coderag/pkg/types"
)

const (
	// DefaultChunkSize is the target maximum chunk size in characters.
	DefaultChunkSize = 1200

	// DefaultOverlap is the character overlap shared by adjacent chunks,
	// roughly 15% of the default chunk size.
	DefaultOverlap = 180
)

// Config holds chunker tuning parameters.
type Config struct {
	ChunkSize int // maximum chunk size in characters
	Overlap   int // character overlap between adjacent chunks
}

// DefaultConfig returns the default chunker configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Overlap:   DefaultOverlap,
	}
}

// Chunker splits raw source text into overlapping, structure-aware segments.
// Splitting prefers language-aware structural boundaries; when none is found
// within the configured maximum size it falls back to fixed-size splitting.
// Malformed input never produces an error, only generic chunks.
type Chunker struct {
	config Config
}

// New creates a Chunker with the given configuration. Zero fields take
// defaults; an out-of-range overlap falls back to one eighth of the
// chunk size.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Overlap <= 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = DefaultOverlap
		if cfg.Overlap >= cfg.ChunkSize {
			cfg.Overlap = cfg.ChunkSize / 8
		}
	}
	return &Chunker{config: cfg}
}

// Split divides content into chunks for the given file. Empty content yields
// an empty slice. Content that fits in a single chunk yields exactly one
// chunk with no overlap. The slice is finite and deterministic; calling Split
// again on the same input restarts the sequence from the beginning.
func (c *Chunker) Split(filePath, content string, lang types.Language) []types.CodeChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")

	if len(content) <= c.config.ChunkSize {
		chunk := c.makeChunk(filePath, lang, 0, lines, 0, len(lines)-1, false)
		return []types.CodeChunk{chunk}
	}

	boundaries := structuralBoundaries(lines, lang)

	var chunks []types.CodeChunk
	start := 0
	ordinal := 0

	for start < len(lines) {
		end := c.findCut(lines, start, boundaries)

		chunk := c.makeChunk(filePath, lang, ordinal, lines, start, end, ordinal > 0)
		chunks = append(chunks, chunk)
		ordinal++

		if end >= len(lines)-1 {
			break
		}

		// Step back far enough to cover the configured overlap, but always
		// make forward progress.
		next := end + 1 - c.overlapLines(lines, end)
		if next <= start {
			next = end + 1
		}
		start = next
	}

	return chunks
}

// findCut returns the index of the last line included in a chunk starting at
// start. It prefers cutting just before a structural boundary in the second
// half of the size window; absent one, it cuts at the fixed size limit.
func (c *Chunker) findCut(lines []string, start int, boundaries map[int]bool) int {
	size := 0
	lastBoundary := -1
	half := c.config.ChunkSize / 2

	for i := start; i < len(lines); i++ {
		size += len(lines[i]) + 1
		if size > c.config.ChunkSize && i > start {
			if lastBoundary > start {
				return lastBoundary - 1
			}
			return i - 1
		}
		// A boundary line starts a new structure, so the cut goes before it.
		if boundaries[i] && i > start && size > half {
			lastBoundary = i
		}
	}
	return len(lines) - 1
}

// overlapLines counts how many lines ending at cut are needed to cover the
// configured character overlap.
func (c *Chunker) overlapLines(lines []string, cut int) int {
	if c.config.Overlap == 0 {
		return 0
	}
	chars := 0
	n := 0
	for i := cut; i >= 0 && chars < c.config.Overlap; i-- {
		chars += len(lines[i]) + 1
		n++
	}
	return n
}

func (c *Chunker) makeChunk(filePath string, lang types.Language, ordinal int, lines []string, start, end int, overlap bool) types.CodeChunk {
	text := strings.Join(lines[start:end+1], "\n")
	return types.CodeChunk{
		ID:              types.ChunkID(filePath, ordinal, text),
		SourceFile:      filePath,
		Language:        lang,
		Ordinal:         ordinal,
		StartLine:       start + 1,
		EndLine:         end + 1,
		Text:            text,
		OverlapWithPrev: overlap,
	}
}

// languageBoundaries maps a language to the line prefixes that open a new
// structural unit. Unknown languages fall back to blank-line separation only.
var languageBoundaries = map[types.Language][]string{
	types.LangGo:         {"func ", "type ", "const (", "var ("},
	types.LangPython:     {"def ", "class ", "async def ", "@"},
	types.LangJavaScript: {"function ", "class ", "export ", "const "},
	types.LangTypeScript: {"function ", "class ", "export ", "interface "},
	types.LangRust:       {"fn ", "pub fn ", "struct ", "impl ", "enum "},
	types.LangJava:       {"public ", "private ", "protected ", "class "},
	types.LangC:          {"static ", "struct ", "void ", "int "},
	types.LangCPP:        {"static ", "struct ", "class ", "void ", "template"},
	types.LangRuby:       {"def ", "class ", "module "},
}

// structuralBoundaries marks line indices that begin a structural unit for
// the language. Top-level declarations only: indented definitions stay inside
// their parent chunk.
func structuralBoundaries(lines []string, lang types.Language) map[int]bool {
	prefixes := languageBoundaries[lang]
	boundaries := make(map[int]bool)

	for i, line := range lines {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				boundaries[i] = true
				break
			}
		}
	}

	return boundaries
}
