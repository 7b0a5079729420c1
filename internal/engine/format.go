package engine

import (
	"fmt"
	"strings"

	"github.com/coderag-dev/coderag/pkg/types"
)

const blockSeparator = "\n\n---\n\n"

// FormatContext renders scored records as labeled context blocks suitable
// for inclusion in a model prompt. Zero-relevance records are dropped; no
// relevant records yields "".
func FormatContext(result types.RetrievalResult) string {
	var blocks []string
	for _, sr := range result {
		if sr.Score <= 0 {
			continue
		}
		meta := sr.Record.Meta
		header := fmt.Sprintf("File: %s (%s, chunk %d)\nRelevance: %.3f | Issues: %d | Complexity: %.1f",
			meta.FileName, meta.Language, meta.ChunkIndex,
			sr.Score, meta.IssueCount, meta.ComplexityScore)
		blocks = append(blocks, header+"\n\n"+strings.TrimRight(sr.Record.Chunk.Text, "\n"))
	}
	return strings.Join(blocks, blockSeparator)
}
