package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// FingerprintPrefixLen is the number of leading characters of chunk text
// that participate in the chunk ID fingerprint.
const FingerprintPrefixLen = 64

// CodeChunk represents a bounded, contiguous slice of a source file used as
// the retrieval unit. Chunks are immutable once created.
type CodeChunk struct {
	// ID is a content fingerprint derived from the source file path, the
	// chunk ordinal, and a prefix of the chunk text. It is stable across
	// repeated runs on unchanged input.
	ID string

	SourceFile string
	Language   Language

	// Ordinal is the zero-based position of the chunk within its file.
	Ordinal int

	StartLine int // 1-indexed
	EndLine   int // 1-indexed, inclusive

	Text string

	// OverlapWithPrev is true for every chunk after the first in a file,
	// whose leading characters repeat the tail of the previous chunk.
	OverlapWithPrev bool
}

// ChunkID computes the content fingerprint for a chunk.
func ChunkID(sourceFile string, ordinal int, text string) string {
	prefix := text
	if len(prefix) > FingerprintPrefixLen {
		prefix = prefix[:FingerprintPrefixLen]
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", sourceFile, ordinal, prefix)))
	return hex.EncodeToString(h[:16])
}

// Validate checks the chunk's structural invariants.
func (c *CodeChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk id cannot be empty")
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	return nil
}
