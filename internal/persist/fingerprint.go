package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// FileState identifies one corpus file's content at a point in time.
type FileState struct {
	Path        string
	ContentHash [32]byte
	ModTime     time.Time
}

// StateOf computes the file state for in-memory content.
func StateOf(path string, content []byte, modTime time.Time) FileState {
	return FileState{
		Path:        path,
		ContentHash: sha256.Sum256(content),
		ModTime:     modTime,
	}
}

// Fingerprint derives a corpus fingerprint from the set of file states.
// Ordering of the input does not matter; any change to a file's path,
// content hash, or modification time changes the fingerprint, while
// unrelated files leave it untouched only if the whole set is unchanged.
func Fingerprint(states []FileState) string {
	sorted := make([]FileState, len(states))
	copy(sorted, states)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, s := range sorted {
		fmt.Fprintf(h, "%s\x00%x\x00%d\x00", s.Path, s.ContentHash, s.ModTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
