package types

import "time"

// SourceFile is one file of the corpus as handed to ingestion: the path it
// will be reported under, its full content, and the modification time that
// feeds the corpus fingerprint.
type SourceFile struct {
	Path     string
	Content  []byte
	ModTime  time.Time
	Language Language
}
