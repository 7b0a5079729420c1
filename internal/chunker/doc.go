// Package chunker splits raw source text into overlapping, structure-aware
// segments that serve as retrieval units.
//
// # Splitting Policy
//
// The chunker first looks for language-aware structural boundaries (function,
// class, and block openers at the top level). When no boundary falls inside
// the configured maximum chunk size, it cuts at the size limit instead.
// Adjacent chunks share a configurable character overlap so that context is
// preserved across cut points; every chunk after the first in a file is
// flagged OverlapWithPrev.
//
// # Edge Cases
//
//	chunker.New(chunker.DefaultConfig()).Split("a.py", "", types.LangPython)
//	// -> nil (empty content is not an error)
//
// Content shorter than one chunk yields exactly one chunk with no overlap.
// Unparseable or unfamiliar structure silently degrades to fixed-size
// splitting; Split never fails.
package chunker
