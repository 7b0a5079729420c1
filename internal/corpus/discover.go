package corpus

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/coderag-dev/coderag/pkg/types"
)

// Options controls corpus discovery.
type Options struct {
	// MaxFileSize caps the size of files picked up, in bytes.
	MaxFileSize int64

	// IgnorePatterns are gitignore-style patterns applied on top of the
	// repository's own .gitignore and .coderagignore files.
	IgnorePatterns []string
}

// DefaultOptions returns the discovery defaults.
func DefaultOptions() Options {
	return Options{
		MaxFileSize: 1024 * 1024, // 1MB
		IgnorePatterns: []string{
			".git/",
			".coderag/",
			"node_modules/",
			"vendor/",
			"__pycache__/",
			"*.min.js",
			"*.min.css",
			"*.lock",
			"go.sum",
			"package-lock.json",
		},
	}
}

// Discover walks root and returns every indexable file: text, under the
// size cap, and not excluded by ignore rules. Paths in the result are
// relative to root with forward slashes, so fingerprints are stable across
// machines.
func Discover(root string, opts Options) ([]types.SourceFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	matcher := buildIgnoreMatcher(absRoot, opts.IgnorePatterns)

	var files []types.SourceFile
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		relPath, err := filepath.Rel(absRoot, p)
		if err != nil {
			relPath = p
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		if matcher.MatchesPath(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > opts.MaxFileSize {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if isBinary(content) {
			return nil
		}

		files = append(files, types.SourceFile{
			Path:     relPath,
			Content:  content,
			ModTime:  info.ModTime(),
			Language: types.DetectLanguage(relPath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

// buildIgnoreMatcher combines configured patterns with the repository's
// .gitignore and .coderagignore, when present.
func buildIgnoreMatcher(absRoot string, extra []string) *gitignore.GitIgnore {
	patterns := make([]string, len(extra))
	copy(patterns, extra)

	for _, name := range []string{".gitignore", ".coderagignore"} {
		content, err := os.ReadFile(filepath.Join(absRoot, name))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				patterns = append(patterns, line)
			}
		}
	}

	return gitignore.CompileIgnoreLines(patterns...)
}

// isBinary reports whether content looks like binary data: a NUL byte in
// the leading window.
func isBinary(content []byte) bool {
	window := content
	if len(window) > 8000 {
		window = window[:8000]
	}
	return bytes.IndexByte(window, 0) != -1
}
