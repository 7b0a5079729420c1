package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag-dev/coderag/pkg/types"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func paths(files []types.SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestDiscover_FindsSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", []byte("def main():\n    pass\n"))
	writeFile(t, root, "lib/util.go", []byte("package lib\n"))

	files, err := Discover(root, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.ElementsMatch(t, []string{"main.py", "lib/util.go"}, paths(files))

	for _, f := range files {
		switch f.Path {
		case "main.py":
			assert.Equal(t, types.LangPython, f.Language)
		case "lib/util.go":
			assert.Equal(t, types.LangGo, f.Language)
		}
		assert.NotEmpty(t, f.Content)
		assert.False(t, f.ModTime.IsZero())
	}
}

func TestDiscover_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("build/\n*.log\n"))
	writeFile(t, root, "app.py", []byte("x = 1\n"))
	writeFile(t, root, "build/out.py", []byte("generated\n"))
	writeFile(t, root, "debug.log", []byte("noise\n"))

	files, err := Discover(root, DefaultOptions())
	require.NoError(t, err)

	got := paths(files)
	assert.Contains(t, got, "app.py")
	assert.NotContains(t, got, "build/out.py")
	assert.NotContains(t, got, "debug.log")
}

func TestDiscover_SkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.py", []byte("x = 1\n"))
	writeFile(t, root, "blob.bin", []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01})

	big := make([]byte, 64)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, root, "big.py", big)

	opts := DefaultOptions()
	opts.MaxFileSize = 32
	files, err := Discover(root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.py"}, paths(files))
}

func TestDiscover_SkipsDotGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/config", []byte("[core]\n"))
	writeFile(t, root, "a.py", []byte("x = 1\n"))

	files, err := Discover(root, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, paths(files))
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), DefaultOptions())
	assert.Error(t, err)
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text\n")))
	assert.False(t, isBinary(nil))
	assert.True(t, isBinary([]byte{'a', 0x00, 'b'}))
}
