package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectChanges(t *testing.T, root string) (<-chan []string, func()) {
	t.Helper()
	ch := make(chan []string, 8)
	w, err := NewWatcher(root, DefaultOptions(), func(paths []string) {
		ch <- paths
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	return ch, func() { _ = w.Stop() }
}

func TestWatcher_ReportsWrites(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", []byte("x = 1\n"))

	ch, stop := collectChanges(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 2\n"), 0o644))

	select {
	case paths := <-ch:
		assert.Contains(t, paths, "a.py")
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch within deadline")
	}
}

func TestWatcher_IgnoredPathsNeverSurface(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("*.log\n"))
	writeFile(t, root, "a.py", []byte("x = 1\n"))

	ch, stop := collectChanges(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "noise.log"), []byte("n\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 2\n"), 0o644))

	select {
	case paths := <-ch:
		assert.Contains(t, paths, "a.py")
		assert.NotContains(t, paths, "noise.log")
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch within deadline")
	}
}
