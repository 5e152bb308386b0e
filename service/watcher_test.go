package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/domain"
)

func TestSourceWatcher_ReportsPythonChanges(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n", "pkg/b.py": "y = 1\n"})

	sw, err := NewSourceWatcher([]string{root}, true)
	require.NoError(t, err)
	defer sw.Close()
	sw.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan domain.ChangeSet, 4)
	done := make(chan error, 1)
	go func() {
		done <- sw.Run(ctx, func(_ context.Context, cs domain.ChangeSet) error {
			batches <- cs
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "b.py"), []byte("y = 2\n"), 0o644))

	select {
	case cs := <-batches:
		assert.Equal(t, []string{filepath.Join(root, "pkg", "b.py")}, cs.Changed)
		assert.Empty(t, cs.Removed)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	require.NoError(t, os.Remove(filepath.Join(root, "a.py")))
	select {
	case cs := <-batches:
		assert.Equal(t, []string{filepath.Join(root, "a.py")}, cs.Removed)
	case <-ctx.Done():
		t.Fatal("no removal reported")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSourceWatcher_Record(t *testing.T) {
	sw := &SourceWatcher{}
	changed := map[string]bool{}
	removed := map[string]bool{}

	assert.True(t, sw.record(fsnotify.Event{Name: "/p/a.py", Op: fsnotify.Write}, changed, removed))
	assert.False(t, sw.record(fsnotify.Event{Name: "/p/a.txt", Op: fsnotify.Write}, changed, removed))
	assert.False(t, sw.record(fsnotify.Event{Name: "/p/.a.py.123", Op: fsnotify.Create}, changed, removed))
	assert.False(t, sw.record(fsnotify.Event{Name: "/p/a.py", Op: fsnotify.Chmod}, changed, removed))
	assert.Equal(t, []string{"/p/a.py"}, sortedSet(changed))

	assert.True(t, sw.record(fsnotify.Event{Name: "/p/a.py", Op: fsnotify.Remove}, changed, removed))
	assert.Empty(t, changed)
	assert.Equal(t, []string{"/p/a.py"}, sortedSet(removed))

	assert.True(t, sw.record(fsnotify.Event{Name: "/p/a.py", Op: fsnotify.Create}, changed, removed))
	assert.Empty(t, removed)
}

func TestNewSourceWatcher_MissingPath(t *testing.T) {
	_, err := NewSourceWatcher([]string{filepath.Join(t.TempDir(), "missing")}, true)
	assert.Error(t, err)
}
