package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	events := make(chan DirEvent, 16)

	w := NewWatcher(dir, AllowOnly("libwifi.so"), quietLogger(), func(e DirEvent) {
		events <- e
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.so"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "libwifi.so"), []byte("x"), 0o644))

	select {
	case e := <-events:
		assert.Equal(t, "libwifi.so", e.File)
		assert.Contains(t, e.Op, "create")
	case <-time.After(5 * time.Second):
		t.Fatal("no event for libwifi.so")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil, quietLogger(), nil)
	err := w.Run(context.Background())
	assert.Error(t, err)
}
