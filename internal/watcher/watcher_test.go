package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "changed", EventChanged.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(9).String())
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.True(t, opts.IgnoreHidden)
	assert.Equal(t, 2*time.Second, opts.SettleDelay)
	assert.Contains(t, opts.IgnorePatterns, "*.tmp")
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{IgnoreHidden: true, IgnorePatterns: []string{"*.tmp"}}
	opts.setDefaults()

	tests := []struct {
		path   string
		expect bool
	}{
		{"/data/.AllPrintings.json.swp", true},
		{"/data/AllPrices.json.tmp", true},
		{"/data/AllPrintings.json", false},
		{"/data/custom_sets/CUS.json", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expect, opts.shouldIgnore(tt.path))
		})
	}
}

func TestWatcher_SettledWrite(t *testing.T) {
	w, err := New(nil, Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	dir := t.TempDir()
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx) //nolint:errcheck // Test goroutine

	path := filepath.Join(dir, "AllPrices.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":{}}`), 0o644))

	select {
	case ev := <-w.Events():
		assert.Equal(t, EventChanged, ev.Type)
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, int64(11), ev.Size)
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestWatcher_IgnoredFile(t *testing.T) {
	w, err := New(nil, Options{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	dir := t.TempDir()
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx) //nolint:errcheck // Test goroutine

	require.NoError(t, os.WriteFile(filepath.Join(dir, "download.tmp"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_WatchMissingPath(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}
