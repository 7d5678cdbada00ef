// Package price persists the write-once id to price snapshot used by the price overlay.
package price

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Cache is a write-once id to price snapshot. Callers serialize Save and
// Delete; implementations do not need their own locking.
type Cache interface {
	// Exists reports whether a complete snapshot is present.
	Exists() bool
	Load(ctx context.Context) (map[string]float32, error)
	Save(ctx context.Context, prices map[string]float32) error
	// Delete removes the snapshot. Deleting a missing snapshot is not an error.
	Delete() error
	Close() error
}

// FileCache stores the snapshot as one flat JSON object {"<id>": price}.
type FileCache struct {
	path string
}

// NewFileCache returns a cache backed by the file at path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}

// Exists reports whether the cache file is present.
func (c *FileCache) Exists() bool {
	info, err := os.Stat(c.path)
	return err == nil && !info.IsDir()
}

// Load reads the snapshot.
func (c *FileCache) Load(_ context.Context) (map[string]float32, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read price cache: %w", err)
	}
	var prices map[string]float32
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("decode price cache: %w", err)
	}
	return prices, nil
}

// Save writes the snapshot through a temporary file so a reader never sees a
// partial document.
func (c *FileCache) Save(_ context.Context, prices map[string]float32) error {
	data, err := json.Marshal(prices, json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("encode price cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create price cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write price cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish price cache: %w", err)
	}
	return nil
}

// Delete removes the cache file.
func (c *FileCache) Delete() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete price cache: %w", err)
	}
	return nil
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }
