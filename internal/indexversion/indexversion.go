// Package indexversion manages version-tagged index directories.
//
// Each index lives under <parent>/<tag>. A build goes into <parent>/<tag>.staging
// and is promoted by writing a completion marker into staging and renaming it
// over the current directory, so a reader never opens a half-written index.
package indexversion

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtgdb/mtgdb-server/internal/logger"
)

const (
	markerFile    = "index.complete"
	stagingSuffix = ".staging"
)

// Version is one tagged index directory under a parent directory.
type Version struct {
	parent string
	tag    string
	logger *slog.Logger
}

// New returns the version tagged tag under parent. The tag is sanitized to a
// single path element.
func New(parent, tag string, log *slog.Logger) *Version {
	return &Version{
		parent: parent,
		tag:    Sanitize(tag),
		logger: logger.OrDiscard(log),
	}
}

// Tag joins the builder version and the dataset version into a directory tag.
func Tag(builder, dataset string) string {
	if dataset == "" {
		return Sanitize(builder)
	}
	return Sanitize(builder + "_" + dataset)
}

// Sanitize replaces every character outside [A-Za-z0-9._-] with '_'.
func Sanitize(tag string) string {
	tag = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, tag)
	if tag == "" || strings.Trim(tag, ".") == "" {
		return "_"
	}
	return tag
}

// Tag returns the sanitized version tag.
func (v *Version) Tag() string { return v.tag }

// Parent returns the directory holding every version.
func (v *Version) Parent() string { return v.parent }

// Directory is the current index directory.
func (v *Version) Directory() string { return filepath.Join(v.parent, v.tag) }

// StagingDirectory is where a rebuild is written before promotion.
func (v *Version) StagingDirectory() string { return v.Directory() + stagingSuffix }

// IsUpToDate reports whether the current directory holds a completed index.
func (v *Version) IsUpToDate() bool {
	info, err := os.Stat(filepath.Join(v.Directory(), markerFile))
	return err == nil && info.Mode().IsRegular()
}

// RemoveObsoleteIndexes deletes every directory under parent other than the
// current one, including leftover staging directories. Failures are logged.
func (v *Version) RemoveObsoleteIndexes() {
	entries, err := os.ReadDir(v.parent)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			v.logger.Warn("failed to list index directories", "path", v.parent, "error", err)
		}
		return
	}

	for _, e := range entries {
		if !e.IsDir() || e.Name() == v.tag {
			continue
		}
		path := filepath.Join(v.parent, e.Name())
		if err := os.RemoveAll(path); err != nil {
			v.logger.Warn("failed to remove obsolete index", "path", path, "error", err)
			continue
		}
		v.logger.Info("removed obsolete index", "path", path)
	}
}

// CreateDirectory empties and creates the staging directory and returns it.
func (v *Version) CreateDirectory() (string, error) {
	dir := v.StagingDirectory()
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	return dir, nil
}

// SetIsUpToDate marks the staged index complete and promotes it to current.
// It must only be called after a full successful build with every writer
// closed.
func (v *Version) SetIsUpToDate() error {
	staging := v.StagingDirectory()
	if _, err := os.Stat(staging); err != nil {
		return fmt.Errorf("no staged index: %w", err)
	}

	if err := writeMarker(filepath.Join(staging, markerFile), v.tag); err != nil {
		return err
	}

	current := v.Directory()
	if err := os.RemoveAll(current); err != nil {
		return fmt.Errorf("remove previous index: %w", err)
	}
	if err := os.Rename(staging, current); err != nil {
		return fmt.Errorf("promote index: %w", err)
	}
	v.logger.Info("index promoted", "path", current, "tag", v.tag)
	return nil
}

// Invalidate removes the completion marker so the next build-or-load rebuilds.
func (v *Version) Invalidate() error {
	err := os.Remove(filepath.Join(v.Directory(), markerFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("invalidate index: %w", err)
	}
	v.logger.Info("index invalidated", "path", v.Directory())
	return nil
}

// Abandon removes the staging directory after a failed or cancelled build.
func (v *Version) Abandon() {
	if err := os.RemoveAll(v.StagingDirectory()); err != nil {
		v.logger.Warn("failed to remove staging index", "path", v.StagingDirectory(), "error", err)
	}
}

func writeMarker(path, tag string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write index marker: %w", err)
	}
	if _, err := f.WriteString(tag + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("write index marker: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync index marker: %w", err)
	}
	return f.Close()
}
