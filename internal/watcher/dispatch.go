package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mtgdb/mtgdb-server/internal/logger"
)

// Targets names the source files whose changes matter.
type Targets struct {
	PriceFeed     string
	Dataset       string
	Patch         string
	CustomSetsDir string
}

// Actions are the cache busts a source change triggers. Either may be nil.
type Actions struct {
	DeletePriceCache func()
	InvalidateIndex  func() error
}

// Dispatcher maps settled events to actions. A changed price feed deletes
// the price cache; a changed dataset, patch or custom set file invalidates
// the search index. Both take effect on the next load.
type Dispatcher struct {
	targets Targets
	actions Actions
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(targets Targets, actions Actions, log *slog.Logger) *Dispatcher {
	clean := func(p string) string {
		if p == "" {
			return ""
		}
		return filepath.Clean(p)
	}
	return &Dispatcher{
		targets: Targets{
			PriceFeed:     clean(targets.PriceFeed),
			Dataset:       clean(targets.Dataset),
			Patch:         clean(targets.Patch),
			CustomSetsDir: clean(targets.CustomSetsDir),
		},
		actions: actions,
		logger:  logger.OrDiscard(log),
	}
}

// Run handles events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			d.handleEvent(ev)
		}
	}
}

func (d *Dispatcher) handleEvent(ev Event) {
	if ev.Type != EventChanged {
		return
	}
	path := filepath.Clean(ev.Path)

	switch {
	case d.targets.PriceFeed != "" && path == d.targets.PriceFeed:
		d.logger.Info("price feed changed", "path", path)
		if d.actions.DeletePriceCache != nil {
			d.actions.DeletePriceCache()
		}
	case d.isIndexSource(path):
		d.logger.Info("card source changed", "path", path)
		if d.actions.InvalidateIndex == nil {
			return
		}
		if err := d.actions.InvalidateIndex(); err != nil {
			d.logger.Error("failed to invalidate search index", "path", path, "error", err)
		}
	}
}

func (d *Dispatcher) isIndexSource(path string) bool {
	if d.targets.Dataset != "" && path == d.targets.Dataset {
		return true
	}
	if d.targets.Patch != "" && path == d.targets.Patch {
		return true
	}
	return d.targets.CustomSetsDir != "" &&
		filepath.Dir(path) == d.targets.CustomSetsDir &&
		strings.EqualFold(filepath.Ext(path), ".json")
}
