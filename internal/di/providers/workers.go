package providers

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/samber/do/v2"

	"github.com/mtgdb/mtgdb-server/internal/config"
	"github.com/mtgdb/mtgdb-server/internal/loader"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/repository"
	"github.com/mtgdb/mtgdb-server/internal/watcher"
)

// LoaderHandle runs the load pipeline in the background.
type LoaderHandle struct {
	*loader.Loader
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *LoaderHandle) Shutdown() error {
	h.cancel()
	<-h.done
	return nil
}

// Done is closed when the pipeline finished or was cancelled.
func (h *LoaderHandle) Done() <-chan struct{} { return h.done }

// ProvideLoader provides the load pipeline and starts it.
func ProvideLoader(i do.Injector) (*LoaderHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	repo := do.MustInvoke[*repository.Repository](i)
	searcher := do.MustInvoke[*SearcherHandle](i)

	loaderLog := log.Component("loader")
	l := loader.New(repo, searcher.Searcher, func(p loader.Phase) {
		loaderLog.Info("Load phase", "phase", p)
	}, loaderLog)

	ctx, cancel := context.WithCancel(context.Background())
	h := &LoaderHandle{Loader: l, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		result, err := l.Run(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("Card load failed", "error", err)
			}
			return
		}
		log.Info("Card load completed",
			"sets", result.Sets,
			"cards", result.Cards,
			"index_built", result.IndexBuilt,
			"took", result.CompletedAt.Sub(result.StartedAt),
		)
	}()

	return h, nil
}

// DataWatcherHandle wraps the data directory watcher with shutdown capability.
type DataWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Shutdown implements do.Shutdownable.
func (h *DataWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	err := h.Stop()
	h.wg.Wait()
	return err
}

// ProvideDataWatcher provides the source file watcher. Changed sources drop
// the price cache or invalidate the index so the next start reloads them.
func ProvideDataWatcher(i do.Injector) (*DataWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	repo := do.MustInvoke[*repository.Repository](i)
	searcher := do.MustInvoke[*SearcherHandle](i)

	if !cfg.Data.Watch {
		log.Info("Data watcher disabled by configuration")
		return &DataWatcherHandle{}, nil
	}

	watchLog := log.Component("watcher")
	w, err := watcher.New(watchLog, watcher.Options{IgnoreHidden: true})
	if err != nil {
		return nil, err
	}

	paths := []string{cfg.Data.Path}
	if info, err := os.Stat(cfg.Data.CustomSetsDir); err == nil && info.IsDir() {
		paths = append(paths, cfg.Data.CustomSetsDir)
	}
	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			_ = w.Stop()
			return nil, err
		}
		log.Info("Watching data path", "path", p)
	}

	dispatcher := watcher.NewDispatcher(watcher.Targets{
		PriceFeed:     cfg.PriceFeedPath(),
		Dataset:       cfg.SetsPath(),
		Patch:         cfg.PatchPath(),
		CustomSetsDir: cfg.Data.CustomSetsDir,
	}, watcher.Actions{
		DeletePriceCache: repo.DeletePriceCache,
		InvalidateIndex:  searcher.InvalidateIndex,
	}, watchLog)

	ctx, cancel := context.WithCancel(context.Background())
	h := &DataWatcherHandle{Watcher: w, cancel: cancel}

	h.wg.Add(3)
	go func() {
		defer h.wg.Done()
		if err := w.Start(ctx); err != nil {
			log.Error("Data watcher error", "error", err)
		}
	}()
	go func() {
		defer h.wg.Done()
		dispatcher.Run(ctx, w.Events())
	}()
	go func() {
		defer h.wg.Done()
		for {
			select {
			case err := <-w.Errors():
				log.Warn("data watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return h, nil
}
