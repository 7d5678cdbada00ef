// Package loader runs the staged startup pipeline: card loading and price
// reading in parallel, then localization, the price overlay and finally the
// search index build-or-load.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/logger"
)

// Corpus is the card model being loaded.
type Corpus interface {
	LoadFile() error
	Load(ctx context.Context) error
	LoadPrice(ctx context.Context) error
	FillLocalizations() error
	FillPrice(ctx context.Context) error
	Sets() []*domain.Set
	Cards() []*domain.Card
}

// Index builds or opens the search index once the corpus is localized.
type Index interface {
	LoadIndex(ctx context.Context) (built bool, err error)
}

// Phase names a pipeline stage.
type Phase string

// Pipeline phases, in order.
const (
	PhaseIdle          Phase = "idle"
	PhaseCards         Phase = "cards"
	PhaseLocalizations Phase = "localizations"
	PhasePrices        Phase = "prices"
	PhaseIndex         Phase = "index"
	PhaseComplete      Phase = "complete"
	PhaseFailed        Phase = "failed"
)

// Result summarizes a pipeline run.
type Result struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Sets        int
	Cards       int

	// PriceErr and IndexErr record failures of the optional stages.
	PriceErr   error
	IndexBuilt bool
	IndexErr   error
}

// Loader orchestrates one corpus and its index.
type Loader struct {
	corpus  Corpus
	index   Index
	logger  *slog.Logger
	onPhase func(Phase)

	mu    sync.RWMutex
	phase Phase
}

// New creates a loader. index may be nil, in which case the pipeline ends
// after the price overlay. onPhase, if set, is called synchronously on every
// phase change.
func New(corpus Corpus, index Index, onPhase func(Phase), log *slog.Logger) *Loader {
	return &Loader{
		corpus:  corpus,
		index:   index,
		logger:  logger.OrDiscard(log),
		onPhase: onPhase,
		phase:   PhaseIdle,
	}
}

// Phase returns the current phase.
func (l *Loader) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

func (l *Loader) setPhase(p Phase) {
	l.mu.Lock()
	l.phase = p
	l.mu.Unlock()
	if l.onPhase != nil {
		l.onPhase(p)
	}
}

// Run executes the pipeline. Card loading and localization failures abort
// the run; price and index failures are logged and reported in the result.
func (l *Loader) Run(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: time.Now()}

	res, err := l.run(ctx, result)
	if err != nil {
		l.setPhase(PhaseFailed)
		l.logger.Error("load failed", "error", err, "duration", time.Since(result.StartedAt))
		return nil, err
	}
	return res, nil
}

func (l *Loader) run(ctx context.Context, result *Result) (*Result, error) {
	l.setPhase(PhaseCards)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := l.corpus.LoadFile(); err != nil {
			return err
		}
		return l.corpus.Load(gctx)
	})
	g.Go(func() error {
		if err := l.corpus.LoadPrice(gctx); err != nil {
			result.PriceErr = err
			l.logger.Warn("price read failed", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	result.Sets = len(l.corpus.Sets())
	result.Cards = len(l.corpus.Cards())

	l.setPhase(PhaseLocalizations)
	if err := l.corpus.FillLocalizations(); err != nil {
		return nil, fmt.Errorf("load localizations: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.setPhase(PhasePrices)
	if result.PriceErr == nil {
		if err := l.corpus.FillPrice(ctx); err != nil {
			result.PriceErr = err
			l.logger.Warn("price overlay failed", "error", err)
		}
	}

	if l.index != nil {
		l.setPhase(PhaseIndex)
		built, err := l.index.LoadIndex(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.IndexErr = err
			l.logger.Error("search index unavailable", "error", err)
		}
		result.IndexBuilt = built
	}

	result.CompletedAt = time.Now()
	l.setPhase(PhaseComplete)
	l.logger.Info("load complete",
		"duration", result.CompletedAt.Sub(result.StartedAt),
		"sets", result.Sets,
		"cards", result.Cards,
		"index_built", result.IndexBuilt,
	)
	return result, nil
}

// ReloadIndex re-runs the index build-or-load, for example after the index
// was invalidated.
func (l *Loader) ReloadIndex(ctx context.Context) (bool, error) {
	if l.index == nil {
		return false, nil
	}
	built, err := l.index.LoadIndex(ctx)
	if err != nil {
		return false, fmt.Errorf("reload index: %w", err)
	}
	l.logger.Info("search index reloaded", "built", built)
	return built, nil
}
