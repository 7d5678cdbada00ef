package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/mtgdb/mtgdb-server/internal/api"
	"github.com/mtgdb/mtgdb-server/internal/config"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/ratelimit"
	"github.com/mtgdb/mtgdb-server/internal/repository"
)

// RateLimiterHandle wraps the per-client search limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter != nil {
		h.Stop()
	}
	return nil
}

// ProvideRateLimiter provides the search rate limiter. A non-positive rate
// disables limiting.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Server.SearchRatePerMin <= 0 {
		return &RateLimiterHandle{}, nil
	}
	return &RateLimiterHandle{
		KeyedRateLimiter: ratelimit.NewPerMinute(cfg.Server.SearchRatePerMin, cfg.Server.SearchRateBurst, 0),
	}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.api.Shutdown()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	repo := do.MustInvoke[*repository.Repository](i)
	searcher := do.MustInvoke[*SearcherHandle](i)
	loaderHandle := do.MustInvoke[*LoaderHandle](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)

	handler := api.NewServer(api.Deps{
		Corpus:   repo,
		Searcher: searcher.Searcher,
		Reloader: loaderHandle.Loader,
		Limiter:  limiter.KeyedRateLimiter,
	}, api.Options{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:             log.Component("api"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
