// Package di provides dependency injection configuration for the mtgdb server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/mtgdb/mtgdb-server/internal/config"
	"github.com/mtgdb/mtgdb-server/internal/di/providers"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/repository"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Card model
	do.Provide(injector, providers.ProvidePriceCache)
	do.Provide(injector, providers.ProvideRepository)

	// Search layer
	do.Provide(injector, providers.ProvideSearcher)

	// Workers
	do.Provide(injector, providers.ProvideLoader)
	do.Provide(injector, providers.ProvideDataWatcher)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once they are started.
// The load pipeline keeps running in the background; the server answers
// with empty results until it completes.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.PriceCacheHandle](injector)
	_ = do.MustInvoke[*repository.Repository](injector)
	_ = do.MustInvoke[*providers.SearcherHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.LoaderHandle](injector)
	_ = do.MustInvoke[*providers.DataWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
