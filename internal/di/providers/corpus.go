package providers

import (
	"github.com/samber/do/v2"

	"github.com/mtgdb/mtgdb-server/internal/config"
	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/price"
	"github.com/mtgdb/mtgdb-server/internal/repository"
	"github.com/mtgdb/mtgdb-server/internal/source"
)

// PriceCacheHandle wraps the configured price cache with shutdown capability.
type PriceCacheHandle struct {
	price.Cache
}

// Shutdown implements do.Shutdownable.
func (h *PriceCacheHandle) Shutdown() error {
	return h.Close()
}

// ProvidePriceCache provides the price snapshot store selected by
// PRICE_CACHE_BACKEND.
func ProvidePriceCache(i do.Injector) (*PriceCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Price.CacheBackend == "badger" {
		cache, err := price.OpenBadgerCache(cfg.Price.CachePath, log.Component("price"))
		if err != nil {
			return nil, err
		}
		return &PriceCacheHandle{Cache: cache}, nil
	}

	log.Debug("Using file price cache", "path", cfg.Price.CachePath)
	return &PriceCacheHandle{Cache: price.NewFileCache(cfg.Price.CachePath)}, nil
}

// ProvideRepository provides the card corpus. Loading is driven by the loader.
func ProvideRepository(i do.Injector) (*repository.Repository, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*PriceCacheHandle](i)

	repoLog := log.Component("repository")
	return repository.New(repository.Options{
		SetsPath:       cfg.SetsPath(),
		PatchPath:      cfg.PatchPath(),
		CustomSetsDir:  cfg.Data.CustomSetsDir,
		CustomSetCodes: cfg.Data.CustomSetCodes,
		Filter:         source.OnlySets(cfg.Data.SetFilter...),
		PriceFeedPath:  cfg.PriceFeedPath(),
		PriceCache:     cache.Cache,
		OnSetAdded: func(set *domain.Set) {
			repoLog.Debug("Set added", "set", set.Code, "cards", len(set.Cards))
		},
		Logger: repoLog,
	}), nil
}
