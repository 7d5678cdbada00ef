package repository

import (
	"bufio"
	"context"
	"errors"
	"os"
	"time"

	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
	"github.com/mtgdb/mtgdb-server/internal/source"
)

// LoadPrice reads the price cache when one exists, else the raw price feed.
// It does not touch cards and may run while Load is in progress.
func (r *Repository) LoadPrice(ctx context.Context) error {
	r.priceMu.Lock()
	defer r.priceMu.Unlock()

	if r.pricesLoaded.Fired() {
		return nil
	}
	start := time.Now()

	if cache := r.opts.PriceCache; cache != nil && cache.Exists() {
		cached, err := cache.Load(ctx)
		if err == nil {
			r.cachedPrices, r.rawPrices = cached, nil
			r.logger.Info("price cache read", "prices", len(cached), "took", time.Since(start))
			return nil
		}
		r.logger.Warn("price cache unreadable, falling back to price feed", "error", err)
	}

	if r.opts.PriceFeedPath == "" {
		return nil
	}
	f, err := os.Open(r.opts.PriceFeedPath)
	if errors.Is(err, os.ErrNotExist) {
		r.logger.Info("no price feed", "path", r.opts.PriceFeedPath)
		return nil
	}
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "open price feed")
	}
	defer f.Close()

	raw, err := source.DecodePriceFeed(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return err
	}
	r.cachedPrices, r.rawPrices = nil, raw
	r.logger.Info("price feed read", "prices", len(raw), "took", time.Since(start))
	return nil
}

// FillPrice assigns prices to cards and fires PricesLoaded. Cached prices are
// assigned as bare values; feed entries are assigned as price details looked
// up by upstream id. When the feed was used a cache is written from the cards
// that resolved a price. Both buffers are released. It requires Load.
func (r *Repository) FillPrice(ctx context.Context) error {
	if !r.loaded.Succeeded() {
		return domainerrors.NotReady("cards are not loaded")
	}

	r.priceMu.Lock()
	defer r.priceMu.Unlock()

	if r.pricesLoaded.Fired() {
		return nil
	}

	fromCache := r.cachedPrices != nil
	priced := 0
	for _, c := range r.cards {
		if fromCache {
			if p, ok := r.cachedPrices[c.ID]; ok {
				c.Price = &p
				priced++
			}
			continue
		}
		if d, ok := r.rawPrices[c.MtgjsonID]; ok && d != nil {
			c.Prices = d
			priced++
		}
	}
	hadFeed := r.rawPrices != nil
	r.cachedPrices, r.rawPrices = nil, nil

	r.pricesLoaded.Fire()
	r.logger.Info("prices filled", "cards", priced, "from_cache", fromCache)

	if fromCache || !hadFeed || r.opts.PriceCache == nil {
		return nil
	}

	snapshot := make(map[string]float32, priced)
	for _, c := range r.cards {
		if p, ok := c.CurrentPrice(); ok {
			snapshot[c.ID] = p
		}
	}
	if err := r.opts.PriceCache.Save(ctx, snapshot); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "save price cache")
	}
	r.logger.Info("price cache written", "prices", len(snapshot))
	return nil
}

// DeletePriceCache removes the price cache so the next load reads the feed.
// Failures are logged.
func (r *Repository) DeletePriceCache() {
	if r.opts.PriceCache == nil {
		return
	}

	r.priceMu.Lock()
	defer r.priceMu.Unlock()

	if err := r.opts.PriceCache.Delete(); err != nil {
		r.logger.Error("failed to delete price cache", "error", err)
		return
	}
	r.logger.Info("price cache deleted")
}
