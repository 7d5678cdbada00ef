package price

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes.
const (
	pricePrefix = "price:"
	metaPrefix  = "meta:"
)

var completeKey = []byte(metaPrefix + "complete")

// BadgerCache stores one entry per card id and a completion marker written
// after the last entry, so a crash mid-save leaves no visible snapshot.
type BadgerCache struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadgerCache opens (or creates) the cache database at path.
func OpenBadgerCache(path string, logger *slog.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache db: %w", err)
	}
	if logger != nil {
		logger.Info("price cache database opened", "path", path)
	}
	return &BadgerCache{db: db, logger: logger}, nil
}

// OpenBadgerCacheReadOnly opens an existing cache for inspection.
func OpenBadgerCacheReadOnly(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path).WithReadOnly(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache db: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Exists reports whether the completion marker is present.
func (c *BadgerCache) Exists() bool {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(completeKey)
		return err
	})
	return err == nil
}

// Load reads every entry.
func (c *BadgerCache) Load(ctx context.Context) (map[string]float32, error) {
	prices := make(map[string]float32)
	err := c.Each(ctx, func(id string, price float32) error {
		prices[id] = price
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// Each calls fn for every entry in key order.
func (c *BadgerCache) Each(ctx context.Context, fn func(id string, price float32) error) error {
	prefix := []byte(pricePrefix)
	return c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				if len(val) != 4 {
					return fmt.Errorf("price entry %s: want 4 bytes, got %d", id, len(val))
				}
				return fn(id, math.Float32frombits(binary.LittleEndian.Uint32(val)))
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Save writes all entries in one batch, then the completion marker.
func (c *BadgerCache) Save(ctx context.Context, prices map[string]float32) error {
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for id, p := range prices {
		if err := ctx.Err(); err != nil {
			return err
		}
		val := make([]byte, 4)
		binary.LittleEndian.PutUint32(val, math.Float32bits(p))
		if err := wb.Set([]byte(pricePrefix+id), val); err != nil {
			return fmt.Errorf("write price entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush price entries: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(completeKey, []byte{1})
	})
}

// Delete drops every entry and the marker.
func (c *BadgerCache) Delete() error {
	err := c.db.DropPrefix([]byte(metaPrefix), []byte(pricePrefix))
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete price cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *BadgerCache) Close() error {
	if c.logger != nil {
		c.logger.Info("closing price cache database")
	}
	return c.db.Close()
}
