// Package repository builds and owns the card corpus.
//
// Loading is staged. Each stage fires a one-shot signal once its data is
// final; reading guarded data before its signal fires yields empty results
// and stage methods called out of order fail with a NOT_READY error.
//
//	LoadFile -> Load -> FillLocalizations
//	LoadPrice (may run alongside Load) -> FillPrice (after Load)
//
// After Load completes the corpus is frozen: there is no mutating API, so all
// reads are lock-free.
package repository

import (
	"log/slog"
	"sync"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/intern"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/normalize"
	"github.com/mtgdb/mtgdb-server/internal/price"
	"github.com/mtgdb/mtgdb-server/internal/signal"
	"github.com/mtgdb/mtgdb-server/internal/source"
)

// Options configures where the repository reads its sources.
type Options struct {
	SetsPath       string
	PatchPath      string
	CustomSetsDir  string
	CustomSetCodes []string
	Filter         source.SetFilter

	PriceFeedPath string
	PriceCache    price.Cache // nil disables the price cache

	// OnSetAdded is called after each set is inserted, from the loading goroutine.
	OnSetAdded func(*domain.Set)

	Logger *slog.Logger
}

// Repository is the card corpus.
type Repository struct {
	opts   Options
	logger *slog.Logger
	pool   intern.Pool

	fileLoaded   *signal.Latch
	loaded       *signal.Latch
	localized    *signal.Latch
	pricesLoaded *signal.Latch

	// Inputs, released once consumed.
	bulk       []byte
	customSets []*domain.Set
	patch      *domain.Patch
	meta       source.Meta

	// mu guards the tables below while sets are being inserted.
	mu         sync.Mutex
	sets       []*domain.Set
	setsByCode map[string]*domain.Set
	cards      []*domain.Card
	cardsByID  map[string]*domain.Card

	// Keyed by normalize.Key(NameNormalized).
	cardsByName          map[string][]*domain.Card
	tokensByName         map[string][]*domain.Card
	cardIDsByName        map[string]map[string]struct{}
	tokenIDsByName       map[string]map[string]struct{}
	cardPrintingsByName  map[string][]string
	tokenPrintingsByName map[string][]string

	// priceMu serializes the price cache between the overlay and deletion.
	priceMu      sync.Mutex
	cachedPrices map[string]float32
	rawPrices    map[string]*domain.PriceDetail
}

// New creates an empty repository.
func New(opts Options) *Repository {
	if opts.Filter == nil {
		opts.Filter = source.AllSets
	}
	return &Repository{
		opts:         opts,
		logger:       logger.OrDiscard(opts.Logger),
		fileLoaded:   signal.New("file loaded"),
		loaded:       signal.New("cards loaded"),
		localized:    signal.New("localizations loaded"),
		pricesLoaded: signal.New("prices loaded"),
		setsByCode:   make(map[string]*domain.Set),
		cardsByID:    make(map[string]*domain.Card),
	}
}

// FileLoaded fires when the raw sources are in memory.
func (r *Repository) FileLoaded() signal.Waiter { return r.fileLoaded }

// Loaded fires when every set is processed and cross references are built.
func (r *Repository) Loaded() signal.Waiter { return r.loaded }

// Localized fires when per-language texts are attached to every card.
func (r *Repository) Localized() signal.Waiter { return r.localized }

// PricesLoaded fires when the price overlay is applied.
func (r *Repository) PricesLoaded() signal.Waiter { return r.pricesLoaded }

// IsLoaded reports whether Load completed successfully.
func (r *Repository) IsLoaded() bool { return r.loaded.Succeeded() }

// DatasetVersion returns the bulk dataset build version, empty if unknown.
func (r *Repository) DatasetVersion() string {
	if !r.IsLoaded() {
		return ""
	}
	return r.meta.Version
}

// Sets returns every set in load order.
func (r *Repository) Sets() []*domain.Set {
	if !r.IsLoaded() {
		return nil
	}
	return r.sets
}

// Set returns the set with code, compared case-insensitively.
func (r *Repository) Set(code string) (*domain.Set, bool) {
	if !r.IsLoaded() {
		return nil, false
	}
	s, ok := r.setsByCode[normalize.Key(code)]
	return s, ok
}

// Cards returns every card and token; a card's Ordinal is its index.
func (r *Repository) Cards() []*domain.Card {
	if !r.IsLoaded() {
		return nil
	}
	return r.cards
}

// Card returns the printing with id.
func (r *Repository) Card(id string) (*domain.Card, bool) {
	if !r.IsLoaded() {
		return nil, false
	}
	c, ok := r.cardsByID[id]
	return c, ok
}

// CardByOrdinal returns the printing at position i of Cards.
func (r *Repository) CardByOrdinal(i int) (*domain.Card, bool) {
	if !r.IsLoaded() || i < 0 || i >= len(r.cards) {
		return nil, false
	}
	return r.cards[i], true
}

// Namesakes returns every printing named name, newest first. name is matched
// ignoring case and diacritics.
func (r *Repository) Namesakes(name string, tokens bool) []*domain.Card {
	if !r.IsLoaded() {
		return nil
	}
	if tokens {
		return r.tokensByName[normalize.NameKey(name)]
	}
	return r.cardsByName[normalize.NameKey(name)]
}

// NamesakeIDs returns the ids of every printing named name.
func (r *Repository) NamesakeIDs(name string, tokens bool) map[string]struct{} {
	if !r.IsLoaded() {
		return nil
	}
	if tokens {
		return r.tokenIDsByName[normalize.NameKey(name)]
	}
	return r.cardIDsByName[normalize.NameKey(name)]
}

// Printings returns the distinct set codes containing name, oldest first.
func (r *Repository) Printings(name string, tokens bool) []string {
	if !r.IsLoaded() {
		return nil
	}
	if tokens {
		return r.tokenPrintingsByName[normalize.NameKey(name)]
	}
	return r.cardPrintingsByName[normalize.NameKey(name)]
}

// Names returns the distinct card names (not tokens), newest printing's
// spelling, in corpus order of first appearance.
func (r *Repository) Names() []string {
	if !r.IsLoaded() {
		return nil
	}
	names := make([]string, 0, len(r.cardsByName))
	seen := make(map[string]struct{}, len(r.cardsByName))
	for _, c := range r.cards {
		if c.IsToken {
			continue
		}
		key := normalize.Key(c.NameNormalized)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, r.cardsByName[key][0].NameEn)
	}
	return names
}
