package repository

import (
	"bytes"
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
	"github.com/mtgdb/mtgdb-server/internal/id"
	"github.com/mtgdb/mtgdb-server/internal/normalize"
	"github.com/mtgdb/mtgdb-server/internal/source"
)

// setBuffer bounds how many decoded sets wait for the model builder.
const setBuffer = 4

// LoadFile reads the bulk dataset, the custom sets and the patch into memory
// and fires FileLoaded. Any failure is fatal for the load.
func (r *Repository) LoadFile() error {
	if r.fileLoaded.Fired() {
		return r.fileLoaded.Err()
	}
	err := r.loadFile()
	r.fileLoaded.Fail(err)
	return err
}

func (r *Repository) loadFile() error {
	start := time.Now()

	bulk, err := source.ReadFile(r.opts.SetsPath)
	if err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeInvalidData, "read dataset %s", r.opts.SetsPath)
	}

	custom, err := source.ReadCustomSets(r.opts.CustomSetsDir, r.opts.CustomSetCodes, r.opts.Filter)
	if err != nil {
		return err
	}

	patch, err := source.ReadPatch(r.opts.PatchPath)
	if err != nil {
		return err
	}

	r.bulk, r.customSets, r.patch = bulk, custom, patch
	r.logger.Info("dataset files read",
		"bytes", len(bulk),
		"custom_sets", len(custom),
		"patched_cards", len(patch.Cards),
		"took", time.Since(start))
	return nil
}

// Load streams the sets into the model, builds the name indexes, applies the
// legality patch and fires Loaded. It requires LoadFile.
func (r *Repository) Load(ctx context.Context) error {
	if !r.fileLoaded.Succeeded() {
		return domainerrors.NotReady("dataset files are not loaded")
	}
	if r.loaded.Fired() {
		return r.loaded.Err()
	}

	err := r.load(ctx)
	if err != nil {
		r.logger.Error("card load failed", "error", err)
	}
	r.loaded.Fail(err)
	return err
}

func (r *Repository) load(ctx context.Context) error {
	start := time.Now()
	keep := source.Except(r.opts.Filter, r.opts.CustomSetCodes...)

	sets := make(chan *domain.Set, setBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(sets)
		send := func(s *domain.Set) error {
			select {
			case sets <- s:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		meta, err := source.DecodeSets(gctx, bytes.NewReader(r.bulk), keep, send)
		if err != nil {
			return err
		}
		r.meta = meta

		for _, s := range r.customSets {
			if err := send(s); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		for set := range sets {
			r.processSet(set)
			if err := r.addSet(set); err != nil {
				return err
			}
			if r.opts.OnSetAdded != nil {
				r.opts.OnSetAdded(set)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	r.bulk, r.customSets = nil, nil

	r.buildNameIndexes()
	r.resolveCrossReferences()
	r.patchLegality()
	r.patch = nil

	r.logger.Info("cards loaded",
		"sets", len(r.sets),
		"cards", len(r.cards),
		"dataset_version", r.meta.Version,
		"took", time.Since(start))
	return nil
}

// processSet normalizes every card and token of set. Cards are visited back
// to front so removing one does not shift the ones not yet visited.
func (r *Repository) processSet(set *domain.Set) {
	set.Code = r.pool.String(set.Code)

	for i := len(set.ActualCards) - 1; i >= 0; i-- {
		c := set.ActualCards[i]
		r.prepareIdentity(c, set, false)
		r.preProcessCard(c)
		r.preProcessCardOrToken(c)
		if c.Remove {
			set.ActualCards = slices.Delete(set.ActualCards, i, i+1)
		}
	}

	for i := len(set.Tokens) - 1; i >= 0; i-- {
		c := set.Tokens[i]
		r.prepareIdentity(c, set, true)
		r.preProcessToken(c)
		r.preProcessCardOrToken(c)
		if c.Remove {
			set.Tokens = slices.Delete(set.Tokens, i, i+1)
		}
	}

	assignTokenLegality(set)

	set.Cards = make([]*domain.Card, 0, len(set.ActualCards)+len(set.Tokens))
	set.Cards = append(set.Cards, set.ActualCards...)
	set.Cards = append(set.Cards, set.Tokens...)
	set.ActualCardsByName = groupByKey(set.ActualCards)
	set.TokensByName = groupByKey(set.Tokens)
}

// prepareIdentity settles the display name and the stable id. The id is
// derived before patches so corrections never change it.
func (r *Repository) prepareIdentity(c *domain.Card, set *domain.Set, token bool) {
	if c.SetCode == "" {
		c.SetCode = set.Code
	}
	c.SetCode = r.pool.String(c.SetCode)
	c.ReleaseDate = r.pool.String(set.ReleaseDate)
	c.IsToken = token
	if c.FaceName != "" {
		c.NameEn = c.FaceName
	}
	c.ID = r.pool.String(id.Printing(identity(c), 0))
}

func identity(c *domain.Card) id.Fields {
	return id.Fields{
		SetCode:  c.SetCode,
		Upstream: c.MtgjsonID,
		Number:   c.Number,
		Name:     c.NameEn,
		FaceName: c.FaceName,
		Token:    c.IsToken,
	}
}

// addSet appends set and its cards to the corpus tables as one unit relative
// to other inserts. Ids that collide are re-derived with a salt.
func (r *Repository) addSet(set *domain.Set) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize.Key(set.Code)
	if _, dup := r.setsByCode[key]; dup {
		return domainerrors.InvalidDataf(nil, "duplicate set code %s", set.Code)
	}
	r.setsByCode[key] = set
	r.sets = append(r.sets, set)

	for _, c := range set.Cards {
		for salt := 1; ; salt++ {
			if _, taken := r.cardsByID[c.ID]; !taken {
				break
			}
			c.ID = r.pool.String(id.Printing(identity(c), salt))
		}
		r.cardsByID[c.ID] = c
		r.cards = append(r.cards, c)
	}
	return nil
}

func groupByKey(cards []*domain.Card) map[string][]*domain.Card {
	m := make(map[string][]*domain.Card, len(cards))
	for _, c := range cards {
		key := normalize.Key(c.NameNormalized)
		m[key] = append(m[key], c)
	}
	return m
}
