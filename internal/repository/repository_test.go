package repository

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
	"github.com/mtgdb/mtgdb-server/internal/price"
	"github.com/mtgdb/mtgdb-server/internal/source"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		SetsPath:       filepath.Join("testdata", "AllPrintings.json"),
		PatchPath:      filepath.Join("testdata", "patch.v2.json"),
		CustomSetsDir:  filepath.Join("testdata", "custom_sets"),
		CustomSetCodes: []string{"CUS"},
		PriceFeedPath:  filepath.Join("testdata", "AllPrices.json"),
		PriceCache:     price.NewFileCache(filepath.Join(t.TempDir(), "AllPrices.cache.json")),
	}
}

func load(t *testing.T, opts Options) *Repository {
	t.Helper()
	r := New(opts)
	require.NoError(t, r.LoadFile())
	require.NoError(t, r.Load(context.Background()))
	return r
}

func cardByUUID(t *testing.T, r *Repository, uuid string) *domain.Card {
	t.Helper()
	for _, c := range r.Cards() {
		if c.MtgjsonID == uuid {
			return c
		}
	}
	t.Fatalf("card %s not loaded", uuid)
	return nil
}

func TestLoad_SetsInDocumentOrderWithCustomSetsLast(t *testing.T) {
	r := load(t, testOptions(t))

	var codes []string
	for _, s := range r.Sets() {
		codes = append(codes, s.Code)
	}
	assert.Equal(t, []string{"LEA", "ARN", "HOP", "UNH", "TSB", "M10", "M11", "CUS"}, codes)

	cus, ok := r.Set("cus")
	require.True(t, ok)
	assert.Equal(t, "Custom Cube", cus.Name)
	assert.Empty(t, r.Namesakes("Should Not Load", false))
	assert.Equal(t, "5.2.2+20240101", r.DatasetVersion())
}

func TestLoad_IDsUniqueAndStable(t *testing.T) {
	first := load(t, testOptions(t))
	second := load(t, testOptions(t))

	seen := make(map[string]struct{})
	for _, c := range first.Cards() {
		_, dup := seen[c.ID]
		require.False(t, dup, "duplicate id %s for %s", c.ID, c.NameEn)
		seen[c.ID] = struct{}{}

		got, ok := first.Card(c.ID)
		require.True(t, ok)
		assert.Same(t, c, got)
	}

	for i, c := range second.Cards() {
		assert.Equal(t, first.Cards()[i].ID, c.ID)
	}
}

func TestLoad_OrdinalsMatchPositions(t *testing.T) {
	r := load(t, testOptions(t))
	for i, c := range r.Cards() {
		assert.Equal(t, i, c.Ordinal)
		got, ok := r.CardByOrdinal(i)
		require.True(t, ok)
		assert.Same(t, c, got)
	}
	_, ok := r.CardByOrdinal(len(r.Cards()))
	assert.False(t, ok)
}

func TestLoad_SetFilter(t *testing.T) {
	opts := testOptions(t)
	opts.Filter = source.OnlySets("m10")
	r := load(t, opts)

	require.Len(t, r.Sets(), 1)
	assert.Equal(t, "M10", r.Sets()[0].Code)
	for _, c := range r.Cards() {
		assert.Equal(t, "M10", c.SetCode)
	}
}

func TestLoad_DerivedFields(t *testing.T) {
	r := load(t, testOptions(t))

	bolt := cardByUUID(t, r, "lea-bolt")
	assert.Equal(t, "R", bolt.Color)
	assert.Equal(t, "Instant", bolt.Types)
	assert.Equal(t, "", bolt.Supertypes)
	assert.Equal(t, "normal", bolt.Layout)
	assert.Equal(t, domain.CategoryNormal, bolt.Category)
	assert.Nil(t, bolt.PowerNum)
	assert.Empty(t, bolt.GeneratedMana)
	assert.Equal(t, "1993-08-05", bolt.ReleaseDate)

	forest := cardByUUID(t, r, "lea-forest")
	assert.Equal(t, domain.RarityBasicLand, forest.Rarity)
	assert.Equal(t, "Basic", forest.Supertypes)
	assert.Equal(t, domain.ColorColorless, forest.Color)

	elves := cardByUUID(t, r, "lea-elves")
	assert.Equal(t, "Elf Druid", elves.Subtypes)
	assert.Equal(t, "{G}", elves.GeneratedMana)
	require.NotNil(t, elves.PowerNum)
	assert.InDelta(t, 1, *elves.PowerNum, 1e-6)

	assert.Equal(t, "{W}{U}{B}{R}{G}", cardByUUID(t, r, "lea-lotus").GeneratedMana)

	dandan := cardByUUID(t, r, "arn-dandan")
	assert.Equal(t, "Dandan", dandan.NameNormalized)
	assert.Equal(t, "Dandân", dandan.NameEn)

	girl := cardByUUID(t, r, "unh-girl")
	require.NotNil(t, girl.PowerNum)
	assert.InDelta(t, 0.5, *girl.PowerNum, 1e-6)

	gleemax := cardByUUID(t, r, "unh-gleemax")
	require.NotNil(t, gleemax.PowerNum)
	assert.InDelta(t, 2.5, *gleemax.PowerNum, 1e-6)
	assert.Equal(t, domain.ColorColorless, gleemax.Color)

	dodecapod := cardByUUID(t, r, "tsb-dodecapod")
	assert.Equal(t, "rare", dodecapod.Rarity)
	assert.Empty(t, dodecapod.OriginalText)
	assert.Equal(t, "Artifact Creature — Golem Rare", dodecapod.OriginalType)
	assert.Equal(t, "Artifact Creature", dodecapod.Types)

	assert.Equal(t, domain.LayoutPhenomenon, cardByUUID(t, r, "hop-aether").Layout)
	assert.Equal(t, domain.LayoutPlane, cardByUUID(t, r, "hop-tolaria").Layout)

	ajani := cardByUUID(t, r, "m10-ajani")
	require.NotNil(t, ajani.LoyaltyNum)
	assert.Equal(t, 4, *ajani.LoyaltyNum)
	assert.Equal(t, "Legendary", ajani.Supertypes)
}

func TestLoad_Tokens(t *testing.T) {
	r := load(t, testOptions(t))

	goblin := cardByUUID(t, r, "m10-t-goblin")
	assert.True(t, goblin.IsToken)
	assert.Equal(t, domain.LayoutNormal, goblin.Layout)
	assert.Equal(t, domain.CategoryToken, goblin.Category)

	emblem := cardByUUID(t, r, "m10-t-emblem")
	assert.Equal(t, domain.CategoryEmblem, emblem.Category)

	m10, ok := r.Set("M10")
	require.True(t, ok)
	assert.Len(t, m10.ActualCards, 4)
	assert.Len(t, m10.Tokens, 2)
	assert.Len(t, m10.Cards, 6)
	assert.Len(t, m10.TokensByName["goblin"], 1)
	assert.Len(t, m10.ActualCardsByName["lightning bolt"], 1)
}

func TestLoad_Patches(t *testing.T) {
	r := load(t, testOptions(t))

	assert.Empty(t, r.Namesakes("Misprint", false))
	arn, ok := r.Set("ARN")
	require.True(t, ok)
	assert.Len(t, arn.ActualCards, 1)

	assert.Equal(t, "Patched flavor.", cardByUUID(t, r, "arn-dandan").FlavorEn)

	assert.Equal(t, "Patched Shock Artist", cardByUUID(t, r, "m11-shock").Artist)
	assert.NotEqual(t, "Patched Shock Artist", cardByUUID(t, r, "m10-shock").Artist)

	assert.Equal(t, "special", cardByUUID(t, r, "m10-shock").Rarity)
	assert.Equal(t, "special", cardByUUID(t, r, "m10-t-goblin").Rarity)
	assert.Equal(t, "common", cardByUUID(t, r, "m11-shock").Rarity)
}

func TestLoad_NamesakesNewestFirst(t *testing.T) {
	r := load(t, testOptions(t))

	bolts := r.Namesakes("LIGHTNING BOLT", false)
	require.Len(t, bolts, 4)
	var sets []string
	for _, c := range bolts {
		sets = append(sets, c.SetCode)
	}
	assert.Equal(t, []string{"CUS", "M11", "M10", "LEA"}, sets)

	for _, c := range r.Cards() {
		for i := 1; i < len(c.Namesakes); i++ {
			assert.GreaterOrEqual(t, c.Namesakes[i-1].ReleaseDate, c.Namesakes[i].ReleaseDate)
		}
		assert.Contains(t, c.NamesakeIDs, c.ID)
	}

	lea := cardByUUID(t, r, "lea-bolt")
	assert.Equal(t, bolts, lea.Namesakes)
	assert.Len(t, lea.NamesakeIDs, 4)

	assert.Len(t, r.Namesakes("dandan", false), 1)
	assert.Len(t, r.Namesakes("Goblin", true), 2)
	assert.Empty(t, r.Namesakes("Goblin", false))
}

func TestLoad_PrintingsDistinctOldestFirst(t *testing.T) {
	r := load(t, testOptions(t))

	assert.Equal(t, []string{"LEA", "M10", "M11", "CUS"}, r.Printings("Lightning Bolt", false))
	assert.Equal(t, []string{"M10", "M11"}, cardByUUID(t, r, "m11-t-goblin").Printings)

	for _, c := range r.Cards() {
		seen := map[string]struct{}{}
		var prev string
		for _, code := range c.Printings {
			_, dup := seen[code]
			require.False(t, dup)
			seen[code] = struct{}{}
			set, ok := r.Set(code)
			require.True(t, ok)
			assert.GreaterOrEqual(t, set.ReleaseDate, prev)
			prev = set.ReleaseDate
		}
	}
}

func TestLoad_LegalityPatch(t *testing.T) {
	r := load(t, testOptions(t))

	lotus := cardByUUID(t, r, "lea-lotus")
	assert.False(t, lotus.Legality.IsBanned("legacy"), "removed from banned")
	assert.Equal(t, domain.Illegal, lotus.Legality.Get("legacy"))
	assert.True(t, lotus.Legality.IsRestricted("vintage"))

	dandan := cardByUUID(t, r, "arn-dandan")
	assert.True(t, dandan.Legality.IsBanned("legacy"), "added to banned")
	assert.Equal(t, domain.Illegal, dandan.Legality.Get("vintage"), "only printing removed from format")

	for _, bolt := range r.Namesakes("Lightning Bolt", false) {
		assert.True(t, bolt.Legality.IsRestricted("vintage"))
		assert.True(t, bolt.Legality.IsLegal("legacy"))
		assert.True(t, bolt.Legality.IsLegal("pauper"), "printed in a set added to pauper")
	}

	assert.Equal(t, domain.Legal, cardByUUID(t, r, "lea-forest").Legality.Get("pauper"))
	assert.Equal(t, domain.Illegal, cardByUUID(t, r, "hop-aether").Legality.Get("pauper"))
	assert.True(t, cardByUUID(t, r, "lea-elves").Legality.IsLegal("vintage"))
}

func TestPatchedLegality_Precedence(t *testing.T) {
	lp := func(banned, restricted, sets domain.NameList) *domain.LegalityPatch {
		p := (&domain.Patch{Legality: map[string]*domain.LegalityPatch{
			"f": {Banned: banned, Restricted: restricted, Sets: sets},
		}}).Normalize()
		return p.Legality["f"]
	}
	card := func(l domain.Legality) *domain.Card {
		return &domain.Card{NameEn: "X", Printings: []string{"S1"}, Legality: domain.LegalityMap{"f": l}}
	}

	tests := []struct {
		name  string
		card  *domain.Card
		patch *domain.LegalityPatch
		want  domain.Legality
	}{
		{"banned stays banned", card(domain.Banned), lp(domain.NameList{}, domain.NameList{}, domain.NameList{}), domain.Banned},
		{"remove from banned wins", card(domain.Banned), lp(domain.NameList{Remove: []string{"x"}}, domain.NameList{}, domain.NameList{}), domain.Illegal},
		{"add to banned beats restricted", card(domain.Restricted), lp(domain.NameList{Add: []string{"X"}}, domain.NameList{}, domain.NameList{}), domain.Banned},
		{"add to banned beats remove", card(domain.Legal), lp(domain.NameList{Add: []string{"X"}, Remove: []string{"X"}}, domain.NameList{}, domain.NameList{}), domain.Banned},
		{"restricted kept", card(domain.Restricted), lp(domain.NameList{}, domain.NameList{}, domain.NameList{}), domain.Restricted},
		{"add to restricted", card(domain.Legal), lp(domain.NameList{}, domain.NameList{Add: []string{"x"}}, domain.NameList{}), domain.Restricted},
		{"legal kept", card(domain.Legal), lp(domain.NameList{}, domain.NameList{}, domain.NameList{}), domain.Legal},
		{"set removed", card(domain.Legal), lp(domain.NameList{}, domain.NameList{}, domain.NameList{Remove: []string{"s1"}}), domain.Illegal},
		{"set added", card(domain.Illegal), lp(domain.NameList{}, domain.NameList{}, domain.NameList{Add: []string{"S1"}}), domain.Legal},
		{"illegal fallback", card(domain.Illegal), lp(domain.NameList{}, domain.NameList{}, domain.NameList{}), domain.Illegal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, patchedLegality(tt.card, "f", tt.patch))
		})
	}
}

func TestLoad_TokenLegalityIsIntersection(t *testing.T) {
	r := load(t, testOptions(t))

	goblin := cardByUUID(t, r, "m10-t-goblin")
	assert.True(t, goblin.Legality.IsLegal("commander"))
	assert.True(t, goblin.Legality.IsLegal("legacy"))
	assert.True(t, goblin.Legality.IsLegal("pauper"))
	assert.Equal(t, domain.Illegal, goblin.Legality.Get("modern"), "Ajani has no modern entry")

	emblem := cardByUUID(t, r, "m10-t-emblem")
	emblem.Legality["commander"] = domain.Banned
	assert.True(t, goblin.Legality.IsLegal("commander"), "tokens own their legality maps")
}

func TestLoad_StageOrdering(t *testing.T) {
	ctx := context.Background()
	r := New(testOptions(t))

	assert.ErrorIs(t, r.Load(ctx), domainerrors.ErrNotReady)
	assert.ErrorIs(t, r.FillLocalizations(), domainerrors.ErrNotReady)
	assert.ErrorIs(t, r.FillPrice(ctx), domainerrors.ErrNotReady)
	assert.Nil(t, r.Cards())
	assert.Nil(t, r.Namesakes("Lightning Bolt", false))

	require.NoError(t, r.LoadFile())
	assert.True(t, r.FileLoaded().Succeeded())
	assert.False(t, r.Loaded().Fired())

	require.NoError(t, r.Load(ctx))
	assert.True(t, r.Loaded().Succeeded())
	assert.NoError(t, r.Load(ctx), "second load is a no-op")
}

func TestLoad_MalformedDatasetIsFatal(t *testing.T) {
	dir := t.TempDir()
	setsPath := filepath.Join(dir, "AllPrintings.json")
	require.NoError(t, os.WriteFile(setsPath, []byte(`{"data": {"LEA": {"code": "LEA", "cards": [{"name": }]}}}`), 0o600))

	r := New(Options{SetsPath: setsPath})
	require.NoError(t, r.LoadFile())

	err := r.Load(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrInvalidData)
	assert.True(t, r.Loaded().Fired())
	assert.False(t, r.IsLoaded())
	assert.Nil(t, r.Cards())
	assert.Nil(t, r.Sets())
}

func TestLoad_MissingDataset(t *testing.T) {
	r := New(Options{SetsPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, r.LoadFile())
	assert.ErrorIs(t, r.Load(context.Background()), domainerrors.ErrNotReady)
}

func TestLoad_Cancelled(t *testing.T) {
	r := New(testOptions(t))
	require.NoError(t, r.LoadFile())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Load(ctx), context.Canceled)
	assert.False(t, r.IsLoaded())
}

func TestLoad_OnSetAdded(t *testing.T) {
	opts := testOptions(t)
	var added []string
	opts.OnSetAdded = func(s *domain.Set) { added = append(added, s.Code) }

	r := load(t, opts)
	assert.Len(t, added, len(r.Sets()))
}

func TestFillLocalizations(t *testing.T) {
	r := load(t, testOptions(t))
	require.NoError(t, r.FillLocalizations())
	assert.True(t, r.Localized().Succeeded())

	bolt := cardByUUID(t, r, "m10-bolt")
	assert.Nil(t, bolt.ForeignData)
	de, ok := bolt.Localized("de")
	require.True(t, ok)
	assert.Equal(t, "Blitzschlag", de.Name)
	assert.Equal(t, "Spontanzauber", de.Type)

	_, ok = cardByUUID(t, r, "lea-elves").Localized("de")
	assert.False(t, ok)

	assert.NoError(t, r.FillLocalizations())
}

func TestAddSet_ConcurrentInserts(t *testing.T) {
	r := New(Options{})

	makeSet := func(code string, n int) *domain.Set {
		set := &domain.Set{Code: code, ReleaseDate: "2020-01-01"}
		for i := range n {
			set.ActualCards = append(set.ActualCards, &domain.Card{
				NameEn:   code + " card",
				Number:   strconv.Itoa(i),
				TypesArr: []string{"Creature"},
			})
		}
		r.processSet(set)
		return set
	}

	sets := []*domain.Set{makeSet("AAA", 40), makeSet("BBB", 40), makeSet("CCC", 5)}

	var wg sync.WaitGroup
	for _, s := range sets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.addSet(s))
		}()
	}
	wg.Wait()

	assert.Len(t, r.sets, 3)
	assert.Len(t, r.setsByCode, 3)
	assert.Len(t, r.cards, 85)
	assert.Len(t, r.cardsByID, 85)

	// Each set's cards are contiguous.
	for i := 0; i < len(r.cards); {
		code := r.cards[i].SetCode
		set := r.setsByCode[strings.ToLower(code)]
		for j := range set.Cards {
			assert.Same(t, set.Cards[j], r.cards[i+j])
		}
		i += len(set.Cards)
	}
}

func TestAddSet_RejectsDuplicateCode(t *testing.T) {
	r := New(Options{})
	require.NoError(t, r.addSet(&domain.Set{Code: "LEA"}))
	assert.ErrorIs(t, r.addSet(&domain.Set{Code: "lea"}), domainerrors.ErrInvalidData)
}

func TestAddSet_ResolvesIDCollisions(t *testing.T) {
	r := New(Options{})
	set := &domain.Set{Code: "DUP", ActualCards: []*domain.Card{
		{NameEn: "Twin", Number: "1"},
		{NameEn: "Twin", Number: "1"},
	}}
	r.processSet(set)
	require.Equal(t, set.ActualCards[0].ID, set.ActualCards[1].ID)

	require.NoError(t, r.addSet(set))
	assert.NotEqual(t, r.cards[0].ID, r.cards[1].ID)
	assert.Len(t, r.cardsByID, 2)
}
