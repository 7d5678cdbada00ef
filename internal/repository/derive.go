package repository

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/normalize"
)

//nolint:gochecknoglobals // Static lookup tables
var (
	basicLands = map[string]struct{}{
		"plains": {}, "island": {}, "swamp": {}, "mountain": {}, "forest": {}, "wastes": {},
		"snow-covered plains": {}, "snow-covered island": {}, "snow-covered swamp": {},
		"snow-covered mountain": {}, "snow-covered forest": {}, "snow-covered wastes": {},
	}

	// tokenCategoryByType is checked in order; the first type present wins.
	tokenCategoryByType = []struct {
		typ      string
		category string
	}{
		{"Emblem", domain.CategoryEmblem},
		{"Dungeon", domain.CategoryDungeon},
		{"Creature", domain.CategoryToken},
		{"Artifact", domain.CategoryToken},
		{"Enchantment", domain.CategoryToken},
		{"Land", domain.CategoryToken},
		{"Planeswalker", domain.CategoryToken},
		{"Instant", domain.CategoryToken},
		{"Sorcery", domain.CategoryToken},
	}

	tokenCategoryByName = map[string]string{
		"checklist":       domain.CategoryChecklist,
		"substitute card": domain.CategoryChecklist,
		"experience":      domain.CategoryCounter,
		"energy reserve":  domain.CategoryCounter,
		"poison counter":  domain.CategoryCounter,
		"city's blessing": domain.CategoryCounter,
		"the monarch":     domain.CategoryCounter,
		"the initiative":  domain.CategoryCounter,
		"the ring":        domain.CategoryCounter,
		"day // night":    domain.CategoryCounter,
	}

	addClausePattern  = regexp.MustCompile(`(?i)\badds?\b[^.\n]*`)
	manaSymbolPattern = regexp.MustCompile(`\{[^}]+\}`)

	// chaosPattern matches the planar die chaos symbol with or without its
	// braces.
	chaosPattern = regexp.MustCompile(`\{?\bCHAOS\b\}?`)
)

const (
	halfGlyph         = "½"
	timeshiftedPrefix = "timeshifted "
	anyColorMana      = "{W}{U}{B}{R}{G}"
	chaosSymbol       = "{CHAOS}"
)

// preProcessCard handles fields specific to ordinary printings.
func (r *Repository) preProcessCard(c *domain.Card) {
	r.applyPatch(c)

	if c.OriginalText == c.TextEn {
		c.OriginalText = ""
	}
	if c.OriginalType == c.TypeEn {
		c.OriginalType = ""
	}

	switch {
	case c.Layout == "":
		c.Layout = domain.LayoutNormal
	case strings.EqualFold(c.Layout, "planar"):
		if c.HasType("Phenomenon") {
			c.Layout = domain.LayoutPhenomenon
		} else if c.HasType("Plane") {
			c.Layout = domain.LayoutPlane
		}
	}

	if _, ok := basicLands[strings.ToLower(c.NameEn)]; ok {
		c.Rarity = domain.RarityBasicLand
	} else if len(c.Rarity) > len(timeshiftedPrefix) && strings.EqualFold(c.Rarity[:len(timeshiftedPrefix)], timeshiftedPrefix) {
		c.Rarity = c.Rarity[len(timeshiftedPrefix):]
	}

	c.Category = domain.CategoryNormal
}

// preProcessToken canonicalizes token layouts and assigns the token category.
func (r *Repository) preProcessToken(c *domain.Card) {
	r.applyPatch(c)

	switch strings.ToLower(c.Layout) {
	case "double_faced_token":
		c.Layout = domain.LayoutTransform
	case "", "art_series", "token", "emblem":
		c.Layout = domain.LayoutNormal
	}

	c.Category = tokenCategory(c)
}

func tokenCategory(c *domain.Card) string {
	for _, entry := range tokenCategoryByType {
		if c.HasType(entry.typ) {
			return entry.category
		}
	}
	if category, ok := tokenCategoryByName[strings.ToLower(c.NameEn)]; ok {
		return category
	}
	return domain.CategoryToken
}

// preProcessCardOrToken derives the fields shared by cards and tokens. It runs
// after patches so every derived value reflects the corrected text.
func (r *Repository) preProcessCardOrToken(c *domain.Card) {
	c.NameEn = r.pool.String(c.NameEn)
	c.NameNormalized = r.pool.String(normalize.RemoveDiacritics(c.NameEn))

	c.Types = r.pool.String(strings.Join(c.TypesArr, " "))
	c.Subtypes = r.pool.String(strings.Join(c.SubtypesArr, " "))
	c.Supertypes = r.pool.String(strings.Join(c.SupertypesArr, " "))
	c.TypeEn = r.pool.String(c.TypeEn)

	c.PowerNum = parsePower(c.Power)
	c.ToughnessNum = parsePower(c.Toughness)
	c.LoyaltyNum = parseLoyalty(c.Loyalty)

	c.TextEn = completeChaosSymbols(c.TextEn)
	c.FlavorEn = completeChaosSymbols(c.FlavorEn)

	if len(c.ColorsArr) == 0 {
		c.Color = domain.ColorColorless
	} else {
		c.Color = r.pool.String(strings.Join(c.ColorsArr, " "))
	}

	c.GeneratedMana = r.pool.String(generatedMana(c.TextEn))
	c.Rarity = r.pool.String(c.Rarity)
	c.Layout = r.pool.String(c.Layout)
	c.Artist = r.pool.String(c.Artist)
	c.ManaCost = r.pool.String(c.ManaCost)
}

// applyPatch applies the entry keyed by the card's set code, then the entry
// keyed by its name when that entry's scope covers the set. Both may apply;
// the name entry is applied last.
func (r *Repository) applyPatch(c *domain.Card) {
	if r.patch == nil {
		return
	}
	if p, ok := r.patch.CardPatch(c.SetCode); ok {
		p.Apply(c)
	}
	if p, ok := r.patch.CardPatch(c.NameEn); ok && p.InScope(c.SetCode) {
		p.Apply(c)
	}
}

// parsePower sums the "+"-separated terms of a power or toughness value. A
// trailing half glyph adds 0.5 to its term and unparsable terms, half glyph
// included, add nothing.
// An empty value has no power, which is distinct from zero.
func parsePower(s string) *float32 {
	if s == "" {
		return nil
	}

	var sum float32
	for _, term := range strings.Split(s, "+") {
		term = strings.TrimSpace(term)
		var half float32
		if rest, ok := strings.CutSuffix(term, halfGlyph); ok {
			half = 0.5
			term = rest
		}
		if term == "" {
			sum += half
			continue
		}
		if v, err := strconv.ParseFloat(term, 32); err == nil {
			sum += float32(v) + half
		}
	}
	return &sum
}

// parseLoyalty returns nil for an empty value, 0 for a non-numeric one.
func parseLoyalty(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		v = 0
	}
	return &v
}

// completeChaosSymbols rewrites bare or half-braced CHAOS symbols to {CHAOS}.
func completeChaosSymbols(s string) string {
	if !strings.Contains(s, "CHAOS") {
		return s
	}
	return chaosPattern.ReplaceAllLiteralString(s, chaosSymbol)
}

// generatedMana collects the mana symbols a card's rules text adds, in order
// of first appearance.
func generatedMana(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	seen := make(map[string]struct{})
	add := func(symbol string) {
		if _, ok := seen[symbol]; ok {
			return
		}
		seen[symbol] = struct{}{}
		b.WriteString(symbol)
	}

	for _, clause := range addClausePattern.FindAllString(text, -1) {
		for _, symbol := range manaSymbolPattern.FindAllString(clause, -1) {
			symbol = strings.ToUpper(symbol)
			if symbol == "{T}" || symbol == "{Q}" {
				continue
			}
			add(symbol)
		}
		lower := strings.ToLower(clause)
		if strings.Contains(lower, "any color") || strings.Contains(lower, "any one color") {
			for _, symbol := range manaSymbolPattern.FindAllString(anyColorMana, -1) {
				add(symbol)
			}
		}
		if strings.Contains(lower, "any type") {
			for _, symbol := range manaSymbolPattern.FindAllString(anyColorMana+"{C}", -1) {
				add(symbol)
			}
		}
	}
	return b.String()
}
