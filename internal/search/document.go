// Package search indexes the card corpus with Bleve and answers queries in
// the card search grammar, including similarity queries on the reserved Like
// field.
package search

import (
	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/normalize"
)

// CardDocument is the indexed form of one printing.
//
// Text is folded to its diacritic-free form on the way in; query text is
// folded the same way before analysis.
type CardDocument struct {
	ID      string
	Ordinal int

	SetCode       string
	Number        string
	Rarity        string
	Layout        string
	Category      string
	Color         string
	Artist        string
	ManaCost      string
	GeneratedMana string
	Types         string
	Subtypes      string
	Supertypes    string
	ReleaseDate   string

	Legal      []string
	Restricted []string
	Banned     []string

	Power     *float32
	Toughness *float32
	Loyalty   *int
	ManaValue float64
	Price     *float32

	// Localized is keyed by language code and always has "en".
	Localized map[string]domain.LocalizedText
}

func newCardDocument(c *domain.Card) *CardDocument {
	d := &CardDocument{
		ID:            c.ID,
		Ordinal:       c.Ordinal,
		SetCode:       c.SetCode,
		Number:        c.Number,
		Rarity:        c.Rarity,
		Layout:        c.Layout,
		Category:      c.Category,
		Color:         c.Color,
		Artist:        c.Artist,
		ManaCost:      c.ManaCost,
		GeneratedMana: c.GeneratedMana,
		Types:         c.Types,
		Subtypes:      c.Subtypes,
		Supertypes:    c.Supertypes,
		ReleaseDate:   c.ReleaseDate,
		Legal:         c.Legality.Formats(domain.Legal),
		Restricted:    c.Legality.Formats(domain.Restricted),
		Banned:        c.Legality.Formats(domain.Banned),
		Power:         c.PowerNum,
		Toughness:     c.ToughnessNum,
		Loyalty:       c.LoyaltyNum,
		ManaValue:     c.ManaValue,
		Localized:     make(map[string]domain.LocalizedText),
	}
	if p, ok := c.CurrentPrice(); ok {
		d.Price = &p
	}
	for _, lang := range normalize.Languages {
		if lt, ok := c.Localized(lang); ok {
			d.Localized[lang] = lt
		}
	}
	return d
}

// ToMap converts the document to the field names of the index mapping.
func (d *CardDocument) ToMap() map[string]interface{} {
	fold := normalize.RemoveDiacritics
	m := map[string]interface{}{
		fieldID:            d.ID,
		fieldOrdinal:       float64(d.Ordinal),
		fieldSetCode:       d.SetCode,
		fieldNumber:        d.Number,
		fieldRarity:        d.Rarity,
		fieldLayout:        d.Layout,
		fieldCategory:      d.Category,
		fieldColor:         d.Color,
		fieldArtist:        fold(d.Artist),
		fieldManaCost:      d.ManaCost,
		fieldGeneratedMana: d.GeneratedMana,
		fieldTypes:         d.Types,
		fieldSubtypes:      fold(d.Subtypes),
		fieldSupertypes:    d.Supertypes,
		fieldReleaseDate:   d.ReleaseDate,
		fieldManaValue:     d.ManaValue,
	}

	if len(d.Legal) > 0 {
		m[fieldLegal] = d.Legal
	}
	if len(d.Restricted) > 0 {
		m[fieldRestricted] = d.Restricted
	}
	if len(d.Banned) > 0 {
		m[fieldBanned] = d.Banned
	}
	if d.Power != nil {
		m[fieldPower] = float64(*d.Power)
	}
	if d.Toughness != nil {
		m[fieldToughness] = float64(*d.Toughness)
	}
	if d.Loyalty != nil {
		m[fieldLoyalty] = float64(*d.Loyalty)
	}
	if d.Price != nil {
		m[fieldPrice] = float64(*d.Price)
	}

	for lang, lt := range d.Localized {
		setText(m, localizedField(baseName, lang), fold(lt.Name))
		setText(m, localizedField(baseType, lang), fold(lt.Type))
		setText(m, localizedField(baseText, lang), fold(lt.Text))
		setText(m, localizedField(baseFlavor, lang), fold(lt.Flavor))
	}
	return m
}

func setText(m map[string]interface{}, field, value string) {
	if value != "" {
		m[field] = value
	}
}
