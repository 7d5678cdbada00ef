package repository

import (
	"slices"
	"strings"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/normalize"
)

// buildNameIndexes is the first pass: it groups every card by normalized name
// and derives the id and printing maps from the groups. It must run after all
// sets are processed.
func (r *Repository) buildNameIndexes() {
	r.cardsByName = make(map[string][]*domain.Card)
	r.tokensByName = make(map[string][]*domain.Card)

	for _, c := range r.cards {
		key := normalize.Key(c.NameNormalized)
		if c.IsToken {
			r.tokensByName[key] = append(r.tokensByName[key], c)
		} else {
			r.cardsByName[key] = append(r.cardsByName[key], c)
		}
	}

	r.cardIDsByName, r.cardPrintingsByName = deriveNameMaps(r.cardsByName)
	r.tokenIDsByName, r.tokenPrintingsByName = deriveNameMaps(r.tokensByName)
}

// deriveNameMaps orders each group newest first (stable, so equal dates keep
// corpus order) and builds the id set and the distinct set codes, oldest first.
func deriveNameMaps(byName map[string][]*domain.Card) (map[string]map[string]struct{}, map[string][]string) {
	ids := make(map[string]map[string]struct{}, len(byName))
	printings := make(map[string][]string, len(byName))

	for key, group := range byName {
		slices.SortStableFunc(group, func(a, b *domain.Card) int {
			return strings.Compare(b.ReleaseDate, a.ReleaseDate)
		})

		idSet := make(map[string]struct{}, len(group))
		for _, c := range group {
			idSet[c.ID] = struct{}{}
		}
		ids[key] = idSet

		type setDate struct{ code, date string }
		var distinct []setDate
		seen := make(map[string]struct{})
		for _, c := range group {
			code := normalize.Key(c.SetCode)
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			distinct = append(distinct, setDate{c.SetCode, c.ReleaseDate})
		}
		slices.SortStableFunc(distinct, func(a, b setDate) int {
			return strings.Compare(a.date, b.date)
		})

		codes := make([]string, len(distinct))
		for i, sd := range distinct {
			codes[i] = sd.code
		}
		printings[key] = codes
	}
	return ids, printings
}

// resolveCrossReferences is the second pass: every card looks itself up in
// the maps built by the first pass.
func (r *Repository) resolveCrossReferences() {
	for i, c := range r.cards {
		c.Ordinal = i
		key := normalize.Key(c.NameNormalized)
		if c.IsToken {
			c.Namesakes = r.tokensByName[key]
			c.NamesakeIDs = r.tokenIDsByName[key]
			c.Printings = r.tokenPrintingsByName[key]
		} else {
			c.Namesakes = r.cardsByName[key]
			c.NamesakeIDs = r.cardIDsByName[key]
			c.Printings = r.cardPrintingsByName[key]
		}
	}
}
