package repository

import (
	"github.com/mtgdb/mtgdb-server/internal/domain"
)

// patchLegality layers the patch's per-format lists onto every card. The
// checks run banned, restricted, legal, and the first that holds wins.
func (r *Repository) patchLegality() {
	if r.patch == nil || len(r.patch.Legality) == 0 {
		return
	}
	for format, lp := range r.patch.Legality {
		for _, c := range r.cards {
			if c.Legality == nil {
				c.Legality = domain.LegalityMap{}
			}
			c.Legality.Set(format, patchedLegality(c, format, lp))
		}
	}
}

func patchedLegality(c *domain.Card, format string, lp *domain.LegalityPatch) domain.Legality {
	name := c.NameEn
	switch {
	case (c.Legality.IsBanned(format) && !lp.Banned.Removes(name)) || lp.Banned.Adds(name):
		return domain.Banned
	case (c.Legality.IsRestricted(format) && !lp.Restricted.Removes(name)) || lp.Restricted.Adds(name):
		return domain.Restricted
	case (c.Legality.IsLegal(format) && !anyPrinting(c, lp.Sets.Removes)) || anyPrinting(c, lp.Sets.Adds):
		return domain.Legal
	default:
		return domain.Illegal
	}
}

func anyPrinting(c *domain.Card, in func(string) bool) bool {
	for _, code := range c.Printings {
		if in(code) {
			return true
		}
	}
	return false
}

// assignTokenLegality makes each token legal in exactly the formats every
// actual card of its set has an entry for.
func assignTokenLegality(set *domain.Set) {
	if len(set.Tokens) == 0 {
		return
	}

	var formats map[string]struct{}
	for _, c := range set.ActualCards {
		if formats == nil {
			formats = make(map[string]struct{}, len(c.Legality))
			for format := range c.Legality {
				formats[format] = struct{}{}
			}
			continue
		}
		for format := range formats {
			if _, ok := c.Legality[format]; !ok {
				delete(formats, format)
			}
		}
	}

	for _, t := range set.Tokens {
		t.Legality = make(domain.LegalityMap, len(formats))
		for format := range formats {
			t.Legality[format] = domain.Legal
		}
	}
}
