package domain

import "slices"

// Legality is a card's status in one format.
type Legality string

const (
	Legal      Legality = "Legal"
	Restricted Legality = "Restricted"
	Banned     Legality = "Banned"
	Illegal    Legality = "Not Legal"
)

// LegalityMap maps a format name to the card's legality in it. Formats
// without an entry are illegal.
type LegalityMap map[string]Legality

// Get returns the legality in format, Illegal when absent.
func (m LegalityMap) Get(format string) Legality {
	switch l := m[format]; l {
	case Legal, Restricted, Banned:
		return l
	default:
		return Illegal
	}
}

// IsLegal reports whether the card is playable without restriction in format.
func (m LegalityMap) IsLegal(format string) bool { return m.Get(format) == Legal }

// IsRestricted reports whether the card is restricted in format.
func (m LegalityMap) IsRestricted(format string) bool { return m.Get(format) == Restricted }

// IsBanned reports whether the card is banned in format.
func (m LegalityMap) IsBanned(format string) bool { return m.Get(format) == Banned }

// Formats returns the formats the card has an entry for with the given legality.
func (m LegalityMap) Formats(l Legality) []string {
	var out []string
	for format := range m {
		if m.Get(format) == l {
			out = append(out, format)
		}
	}
	slices.Sort(out)
	return out
}

// Set records l for format. Illegal removes the entry.
func (m LegalityMap) Set(format string, l Legality) {
	if l == Illegal {
		delete(m, format)
		return
	}
	m[format] = l
}
