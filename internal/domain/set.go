// Package domain holds the card corpus model: sets, printings, legality, patches and prices.
package domain

// Set is one released product batch. Code is unique across the corpus.
type Set struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"releaseDate"` // yyyy-mm-dd, sorts lexically
	Type        string  `json:"type"`
	ActualCards []*Card `json:"cards"`
	Tokens      []*Card `json:"tokens"`

	// Cards is ActualCards followed by Tokens.
	Cards []*Card `json:"-"`

	// Keyed by normalize.NameKey of the card name.
	ActualCardsByName map[string][]*Card `json:"-"`
	TokensByName      map[string][]*Card `json:"-"`
}
