package domain

import "slices"

// PriceDetail is one card's entry in the raw price feed.
type PriceDetail struct {
	Paper  map[string]*ProviderPrices `json:"paper"`
	Online map[string]*ProviderPrices `json:"mtgo"`
}

// ProviderPrices holds one vendor's price history.
type ProviderPrices struct {
	Currency string     `json:"currency"`
	Retail   *PriceList `json:"retail"`
	Buylist  *PriceList `json:"buylist"`
}

// PriceList maps a yyyy-mm-dd date to a price per finish.
type PriceList struct {
	Normal map[string]float32 `json:"normal"`
	Foil   map[string]float32 `json:"foil"`
}

// PaperProviders is the preference order used by Latest.
//
//nolint:gochecknoglobals // Static preference table
var PaperProviders = []string{"tcgplayer", "cardkingdom", "cardmarket"}

// Latest returns the newest retail paper price, preferring providers in
// PaperProviders order and normal over foil.
func (d *PriceDetail) Latest() (float32, bool) {
	if d == nil {
		return 0, false
	}
	for _, provider := range PaperProviders {
		pp := d.Paper[provider]
		if pp == nil || pp.Retail == nil {
			continue
		}
		if v, ok := newest(pp.Retail.Normal); ok {
			return v, true
		}
		if v, ok := newest(pp.Retail.Foil); ok {
			return v, true
		}
	}
	return 0, false
}

func newest(byDate map[string]float32) (float32, bool) {
	if len(byDate) == 0 {
		return 0, false
	}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	return byDate[slices.Max(dates)], true
}
