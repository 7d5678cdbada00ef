package domain

// LocalizedText holds the translated texts of a printing in one language.
type LocalizedText struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Text   string `json:"text"`
	Flavor string `json:"flavor"`
}

// Localization maps a language code to its translated texts.
type Localization map[string]LocalizedText
