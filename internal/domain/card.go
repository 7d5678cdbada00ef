package domain

// Layout values after normalization.
const (
	LayoutNormal     = "Normal"
	LayoutTransform  = "Transform"
	LayoutPhenomenon = "Phenomenon"
	LayoutPlane      = "Plane"
)

// Card categories. Printings are always CategoryNormal, tokens get one of the others.
const (
	CategoryNormal    = "normal"
	CategoryToken     = "token"
	CategoryEmblem    = "emblem"
	CategoryDungeon   = "dungeon"
	CategoryCounter   = "counter"
	CategoryChecklist = "checklist"
)

// ColorColorless is the Color of a card without colors.
const ColorColorless = "Colorless"

// RarityBasicLand is assigned to basic lands regardless of their printed rarity.
const RarityBasicLand = "Basic land"

// Identifiers are the external ids the dataset carries for a printing.
type Identifiers struct {
	ScryfallID         string `json:"scryfallId"`
	MultiverseID       string `json:"multiverseId"`
	TcgplayerProductID string `json:"tcgplayerProductId"`
	MtgjsonV4ID        string `json:"mtgjsonV4Id"`
}

// ForeignData is one localization block of the source dataset.
type ForeignData struct {
	Language   string `json:"language"`
	Name       string `json:"name"`
	FaceName   string `json:"faceName"`
	Type       string `json:"type"`
	Text       string `json:"text"`
	FlavorText string `json:"flavorText"`
}

// Card is one printing of a card or token in one set.
//
// Fields tagged json are read from the dataset. The remaining fields are
// derived during load and are read-only once the repository reports loaded.
type Card struct {
	NameEn        string        `json:"name"`
	FaceName      string        `json:"faceName"`
	SetCode       string        `json:"setCode"`
	Number        string        `json:"number"`
	MtgjsonID     string        `json:"uuid"`
	TypeEn        string        `json:"type"`
	TextEn        string        `json:"text"`
	FlavorEn      string        `json:"flavorText"`
	OriginalText  string        `json:"originalText"`
	OriginalType  string        `json:"originalType"`
	ManaCost      string        `json:"manaCost"`
	ManaValue     float64       `json:"manaValue"`
	Power         string        `json:"power"`
	Toughness     string        `json:"toughness"`
	Loyalty       string        `json:"loyalty"`
	ColorsArr     []string      `json:"colors"`
	TypesArr      []string      `json:"types"`
	SubtypesArr   []string      `json:"subtypes"`
	SupertypesArr []string      `json:"supertypes"`
	Rarity        string        `json:"rarity"`
	Layout        string        `json:"layout"`
	Artist        string        `json:"artist"`
	Legality      LegalityMap   `json:"legalities"`
	ForeignData   []ForeignData `json:"foreignData"`
	Identifiers   Identifiers   `json:"identifiers"`

	ID             string   `json:"-"`
	Ordinal        int      `json:"-"` // position in the corpus card list
	IsToken        bool     `json:"-"`
	Category       string   `json:"-"`
	NameNormalized string   `json:"-"`
	Types          string   `json:"-"`
	Subtypes       string   `json:"-"`
	Supertypes     string   `json:"-"`
	Color          string   `json:"-"`
	PowerNum       *float32 `json:"-"`
	ToughnessNum   *float32 `json:"-"`
	LoyaltyNum     *int     `json:"-"`
	GeneratedMana  string   `json:"-"`
	ReleaseDate    string   `json:"-"`
	Remove         bool     `json:"-"`

	Localization Localization `json:"-"`

	// Exactly one of the two is populated by the price overlay.
	Price  *float32     `json:"-"`
	Prices *PriceDetail `json:"-"`

	// Shared with every other namesake; never mutate.
	Namesakes   []*Card             `json:"-"`
	NamesakeIDs map[string]struct{} `json:"-"`
	Printings   []string            `json:"-"`
}

// HasType reports whether the card's types array contains t.
func (c *Card) HasType(t string) bool {
	for _, v := range c.TypesArr {
		if v == t {
			return true
		}
	}
	return false
}

// CurrentPrice returns the overlay price, from the cache or the richer detail.
func (c *Card) CurrentPrice() (float32, bool) {
	if c.Price != nil {
		return *c.Price, true
	}
	if c.Prices != nil {
		return c.Prices.Latest()
	}
	return 0, false
}

// Localized returns the card texts in lang. English always resolves; other
// languages resolve only when a localization exists.
func (c *Card) Localized(lang string) (LocalizedText, bool) {
	if lang == "" || lang == "en" {
		return LocalizedText{Name: c.NameEn, Type: c.TypeEn, Text: c.TextEn, Flavor: c.FlavorEn}, true
	}
	lt, ok := c.Localization[lang]
	return lt, ok
}
