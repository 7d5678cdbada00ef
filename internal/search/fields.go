package search

import (
	"strings"

	"github.com/mtgdb/mtgdb-server/internal/normalize"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindKeyword
	kindNumeric
)

type indexField struct {
	index string
	kind  fieldKind
}

// Index field names. Localized fields are suffixed with the language code.
const (
	fieldID            = "id"
	fieldOrdinal       = "ordinal"
	fieldSetCode       = "set_code"
	fieldNumber        = "number"
	fieldRarity        = "rarity"
	fieldLayout        = "layout"
	fieldCategory      = "category"
	fieldColor         = "color"
	fieldArtist        = "artist"
	fieldManaCost      = "mana_cost"
	fieldGeneratedMana = "generated_mana"
	fieldTypes         = "types"
	fieldSubtypes      = "subtypes"
	fieldSupertypes    = "supertypes"
	fieldReleaseDate   = "release_date"
	fieldLegal         = "legal"
	fieldRestricted    = "restricted"
	fieldBanned        = "banned"
	fieldPower         = "power"
	fieldToughness     = "toughness"
	fieldLoyalty       = "loyalty"
	fieldManaValue     = "cmc"
	fieldPrice         = "price"

	baseName   = "name"
	baseType   = "type"
	baseText   = "text"
	baseFlavor = "flavor"
)

// fieldTextEn is the English rules text, the first similarity feature.
var fieldTextEn = localizedField(baseText, "en")

var localizedBases = []string{baseName, baseType, baseText, baseFlavor}

//nolint:gochecknoglobals // Static lookup table
var staticFields = []indexField{
	{fieldID, kindKeyword},
	{fieldSetCode, kindKeyword},
	{fieldNumber, kindKeyword},
	{fieldRarity, kindKeyword},
	{fieldLayout, kindKeyword},
	{fieldCategory, kindKeyword},
	{fieldColor, kindText},
	{fieldArtist, kindText},
	{fieldManaCost, kindText},
	{fieldGeneratedMana, kindText},
	{fieldTypes, kindText},
	{fieldSubtypes, kindText},
	{fieldSupertypes, kindText},
	{fieldReleaseDate, kindKeyword},
	{fieldLegal, kindKeyword},
	{fieldRestricted, kindKeyword},
	{fieldBanned, kindKeyword},
	{fieldPower, kindNumeric},
	{fieldToughness, kindNumeric},
	{fieldLoyalty, kindNumeric},
	{fieldManaValue, kindNumeric},
	{fieldPrice, kindNumeric},
}

// queryFieldAliases maps the lowercased names accepted in queries to index
// fields or localized bases.
//
//nolint:gochecknoglobals // Static lookup table
var queryFieldAliases = map[string]string{
	"id":            fieldID,
	"set":           fieldSetCode,
	"setcode":       fieldSetCode,
	"set_code":      fieldSetCode,
	"number":        fieldNumber,
	"rarity":        fieldRarity,
	"layout":        fieldLayout,
	"category":      fieldCategory,
	"color":         fieldColor,
	"colors":        fieldColor,
	"artist":        fieldArtist,
	"mana":          fieldManaCost,
	"manacost":      fieldManaCost,
	"mana_cost":     fieldManaCost,
	"generatedmana": fieldGeneratedMana,
	"produces":      fieldGeneratedMana,
	"types":         fieldTypes,
	"subtypes":      fieldSubtypes,
	"supertypes":    fieldSupertypes,
	"released":      fieldReleaseDate,
	"releasedate":   fieldReleaseDate,
	"legal":         fieldLegal,
	"restricted":    fieldRestricted,
	"banned":        fieldBanned,
	"power":         fieldPower,
	"pow":           fieldPower,
	"toughness":     fieldToughness,
	"tou":           fieldToughness,
	"loyalty":       fieldLoyalty,
	"cmc":           fieldManaValue,
	"mv":            fieldManaValue,
	"manavalue":     fieldManaValue,
	"price":         fieldPrice,
	"name":          baseName,
	"type":          baseType,
	"text":          baseText,
	"flavor":        baseFlavor,
}

// anyFieldNames are searched by clauses without a field.
var anyFieldNames = []string{"name", "type", "text", "flavor", "artist"}

func localizedField(base, lang string) string { return base + "_" + lang }

// indexFields lists every mapped field except the ordinal.
func indexFields() []indexField {
	fields := make([]indexField, 0, len(staticFields)+len(localizedBases)*len(normalize.Languages))
	fields = append(fields, staticFields...)
	for _, base := range localizedBases {
		for _, lang := range normalize.Languages {
			fields = append(fields, indexField{localizedField(base, lang), kindText})
		}
	}
	return fields
}

// FieldAdapter translates query field names to index fields for a display
// language. The similarity pseudo-field is never an index field.
type FieldAdapter struct {
	likeField string
	kinds     map[string]fieldKind
}

// NewFieldAdapter returns an adapter reserving likeField for similarity queries.
func NewFieldAdapter(likeField string) *FieldAdapter {
	kinds := make(map[string]fieldKind)
	for _, f := range staticFields {
		kinds[f.index] = f.kind
	}
	return &FieldAdapter{likeField: likeField, kinds: kinds}
}

// LikeField returns the reserved similarity field name.
func (a *FieldAdapter) LikeField() string { return a.likeField }

// IsLike reports whether field names the similarity operator.
func (a *FieldAdapter) IsLike(field string) bool {
	return a.likeField != "" && strings.EqualFold(field, a.likeField)
}

// Resolve returns the index fields searched for a query field. Localized
// fields search the display language and English.
func (a *FieldAdapter) Resolve(field, lang string) ([]indexField, bool) {
	name, ok := queryFieldAliases[strings.ToLower(field)]
	if !ok || a.IsLike(field) {
		return nil, false
	}
	if kind, ok := a.kinds[name]; ok {
		return []indexField{{name, kind}}, true
	}

	fields := []indexField{{localizedField(name, "en"), kindText}}
	if lang != "" && lang != "en" {
		fields = append([]indexField{{localizedField(name, lang), kindText}}, fields...)
	}
	return fields, true
}

// AnyFields returns the fields a clause without a field searches.
func (a *FieldAdapter) AnyFields(lang string) []indexField {
	var fields []indexField
	for _, name := range anyFieldNames {
		if a.IsLike(name) {
			continue
		}
		f, _ := a.Resolve(name, lang)
		fields = append(fields, f...)
	}
	return fields
}

// displayLanguage returns lang when it is supported, else English.
func displayLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, l := range normalize.Languages {
		if l == lang {
			return l
		}
	}
	return "en"
}
