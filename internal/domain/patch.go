package domain

import "strings"

// Patch is the hand-maintained correction document. Keys are lowercased by
// Normalize so every lookup is case-insensitive.
type Patch struct {
	// Cards is keyed by set code or by card name.
	Cards    map[string]*CardPatch     `json:"cards"`
	Legality map[string]*LegalityPatch `json:"legality"`
}

// CardPatch overrides card fields. Nil pointers and nil slices leave the
// field untouched.
type CardPatch struct {
	// Scope for name-keyed entries. Both empty means every set.
	Set  string   `json:"set"`
	Sets []string `json:"sets"`

	Name         *string  `json:"name"`
	Type         *string  `json:"type"`
	Text         *string  `json:"text"`
	FlavorText   *string  `json:"flavorText"`
	OriginalText *string  `json:"originalText"`
	OriginalType *string  `json:"originalType"`
	ManaCost     *string  `json:"manaCost"`
	Power        *string  `json:"power"`
	Toughness    *string  `json:"toughness"`
	Loyalty      *string  `json:"loyalty"`
	Rarity       *string  `json:"rarity"`
	Layout       *string  `json:"layout"`
	Artist       *string  `json:"artist"`
	Types        []string `json:"types"`
	Subtypes     []string `json:"subtypes"`
	Supertypes   []string `json:"supertypes"`
	Colors       []string `json:"colors"`
	Remove       bool     `json:"remove"`
}

// InScope reports whether a name-keyed entry applies to a card of setCode.
func (p *CardPatch) InScope(setCode string) bool {
	if p.Set == "" && len(p.Sets) == 0 {
		return true
	}
	if p.Set != "" && strings.EqualFold(p.Set, setCode) {
		return true
	}
	for _, s := range p.Sets {
		if strings.EqualFold(s, setCode) {
			return true
		}
	}
	return false
}

// Apply copies every overridden field onto c.
func (p *CardPatch) Apply(c *Card) {
	setString(&c.NameEn, p.Name)
	setString(&c.TypeEn, p.Type)
	setString(&c.TextEn, p.Text)
	setString(&c.FlavorEn, p.FlavorText)
	setString(&c.OriginalText, p.OriginalText)
	setString(&c.OriginalType, p.OriginalType)
	setString(&c.ManaCost, p.ManaCost)
	setString(&c.Power, p.Power)
	setString(&c.Toughness, p.Toughness)
	setString(&c.Loyalty, p.Loyalty)
	setString(&c.Rarity, p.Rarity)
	setString(&c.Layout, p.Layout)
	setString(&c.Artist, p.Artist)
	if p.Types != nil {
		c.TypesArr = p.Types
	}
	if p.Subtypes != nil {
		c.SubtypesArr = p.Subtypes
	}
	if p.Supertypes != nil {
		c.SupertypesArr = p.Supertypes
	}
	if p.Colors != nil {
		c.ColorsArr = p.Colors
	}
	if p.Remove {
		c.Remove = true
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// LegalityPatch layers add/remove lists onto one format's base legality.
// Banned and Restricted hold card names, Sets holds set codes.
type LegalityPatch struct {
	Banned     NameList `json:"banned"`
	Restricted NameList `json:"restricted"`
	Sets       NameList `json:"sets"`
}

// NameList is a pair of case-insensitive add and remove lists.
type NameList struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`

	add    map[string]struct{}
	remove map[string]struct{}
}

// Adds reports whether v is in the add list.
func (l *NameList) Adds(v string) bool {
	_, ok := l.add[strings.ToLower(v)]
	return ok
}

// Removes reports whether v is in the remove list.
func (l *NameList) Removes(v string) bool {
	_, ok := l.remove[strings.ToLower(v)]
	return ok
}

func (l *NameList) index() {
	l.add = lowerSet(l.Add)
	l.remove = lowerSet(l.Remove)
}

func lowerSet(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[strings.ToLower(v)] = struct{}{}
	}
	return m
}

// Normalize lowercases every key and builds the list lookups. It is called once
// after decoding; a nil Patch normalizes to an empty one.
func (p *Patch) Normalize() *Patch {
	if p == nil {
		p = &Patch{}
	}
	cards := make(map[string]*CardPatch, len(p.Cards))
	for k, v := range p.Cards {
		if v != nil {
			cards[strings.ToLower(k)] = v
		}
	}
	p.Cards = cards

	legality := make(map[string]*LegalityPatch, len(p.Legality))
	for format, lp := range p.Legality {
		if lp == nil {
			continue
		}
		lp.Banned.index()
		lp.Restricted.index()
		lp.Sets.index()
		legality[strings.ToLower(format)] = lp
	}
	p.Legality = legality
	return p
}

// CardPatch returns the entry keyed by key, compared case-insensitively.
func (p *Patch) CardPatch(key string) (*CardPatch, bool) {
	cp, ok := p.Cards[strings.ToLower(key)]
	return cp, ok
}
