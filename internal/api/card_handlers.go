package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
)

func (s *Server) registerCardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCard",
		Method:      http.MethodGet,
		Path:        "/api/v1/cards/{id}",
		Summary:     "Get card",
		Description: "Returns one printing with its legalities, localized texts and price",
		Tags:        []string{"Cards"},
	}, s.handleGetCard)
}

// GetCardInput contains parameters for a card lookup.
type GetCardInput struct {
	ID   string `path:"id" validate:"required,cardid" doc:"Card id"`
	Lang string `query:"lang" validate:"omitempty,language" doc:"Language of the localized block (default en)"`
}

// CardResponse is the full projection of one printing.
type CardResponse struct {
	CardSummary
	Layout     string                `json:"layout,omitempty" doc:"Normalized layout"`
	Category   string                `json:"category" doc:"normal for printings, token kind otherwise"`
	Text       string                `json:"text,omitempty" doc:"English rules text"`
	Flavor     string                `json:"flavor,omitempty" doc:"English flavor text"`
	Power      string                `json:"power,omitempty" doc:"Printed power"`
	Toughness  string                `json:"toughness,omitempty" doc:"Printed toughness"`
	Loyalty    string                `json:"loyalty,omitempty" doc:"Printed loyalty"`
	ManaValue  float64               `json:"mana_value" doc:"Mana value"`
	Color      string                `json:"color" doc:"Color summary"`
	Artist     string                `json:"artist,omitempty" doc:"Artist"`
	Legalities map[string]string     `json:"legalities" doc:"Legality by format; absent formats are not legal"`
	Printings  []string              `json:"printings" doc:"Set codes the name was printed in"`
	Localized  *domain.LocalizedText `json:"localized,omitempty" doc:"Texts in the requested language, when translated"`
}

// CardOutput wraps the card response for Huma.
type CardOutput struct {
	Body CardResponse
}

func (s *Server) handleGetCard(_ context.Context, input *GetCardInput) (*CardOutput, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, toAPIError(err)
	}
	if s.corpus == nil || !s.corpus.IsLoaded() {
		return nil, toAPIError(domainerrors.NotReady("cards are still loading"))
	}

	c, ok := s.corpus.Card(input.ID)
	if !ok {
		return nil, toAPIError(domainerrors.NotFoundf("card %s not found", input.ID))
	}

	resp := CardResponse{
		CardSummary: s.summarize(c, input.Lang),
		Layout:      c.Layout,
		Category:    c.Category,
		Text:        c.TextEn,
		Flavor:      c.FlavorEn,
		Power:       c.Power,
		Toughness:   c.Toughness,
		Loyalty:     c.Loyalty,
		ManaValue:   c.ManaValue,
		Color:       c.Color,
		Artist:      c.Artist,
		Legalities:  make(map[string]string, len(c.Legality)),
		Printings:   c.Printings,
	}
	for format := range c.Legality {
		if l := c.Legality.Get(format); l != domain.Illegal {
			resp.Legalities[format] = string(l)
		}
	}
	if resp.Printings == nil {
		resp.Printings = []string{}
	}
	if input.Lang != "" {
		if lt, ok := s.localized(c, input.Lang); ok {
			resp.Localized = &lt
		}
	}

	return &CardOutput{Body: resp}, nil
}
