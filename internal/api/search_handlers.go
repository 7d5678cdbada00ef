package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mtgdb/mtgdb-server/internal/domain"
)

const (
	defaultSearchLimit  = 100
	defaultSuggestLimit = 10
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCards",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search cards",
		Description: "Runs a card query. Hits are ordered by descending score, then by corpus order.",
		Tags:        []string{"Search"},
		Middlewares: huma.Middlewares{s.rateLimited},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestNames",
		Method:      http.MethodGet,
		Path:        "/api/v1/suggest",
		Summary:     "Suggest card names",
		Description: "Fuzzy matches a partial card name against the known names",
		Tags:        []string{"Search"},
		Middlewares: huma.Middlewares{s.rateLimited},
	}, s.handleSuggest)
}

// === DTOs ===

// SearchInput contains parameters for a card query.
type SearchInput struct {
	Query string `query:"q" validate:"required,max=1000" doc:"Query string, e.g. name:bolt or Like:\"Lightning Bolt\""`
	Lang  string `query:"lang" validate:"omitempty,language" doc:"Display language bound to localized fields (default en)"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=1000" doc:"Max hits to return (default 100)"`
}

// CardSummary is the per-hit card projection.
type CardSummary struct {
	ID       string   `json:"id" doc:"Card id"`
	Name     string   `json:"name" doc:"Name in the requested language, English when untranslated"`
	NameEn   string   `json:"name_en" doc:"English name"`
	SetCode  string   `json:"set_code" doc:"Set code"`
	Number   string   `json:"number,omitempty" doc:"Collector number"`
	Type     string   `json:"type,omitempty" doc:"Type line"`
	ManaCost string   `json:"mana_cost,omitempty" doc:"Mana cost"`
	Rarity   string   `json:"rarity,omitempty" doc:"Rarity"`
	IsToken  bool     `json:"is_token,omitempty" doc:"Whether the card is a token"`
	Price    *float32 `json:"price,omitempty" doc:"Current price, when known"`
}

// SearchHitResult is a single search hit.
type SearchHitResult struct {
	CardSummary
	Ordinal int     `json:"ordinal" doc:"Position in corpus order"`
	Score   float64 `json:"score" doc:"Relevance score"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original query"`
	Ready  bool              `json:"ready" doc:"False while cards or index are still loading"`
	Total  int               `json:"total" doc:"Number of hits before the limit"`
	TookMs int64             `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Search hits"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// SuggestInput contains parameters for name suggestions.
type SuggestInput struct {
	Query string `query:"q" validate:"required,max=200" doc:"Partial card name"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=50" doc:"Max suggestions (default 10)"`
}

// SuggestResponse lists suggested names, best match first.
type SuggestResponse struct {
	Names []string `json:"names" doc:"Suggested card names"`
}

// SuggestOutput wraps the suggest response for Huma.
type SuggestOutput struct {
	Body SuggestResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, toAPIError(err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	resp := SearchResponse{Query: input.Query, Hits: []SearchHitResult{}}
	if !s.ready() {
		return &SearchOutput{Body: resp}, nil
	}
	resp.Ready = true

	start := time.Now()
	hits, err := s.searcher.Search(ctx, input.Query, input.Lang)
	if err != nil {
		s.logger.Debug("Search failed", "query", input.Query, "error", err)
		return nil, toAPIError(err)
	}
	resp.TookMs = time.Since(start).Milliseconds()
	resp.Total = len(hits)

	if len(hits) > limit {
		hits = hits[:limit]
	}
	for _, h := range hits {
		c, ok := s.corpus.Card(h.ID)
		if !ok {
			continue
		}
		resp.Hits = append(resp.Hits, SearchHitResult{
			CardSummary: s.summarize(c, input.Lang),
			Ordinal:     h.Ordinal,
			Score:       h.Score,
		})
	}

	s.logger.Debug("Search completed",
		"query", input.Query,
		"lang", input.Lang,
		"hits", resp.Total,
		"took_ms", resp.TookMs,
	)
	return &SearchOutput{Body: resp}, nil
}

func (s *Server) handleSuggest(_ context.Context, input *SuggestInput) (*SuggestOutput, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, toAPIError(err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	names := []string{}
	if s.searcher != nil {
		if found := s.searcher.Suggest(input.Query, limit); found != nil {
			names = found
		}
	}
	return &SuggestOutput{Body: SuggestResponse{Names: names}}, nil
}

// ready reports whether queries can be answered.
func (s *Server) ready() bool {
	return s.corpus != nil && s.corpus.IsLoaded() &&
		s.searcher != nil && s.searcher.IsIndexLoaded()
}

// localized returns c's texts in lang, or false until localizations are
// attached.
func (s *Server) localized(c *domain.Card, lang string) (domain.LocalizedText, bool) {
	if lang != "" && lang != "en" && !s.corpus.Localized().Succeeded() {
		return domain.LocalizedText{}, false
	}
	return c.Localized(lang)
}

func (s *Server) summarize(c *domain.Card, lang string) CardSummary {
	name := c.NameEn
	if lt, ok := s.localized(c, lang); ok && lt.Name != "" {
		name = lt.Name
	}
	sum := CardSummary{
		ID:       c.ID,
		Name:     name,
		NameEn:   c.NameEn,
		SetCode:  c.SetCode,
		Number:   c.Number,
		Type:     c.TypeEn,
		ManaCost: c.ManaCost,
		Rarity:   c.Rarity,
		IsToken:  c.IsToken,
	}
	if s.corpus.PricesLoaded().Succeeded() {
		if p, ok := c.CurrentPrice(); ok {
			sum.Price = &p
		}
	}
	return sum
}
