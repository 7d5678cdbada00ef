// Package api serves the read-only card query surface over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/ratelimit"
	"github.com/mtgdb/mtgdb-server/internal/search"
	"github.com/mtgdb/mtgdb-server/internal/signal"
	"github.com/mtgdb/mtgdb-server/internal/validation"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Corpus is the card model read by the handlers. Localized texts and prices
// are attached after IsLoaded reports true; they are read only once their
// signal has succeeded.
type Corpus interface {
	IsLoaded() bool
	DatasetVersion() string
	Card(id string) (*domain.Card, bool)
	Cards() []*domain.Card
	Localized() signal.Waiter
	PricesLoaded() signal.Waiter
	DeletePriceCache()
}

// Searcher answers card queries.
type Searcher interface {
	Search(ctx context.Context, queryString, lang string) ([]search.Hit, error)
	Suggest(input string, limit int) []string
	InvalidateIndex() error
	IsIndexLoaded() bool
	DocumentCount() (uint64, error)
}

// IndexReloader rebuilds or reopens the index on demand.
type IndexReloader interface {
	ReloadIndex(ctx context.Context) (bool, error)
}

// Deps groups the components the server reads.
type Deps struct {
	Corpus   Corpus
	Searcher Searcher
	Reloader IndexReloader // nil disables background rebuilds after invalidation
	Limiter  *ratelimit.KeyedRateLimiter
}

// Options configures the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	corpus    Corpus
	searcher  Searcher
	reloader  IndexReloader
	limiter   *ratelimit.KeyedRateLimiter
	validator *validation.Validator
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger

	// rebuildCtx bounds background rebuilds; cancelled by Shutdown.
	rebuildCtx    context.Context
	cancelRebuild context.CancelFunc
}

// NewServer creates the server with all routes registered.
func NewServer(deps Deps, opts Options) *Server {
	log := logger.OrDiscard(opts.Logger)
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(opts.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("mtgdb API", Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		corpus:        deps.Corpus,
		searcher:      deps.Searcher,
		reloader:      deps.Reloader,
		limiter:       deps.Limiter,
		validator:     validation.New(),
		router:        router,
		api:           api,
		logger:        log,
		rebuildCtx:    ctx,
		cancelRebuild: cancel,
	}

	s.registerHealthRoutes()
	s.registerSearchRoutes()
	s.registerCardRoutes()
	s.registerAdminRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API { return s.api }

// Shutdown cancels any background index rebuild.
func (s *Server) Shutdown() {
	s.cancelRebuild()
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
