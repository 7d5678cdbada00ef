package api

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	"github.com/mtgdb/mtgdb-server/internal/loader"
	"github.com/mtgdb/mtgdb-server/internal/price"
	"github.com/mtgdb/mtgdb-server/internal/ratelimit"
	"github.com/mtgdb/mtgdb-server/internal/repository"
	"github.com/mtgdb/mtgdb-server/internal/search"
)

const testdata = "../repository/testdata"

// testEnvelope mirrors Envelope with a typed payload.
type testEnvelope[T any] struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *APIError `json:"error"`
}

type testServer struct {
	*Server
	api       humatest.TestAPI
	repo      *repository.Repository
	searcher  *search.Searcher
	loader    *loader.Loader
	cachePath string
}

// setupTestServer creates a server over the fixture corpus. The corpus is
// not loaded; call load to run the pipeline.
func setupTestServer(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testServer {
	t.Helper()

	cachePath := filepath.Join(t.TempDir(), "AllPrices.cache.json")
	repo := repository.New(repository.Options{
		SetsPath:       filepath.Join(testdata, "AllPrintings.json"),
		PatchPath:      filepath.Join(testdata, "patch.v2.json"),
		CustomSetsDir:  filepath.Join(testdata, "custom_sets"),
		CustomSetCodes: []string{"CUS"},
		PriceFeedPath:  filepath.Join(testdata, "AllPrices.json"),
		PriceCache:     price.NewFileCache(cachePath),
	})

	searcher, err := search.NewSearcher(repo, search.Options{IndexPath: t.TempDir(), IndexVersion: "1.30"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = searcher.Close() })

	l := loader.New(repo, searcher, nil, nil)

	s := NewServer(Deps{
		Corpus:   repo,
		Searcher: searcher,
		Reloader: l,
		Limiter:  limiter,
	}, Options{})
	t.Cleanup(s.Shutdown)

	return &testServer{
		Server:    s,
		api:       humatest.Wrap(t, s.API()),
		repo:      repo,
		searcher:  searcher,
		loader:    l,
		cachePath: cachePath,
	}
}

func (ts *testServer) load(t *testing.T) {
	t.Helper()
	_, err := ts.loader.Run(context.Background())
	require.NoError(t, err)
}

// cardID returns the id of the card with the given source uuid.
func (ts *testServer) cardID(t *testing.T, mtgjsonID string) string {
	t.Helper()
	for _, c := range ts.repo.Cards() {
		if c.MtgjsonID == mtgjsonID {
			return c.ID
		}
	}
	t.Fatalf("no card %s", mtgjsonID)
	return ""
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, envelopeVersion, env.V)
	return env
}

func searchPath(q string, extra ...string) string {
	v := url.Values{"q": {q}}
	for i := 0; i+1 < len(extra); i += 2 {
		v.Set(extra[i], extra[i+1])
	}
	return "/api/v1/search?" + v.Encode()
}

// === Health ===

func TestHealthCheck_BeforeLoad(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, statusDegraded, env.Data.Status)
	assert.Equal(t, "loading", env.Data.Components["corpus"].Message)
	assert.Equal(t, statusDegraded, env.Data.Components["search"].Status)
	assert.Empty(t, env.Data.DatasetVersion)
}

func TestHealthCheck_AfterLoad(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, statusHealthy, env.Data.Status)
	for name, c := range env.Data.Components {
		assert.Equal(t, statusHealthy, c.Status, name)
	}
	assert.Equal(t, ts.repo.DatasetVersion(), env.Data.DatasetVersion)
}

// === Search ===

func TestSearch_BeforeReadyReturnsEmpty(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get(searchPath("name:bolt"))
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[SearchResponse](t, resp.Body.Bytes())
	assert.False(t, env.Data.Ready)
	assert.Empty(t, env.Data.Hits)
	assert.Zero(t, env.Data.Total)
}

func TestSearch_ReturnsHits(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)

	resp := ts.api.Get(searchPath("name:bolt"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[SearchResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.True(t, env.Data.Ready)
	assert.Equal(t, 4, env.Data.Total)
	require.Len(t, env.Data.Hits, 4)
	for i, h := range env.Data.Hits {
		assert.Equal(t, "Lightning Bolt", h.Name)
		if i > 0 {
			prev := env.Data.Hits[i-1]
			assert.True(t, prev.Score > h.Score || (prev.Score == h.Score && prev.Ordinal < h.Ordinal))
		}
	}
}

func TestSearch_LocalizedNamesAndLimit(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)

	resp := ts.api.Get(searchPath("name:blitzschlag", "lang", "de", "limit", "2"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[SearchResponse](t, resp.Body.Bytes())
	assert.Equal(t, 3, env.Data.Total)
	require.Len(t, env.Data.Hits, 2)
	for _, h := range env.Data.Hits {
		assert.Equal(t, "Blitzschlag", h.Name)
		assert.Equal(t, "Lightning Bolt", h.NameEn)
	}
}

func TestSearch_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)

	tests := []struct {
		name string
		path string
	}{
		{"parse error", searchPath("(bolt")},
		{"missing query", "/api/v1/search"},
		{"unsupported language", searchPath("bolt", "lang", "xx")},
		{"limit out of range", searchPath("bolt", "limit", "5000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get(tt.path)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

			env := decode[any](t, resp.Body.Bytes())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION", env.Error.Code)
		})
	}
}

func TestSearch_RateLimited(t *testing.T) {
	limiter := ratelimit.New(0.001, 2, time.Minute)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, limiter)

	for range 2 {
		resp := ts.api.Get(searchPath("bolt"), "X-Forwarded-For: 203.0.113.7")
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get(searchPath("bolt"), "X-Forwarded-For: 203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decode[any](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)

	// Another client has its own bucket.
	resp = ts.api.Get(searchPath("bolt"), "X-Forwarded-For: 198.51.100.1")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSuggest(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/suggest?q=llanowr")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[SuggestResponse](t, resp.Body.Bytes()).Data.Names)

	ts.load(t)

	resp = ts.api.Get("/api/v1/suggest?q=llanowr&limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"Llanowar Elves"}, decode[SuggestResponse](t, resp.Body.Bytes()).Data.Names)
}

// === Cards ===

func TestGetCard(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)
	id := ts.cardID(t, "lea-bolt")

	resp := ts.api.Get("/api/v1/cards/" + id + "?lang=de")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[CardResponse](t, resp.Body.Bytes())
	card := env.Data
	assert.Equal(t, id, card.ID)
	assert.Equal(t, "Blitzschlag", card.Name)
	assert.Equal(t, "Lightning Bolt", card.NameEn)
	assert.Equal(t, domain.CategoryNormal, card.Category)
	assert.NotEmpty(t, card.Printings)
	require.NotNil(t, card.Localized)
	assert.Equal(t, "Spontanzauber", card.Localized.Type)
	require.NotNil(t, card.Price)
	for _, l := range card.Legalities {
		assert.NotEqual(t, string(domain.Illegal), l)
	}
}

func TestGetCard_DuringLocalizationAndPricing(t *testing.T) {
	ts := setupTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, ts.repo.LoadFile())
	require.NoError(t, ts.repo.Load(ctx))
	require.NoError(t, ts.repo.LoadPrice(ctx))

	ids := make([]string, 0, len(ts.repo.Cards()))
	for _, c := range ts.repo.Cards() {
		ids = append(ids, c.ID)
	}

	filled := make(chan error, 1)
	go func() {
		if err := ts.repo.FillLocalizations(); err != nil {
			filled <- err
			return
		}
		filled <- ts.repo.FillPrice(ctx)
	}()

	for range 3 {
		for _, id := range ids {
			out, err := ts.handleGetCard(ctx, &GetCardInput{ID: id, Lang: "de"})
			require.NoError(t, err)
			assert.NotEmpty(t, out.Body.Name)
		}
	}
	require.NoError(t, <-filled)

	out, err := ts.handleGetCard(ctx, &GetCardInput{ID: ts.cardID(t, "lea-bolt"), Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, "Blitzschlag", out.Body.Name)
	require.NotNil(t, out.Body.Localized)
	assert.NotNil(t, out.Body.Price)
}

func TestGetCard_BeforeLocalizationAndPricing(t *testing.T) {
	ts := setupTestServer(t, nil)
	require.NoError(t, ts.repo.LoadFile())
	require.NoError(t, ts.repo.Load(context.Background()))
	id := ts.cardID(t, "lea-bolt")

	resp := ts.api.Get("/api/v1/cards/" + id + "?lang=de")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	card := decode[CardResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "Lightning Bolt", card.Name)
	assert.Nil(t, card.Localized)
	assert.Nil(t, card.Price)

	resp = ts.api.Get("/api/v1/cards/" + id)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Lightning Bolt", decode[CardResponse](t, resp.Body.Bytes()).Data.Name)
}

func TestGetCard_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)
	unknown := "6ba7b8109dad11d180b400c04fd430c8"

	resp := ts.api.Get("/api/v1/cards/" + unknown)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "NOT_READY", decode[any](t, resp.Body.Bytes()).Error.Code)

	ts.load(t)

	resp = ts.api.Get("/api/v1/cards/" + unknown)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[any](t, resp.Body.Bytes()).Error.Code)

	resp = ts.api.Get("/api/v1/cards/lea-bolt")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

// === Admin ===

func TestInvalidateIndex_RebuildsInBackground(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)
	require.True(t, ts.searcher.IsUpToDate())

	resp := ts.api.Post("/api/v1/admin/index/invalidate")
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.Contains(t, decode[AdminActionResponse](t, resp.Body.Bytes()).Data.Message, "rebuild started")

	require.Eventually(t, ts.searcher.IsUpToDate, 10*time.Second, 20*time.Millisecond)

	resp = ts.api.Get(searchPath("name:bolt"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 4, decode[SearchResponse](t, resp.Body.Bytes()).Data.Total)
}

func TestRefreshPrices_DeletesCache(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.load(t)
	_, err := os.Stat(ts.cachePath)
	require.NoError(t, err)

	resp := ts.api.Post("/api/v1/admin/prices/refresh")
	require.Equal(t, http.StatusOK, resp.Code)

	_, err = os.Stat(ts.cachePath)
	assert.True(t, os.IsNotExist(err))
}

// === Envelope ===

func TestEnvelopeTransformer(t *testing.T) {
	data := map[string]string{"id": "x"}
	out, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)
	env, ok := out.(*Envelope)
	require.True(t, ok)
	assert.True(t, env.Success)
	assert.Equal(t, data, env.Data)
	assert.Nil(t, env.Error)

	apiErr := &APIError{status: http.StatusNotFound, Code: "NOT_FOUND", Message: "gone"}
	out, err = EnvelopeTransformer(nil, "404", apiErr)
	require.NoError(t, err)
	env = out.(*Envelope)
	assert.False(t, env.Success)
	assert.Same(t, apiErr, env.Error)

	// Already wrapped bodies pass through.
	again, err := EnvelopeTransformer(nil, "200", env)
	require.NoError(t, err)
	assert.Same(t, env, again)
}
