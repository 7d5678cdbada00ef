package search

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
	"github.com/mtgdb/mtgdb-server/internal/indexversion"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	grammar "github.com/mtgdb/mtgdb-server/internal/query"
	"github.com/mtgdb/mtgdb-server/internal/signal"
)

// Corpus is the card model a Searcher indexes and resolves hits against.
type Corpus interface {
	IsLoaded() bool
	Localized() signal.Waiter
	DatasetVersion() string
	Cards() []*domain.Card
	Card(id string) (*domain.Card, bool)
	Namesakes(name string, tokens bool) []*domain.Card
	Names() []string
}

// Options configures the searcher.
type Options struct {
	IndexPath    string       // Parent directory of the tagged index directories
	IndexVersion string       // Builder version; joined with the dataset version into the tag
	LikeField    string       // Reserved similarity field, "Like" if empty
	MaxResults   int          // Upper bound on hits per query; 0 returns every match
	CacheSize    int          // Cached result sets; 0 disables the cache
	Logger       *slog.Logger // Logger for operations (uses discard if nil)
}

// DefaultLikeField is the similarity pseudo-field used when none is configured.
const DefaultLikeField = "Like"

const (
	bleveDirName = "cards.bleve"
	batchSize    = 500
)

// Hit is one search result.
type Hit struct {
	Ordinal int     `json:"ordinal"`
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
}

// Searcher builds or opens the card index and answers queries against it.
//
// Thread safety: All public methods are safe for concurrent use. Queries keep
// running against the previous index while a rebuild is in progress.
type Searcher struct {
	corpus Corpus
	opts   Options
	fields *FieldAdapter
	logger *slog.Logger
	cache  *lru.Cache

	buildMu sync.Mutex // Serializes build-or-load
	rebuild bool       // Set by InvalidateIndex, guarded by buildMu

	mu      sync.RWMutex // Protects index and version
	index   bleve.Index
	version *indexversion.Version

	namesOnce sync.Once
	names     []string
	folded    []string
}

// NewSearcher creates a searcher over corpus. No index is open until LoadIndex
// succeeds; until then every query returns no hits.
func NewSearcher(corpus Corpus, opts Options) (*Searcher, error) {
	if opts.LikeField == "" {
		opts.LikeField = DefaultLikeField
	}
	if opts.MaxResults < 0 {
		opts.MaxResults = 0
	}

	s := &Searcher{
		corpus: corpus,
		opts:   opts,
		fields: NewFieldAdapter(opts.LikeField),
		logger: logger.OrDiscard(opts.Logger),
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Fields returns the field adapter used to compile queries.
func (s *Searcher) Fields() *FieldAdapter { return s.fields }

func (s *Searcher) currentVersion() *indexversion.Version {
	tag := indexversion.Tag(s.opts.IndexVersion, s.corpus.DatasetVersion())
	return indexversion.New(s.opts.IndexPath, tag, s.logger)
}

// LoadIndex opens the index for the corpus's dataset version, building it
// first when no complete index exists. Obsolete index directories are removed.
// built reports whether a new index was written.
func (s *Searcher) LoadIndex(ctx context.Context) (built bool, err error) {
	if !s.corpus.IsLoaded() {
		return false, domainerrors.NotReady("cards must be loaded before the index")
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	v := s.currentVersion()
	v.RemoveObsoleteIndexes()

	if s.rebuild {
		if err := v.Invalidate(); err != nil {
			return false, fmt.Errorf("invalidate index: %w", err)
		}
	}

	if v.IsUpToDate() {
		idx, err := openReadOnly(v)
		if err == nil {
			s.swap(idx, v)
			s.logger.Info("opened search index", "tag", v.Tag())
			return false, nil
		}
		s.logger.Warn("failed to open search index, will rebuild",
			"tag", v.Tag(),
			"error", err,
		)
	}

	if !s.corpus.Localized().Succeeded() {
		return false, domainerrors.NotReady("localizations must be loaded before the index is built")
	}

	if err := s.build(ctx, v); err != nil {
		return false, err
	}
	idx, err := openReadOnly(v)
	if err != nil {
		return true, fmt.Errorf("open built index: %w", err)
	}
	s.swap(idx, v)
	s.rebuild = false
	return true, nil
}

// build writes every card into the staging directory of v and promotes it.
// A failed or cancelled build leaves no trace.
func (s *Searcher) build(ctx context.Context, v *indexversion.Version) (err error) {
	start := time.Now()

	dir, err := v.CreateDirectory()
	if err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	m, err := buildIndexMapping()
	if err != nil {
		v.Abandon()
		return fmt.Errorf("build index mapping: %w", err)
	}
	idx, err := bleve.New(filepath.Join(dir, bleveDirName), m)
	if err != nil {
		v.Abandon()
		return fmt.Errorf("create index: %w", err)
	}

	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = idx.Close()
		}
		v.Abandon()
	}()

	cards := s.corpus.Cards()
	batch := idx.NewBatch()
	for _, c := range cards {
		if err := batch.Index(c.ID, newCardDocument(c).ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", c.ID, err)
		}
		if batch.Size() < batchSize {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		batch.Reset()
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	closed = true
	if err := idx.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := v.SetIsUpToDate(); err != nil {
		return fmt.Errorf("promote index: %w", err)
	}

	s.logger.Info("built search index",
		"tag", v.Tag(),
		"documents", len(cards),
		"duration", time.Since(start),
	)
	return nil
}

// openReadOnly opens the promoted index of v. Scorch maps segment files into
// memory when opened read-only.
func openReadOnly(v *indexversion.Version) (bleve.Index, error) {
	return bleve.OpenUsing(filepath.Join(v.Directory(), bleveDirName), map[string]interface{}{
		"read_only": true,
	})
}

func (s *Searcher) swap(idx bleve.Index, v *indexversion.Version) {
	s.mu.Lock()
	old := s.index
	s.index = idx
	s.version = v
	if s.cache != nil {
		s.cache.Purge()
	}
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("failed to close previous search index", "error", err)
		}
	}
}

// InvalidateIndex marks the index stale so the next LoadIndex rebuilds it.
// The open index keeps serving queries until then.
func (s *Searcher) InvalidateIndex() error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.rebuild = true

	s.mu.RLock()
	v := s.version
	s.mu.RUnlock()
	if v == nil {
		return nil
	}
	if err := v.Invalidate(); err != nil {
		return fmt.Errorf("invalidate index: %w", err)
	}
	s.logger.Info("invalidated search index", "tag", v.Tag())
	return nil
}

// IsUpToDate reports whether a complete index exists for the corpus's
// current dataset version.
func (s *Searcher) IsUpToDate() bool {
	if !s.corpus.IsLoaded() {
		return false
	}
	return s.currentVersion().IsUpToDate()
}

// IsIndexLoaded reports whether an index is open.
func (s *Searcher) IsIndexLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// DocumentCount returns the number of indexed documents, 0 before an index
// is open.
func (s *Searcher) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocCount()
}

// Search runs queryString with localized fields bound to lang and returns
// hits ordered by descending score, then by ordinal. It returns no hits
// while no index is open.
func (s *Searcher) Search(ctx context.Context, queryString, lang string) ([]Hit, error) {
	lang = displayLanguage(lang)
	key := lang + "\x00" + queryString

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return nil, nil
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return slices.Clone(cached.([]Hit)), nil
		}
	}

	ast, err := grammar.ParseString(queryString)
	if err != nil {
		return nil, err
	}
	if ast == nil {
		return nil, nil
	}

	q := (&compiler{corpus: s.corpus, fields: s.fields, lang: lang}).compile(ast)

	size := s.opts.MaxResults
	if size == 0 {
		count, err := s.index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		size = int(count)
	}
	if size == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.SortBy([]string{"-_score", fieldOrdinal})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		c, ok := s.corpus.Card(h.ID)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Ordinal: c.Ordinal, ID: h.ID, Score: h.Score})
	}

	if s.cache != nil {
		s.cache.Add(key, slices.Clone(hits))
	}
	return hits, nil
}

// SearchCards is Search resolved to cards, in hit order.
func (s *Searcher) SearchCards(ctx context.Context, queryString, lang string) ([]*domain.Card, error) {
	hits, err := s.Search(ctx, queryString, lang)
	if err != nil {
		return nil, err
	}
	cards := make([]*domain.Card, 0, len(hits))
	for _, h := range hits {
		if c, ok := s.corpus.Card(h.ID); ok {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

// Close closes the open index, if any.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
