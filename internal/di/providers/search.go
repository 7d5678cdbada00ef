package providers

import (
	"github.com/samber/do/v2"

	"github.com/mtgdb/mtgdb-server/internal/config"
	"github.com/mtgdb/mtgdb-server/internal/logger"
	"github.com/mtgdb/mtgdb-server/internal/repository"
	"github.com/mtgdb/mtgdb-server/internal/search"
)

// SearcherHandle wraps the searcher with shutdown capability.
type SearcherHandle struct {
	*search.Searcher
}

// Shutdown implements do.Shutdownable.
func (h *SearcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearcher provides the card searcher. The index is opened or built
// by the loader once the corpus is localized.
func ProvideSearcher(i do.Injector) (*SearcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	repo := do.MustInvoke[*repository.Repository](i)

	s, err := search.NewSearcher(repo, search.Options{
		IndexPath:    cfg.Index.Path,
		IndexVersion: cfg.Index.Version,
		LikeField:    cfg.Search.LikeField,
		MaxResults:   cfg.Search.MaxResults,
		CacheSize:    cfg.Search.CacheSize,
		Logger:       log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	return &SearcherHandle{Searcher: s}, nil
}
