package repository

import (
	"time"

	"github.com/mtgdb/mtgdb-server/internal/domain"
	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
	"github.com/mtgdb/mtgdb-server/internal/normalize"
)

// FillLocalizations converts each card's foreign data blocks into per-language
// texts, releases the raw blocks and fires Localized. It requires Load.
func (r *Repository) FillLocalizations() error {
	if !r.loaded.Succeeded() {
		return domainerrors.NotReady("cards are not loaded")
	}
	if r.localized.Fired() {
		return r.localized.Err()
	}

	start := time.Now()
	localized := 0
	for _, c := range r.cards {
		c.Localization = r.localize(c.ForeignData)
		c.ForeignData = nil
		if c.Localization != nil {
			localized++
		}
	}

	r.localized.Fire()
	r.logger.Info("localizations loaded", "cards", localized, "took", time.Since(start))
	return nil
}

func (r *Repository) localize(blocks []domain.ForeignData) domain.Localization {
	var loc domain.Localization
	for _, fd := range blocks {
		lang, ok := normalize.LanguageCode(fd.Language)
		if !ok || lang == "en" {
			continue
		}
		if loc == nil {
			loc = make(domain.Localization)
		}
		name := fd.Name
		if fd.FaceName != "" {
			name = fd.FaceName
		}
		loc[lang] = domain.LocalizedText{
			Name:   r.pool.String(name),
			Type:   r.pool.String(fd.Type),
			Text:   fd.Text,
			Flavor: fd.FlavorText,
		}
	}
	return loc
}
