package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mtgdb/mtgdb-server/internal/normalize"
)

// nameSource implements fuzzy.Source over folded card names.
type nameSource []string

func (n nameSource) String(i int) string { return n[i] }

func (n nameSource) Len() int { return len(n) }

// Suggest returns up to limit card names that fuzzily match input, best
// match first. Matching ignores case and diacritics.
func (s *Searcher) Suggest(input string, limit int) []string {
	pattern := strings.ToLower(normalize.RemoveDiacritics(strings.TrimSpace(input)))
	if pattern == "" || limit <= 0 || !s.corpus.IsLoaded() {
		return nil
	}

	s.namesOnce.Do(func() {
		s.names = s.corpus.Names()
		s.folded = make([]string, len(s.names))
		for i, name := range s.names {
			s.folded[i] = strings.ToLower(normalize.RemoveDiacritics(name))
		}
	})

	matches := fuzzy.FindFrom(pattern, nameSource(s.folded))
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = s.names[m.Index]
	}
	return out
}
