package search

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
)

// Similarity query parameters.
const (
	defaultMinShouldMatch = 0.6
	maxQueryTerms         = 20
	minDocFreq            = 3
	minTermFreq           = 1
)

//nolint:gochecknoglobals // Static lookup table
var likeStopWords = func() map[string]struct{} {
	words := map[string]struct{}{"a": {}, "an": {}, "the": {}}
	for _, w := range singletonWords {
		words[w] = struct{}{}
	}
	return words
}()

// moreLikeThisQuery matches documents sharing enough of the most distinctive
// terms of a reference text in one field.
//
// The reference text is analyzed with the field's analyzer. Terms found in
// fewer than minDocFreq documents are dropped and the rest are ranked by
// tf·idf; the top maxQueryTerms become term clauses of which at least
// floor(n·minShouldMatch) must match.
type moreLikeThisQuery struct {
	text           string
	field          string
	minShouldMatch float64
}

// newMoreLikeThisQuery clamps minShouldMatch to (0, 1]; zero or less selects
// the default.
func newMoreLikeThisQuery(text, field string, minShouldMatch float64) *moreLikeThisQuery {
	switch {
	case minShouldMatch <= 0:
		minShouldMatch = defaultMinShouldMatch
	case minShouldMatch > 1:
		minShouldMatch = 1
	}
	return &moreLikeThisQuery{text: text, field: field, minShouldMatch: minShouldMatch}
}

func (q *moreLikeThisQuery) Searcher(ctx context.Context, i index.IndexReader, m mapping.IndexMapping, options search.SearcherOptions) (search.Searcher, error) {
	terms, err := q.interestingTerms(ctx, i, m)
	if err != nil {
		return nil, err
	}
	return q.termsQuery(terms).Searcher(ctx, i, m, options)
}

func (q *moreLikeThisQuery) termsQuery(terms []string) query.Query {
	if len(terms) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	clauses := make([]query.Query, len(terms))
	for j, term := range terms {
		tq := bleve.NewTermQuery(term)
		tq.SetField(q.field)
		clauses[j] = tq
	}
	disjunction := bleve.NewDisjunctionQuery(clauses...)
	disjunction.SetMin(math.Floor(float64(len(terms)) * q.minShouldMatch))
	return disjunction
}

type scoredTerm struct {
	term  string
	score float64
}

// interestingTerms returns the selected terms, best first.
func (q *moreLikeThisQuery) interestingTerms(ctx context.Context, i index.IndexReader, m mapping.IndexMapping) ([]string, error) {
	analyzer := m.AnalyzerNamed(m.AnalyzerNameForPath(q.field))
	if analyzer == nil {
		return nil, fmt.Errorf("no analyzer for field %s", q.field)
	}

	freq := make(map[string]int)
	for _, token := range analyzer.Analyze([]byte(q.text)) {
		term := string(token.Term)
		if _, stop := likeStopWords[term]; stop {
			continue
		}
		freq[term]++
	}
	if len(freq) == 0 {
		return nil, nil
	}

	numDocs, err := i.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	candidates := make([]scoredTerm, 0, len(freq))
	for term, tf := range freq {
		if tf < minTermFreq {
			continue
		}
		df, err := docFreq(ctx, i, q.field, term)
		if err != nil {
			return nil, err
		}
		if df < minDocFreq {
			continue
		}
		idf := 1 + math.Log(float64(numDocs)/float64(df+1))
		candidates = append(candidates, scoredTerm{term: term, score: float64(tf) * idf})
	}

	slices.SortFunc(candidates, func(a, b scoredTerm) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.term, b.term)
	})
	if len(candidates) > maxQueryTerms {
		candidates = candidates[:maxQueryTerms]
	}

	terms := make([]string, len(candidates))
	for j, c := range candidates {
		terms[j] = c.term
	}
	return terms, nil
}

func docFreq(ctx context.Context, i index.IndexReader, field, term string) (uint64, error) {
	reader, err := i.TermFieldReader(ctx, []byte(term), field, false, false, false)
	if err != nil {
		return 0, fmt.Errorf("read term %q in %s: %w", term, field, err)
	}
	defer reader.Close()
	return reader.Count(), nil
}
