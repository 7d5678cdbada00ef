package search

import (
	"context"
	"reflect"

	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/blevesearch/bleve/v2/size"
	index "github.com/blevesearch/bleve_index_api"
)

// likeTieBreaker weights the non-maximal disjuncts of a similarity query.
const likeTieBreaker = 0.1

// disMaxQuery matches documents matching any disjunct. A document scores the
// best disjunct score plus tieBreaker times the sum of the others.
type disMaxQuery struct {
	disjuncts  []query.Query
	tieBreaker float64
}

func newDisMaxQuery(tieBreaker float64) *disMaxQuery {
	return &disMaxQuery{tieBreaker: tieBreaker}
}

func (q *disMaxQuery) add(d query.Query) {
	q.disjuncts = append(q.disjuncts, d)
}

func (q *disMaxQuery) Searcher(ctx context.Context, i index.IndexReader, m mapping.IndexMapping, options search.SearcherOptions) (search.Searcher, error) {
	searchers := make([]search.Searcher, 0, len(q.disjuncts))
	for _, d := range q.disjuncts {
		s, err := d.Searcher(ctx, i, m, options)
		if err != nil {
			for _, opened := range searchers {
				_ = opened.Close()
			}
			return nil, err
		}
		searchers = append(searchers, s)
	}
	return newDisMaxSearcher(searchers, q.tieBreaker), nil
}

var reflectStaticSizeDisMaxSearcher int

func init() {
	var s disMaxSearcher
	reflectStaticSizeDisMaxSearcher = int(reflect.TypeOf(s).Size())
}

// disMaxSearcher merges child searchers by internal document id.
type disMaxSearcher struct {
	searchers   []search.Searcher
	currs       []*search.DocumentMatch
	matching    []int
	tieBreaker  float64
	initialized bool
}

func newDisMaxSearcher(searchers []search.Searcher, tieBreaker float64) *disMaxSearcher {
	return &disMaxSearcher{
		searchers:  searchers,
		currs:      make([]*search.DocumentMatch, len(searchers)),
		matching:   make([]int, 0, len(searchers)),
		tieBreaker: tieBreaker,
	}
}

func (s *disMaxSearcher) initSearchers(ctx *search.SearchContext) error {
	for i, child := range s.searchers {
		if s.currs[i] != nil {
			ctx.DocumentMatchPool.Put(s.currs[i])
		}
		next, err := child.Next(ctx)
		if err != nil {
			return err
		}
		s.currs[i] = next
	}
	s.initialized = true
	return nil
}

func (s *disMaxSearcher) Next(ctx *search.SearchContext) (*search.DocumentMatch, error) {
	if !s.initialized {
		if err := s.initSearchers(ctx); err != nil {
			return nil, err
		}
	}

	lowest := -1
	for i, c := range s.currs {
		if c == nil {
			continue
		}
		if lowest < 0 || c.IndexInternalID.Compare(s.currs[lowest].IndexInternalID) < 0 {
			lowest = i
		}
	}
	if lowest < 0 {
		return nil, nil
	}

	s.matching = s.matching[:0]
	for i, c := range s.currs {
		if c != nil && c.IndexInternalID.Equals(s.currs[lowest].IndexInternalID) {
			s.matching = append(s.matching, i)
		}
	}

	rv := s.currs[s.matching[0]]
	best, sum := 0.0, 0.0
	for _, i := range s.matching {
		score := s.currs[i].Score
		sum += score
		if score > best {
			best = score
		}
	}
	rv.Score = best + s.tieBreaker*(sum-best)

	for n, i := range s.matching {
		if n > 0 {
			ctx.DocumentMatchPool.Put(s.currs[i])
		}
		next, err := s.searchers[i].Next(ctx)
		if err != nil {
			return nil, err
		}
		s.currs[i] = next
	}
	return rv, nil
}

func (s *disMaxSearcher) Advance(ctx *search.SearchContext, id index.IndexInternalID) (*search.DocumentMatch, error) {
	if !s.initialized {
		if err := s.initSearchers(ctx); err != nil {
			return nil, err
		}
	}
	for i, c := range s.currs {
		if c == nil || c.IndexInternalID.Compare(id) >= 0 {
			continue
		}
		ctx.DocumentMatchPool.Put(c)
		next, err := s.searchers[i].Advance(ctx, id)
		if err != nil {
			return nil, err
		}
		s.currs[i] = next
	}
	return s.Next(ctx)
}

func (s *disMaxSearcher) Close() (err error) {
	for _, child := range s.searchers {
		if cerr := child.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *disMaxSearcher) Weight() float64 {
	var sum float64
	for _, child := range s.searchers {
		sum += child.Weight()
	}
	return sum
}

func (s *disMaxSearcher) SetQueryNorm(qnorm float64) {
	for _, child := range s.searchers {
		child.SetQueryNorm(qnorm)
	}
}

func (s *disMaxSearcher) Count() uint64 {
	var sum uint64
	for _, child := range s.searchers {
		sum += child.Count()
	}
	return sum
}

func (s *disMaxSearcher) Min() int { return 0 }

func (s *disMaxSearcher) Size() int {
	sizeInBytes := reflectStaticSizeDisMaxSearcher + size.SizeOfPtr +
		len(s.matching)*size.SizeOfInt
	for _, child := range s.searchers {
		sizeInBytes += child.Size()
	}
	for _, c := range s.currs {
		if c != nil {
			sizeInBytes += c.Size()
		}
	}
	return sizeInBytes
}

func (s *disMaxSearcher) DocumentMatchPoolSize() int {
	rv := len(s.currs)
	for _, child := range s.searchers {
		rv += child.DocumentMatchPoolSize()
	}
	return rv
}
