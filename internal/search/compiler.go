package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mtgdb/mtgdb-server/internal/normalize"
	grammar "github.com/mtgdb/mtgdb-server/internal/query"
)

const defaultFuzziness = 2

// compiler turns a parsed query into Bleve queries for one display language.
// Clauses it cannot satisfy compile to match-none rather than failing.
type compiler struct {
	corpus Corpus
	fields *FieldAdapter
	lang   string
}

func (c *compiler) compile(n grammar.Node) query.Query {
	switch n := n.(type) {
	case *grammar.And:
		return c.compileAnd(n.Clauses)
	case *grammar.Or:
		clauses := make([]query.Query, len(n.Clauses))
		for i, clause := range n.Clauses {
			clauses[i] = c.compile(clause)
		}
		return bleve.NewDisjunctionQuery(clauses...)
	case *grammar.Not:
		return c.compileAnd([]grammar.Node{n})
	case *grammar.Group:
		return withBoost(c.compile(n.Clause), n.Boost)
	case *grammar.Term:
		return withBoost(c.compileTerm(n), n.Boost)
	case *grammar.Range:
		return withBoost(c.compileRange(n), n.Boost)
	default:
		return bleve.NewMatchNoneQuery()
	}
}

func (c *compiler) compileAnd(clauses []grammar.Node) query.Query {
	var must, mustNot []query.Query
	for _, clause := range clauses {
		if not, ok := clause.(*grammar.Not); ok {
			mustNot = append(mustNot, c.compile(not.Clause))
			continue
		}
		must = append(must, c.compile(clause))
	}
	if len(mustNot) == 0 {
		return bleve.NewConjunctionQuery(must...)
	}

	b := bleve.NewBooleanQuery()
	if len(must) == 0 {
		b.AddMust(bleve.NewMatchAllQuery())
	} else {
		b.AddMust(must...)
	}
	b.AddMustNot(mustNot...)
	return b
}

func (c *compiler) compileTerm(t *grammar.Term) query.Query {
	if c.fields.IsLike(t.Field) {
		return c.compileLike(t)
	}

	targets, ok := c.targets(t.Field)
	if !ok {
		return bleve.NewMatchNoneQuery()
	}
	clauses := make([]query.Query, len(targets))
	for i, f := range targets {
		clauses[i] = termQuery(t, f)
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

func (c *compiler) targets(field string) ([]indexField, bool) {
	if field == "" {
		return c.fields.AnyFields(c.lang), true
	}
	return c.fields.Resolve(field, c.lang)
}

func termQuery(t *grammar.Term, f indexField) query.Query {
	value := normalize.RemoveDiacritics(grammar.Unescape(t.Image))
	lower := strings.ToLower(value)

	if f.kind == kindNumeric {
		if t.Prefix || t.Wildcard || t.Regex || t.Fuzzy {
			return bleve.NewMatchNoneQuery()
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return bleve.NewMatchNoneQuery()
		}
		inclusive := true
		q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		q.SetField(f.index)
		return q
	}

	switch {
	case t.Prefix:
		q := bleve.NewPrefixQuery(lower)
		q.SetField(f.index)
		return q
	case t.Wildcard:
		q := bleve.NewWildcardQuery(strings.ToLower(normalize.RemoveDiacritics(t.Image)))
		q.SetField(f.index)
		return q
	case t.Regex:
		q := bleve.NewRegexpQuery(t.Image)
		q.SetField(f.index)
		return q
	case t.Fuzzy:
		q := bleve.NewFuzzyQuery(lower)
		q.SetFuzziness(fuzziness(t.Slop))
		q.SetField(f.index)
		return q
	}

	if f.kind == kindKeyword {
		q := bleve.NewTermQuery(lower)
		q.SetField(f.index)
		return q
	}

	if t.Quoted && !(t.HasSlop && parseFloat(t.Slop) > 0) {
		q := bleve.NewMatchPhraseQuery(value)
		q.SetField(f.index)
		return q
	}
	q := bleve.NewMatchQuery(value)
	q.SetField(f.index)
	q.SetOperator(query.MatchQueryOperatorAnd)
	return q
}

func (c *compiler) compileRange(r *grammar.Range) query.Query {
	targets, ok := c.targets(r.Field)
	if !ok {
		return bleve.NewMatchNoneQuery()
	}

	clauses := make([]query.Query, 0, len(targets))
	for _, f := range targets {
		lower := normalize.RemoveDiacritics(r.Lower)
		upper := normalize.RemoveDiacritics(r.Upper)
		includeLower, includeUpper := r.IncludeLower, r.IncludeUpper

		if lower == "" && upper == "" {
			clauses = append(clauses, fieldExists(f))
			continue
		}

		if f.kind == kindNumeric {
			lo, okLo := rangeBound(lower)
			hi, okHi := rangeBound(upper)
			if !okLo || !okHi {
				clauses = append(clauses, bleve.NewMatchNoneQuery())
				continue
			}
			q := bleve.NewNumericRangeInclusiveQuery(lo, hi, &includeLower, &includeUpper)
			q.SetField(f.index)
			clauses = append(clauses, q)
			continue
		}

		q := bleve.NewTermRangeInclusiveQuery(strings.ToLower(lower), strings.ToLower(upper), &includeLower, &includeUpper)
		q.SetField(f.index)
		clauses = append(clauses, q)
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// compileLike builds the similarity query for the card named by t. The newest
// printing of the card and of the token with that name each contribute a
// rules text clause and a generated mana clause; the clauses are combined by
// a max-of-disjuncts query.
func (c *compiler) compileLike(t *grammar.Term) query.Query {
	if t.Prefix || t.Wildcard || t.Regex || t.Fuzzy {
		return bleve.NewMatchNoneQuery()
	}
	name := grammar.Unescape(t.Image)
	if name == "" || c.corpus == nil || !c.corpus.IsLoaded() {
		return bleve.NewMatchNoneQuery()
	}
	name = normalize.RemoveDiacritics(name)

	var slop float64
	if t.HasSlop {
		slop = parseFloat(t.Slop)
	}

	result := newDisMaxQuery(likeTieBreaker)
	for _, tokens := range []bool{false, true} {
		namesakes := c.corpus.Namesakes(name, tokens)
		if len(namesakes) == 0 {
			continue
		}
		card := namesakes[0]
		if card.TextEn != "" {
			result.add(newMoreLikeThisQuery(normalize.RemoveDiacritics(card.TextEn), fieldTextEn, slop))
		}
		if card.GeneratedMana != "" {
			result.add(newMoreLikeThisQuery(card.GeneratedMana, fieldGeneratedMana, slop))
		}
	}

	if len(result.disjuncts) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	return result
}

// fieldExists matches documents with any value in f.
func fieldExists(f indexField) query.Query {
	if f.kind == kindNumeric {
		lo, hi := -math.MaxFloat64, math.MaxFloat64
		inclusive := true
		q := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		q.SetField(f.index)
		return q
	}
	q := bleve.NewWildcardQuery("*")
	q.SetField(f.index)
	return q
}

func withBoost(q query.Query, boost float64) query.Query {
	if boost <= 0 {
		return q
	}
	if bq, ok := q.(query.BoostableQuery); ok {
		bq.SetBoost(boost)
	}
	return q
}

// fuzziness maps a fuzzy suffix to an edit distance in [0, 2]. A fraction is
// a similarity in the older style and allows one edit.
func fuzziness(slop string) int {
	if slop == "" {
		return defaultFuzziness
	}
	v := parseFloat(slop)
	switch {
	case v <= 0:
		return 0
	case v < 1:
		return 1
	case v >= defaultFuzziness:
		return defaultFuzziness
	default:
		return int(v)
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// rangeBound parses a numeric range bound; an empty bound is open.
func rangeBound(s string) (*float64, bool) {
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}
