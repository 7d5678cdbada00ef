// Package query parses the card search grammar into an AST.
//
// The grammar is field:value clauses combined with AND/OR/NOT (also &&, ||,
// !, - and +), parentheses, quoted phrases, wildcards, /regex/, term~N fuzzy
// and "phrase"~N slop suffixes, ^N boosts and [a TO b] / {a TO b} ranges.
// Adjacent clauses without an operator are combined with AND.
package query

// Node is an element of a parsed query.
type Node interface {
	node()
}

// And matches documents matching every clause.
type And struct {
	Clauses []Node
}

// Or matches documents matching any clause.
type Or struct {
	Clauses []Node
}

// Not excludes documents matching Clause.
type Not struct {
	Clause Node
}

// Group is a parenthesized sub-query carrying its own boost.
type Group struct {
	Clause Node
	Boost  float64
}

// Term is a single value, optionally bound to a field. Field is empty when
// the clause should search every default field.
type Term struct {
	Field string
	// Image is the raw text with escapes intact, without quotes, slashes or a
	// trailing prefix star.
	Image string

	Quoted   bool
	Prefix   bool
	Wildcard bool
	Regex    bool
	Fuzzy    bool

	// HasSlop is set when a ~ suffix is present; Slop holds the text after it,
	// possibly empty.
	HasSlop bool
	Slop    string

	Boost float64
}

// Range is an interval over a field. An empty bound is open.
type Range struct {
	Field        string
	Lower        string
	Upper        string
	IncludeLower bool
	IncludeUpper bool
	Boost        float64
}

func (*And) node()   {}
func (*Or) node()    {}
func (*Not) node()   {}
func (*Group) node() {}
func (*Term) node()  {}
func (*Range) node() {}

// Fields returns the distinct field names referenced by n, in order of first
// appearance. The default field is reported as "".
func Fields(n Node) []string {
	var fields []string
	seen := make(map[string]struct{})
	add := func(f string) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			fields = append(fields, f)
		}
	}

	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *And:
			for _, c := range n.Clauses {
				walk(c)
			}
		case *Or:
			for _, c := range n.Clauses {
				walk(c)
			}
		case *Not:
			walk(n.Clause)
		case *Group:
			walk(n.Clause)
		case *Term:
			add(n.Field)
		case *Range:
			add(n.Field)
		}
	}
	walk(n)
	return fields
}
