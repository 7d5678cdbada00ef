package query

import (
	"fmt"
	"strconv"
	"strings"

	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
)

// ParseString tokenizes and parses s. An empty query yields a nil Node.
func ParseString(s string) (Node, error) {
	tokens, err := Tokenize(s)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// Parse builds the AST for tokens, which must end with an EOF token. AND binds
// tighter than OR; NOT, '-' and '+' are prefix operators.
func Parse(tokens []Token) (Node, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != EOF {
		tokens = append(tokens, Token{Kind: EOF})
	}
	p := &parser{tokens: tokens}
	if p.peek().Kind == EOF {
		return nil, nil
	}

	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != EOF {
		return nil, p.unexpected(t)
	}
	return n, nil
}

type parser struct {
	tokens []Token
	pos    int
	field  string
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) peekAt(offset int) Token {
	if i := p.pos + offset; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) unexpected(t Token) error {
	if t.Kind == EOF {
		return domainerrors.Validation("unexpected end of query")
	}
	return domainerrors.Validation(fmt.Sprintf("unexpected %s %q at position %d", t.Kind, t.Image, t.Pos))
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	clauses := []Node{first}
	for p.peek().Kind == TokOr {
		p.next()
		c, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	if len(clauses) == 1 {
		return first, nil
	}
	return &Or{Clauses: clauses}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	clauses := []Node{first}
	for {
		switch p.peek().Kind {
		case EOF, TokOr, RParen:
			if len(clauses) == 1 {
				return first, nil
			}
			return &And{Clauses: clauses}, nil
		case TokAnd:
			p.next()
		}
		c, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
}

func (p *parser) parseUnary() (Node, error) {
	switch p.peek().Kind {
	case TokNot, Minus:
		p.next()
		c, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Clause: c}, nil
	case Plus:
		p.next()
		return p.parseUnary()
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (Node, error) {
	field := p.field
	if p.peek().Kind == Word && p.peekAt(1).Kind == Colon {
		field = Unescape(p.next().Image)
		p.next()
	}

	t := p.peek()
	switch t.Kind {
	case LParen:
		p.next()
		saved := p.field
		p.field = field
		inner, err := p.parseOr()
		p.field = saved
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.Kind != RParen {
			return nil, p.unexpected(closing)
		}
		boost, err := p.boost()
		if err != nil {
			return nil, err
		}
		return &Group{Clause: inner, Boost: boost}, nil

	case Word:
		p.next()
		term := classify(field, t.Image)
		if p.peek().Kind == Tilde {
			term.Fuzzy = true
			term.HasSlop = true
			term.Slop = p.next().Image
		}
		return p.withBoost(term)

	case Quoted:
		p.next()
		term := &Term{Field: field, Image: t.Image, Quoted: true}
		if p.peek().Kind == Tilde {
			term.HasSlop = true
			term.Slop = p.next().Image
		}
		return p.withBoost(term)

	case Regex:
		p.next()
		return p.withBoost(&Term{Field: field, Image: t.Image, Regex: true})

	case RangeOpen:
		return p.parseRange(field)

	default:
		return nil, p.unexpected(t)
	}
}

func (p *parser) withBoost(term *Term) (Node, error) {
	boost, err := p.boost()
	if err != nil {
		return nil, err
	}
	term.Boost = boost
	return term, nil
}

func (p *parser) boost() (float64, error) {
	if p.peek().Kind != Caret {
		return 0, nil
	}
	t := p.next()
	v, err := strconv.ParseFloat(t.Image, 64)
	if err != nil || v < 0 {
		return 0, domainerrors.Validation(fmt.Sprintf("invalid boost %q at position %d", t.Image, t.Pos))
	}
	return v, nil
}

func (p *parser) parseRange(field string) (Node, error) {
	open := p.next()
	r := &Range{Field: field, IncludeLower: open.Image == "["}

	lower, err := p.rangeBound()
	if err != nil {
		return nil, err
	}
	if to := p.next(); to.Kind != Word || to.Image != "TO" {
		return nil, p.unexpected(to)
	}
	upper, err := p.rangeBound()
	if err != nil {
		return nil, err
	}
	closing := p.next()
	if closing.Kind != RangeClose {
		return nil, p.unexpected(closing)
	}
	r.IncludeUpper = closing.Image == "]"
	r.Lower, r.Upper = lower, upper

	if r.Boost, err = p.boost(); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *parser) rangeBound() (string, error) {
	t := p.next()
	switch t.Kind {
	case Word:
		if t.Image == "*" {
			return "", nil
		}
		return Unescape(t.Image), nil
	case Quoted:
		return Unescape(t.Image), nil
	default:
		return "", p.unexpected(t)
	}
}

// classify sets the modifier flags of a bare term. A single trailing star is
// a prefix; any other unescaped star or question mark is a wildcard.
func classify(field, image string) *Term {
	t := &Term{Field: field, Image: image}
	if rest, ok := strings.CutSuffix(image, "*"); ok && !strings.HasSuffix(rest, `\`) && !hasUnescaped(rest, "*?") {
		t.Prefix = true
		t.Image = rest
		return t
	}
	if hasUnescaped(image, "*?") {
		t.Wildcard = true
	}
	return t
}
