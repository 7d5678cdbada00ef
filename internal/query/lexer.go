package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
)

// Kind classifies a token.
type Kind int

// Token kinds.
const (
	EOF Kind = iota
	Word
	Quoted
	Regex
	Colon
	TokAnd
	TokOr
	TokNot
	Plus
	Minus
	LParen
	RParen
	RangeOpen
	RangeClose
	Tilde
	Caret
)

var kindNames = [...]string{
	EOF: "end of query", Word: "term", Quoted: "quoted term", Regex: "regex",
	Colon: "':'", TokAnd: "AND", TokOr: "OR", TokNot: "NOT", Plus: "'+'", Minus: "'-'",
	LParen: "'('", RParen: "')'", RangeOpen: "range start", RangeClose: "range end",
	Tilde: "'~'", Caret: "'^'",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a lexical unit. For Quoted and Regex the delimiters are stripped;
// for Tilde and Caret Image is the number following the symbol.
type Token struct {
	Kind  Kind
	Image string
	Pos   int
}

type lexer struct {
	src     string
	pos     int
	inRange bool
	tokens  []Token
}

// Tokenize splits s into tokens terminated by an EOF token.
func Tokenize(s string) ([]Token, error) {
	l := &lexer{src: s}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.emit(EOF, "", l.pos)
			return l.tokens, nil
		}
		if err := l.lexToken(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) lexToken() error {
	start := l.pos
	rest := l.src[l.pos:]
	c := rest[0]

	switch {
	case c == '(':
		l.single(LParen)
	case c == ')':
		l.single(RParen)
	case c == ':':
		l.single(Colon)
	case strings.HasPrefix(rest, "&&"):
		l.pos += 2
		l.emit(TokAnd, "&&", start)
	case strings.HasPrefix(rest, "||"):
		l.pos += 2
		l.emit(TokOr, "||", start)
	case c == '+' && !l.inRange:
		l.single(Plus)
	case c == '-' && !l.inRange:
		l.single(Minus)
	case c == '!' && !l.inRange:
		l.single(TokNot)
	case c == '"':
		return l.delimited(Quoted, '"')
	case c == '/':
		return l.delimited(Regex, '/')
	case c == '[', c == '{' && l.rangeAhead():
		l.inRange = true
		l.single(RangeOpen)
	case (c == ']' || c == '}') && l.inRange:
		l.inRange = false
		l.single(RangeClose)
	case c == '~':
		l.pos++
		l.emit(Tilde, l.number(), start)
	case c == '^':
		l.pos++
		l.emit(Caret, l.number(), start)
	default:
		l.word()
	}
	return nil
}

func (l *lexer) emit(kind Kind, image string, pos int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Image: image, Pos: pos})
}

func (l *lexer) single(kind Kind) {
	l.emit(kind, l.src[l.pos:l.pos+1], l.pos)
	l.pos++
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// rangeAhead reports whether the '{' at pos opens a range rather than a
// symbol such as {G}.
func (l *lexer) rangeAhead() bool {
	end := strings.IndexAny(l.src[l.pos:], "}]")
	return end > 0 && strings.Contains(l.src[l.pos:l.pos+end], " TO ")
}

func (l *lexer) delimited(kind Kind, delim byte) error {
	start := l.pos
	l.pos++
	escaped := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == delim:
			l.emit(kind, l.src[start+1:l.pos], start)
			l.pos++
			return nil
		}
		l.pos++
	}
	return domainerrors.Validation(fmt.Sprintf("unterminated %s at position %d", kind, start))
}

func (l *lexer) number() string {
	start := l.pos
	for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '.') {
		l.pos++
	}
	return l.src[start:l.pos]
}

// word reads a bare term. Braces inside a term are kept so mana symbols such
// as {2}{R} need no quoting.
func (l *lexer) word() {
	start := l.pos
	depth := 0
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == '\\' {
			l.pos += size
			if l.pos < len(l.src) {
				_, size = utf8.DecodeRuneInString(l.src[l.pos:])
				l.pos += size
			}
			continue
		}
		if unicode.IsSpace(r) || strings.ContainsRune(`():^~"]`, r) {
			break
		}
		if strings.HasPrefix(l.src[l.pos:], "&&") || strings.HasPrefix(l.src[l.pos:], "||") {
			break
		}
		if r == '{' {
			depth++
		} else if r == '}' {
			if depth == 0 {
				break
			}
			depth--
		}
		l.pos += size
	}
	if l.pos == start {
		// A stray closing bracket or brace.
		_, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size
	}

	image := l.src[start:l.pos]
	switch image {
	case "AND":
		l.emit(TokAnd, image, start)
	case "OR":
		l.emit(TokOr, image, start)
	case "NOT":
		l.emit(TokNot, image, start)
	default:
		l.emit(Word, image, start)
	}
}
