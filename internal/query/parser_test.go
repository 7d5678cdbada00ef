package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Node
	}{
		{
			name:  "bare term",
			input: "bolt",
			want:  &Term{Image: "bolt"},
		},
		{
			name:  "field term",
			input: "name:bolt",
			want:  &Term{Field: "name", Image: "bolt"},
		},
		{
			name:  "quoted with slop",
			input: `Like:"Lightning Bolt"~0.8`,
			want:  &Term{Field: "Like", Image: "Lightning Bolt", Quoted: true, HasSlop: true, Slop: "0.8"},
		},
		{
			name:  "quoted with bare tilde",
			input: `Like:"Shock"~`,
			want:  &Term{Field: "Like", Image: "Shock", Quoted: true, HasSlop: true},
		},
		{
			name:  "implicit and",
			input: "goblin token",
			want:  &And{Clauses: []Node{&Term{Image: "goblin"}, &Term{Image: "token"}}},
		},
		{
			name:  "and binds tighter than or",
			input: "a OR b AND c",
			want: &Or{Clauses: []Node{
				&Term{Image: "a"},
				&And{Clauses: []Node{&Term{Image: "b"}, &Term{Image: "c"}}},
			}},
		},
		{
			name:  "symbol operators",
			input: "a && b || !c",
			want: &Or{Clauses: []Node{
				&And{Clauses: []Node{&Term{Image: "a"}, &Term{Image: "b"}}},
				&Not{Clause: &Term{Image: "c"}},
			}},
		},
		{
			name:  "minus and plus",
			input: "+elf -token",
			want:  &And{Clauses: []Node{&Term{Image: "elf"}, &Not{Clause: &Term{Image: "token"}}}},
		},
		{
			name:  "field group",
			input: "type:(elf OR goblin)^2",
			want: &Group{
				Clause: &Or{Clauses: []Node{
					&Term{Field: "type", Image: "elf"},
					&Term{Field: "type", Image: "goblin"},
				}},
				Boost: 2,
			},
		},
		{
			name:  "explicit field inside group wins",
			input: "type:(elf name:llanowar)",
			want: &Group{Clause: &And{Clauses: []Node{
				&Term{Field: "type", Image: "elf"},
				&Term{Field: "name", Image: "llanowar"},
			}}},
		},
		{
			name:  "prefix",
			input: "name:light*",
			want:  &Term{Field: "name", Image: "light", Prefix: true},
		},
		{
			name:  "wildcard",
			input: "name:l?ght*",
			want:  &Term{Field: "name", Image: "l?ght*", Wildcard: true},
		},
		{
			name:  "escaped star is literal",
			input: `power:\*`,
			want:  &Term{Field: "power", Image: `\*`},
		},
		{
			name:  "fuzzy",
			input: "name:bolt~1",
			want:  &Term{Field: "name", Image: "bolt", Fuzzy: true, HasSlop: true, Slop: "1"},
		},
		{
			name:  "regex",
			input: "name:/bo.t/",
			want:  &Term{Field: "name", Image: "bo.t", Regex: true},
		},
		{
			name:  "boost",
			input: "name:bolt^3.5",
			want:  &Term{Field: "name", Image: "bolt", Boost: 3.5},
		},
		{
			name:  "inclusive range",
			input: "cmc:[1 TO 3]",
			want:  &Range{Field: "cmc", Lower: "1", Upper: "3", IncludeLower: true, IncludeUpper: true},
		},
		{
			name:  "exclusive open range",
			input: "power:{-1 TO *}",
			want:  &Range{Field: "power", Lower: "-1", IncludeLower: false, IncludeUpper: false},
		},
		{
			name:  "mixed brackets",
			input: "power:{1 TO 3]",
			want:  &Range{Field: "power", Lower: "1", Upper: "3", IncludeLower: false, IncludeUpper: true},
		},
		{
			name:  "mana symbols are terms",
			input: "mana:{2}{R}",
			want:  &Term{Field: "mana", Image: "{2}{R}"},
		},
		{
			name:  "escaped colon",
			input: `text:a\:b`,
			want:  &Term{Field: "text", Image: `a\:b`},
		},
		{
			name:  "not keyword",
			input: "NOT name:shock",
			want:  &Not{Clause: &Term{Field: "name", Image: "shock"}},
		},
		{
			name:  "non ascii",
			input: "name:Dandân",
			want:  &Term{Field: "name", Image: "Dandân"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseString_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		n, err := ParseString(input)
		require.NoError(t, err)
		assert.Nil(t, n)
	}
}

func TestParseString_Errors(t *testing.T) {
	tests := []string{
		`name:"unterminated`,
		"name:/unterminated",
		"(bolt",
		"bolt)",
		"a AND",
		"name:",
		"cmc:[1 3]",
		"cmc:[1 TO 3",
		"bolt^x",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseString(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestTokenize_StrayBracketTerminates(t *testing.T) {
	tokens, err := Tokenize("a ] b }")
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, EOF, tokens[4].Kind)
	assert.Equal(t, "]", tokens[1].Image)
}

func TestTokenize_Operators(t *testing.T) {
	tokens, err := Tokenize("a AND b && c OR d || NOT e !f")
	require.NoError(t, err)

	var kinds []Kind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []Kind{
		Word, TokAnd, Word, TokAnd, Word, TokOr, Word, TokOr, TokNot, Word, TokNot, Word, EOF,
	}, kinds)
	assert.Equal(t, "AND", TokAnd.String())
	assert.Equal(t, "OR", TokOr.String())
	assert.Equal(t, "NOT", TokNot.String())
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "plain", Unescape("plain"))
	assert.Equal(t, "a:b", Unescape(`a\:b`))
	assert.Equal(t, `a\b`, Unescape(`a\\b`))
	assert.Equal(t, `trailing\`, Unescape(`trailing\`))
	assert.Equal(t, `Ach! Hans, Run!`, Unescape(Escape("Ach! Hans, Run!")))
}

func TestFields(t *testing.T) {
	n, err := ParseString("name:bolt OR (text:damage cmc:[1 TO 2]) goblin")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "text", "cmc", ""}, Fields(n))
}
