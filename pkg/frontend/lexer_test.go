package frontend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categories(tokens []Token) []Category {
	result := make([]Category, len(tokens))
	for idx, tok := range tokens {
		result[idx] = tok.Category
	}
	return result
}

func TestLexAssignment(t *testing.T) {
	tokens, err := Lex("match", []byte("name = \"value\"\n"), DefaultLexems())
	require.NoError(t, err)

	assert.Equal(t, []Category{LowerCase, Whitespace, Assign, Whitespace, StringLiteral, Newline}, categories(tokens))
	assert.Equal(t, "name", tokens[0].Text)
	assert.Equal(t, `"value"`, tokens[4].Text)

	text := ""
	for _, tok := range tokens {
		text += tok.Text
	}
	assert.Equal(t, "name = \"value\"\n", text)
}

func TestLexCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Category
	}{
		{
			name:  "call with named arguments",
			input: `find(directory="src", pattern=".*")`,
			want: []Category{LowerCase, OpenParen, LowerCase, Assign, StringLiteral, Comma, Whitespace,
				LowerCase, Assign, StringLiteral, CloseParen},
		},
		{
			name:  "list",
			input: `["a" "b"]`,
			want:  []Category{OpenBracket, StringLiteral, Whitespace, StringLiteral, CloseBracket},
		},
		{
			name:  "comment runs to the end of the line",
			input: "# a = (\nX",
			want:  []Category{Comment, Newline, UpperCase},
		},
		{
			name:  "upper case section",
			input: "Tests = x",
			want:  []Category{UpperCase, Whitespace, Assign, Whitespace, LowerCase},
		},
		{
			name:  "escaped quote",
			input: `"say \"hi\""`,
			want:  []Category{StringLiteral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex("match", []byte(tt.input), DefaultLexems())
			require.NoError(t, err)
			assert.Equal(t, tt.want, categories(tokens))
		})
	}
}

func TestLexPositions(t *testing.T) {
	tokens, err := Lex("dir/match", []byte("a = \"x\"\n  b = \"y\""), DefaultLexems())
	require.NoError(t, err)

	var b Token
	for _, tok := range tokens {
		if tok.Text == "b" {
			b = tok
		}
	}
	assert.Equal(t, Pos{File: "dir/match", Line: 2, Column: 3}, b.Pos)
	assert.Equal(t, "dir/match:2:3", b.Pos.String())
}

func TestLexError(t *testing.T) {
	_, err := Lex("match", []byte("name = 'value'"), DefaultLexems())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLexical))

	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 1, lexErr.Pos.Line)
	assert.Equal(t, 8, lexErr.Pos.Column)
	assert.Contains(t, lexErr.Context, "'value'")
}

func TestLexOrderMatters(t *testing.T) {
	lexems := []Lexem{
		NewLexem(LowerCase, `[a-z]+`),
		NewLexem(UpperCase, `[a-zA-Z]+`),
	}

	tokens, err := Lex("match", []byte("abc"), lexems)
	require.NoError(t, err)
	assert.Equal(t, []Category{LowerCase}, categories(tokens))

	tokens, err = Lex("match", []byte("abc"), []Lexem{lexems[1], lexems[0]})
	require.NoError(t, err)
	assert.Equal(t, []Category{UpperCase}, categories(tokens))
}
