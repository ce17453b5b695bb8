package frontend

import (
	"fmt"
	"regexp"
)

// Category is the kind of a lexical token
type Category int

const (
	Newline Category = iota
	Whitespace
	Assign
	Comment
	OpenParen
	CloseParen
	OpenBracket
	CloseBracket
	Comma
	StringLiteral
	UpperCase
	LowerCase
)

var categoryNames = [...]string{
	Newline:       "newline",
	Whitespace:    "whitespace",
	Assign:        "'='",
	Comment:       "comment",
	OpenParen:     "'('",
	CloseParen:    "')'",
	OpenBracket:   "'['",
	CloseBracket:  "']'",
	Comma:         "','",
	StringLiteral: "string literal",
	UpperCase:     "upper case identifier",
	LowerCase:     "lower case identifier",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Pos is a location inside a DSL source file
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Token is a single lexem match produced by the lexer
type Token struct {
	Category Category
	Text     string
	Pos      Pos
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q", t.Category, t.Text)
}

// Lexem pairs a category with the pattern that recognises it. Patterns are always anchored to
// the current input position.
type Lexem struct {
	Category Category
	Pattern  *regexp.Regexp
}

// NewLexem compiles pattern into an anchored Lexem. It panics on invalid patterns since lexems
// are declared statically.
func NewLexem(category Category, pattern string) Lexem {
	return Lexem{
		Category: category,
		Pattern:  regexp.MustCompile(`\A(?:` + pattern + `)`),
	}
}

var defaultLexems = []Lexem{
	NewLexem(Newline, `\n`),
	NewLexem(Whitespace, `[ \t\r\f\v]+`),
	NewLexem(Assign, `=`),
	NewLexem(Comment, `#[^\n]*`),
	NewLexem(OpenParen, `\(`),
	NewLexem(CloseParen, `\)`),
	NewLexem(OpenBracket, `\[`),
	NewLexem(CloseBracket, `\]`),
	NewLexem(Comma, `,`),
	NewLexem(StringLiteral, `"(?:[^"\\\n]|\\.)*"`),
	NewLexem(UpperCase, `[A-Z][_a-zA-Z0-9]*`),
	NewLexem(LowerCase, `[a-z][_a-zA-Z0-9]*`),
}

// DefaultLexems returns the lexical grammar of match files. The order is significant: the first
// lexem that matches at a position wins.
func DefaultLexems() []Lexem {
	result := make([]Lexem, len(defaultLexems))
	copy(result, defaultLexems)
	return result
}
