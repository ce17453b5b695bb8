package frontend

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ngld/match/pkg/expression"
)

// ErrSyntax is wrapped by every error produced by the parser
var ErrSyntax = eris.New("syntax error")

// SyntaxError reports a malformed statement or a call the registry rejected
type SyntaxError struct {
	Pos Pos
	Msg string
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Unwrap exposes ErrSyntax and, for rejected calls, the error returned by the registry
func (e *SyntaxError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSyntax, e.Err}
	}
	return []error{ErrSyntax}
}

// TargetBuilder collects the assignments of one target section
type TargetBuilder interface {
	expression.Target
	Assign(expression.Assignment)
}

// Env provides everything the parser needs to turn tokens into targets
type Env struct {
	Registry *expression.Registry
	Match    expression.Match
	// NewTarget creates the target for a section. section is empty for a file's default target.
	NewTarget func(file, section string) TargetBuilder
}

// Parser is a recursive descent parser over a token slice
type Parser struct {
	env    Env
	file   string
	tokens []Token
	pos    int
	// nesting counts open parentheses and brackets; newlines are insignificant inside them
	nesting int

	targets []TargetBuilder
	current TargetBuilder
	empty   bool
}

// NewParser creates a parser for the tokens of file
func NewParser(env Env, file string, tokens []Token) *Parser {
	return &Parser{
		env:    env,
		file:   file,
		tokens: tokens,
	}
}

// ParseFile lexes and parses the match file at path
func ParseFile(path string, env Env) ([]TargetBuilder, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	tokens, err := Lex(path, src, DefaultLexems())
	if err != nil {
		return nil, err
	}

	return NewParser(env, path, tokens).Parse()
}

// Parse consumes all tokens and returns the declared targets in source order
func (p *Parser) Parse() ([]TargetBuilder, error) {
	p.current = p.env.NewTarget(p.file, "")
	p.empty = true
	p.targets = []TargetBuilder{p.current}

	for {
		tok, ok := p.peek()
		if !ok {
			break
		}

		switch tok.Category {
		case Newline:
			p.pos++
		case UpperCase, LowerCase:
			if err := p.parseStatement(); err != nil {
				return nil, err
			}
		default:
			return nil, p.unexpected(tok, "an assignment")
		}
	}

	if p.empty {
		// the default section only exists if something was assigned before the first named one
		p.targets = p.targets[1:]
	}
	return p.targets, nil
}

// peek returns the next significant token without consuming it
func (p *Parser) peek() (Token, bool) {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		switch tok.Category {
		case Whitespace, Comment:
			p.pos++
			continue
		case Newline:
			if p.nesting > 0 {
				p.pos++
				continue
			}
		}
		return tok, true
	}
	return Token{}, false
}

func (p *Parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *Parser) eofPos() Pos {
	if len(p.tokens) == 0 {
		return Pos{File: p.file, Line: 1, Column: 1}
	}
	last := p.tokens[len(p.tokens)-1]
	return last.Pos
}

func (p *Parser) unexpected(tok Token, want string) error {
	return &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("expected %s but found %s", want, tok)}
}

func (p *Parser) expect(category Category) (Token, error) {
	tok, ok := p.next()
	if !ok {
		return tok, &SyntaxError{Pos: p.eofPos(), Msg: fmt.Sprintf("expected %s but reached end of file", category)}
	}
	if tok.Category != category {
		return tok, p.unexpected(tok, category.String())
	}
	return tok, nil
}

// parseStatement handles `NAME = expr` and `name = expr` followed by a newline or end of file
func (p *Parser) parseStatement() error {
	key, _ := p.next()
	if _, err := p.expect(Assign); err != nil {
		return err
	}

	if key.Category == UpperCase {
		p.current = p.env.NewTarget(p.file, key.Text)
		p.targets = append(p.targets, p.current)
	} else if len(p.targets) == 1 {
		p.empty = false
	}

	value, err := p.parseExpr()
	if err != nil {
		return err
	}

	p.current.Assign(expression.Assignment{
		Key:    key.Text,
		Target: key.Category == UpperCase,
		Value:  value,
		Pos:    key.Pos.String(),
	})

	tok, ok := p.next()
	if ok && tok.Category != Newline {
		return p.unexpected(tok, "end of line")
	}
	return nil
}

func (p *Parser) parseExpr() (expression.Expression, error) {
	tok, ok := p.next()
	if !ok {
		return nil, &SyntaxError{Pos: p.eofPos(), Msg: "expected an expression but reached end of file"}
	}

	switch tok.Category {
	case StringLiteral:
		value, err := unquote(tok.Text)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Pos, Msg: "invalid string literal", Err: err}
		}
		return expression.NewLiteral(value), nil
	case OpenBracket:
		return p.parseList()
	case LowerCase:
		return p.parseCall(tok)
	default:
		return nil, p.unexpected(tok, "a string, list or function call")
	}
}

func (p *Parser) parseList() (expression.Expression, error) {
	p.nesting++
	defer func() { p.nesting-- }()

	items := []expression.Expression{}
	// a comma has to follow an item and be followed by one
	separated := false
	for {
		tok, ok := p.peek()
		if !ok {
			return nil, &SyntaxError{Pos: p.eofPos(), Msg: "unterminated list"}
		}

		switch tok.Category {
		case CloseBracket:
			if separated {
				return nil, p.unexpected(tok, "a list item")
			}
			p.pos++
			return expression.NewList(items...), nil
		case Comma:
			if len(items) == 0 || separated {
				return nil, p.unexpected(tok, "a list item")
			}
			separated = true
			p.pos++
			continue
		}

		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		separated = false
	}
}

func (p *Parser) parseCall(name Token) (expression.Expression, error) {
	if _, err := p.expect(OpenParen); err != nil {
		return nil, err
	}

	params, err := p.parseArguments(name)
	if err != nil {
		return nil, err
	}

	call, err := p.env.Registry.Call(expression.Env{Match: p.env.Match, Target: p.current}, name.Text, params, name.Pos.String())
	if err != nil {
		return nil, &SyntaxError{Pos: name.Pos, Msg: fmt.Sprintf("invalid call to %s", name.Text), Err: err}
	}
	return call, nil
}

// parseArguments consumes everything up to and including the closing parenthesis of a call
func (p *Parser) parseArguments(name Token) (expression.Params, error) {
	p.nesting++
	defer func() { p.nesting-- }()

	params := expression.Params{}
	positional := 0
	separated := false

	for {
		tok, ok := p.peek()
		if !ok {
			return nil, &SyntaxError{Pos: p.eofPos(), Msg: fmt.Sprintf("unterminated call to %s", name.Text)}
		}

		switch tok.Category {
		case CloseParen:
			if separated {
				return nil, p.unexpected(tok, "an argument")
			}
			p.pos++
			return params, nil
		case Comma:
			if len(params) == 0 || separated {
				return nil, p.unexpected(tok, "an argument")
			}
			separated = true
			p.pos++
			continue
		}
		separated = false

		key := expression.Anonymous
		if tok.Category == LowerCase && p.namedArgument() {
			key = tok.Text
			p.pos++
			if _, err := p.expect(Assign); err != nil {
				return nil, err
			}
			if _, dup := params[key]; dup {
				return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("argument %s passed twice to %s", key, name.Text)}
			}
		} else {
			positional++
			if positional > 1 {
				return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("%s accepts at most one unnamed argument", name.Text)}
			}
		}

		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		params[key] = value
	}
}

// namedArgument reports whether the lower case identifier at the cursor is followed by '='
func (p *Parser) namedArgument() bool {
	for i := p.pos + 1; i < len(p.tokens); i++ {
		switch p.tokens[i].Category {
		case Whitespace, Comment, Newline:
			continue
		case Assign:
			return true
		default:
			return false
		}
	}
	return false
}

func unquote(text string) (string, error) {
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	return strconv.Unquote(text)
}
