package frontend

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ErrLexical is wrapped by every error produced by the lexer
var ErrLexical = eris.New("lexical error")

const lexContext = 20

// LexError reports input that no lexem matches
type LexError struct {
	Pos     Pos
	Context string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: no token matches near %q", e.Pos, e.Context)
}

func (e *LexError) Unwrap() error {
	return ErrLexical
}

// Lex splits src into tokens using lexems in order. Whitespace, comments and newlines are kept so
// that every byte of the input belongs to exactly one token.
func Lex(file string, src []byte, lexems []Lexem) ([]Token, error) {
	tokens := make([]Token, 0, len(src)/4)
	line, col := 1, 1
	offset := 0

	for offset < len(src) {
		rest := src[offset:]
		matched := false

		for _, lexem := range lexems {
			loc := lexem.Pattern.FindIndex(rest)
			if loc == nil || loc[1] == 0 {
				continue
			}

			text := string(rest[:loc[1]])
			tokens = append(tokens, Token{
				Category: lexem.Category,
				Text:     text,
				Pos:      Pos{File: file, Line: line, Column: col},
			})

			if n := strings.Count(text, "\n"); n > 0 {
				line += n
				col = utf8.RuneCountInString(text[strings.LastIndexByte(text, '\n')+1:]) + 1
			} else {
				col += utf8.RuneCountInString(text)
			}

			offset += loc[1]
			matched = true
			break
		}

		if !matched {
			start := offset - lexContext
			if start < 0 {
				start = 0
			}
			end := offset + lexContext
			if end > len(src) {
				end = len(src)
			}

			return tokens, &LexError{
				Pos:     Pos{File: file, Line: line, Column: col},
				Context: string(src[start:end]),
			}
		}
	}

	return tokens, nil
}
