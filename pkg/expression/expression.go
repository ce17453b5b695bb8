// Package expression implements the value model of match files: literals, lists and calls to
// registered functions, together with the lifecycle hooks functions use to take part in a build.
package expression

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Expression produces one or more strings. The set of implementations is closed: Literal, List
// and Call.
type Expression interface {
	// Resolve returns the single string value of the expression
	Resolve(ctx context.Context) (string, error)
	// ResolveList returns the expression as a sequence of strings
	ResolveList(ctx context.Context) ([]string, error)

	expression()
}

// Literal is a constant string
type Literal struct {
	Value string
}

// NewLiteral wraps value in a Literal
func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func (l *Literal) Resolve(context.Context) (string, error) {
	return l.Value, nil
}

func (l *Literal) ResolveList(context.Context) ([]string, error) {
	return []string{l.Value}, nil
}

func (l *Literal) String() string {
	return l.Value
}

func (*Literal) expression() {}

// List is an ordered sequence of expressions
type List struct {
	Items []Expression
}

// NewList creates a list from items
func NewList(items ...Expression) *List {
	return &List{Items: items}
}

// LiteralList builds a list of literals from values
func LiteralList(values ...string) *List {
	items := make([]Expression, len(values))
	for idx, value := range values {
		items[idx] = NewLiteral(value)
	}
	return NewList(items...)
}

// Resolve joins the values of all items with a single space
func (l *List) Resolve(ctx context.Context) (string, error) {
	values, err := l.ResolveList(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(values, " "), nil
}

// ResolveList flattens the values of all items into one sequence, keeping their order
func (l *List) ResolveList(ctx context.Context) ([]string, error) {
	result := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		values, err := item.ResolveList(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, values...)
	}
	return result, nil
}

func (*List) expression() {}

// Call is an invocation of a registered function
type Call struct {
	Name   string
	Params Params
	Pos    string
	Fn     Function
}

func (c *Call) Resolve(ctx context.Context) (string, error) {
	value, err := c.Fn.Resolve(ctx)
	if err != nil {
		return "", eris.Wrapf(err, "%s: %s() failed", c.Pos, c.Name)
	}
	return value, nil
}

// ResolveList uses the function's list form if it has one and wraps Resolve otherwise
func (c *Call) ResolveList(ctx context.Context) ([]string, error) {
	lister, ok := c.Fn.(ListResolver)
	if !ok {
		value, err := c.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		return []string{value}, nil
	}

	values, err := lister.ResolveList(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: %s() failed", c.Pos, c.Name)
	}
	return values, nil
}

func (*Call) expression() {}

// Configure runs the configure hooks of every call inside expr, arguments first
func Configure(ctx context.Context, expr Expression) error {
	return walk(expr, func(call *Call) error {
		if hook, ok := call.Fn.(Configurer); ok {
			if err := hook.Configure(ctx); err != nil {
				return eris.Wrapf(err, "%s: failed to configure %s()", call.Pos, call.Name)
			}
		}
		return nil
	})
}

// SetUp runs the set up hooks of every call inside expr, arguments first
func SetUp(ctx context.Context, expr Expression) error {
	return walk(expr, func(call *Call) error {
		if hook, ok := call.Fn.(SetUpper); ok {
			if err := hook.SetUp(ctx); err != nil {
				return eris.Wrapf(err, "%s: failed to set up %s()", call.Pos, call.Name)
			}
		}
		return nil
	})
}

// IsStatic reports whether expr contains no function calls, meaning it can be resolved at any
// time without side effects
func IsStatic(expr Expression) bool {
	static := true
	walk(expr, func(*Call) error {
		static = false
		return nil
	})
	return static
}

func walk(expr Expression, visit func(*Call) error) error {
	switch value := expr.(type) {
	case *List:
		for _, item := range value.Items {
			if err := walk(item, visit); err != nil {
				return err
			}
		}
	case *Call:
		for _, key := range value.Params.Keys() {
			if err := walk(value.Params[key], visit); err != nil {
				return err
			}
		}
		return visit(value)
	}
	return nil
}

// Assignment is a single `key = value` statement of a match file
type Assignment struct {
	Key string
	// Target is set for upper case keys which open a new target section
	Target bool
	Value  Expression
	Pos    string
}
