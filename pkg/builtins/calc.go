package builtins

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"

	"github.com/ngld/match/pkg/expression"
)

// calc("name + '.jar'") evaluates a Starlark expression. Every property is available as a string
// global of the same name and through the props dict.
type calc struct {
	env  expression.Env
	expr expression.Expression
}

func newCalc(env expression.Env, params expression.Params) (expression.Function, error) {
	expr, err := params.Get("calc", expression.Anonymous)
	if err != nil {
		return nil, err
	}
	return &calc{env: env, expr: expr}, nil
}

func (c *calc) Resolve(ctx context.Context) (string, error) {
	values, err := c.ResolveList(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(values, " "), nil
}

func (c *calc) ResolveList(ctx context.Context) ([]string, error) {
	src, err := c.expr.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	properties := c.env.Match.Properties()
	globals := make(starlark.StringDict, len(properties)+1)
	props := starlark.NewDict(len(properties))
	for key, value := range properties {
		globals[key] = starlark.String(value)
		if err = props.SetKey(starlark.String(key), starlark.String(value)); err != nil {
			return nil, err
		}
	}
	globals["props"] = props

	thread := &starlark.Thread{Name: c.env.Target.Name()}
	result, err := starlark.Eval(thread, c.env.Target.File(), src, globals)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.New(evalError.Backtrace())
		}
		return nil, eris.Wrapf(err, "failed to evaluate %s", src)
	}

	switch value := result.(type) {
	case starlark.String:
		return []string{value.GoString()}, nil
	case starlarkIterable:
		return starlarkIterable2stringSlice(value)
	case starlark.NoneType:
		return []string{}, nil
	default:
		return []string{value.String()}, nil
	}
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func starlarkIterable2stringSlice(input starlarkIterable) ([]string, error) {
	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		switch value := item.(type) {
		case starlark.String:
			result = append(result, value.GoString())
		case starlark.Int, starlark.Float, starlark.Bool:
			result = append(result, value.String())
		default:
			return nil, eris.Errorf("expected only strings and numbers but found %s", item.Type())
		}
	}
	return result, nil
}
