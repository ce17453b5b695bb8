package builtins

import (
	"context"

	"github.com/ngld/match/pkg/expression"
)

// get("key") resolves to the value of a property
type get struct {
	env expression.Env
	key expression.Expression
}

func newGet(env expression.Env, params expression.Params) (expression.Function, error) {
	key, err := params.Get("get", expression.Anonymous)
	if err != nil {
		return nil, err
	}
	return &get{env: env, key: key}, nil
}

func (g *get) Resolve(ctx context.Context) (string, error) {
	key, err := g.key.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return g.env.Match.Property(key)
}
