package builtins

import (
	"context"

	"github.com/ngld/match/pkg/expression"
)

// set(name="key", value="value") binds a property before the build starts and resolves to the
// value
type set struct {
	env   expression.Env
	key   string
	value string
}

func newSet(env expression.Env, params expression.Params) (expression.Function, error) {
	key, err := params.Literal("set", "name")
	if err != nil {
		return nil, err
	}

	value, err := params.Literal("set", "value")
	if err != nil {
		return nil, err
	}

	return &set{env: env, key: key, value: value}, nil
}

func (s *set) SetUp(context.Context) error {
	s.env.Match.SetProperty(s.key, s.value)
	return nil
}

func (s *set) Resolve(context.Context) (string, error) {
	return s.value, nil
}
