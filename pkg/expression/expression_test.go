package expression

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder notes the order in which lifecycle hooks run
type recorder struct {
	name  string
	log   *[]string
	value []string
	err   error
}

func (r *recorder) Configure(context.Context) error {
	*r.log = append(*r.log, "configure "+r.name)
	return nil
}

func (r *recorder) SetUp(context.Context) error {
	*r.log = append(*r.log, "setup "+r.name)
	return r.err
}

func (r *recorder) Resolve(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.name, nil
}

func (r *recorder) ResolveList(context.Context) ([]string, error) {
	return r.value, nil
}

func TestListResolve(t *testing.T) {
	ctx := context.Background()
	list := LiteralList("a", "b", "c")

	value, err := list.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a b c", value)

	values, err := list.ResolveList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, values)
}

func TestListFlattensOneLevel(t *testing.T) {
	ctx := context.Background()
	var log []string
	list := NewList(
		NewLiteral("a"),
		LiteralList("b", "c"),
		&Call{Name: "multi", Fn: &recorder{name: "d", log: &log, value: []string{"d1", "d2"}}},
	)

	values, err := list.ResolveList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d1", "d2"}, values)

	empty := NewList()
	value, err := empty.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestLiteral(t *testing.T) {
	lit := NewLiteral("x y")
	values, err := lit.ResolveList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x y"}, values)
	assert.True(t, IsStatic(lit))
	assert.True(t, IsStatic(LiteralList("a")))
}

func TestLifecycleOrder(t *testing.T) {
	var log []string
	inner := &Call{Name: "inner", Fn: &recorder{name: "inner", log: &log}}
	outer := &Call{
		Name:   "outer",
		Params: Params{Anonymous: inner},
		Fn:     &recorder{name: "outer", log: &log},
	}
	expr := NewList(outer, NewLiteral("x"))

	assert.False(t, IsStatic(expr))
	require.NoError(t, Configure(context.Background(), expr))
	require.NoError(t, SetUp(context.Background(), expr))
	assert.Equal(t, []string{"configure inner", "configure outer", "setup inner", "setup outer"}, log)
}

func TestCallErrorsNamePosition(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	call := &Call{Name: "broken", Pos: "match:3:5", Fn: &recorder{name: "broken", log: &log, err: boom}}

	_, err := call.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match:3:5: broken() failed")

	err = SetUp(context.Background(), call)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set up broken()")
}

func TestParams(t *testing.T) {
	params := Params{
		"name":  NewLiteral("n"),
		"items": LiteralList("a", "b"),
	}

	assert.True(t, params.Has("name"))
	assert.False(t, params.Has("missing"))
	assert.Nil(t, params.Optional("missing"))
	assert.Equal(t, []string{"items", "name"}, params.Keys())

	value, err := params.Literal("fn", "name")
	require.NoError(t, err)
	assert.Equal(t, "n", value)

	_, err = params.Literal("fn", "items")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotLiteral))
	assert.Contains(t, err.Error(), "fn: parameter items")

	_, err = params.Get("fn", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))

	var paramErr *ParameterError
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "missing", paramErr.Parameter)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	factory := func(env Env, params Params) (Function, error) {
		return &recorder{name: "r"}, nil
	}

	require.NoError(t, registry.Register("b", factory))
	require.NoError(t, registry.Register("a", factory))
	assert.Error(t, registry.Register("a", factory))
	assert.Error(t, registry.Register("c", nil))
	assert.Equal(t, []string{"a", "b"}, registry.Names())

	_, ok := registry.Lookup("a")
	assert.True(t, ok)

	call, err := registry.Call(Env{}, "a", Params{}, "match:1:1")
	require.NoError(t, err)
	assert.Equal(t, "a", call.Name)
	assert.Equal(t, "match:1:1", call.Pos)

	_, err = registry.Call(Env{}, "missing", Params{}, "match:1:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFunction))
}
