package match

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ngld/match/pkg/expression"
)

// events records what test functions did, in order
type events struct {
	lock  sync.Mutex
	items []string
}

func (e *events) add(item string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.items = append(e.items, item)
}

func (e *events) list() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]string{}, e.items...)
}

func (e *events) index(item string) int {
	for idx, value := range e.list() {
		if value == item {
			return idx
		}
	}
	return -1
}

type logBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func (b *logBuffer) logger() *zerolog.Logger {
	logger := zerolog.New(b)
	return &logger
}

// fileFunc declares its file during configure. If provide is set, resolving it opens the gate,
// otherwise it waits for the gate.
type fileFunc struct {
	env     expression.Env
	path    string
	declare bool
	provide bool
	log     *events
}

func (f *fileFunc) Configure(context.Context) error {
	if f.declare {
		f.env.Match.AddFile(f.path)
	}
	return nil
}

func (f *fileFunc) Resolve(ctx context.Context) (string, error) {
	if f.provide {
		f.log.add("provide " + f.path)
		return f.path, f.env.Match.ProvideFile(f.path)
	}
	if !f.declare {
		if err := f.env.Match.AwaitFile(ctx, f.path); err != nil {
			return "", err
		}
		f.log.add("consumed " + f.path + " in " + f.env.Target.Name())
	}
	return f.path, nil
}

type failFunc struct{}

func (failFunc) Resolve(context.Context) (string, error) {
	return "", eris.New("broken on purpose")
}

// testRegistry provides produce(path), consume(path), declare(path) and fail()
func testRegistry(log *events) *expression.Registry {
	registry := expression.NewRegistry()
	fileFactory := func(declare, provide bool) expression.Factory {
		return func(env expression.Env, params expression.Params) (expression.Function, error) {
			path, err := params.Literal("file", expression.Anonymous)
			if err != nil {
				return nil, err
			}
			return &fileFunc{env: env, path: path, declare: declare, provide: provide, log: log}, nil
		}
	}

	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(registry.Register("produce", fileFactory(true, true)))
	must(registry.Register("consume", fileFactory(false, false)))
	must(registry.Register("declare", fileFactory(true, false)))
	must(registry.Register("fail", func(expression.Env, expression.Params) (expression.Function, error) {
		return failFunc{}, nil
	}))
	return registry
}

func writeTree(t *testing.T, root string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o770))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

// prepare runs everything up to the build phase
func prepare(t *testing.T, files map[string]string, log *events, opts Options) *Match {
	root := t.TempDir()
	writeTree(t, root, files)

	m := New(root, testRegistry(log), opts)
	require.NoError(t, m.Scan())
	require.NoError(t, m.Parse())
	m.SeedFiles()
	require.NoError(t, m.Configure(context.Background()))
	require.NoError(t, m.SetUp(context.Background()))
	return m
}

// buildAsync starts the build and returns a channel that receives its result
func buildAsync(ctx context.Context, m *Match) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- m.Build(ctx)
	}()
	return result
}
