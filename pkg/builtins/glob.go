package builtins

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ngld/match/pkg/expression"
	"github.com/ngld/match/pkg/shell"
)

// glob("src/**/*.java") or glob(["*.c" "*.h"]) expands shell patterns relative to the target's
// directory
type glob struct {
	env      expression.Env
	patterns expression.Expression
}

func newGlob(env expression.Env, params expression.Params) (expression.Function, error) {
	patterns, err := params.Get("glob", expression.Anonymous)
	if err != nil {
		return nil, err
	}
	return &glob{env: env, patterns: patterns}, nil
}

func (g *glob) Resolve(ctx context.Context) (string, error) {
	files, err := g.ResolveList(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(files, " "), nil
}

func (g *glob) ResolveList(ctx context.Context) ([]string, error) {
	patterns, err := g.patterns.ResolveList(ctx)
	if err != nil {
		return nil, err
	}

	base := g.env.Target.Dir()
	matches, err := shell.Glob(base, patterns...)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		rel, err := filepath.Rel(base, match)
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(rel))
	}

	sort.Strings(files)
	return files, nil
}
