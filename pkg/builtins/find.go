package builtins

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ngld/match/pkg/expression"
)

const (
	findDirectory = "directory"
	findPattern   = "pattern"
)

// find("dir") or find(directory="dir", pattern="regex") lists the files below a directory. Each
// file is reported as "./" followed by its path relative to the directory and only kept if the
// whole path matches pattern.
type find struct {
	env       expression.Env
	directory expression.Expression
	pattern   expression.Expression
}

func newFind(env expression.Env, params expression.Params) (expression.Function, error) {
	fn := &find{env: env}

	var err error
	if params.Has(findDirectory) {
		fn.directory, err = params.Get("find", findDirectory)
		fn.pattern = params.Optional(findPattern)
	} else {
		fn.directory, err = params.Get("find", expression.Anonymous)
	}
	if err != nil {
		return nil, err
	}

	return fn, nil
}

func (f *find) Resolve(ctx context.Context) (string, error) {
	files, err := f.ResolveList(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(files, " "), nil
}

func (f *find) ResolveList(ctx context.Context) ([]string, error) {
	dir, err := f.directory.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(f.env.Target.Dir(), dir)
	}

	pattern := ".*"
	if f.pattern != nil {
		pattern, err = f.pattern.Resolve(ctx)
		if err != nil {
			return nil, err
		}
	}

	matcher, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid pattern %s", pattern)
	}

	files := []string{}
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		name := "./" + filepath.ToSlash(rel)
		if matcher.MatchString(name) {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to scan %s", dir)
	}

	sort.Strings(files)
	return files, nil
}
