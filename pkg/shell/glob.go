package shell

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

func shellReadDir(path string) ([]os.FileInfo, error) {
	if path == "" {
		path = "."
	}

	return ioutil.ReadDir(path)
}

// Glob expands shell patterns relative to base. `**` matches any number of directories.
// Results are joined with base; patterns that match nothing are dropped.
func Glob(base string, patterns ...string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		Env:      expand.ListEnviron("PWD=" + base),
		ReadDir:  shellReadDir,
		GlobStar: true,
		NullGlob: true,
	}

	parser := syntax.NewParser()
	for _, item := range patterns {
		item = filepath.ToSlash(item)

		words := make([]*syntax.Word, 0)
		err := parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse pattern %s", item)
		}

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			match = filepath.FromSlash(match)
			if !filepath.IsAbs(match) {
				match = filepath.Join(base, match)
			}

			// literal words come back whether they exist or not
			if _, err := os.Lstat(match); err != nil {
				continue
			}
			result = append(result, match)
		}
	}
	return result, nil
}
