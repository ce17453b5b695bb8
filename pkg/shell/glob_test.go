package shell

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, base string, names ...string) {
	for _, name := range names {
		path := filepath.Join(base, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o770))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
}

func globRel(t *testing.T, base string, patterns ...string) []string {
	matches, err := Glob(base, patterns...)
	require.NoError(t, err)

	result := make([]string, 0, len(matches))
	for _, match := range matches {
		rel, err := filepath.Rel(base, match)
		require.NoError(t, err)
		result = append(result, filepath.ToSlash(rel))
	}
	sort.Strings(result)
	return result
}

func TestGlobBaseWithSpecialCharacters(t *testing.T) {
	for _, dir := range []string{"my project", "cost$HOME", "it's"} {
		t.Run(dir, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), dir)
			touch(t, base, "src/a.java", "src/b.txt")

			assert.Equal(t, []string{"src/a.java"}, globRel(t, base, "src/*.java"))
		})
	}
}

func TestGlobDropsMissingLiterals(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "present.txt")

	assert.Equal(t, []string{"present.txt"}, globRel(t, base, "missing.txt", "present.txt", "*.cpp"))
}

func TestGlobKeepsMetaCharactersInNames(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "a?.txt", "[b].txt", "c.txt")

	assert.Equal(t, []string{"[b].txt", "a?.txt", "c.txt"}, globRel(t, base, "*.txt"))
}

func TestGlobAbsolutePattern(t *testing.T) {
	base := t.TempDir()
	other := t.TempDir()
	touch(t, other, "x/y.jar")

	matches, err := Glob(base, filepath.ToSlash(other)+"/x/*.jar")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(other, "x", "y.jar")}, matches)
}
