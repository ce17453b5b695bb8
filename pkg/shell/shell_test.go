package shell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type output struct {
	stdout []string
	stderr []string
}

func (o *output) options(dir string) Options {
	return Options{
		Dir:    dir,
		Stdout: func(line string) { o.stdout = append(o.stdout, line) },
		Stderr: func(line string) { o.stderr = append(o.stderr, line) },
	}
}

func TestRunStreamsStdout(t *testing.T) {
	var out output
	err := Run(context.Background(), "echo a; echo b; printf c", out.options(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.stdout)
	assert.Empty(t, out.stderr)
}

func TestRunHidesStderrOnSuccess(t *testing.T) {
	var out output
	err := Run(context.Background(), "echo fine >&2", out.options(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, out.stderr)
}

func TestRunReportsFailures(t *testing.T) {
	var out output
	err := Run(context.Background(), "echo working; echo oops >&2; exit 3", out.options(t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommand))

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, uint8(3), cmdErr.Status)
	assert.Equal(t, "oops\n", cmdErr.Stderr)
	assert.Equal(t, []string{"working"}, out.stdout)
	assert.Equal(t, []string{"oops"}, out.stderr)
}

func TestRunEnvironment(t *testing.T) {
	var out output
	opts := out.options(t.TempDir())
	opts.Env = []string{"MATCH_TEST_VALUE=hello"}

	require.NoError(t, Run(context.Background(), "echo $MATCH_TEST_VALUE", opts))
	assert.Equal(t, []string{"hello"}, out.stdout)
}

func TestRunSyntaxError(t *testing.T) {
	err := Run(context.Background(), `echo "unterminated`, Options{Dir: t.TempDir()})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCommand))
}

func TestPosixBuiltins(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, Run(ctx, "mkdir -p out/results/a", Options{Dir: dir}))
	assert.DirExists(t, filepath.Join(dir, "out", "results", "a"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0o600))
	require.NoError(t, Run(ctx, "mv file out/results", Options{Dir: dir}))
	assert.FileExists(t, filepath.Join(dir, "out", "results", "file"))

	require.NoError(t, Run(ctx, "rm -f missing", Options{Dir: dir}))

	var out output
	err := Run(ctx, "rm out", out.options(dir))
	require.Error(t, err)
	assert.Contains(t, out.stderr[0], "is a directory")

	require.NoError(t, Run(ctx, "rm -rf out", Options{Dir: dir}))
	assert.NoDirExists(t, filepath.Join(dir, "out"))

	out = output{}
	err = Run(ctx, "mkdir -z out", out.options(dir))
	require.Error(t, err)
	assert.Equal(t, []string{"mkdir: unknown flag -z"}, out.stderr)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{value: "plain", want: "plain"},
		{value: "./out/results/x", want: "./out/results/x"},
		{value: "", want: "''"},
		{value: "a b", want: "'a b'"},
		{value: "it's", want: `'it'\''s'`},
		{value: "$HOME", want: "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.value))

			var out output
			require.NoError(t, Run(context.Background(), "echo "+Quote(tt.value), out.options(t.TempDir())))
			assert.Equal(t, []string{tt.value}, out.stdout)
		})
	}
}
