// Package shell runs build commands with mvdan.cc/sh so that every platform gets the same POSIX
// shell semantics without depending on /bin/sh.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrCommand is wrapped by errors for commands that exited with a non-zero status
var ErrCommand = eris.New("command failed")

// CommandError describes a command that exited with a non-zero status
type CommandError struct {
	Command string
	Status  uint8
	Stderr  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Status)
}

func (e *CommandError) Unwrap() error {
	return ErrCommand
}

// Options controls how Run executes a command
type Options struct {
	// Dir is the working directory; the current directory if empty
	Dir string
	// Env holds additional KEY=value pairs on top of the process environment
	Env []string
	// Stdout is called for every complete line the command writes to stdout
	Stdout func(line string)
	// Stderr is called for every line written to stderr, but only once the command has failed
	Stderr func(line string)
}

// Run parses command as a shell script and executes it. Stdout is streamed line by line while
// stderr is held back and only surfaced if the command fails.
func Run(ctx context.Context, command string, opts Options) error {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return eris.Wrapf(err, "failed to parse command %s", command)
	}

	stdout := newLineWriter(opts.Stdout)
	stderr := new(lockedBuffer)

	runner, err := interp.New(
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(append(os.Environ(), opts.Env...)...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize runner")
	}

	err = runner.Run(ctx, file)
	stdout.Flush()

	if err == nil {
		return nil
	}

	status, ok := interp.IsExitStatus(err)
	if !ok {
		return eris.Wrapf(err, "failed to run %s", command)
	}

	output := stderr.String()
	if opts.Stderr != nil {
		for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
			if line != "" {
				opts.Stderr(line)
			}
		}
	}

	return &CommandError{Command: command, Status: status, Stderr: output}
}

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if builtin, ok := posixBuiltins[args[0]]; ok {
			// always use our own implementation for these operations to make sure they behave
			// consistently
			return builtin(ctx, args[1:])
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// lineWriter splits its input into lines and passes each complete line to a callback
type lineWriter struct {
	lock    sync.Mutex
	pending bytes.Buffer
	emit    func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	if emit == nil {
		emit = func(string) {}
	}
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.pending.Write(p)
	for {
		idx := bytes.IndexByte(w.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}

		line := string(w.pending.Next(idx + 1))
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits a trailing line that wasn't terminated by a newline
func (w *lineWriter) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.pending.Len() > 0 {
		w.emit(strings.TrimRight(w.pending.String(), "\r\n"))
		w.pending.Reset()
	}
}

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}
