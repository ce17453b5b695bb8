package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/interp"
)

type builtin func(ctx context.Context, args []string) error

var posixBuiltins = map[string]builtin{
	"mkdir": mkdirBuiltin,
	"rm":    rmBuiltin,
	"mv":    mvBuiltin,
}

// splitFlags separates leading single dash flags like -rf from the remaining arguments
func splitFlags(args []string, known string) (map[rune]bool, []string, error) {
	flags := map[rune]bool{}
	for idx, arg := range args {
		if arg == "--" {
			return flags, args[idx+1:], nil
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			return flags, args[idx:], nil
		}

		for _, flag := range arg[1:] {
			if !strings.ContainsRune(known, flag) {
				return nil, nil, eris.Errorf("unknown flag -%c", flag)
			}
			flags[flag] = true
		}
	}
	return flags, nil, nil
}

func resolve(ctx context.Context, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(interp.HandlerCtx(ctx).Dir, path)
}

// fail reports err on the command's stderr and turns it into an exit status
func fail(ctx context.Context, name string, err error) error {
	fmt.Fprintf(interp.HandlerCtx(ctx).Stderr, "%s: %s\n", name, err)
	return interp.NewExitStatus(1)
}

func mkdirBuiltin(ctx context.Context, args []string) error {
	flags, items, err := splitFlags(args, "p")
	if err != nil {
		return fail(ctx, "mkdir", err)
	}

	for _, item := range items {
		path := resolve(ctx, item)
		if flags['p'] {
			err = os.MkdirAll(path, 0770)
		} else {
			err = os.Mkdir(path, 0770)
		}

		if err != nil {
			return fail(ctx, "mkdir", eris.Wrapf(err, "failed to create %s", item))
		}
	}

	return nil
}

func rmBuiltin(ctx context.Context, args []string) error {
	flags, items, err := splitFlags(args, "rRf")
	if err != nil {
		return fail(ctx, "rm", err)
	}

	recursive := flags['r'] || flags['R']
	force := flags['f']

	for _, item := range items {
		path := resolve(ctx, item)
		info, err := os.Stat(path)
		if err != nil {
			if force && eris.Is(err, os.ErrNotExist) {
				continue
			}
			return fail(ctx, "rm", eris.Wrapf(err, "could not stat %s", item))
		}

		if info.IsDir() && !recursive {
			return fail(ctx, "rm", eris.Errorf("%s is a directory but -r wasn't passed", item))
		}

		if err = os.RemoveAll(path); err != nil {
			return fail(ctx, "rm", eris.Wrapf(err, "could not delete %s", item))
		}
	}

	return nil
}

func mvBuiltin(ctx context.Context, args []string) error {
	_, items, err := splitFlags(args, "f")
	if err != nil {
		return fail(ctx, "mv", err)
	}

	if len(items) < 2 {
		return fail(ctx, "mv", eris.New("not enough parameters"))
	}

	dest := resolve(ctx, items[len(items)-1])
	info, err := os.Stat(dest)
	if err != nil && !os.IsNotExist(err) {
		return fail(ctx, "mv", eris.Wrapf(err, "failed to retrieve info about destination %s", dest))
	}

	destIsDir := err == nil && info.IsDir()
	if len(items) > 2 && !destIsDir {
		return fail(ctx, "mv", eris.Errorf("can't move multiple items to %s because it is not a directory", dest))
	}

	for _, item := range items[:len(items)-1] {
		src := resolve(ctx, item)
		target := dest
		if destIsDir {
			target = filepath.Join(dest, filepath.Base(src))
		}

		if err = os.Rename(src, target); err != nil {
			return fail(ctx, "mv", eris.Wrapf(err, "failed to move %s to %s", item, target))
		}
	}

	return nil
}
