package match

import (
	"context"

	"github.com/tevino/abool/v2"
)

// Gate is a one-shot signal for the availability of a file. Any number of goroutines can wait
// for it; once open it stays open.
type Gate struct {
	open *abool.AtomicBool
	done chan struct{}
}

func newGate() *Gate {
	return &Gate{
		open: abool.New(),
		done: make(chan struct{}),
	}
}

// Open releases all current and future waiters. It returns false if the gate was already open.
func (g *Gate) Open() bool {
	if g.open.SetToIf(false, true) {
		close(g.done)
		return true
	}
	return false
}

// IsOpen reports whether Open was called
func (g *Gate) IsOpen() bool {
	return g.open.IsSet()
}

// Wait blocks until the gate opens or ctx is cancelled
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	default:
	}

	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
