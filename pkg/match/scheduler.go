package match

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

type workerCtxKey struct{}

// worker is the build of one target as seen by the scheduler
type worker struct {
	target  string
	holding bool
}

func workerFrom(ctx context.Context) *worker {
	w, ok := ctx.Value(workerCtxKey{}).(*worker)
	if !ok {
		return nil
	}
	return w
}

// scheduler limits how many targets build at the same time. A target that waits for a file gives
// up its slot until the file becomes available so a full pool of waiting targets can't starve
// the targets that would provide those files.
type scheduler struct {
	// sem is nil if the number of running targets is unbounded
	sem *semaphore.Weighted

	lock       sync.Mutex
	unfinished int
	parked     int
	waiting    map[string]string
	warned     bool
}

func newScheduler(concurrency int) *scheduler {
	s := &scheduler{
		waiting: make(map[string]string),
	}
	if concurrency > 0 {
		s.sem = semaphore.NewWeighted(int64(concurrency))
	}
	return s
}

// start registers a target that will be built and returns the context its build runs in
func (s *scheduler) start(ctx context.Context, target string) context.Context {
	s.lock.Lock()
	s.unfinished++
	s.lock.Unlock()

	return context.WithValue(ctx, workerCtxKey{}, &worker{target: target})
}

// acquire blocks until the worker in ctx may run
func (s *scheduler) acquire(ctx context.Context) error {
	w := workerFrom(ctx)
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	if w != nil {
		w.holding = true
	}
	return nil
}

func (s *scheduler) release(ctx context.Context) {
	w := workerFrom(ctx)
	if w != nil {
		if !w.holding {
			return
		}
		w.holding = false
	}
	if s.sem != nil {
		s.sem.Release(1)
	}
}

// finish releases the worker's slot and removes it from the bookkeeping
func (s *scheduler) finish(ctx context.Context) {
	s.release(ctx)

	s.lock.Lock()
	s.unfinished--
	stuck, waiting := s.checkStuck()
	s.lock.Unlock()

	if stuck {
		warnStuck(ctx, waiting)
	}
}

// checkStuck reports whether every unfinished worker is parked. It only reports this once per
// run. The caller has to hold the lock.
func (s *scheduler) checkStuck() (bool, string) {
	if s.warned || s.unfinished == 0 || s.parked != s.unfinished {
		return false, ""
	}

	s.warned = true
	return true, s.describeWaiting()
}

func warnStuck(ctx context.Context, waiting string) {
	Log(ctx).Warn().
		Str("waiting", waiting).
		Msg("all remaining targets are waiting for files; the build can't make progress")
}

// park runs wait while the worker in ctx doesn't occupy a slot. Calls from outside a build
// (tests, dry runs) just wait.
func (s *scheduler) park(ctx context.Context, path string, wait func() error) error {
	w := workerFrom(ctx)
	if w == nil {
		return wait()
	}

	s.lock.Lock()
	s.parked++
	s.waiting[w.target] = path
	stuck, waiting := s.checkStuck()
	s.lock.Unlock()

	if stuck {
		warnStuck(ctx, waiting)
	}

	s.release(ctx)
	err := wait()

	s.lock.Lock()
	s.parked--
	delete(s.waiting, w.target)
	s.lock.Unlock()

	if err != nil {
		return err
	}
	return s.acquire(ctx)
}

func (s *scheduler) describeWaiting() string {
	items := make([]string, 0, len(s.waiting))
	for target, path := range s.waiting {
		items = append(items, target+" -> "+path)
	}
	sort.Strings(items)
	return strings.Join(items, ", ")
}

// stats returns the number of unfinished and parked workers
func (s *scheduler) stats() (int, int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.unfinished, s.parked
}
