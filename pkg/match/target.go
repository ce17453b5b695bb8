package match

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ngld/match/pkg/expression"
)

// TargetState tracks where a target is in its lifecycle
type TargetState int

const (
	Created TargetState = iota
	Configured
	Building
	Done
	Failed
)

func (s TargetState) String() string {
	switch s {
	case Created:
		return "created"
	case Configured:
		return "configured"
	case Building:
		return "building"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Target is the build unit declared by a match file or one of its upper case sections
type Target struct {
	match *Match
	name  string
	file  string
	dir   string

	assignments []expression.Assignment

	lock       sync.Mutex
	state      TargetState
	setUp      bool
	properties map[string]string
	started    time.Time
	duration   time.Duration
	err        error
}

func newTarget(match *Match, name, file, dir string) *Target {
	return &Target{
		match:      match,
		name:       name,
		file:       file,
		dir:        dir,
		properties: make(map[string]string),
	}
}

// Name returns the unique target name, i.e. //lib/echo or //lib/echo:Tests
func (t *Target) Name() string {
	return t.name
}

// File returns the path of the match file that declared the target
func (t *Target) File() string {
	return t.file
}

// Dir returns the directory containing the match file
func (t *Target) Dir() string {
	return t.dir
}

// Assign appends a statement to the target. Only the parser calls this.
func (t *Target) Assign(assignment expression.Assignment) {
	t.assignments = append(t.assignments, assignment)
}

// Assignments returns the statements of the target in source order
func (t *Target) Assignments() []expression.Assignment {
	return t.assignments
}

// State returns the current lifecycle state
func (t *Target) State() TargetState {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

// Err returns the error that made the build fail
func (t *Target) Err() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.err
}

// Duration returns how long Build took
func (t *Target) Duration() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.duration
}

// Property returns a value computed by this target's build
func (t *Target) Property(key string) (string, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	value, ok := t.properties[key]
	return value, ok
}

// Properties returns a copy of the values computed by this target
func (t *Target) Properties() map[string]string {
	t.lock.Lock()
	defer t.lock.Unlock()

	result := make(map[string]string, len(t.properties))
	for key, value := range t.properties {
		result[key] = value
	}
	return result
}

func (t *Target) transition(from, to TargetState) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.state != from {
		return eris.Errorf("target %s is %s, expected %s", t.name, t.state, from)
	}
	t.state = to
	return nil
}

// Configure runs the configure hooks of all statements. Lower case assignments of constant
// values become global properties right away.
func (t *Target) Configure(ctx context.Context) error {
	if err := t.transition(Created, Configured); err != nil {
		return err
	}

	for _, stmt := range t.assignments {
		if err := expression.Configure(ctx, stmt.Value); err != nil {
			return eris.Wrapf(err, "failed to configure %s", t.name)
		}

		if !stmt.Target && expression.IsStatic(stmt.Value) {
			value, err := stmt.Value.Resolve(ctx)
			if err != nil {
				return eris.Wrapf(err, "%s: failed to resolve %s", stmt.Pos, stmt.Key)
			}
			t.match.SetProperty(stmt.Key, value)
		}
	}

	return nil
}

// SetUp runs the set up hooks of all statements. It's a no-op when called a second time.
func (t *Target) SetUp(ctx context.Context) error {
	t.lock.Lock()
	if t.state != Configured {
		t.lock.Unlock()
		return eris.Errorf("target %s has to be configured before it's set up", t.name)
	}
	if t.setUp {
		t.lock.Unlock()
		return nil
	}
	t.setUp = true
	t.lock.Unlock()

	for _, stmt := range t.assignments {
		if err := expression.SetUp(ctx, stmt.Value); err != nil {
			return eris.Wrapf(err, "failed to set up %s", t.name)
		}
	}
	return nil
}

// Build resolves every statement in order. Functions may block on files other targets provide.
func (t *Target) Build(ctx context.Context) error {
	if err := t.SetUp(ctx); err != nil {
		return err
	}

	if err := t.transition(Configured, Building); err != nil {
		return err
	}

	t.lock.Lock()
	t.started = time.Now()
	t.lock.Unlock()

	err := t.build(ctx)

	t.lock.Lock()
	defer t.lock.Unlock()

	t.duration = time.Since(t.started)
	if err != nil {
		t.state = Failed
		t.err = err
		return err
	}

	t.state = Done
	return nil
}

func (t *Target) build(ctx context.Context) error {
	for _, stmt := range t.assignments {
		value, err := stmt.Value.Resolve(ctx)
		if err != nil {
			return eris.Wrapf(err, "%s: failed to build %s", stmt.Pos, stmt.Key)
		}

		t.lock.Lock()
		t.properties[stmt.Key] = value
		t.lock.Unlock()
	}
	return nil
}
