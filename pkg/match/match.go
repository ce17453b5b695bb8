package match

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/ngld/match/pkg/expression"
	"github.com/ngld/match/pkg/frontend"
	"github.com/ngld/match/pkg/shell"
)

const (
	// MatchFile is the base name of build description files
	MatchFile = "match"
	// OutputDir is the directory below the root that is never scanned
	OutputDir = "out"
	// DefaultResultsDir is where test functions write their reports unless configured otherwise
	DefaultResultsDir = "./out/results"
)

// DefaultLibraries are the properties added to every test classpath
var DefaultLibraries = []string{"junit", "hamcrest", "mockito"}

// Options controls a run
type Options struct {
	// Concurrency limits how many targets build at once. Zero or less means no limit.
	Concurrency int
	// FailFast cancels all remaining targets once one of them failed
	FailFast bool
	// Quiet suppresses everything below error level
	Quiet bool
	// DryRun stops after the configuration phase
	DryRun bool
	// Progress shows a progress bar while building
	Progress       bool
	ProgressWriter io.Writer
	ResultsDir     string
	// Libraries overrides DefaultLibraries; an empty non-nil slice disables them
	Libraries []string
	// StateFile is where the outcome of the run is recorded. Nothing is written if it's empty.
	StateFile string
	Logger    *zerolog.Logger
}

// Match coordinates a single run over a source tree
type Match struct {
	root     string
	registry *expression.Registry
	opts     Options
	runID    string
	logger   *zerolog.Logger

	propLock   sync.RWMutex
	properties map[string]string

	gateLock sync.Mutex
	gates    map[string]*Gate

	matchFiles []string
	files      []string
	targets    []*Target

	sched    *scheduler
	commands atomic.Int64
	started  time.Time
	elapsed  time.Duration
}

// New creates a coordinator for the tree below root. Functions are looked up in registry.
func New(root string, registry *expression.Registry, opts Options) *Match {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	if opts.ResultsDir == "" {
		opts.ResultsDir = DefaultResultsDir
	}
	if opts.Libraries == nil {
		opts.Libraries = DefaultLibraries
	}
	if opts.ProgressWriter == nil {
		opts.ProgressWriter = os.Stderr
	}

	m := &Match{
		root:       filepath.Clean(root),
		registry:   registry,
		opts:       opts,
		runID:      nanoid.New(),
		properties: make(map[string]string),
		gates:      make(map[string]*Gate),
		sched:      newScheduler(opts.Concurrency),
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Quiet {
		logger = logger.Level(zerolog.ErrorLevel)
	}
	logger = logger.With().Str("run", m.runID).Logger()
	m.logger = &logger

	return m
}

// log prefers the logger attached to ctx since build contexts carry the target's name
func (m *Match) log(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(logKey{}).(*zerolog.Logger); ok {
		return logger
	}
	return m.logger
}

func (m *Match) Root() string {
	return m.root
}

func (m *Match) RunID() string {
	return m.runID
}

func (m *Match) Settings() expression.Settings {
	return expression.Settings{
		ResultsDir: m.opts.ResultsDir,
		Libraries:  m.opts.Libraries,
	}
}

// Property returns a global property. Reading a property nobody set is an error.
func (m *Match) Property(key string) (string, error) {
	m.propLock.RLock()
	defer m.propLock.RUnlock()

	value, ok := m.properties[key]
	if !ok {
		return "", &PropertyError{Key: key}
	}
	return value, nil
}

// SetProperty binds a global property
func (m *Match) SetProperty(key, value string) {
	m.propLock.Lock()
	old, exists := m.properties[key]
	m.properties[key] = value
	m.propLock.Unlock()

	if exists && old != value {
		m.Warnf("property %s changed from %q to %q", key, old, value)
	}
}

// Properties returns a copy of all global properties
func (m *Match) Properties() map[string]string {
	m.propLock.RLock()
	defer m.propLock.RUnlock()

	result := make(map[string]string, len(m.properties))
	for key, value := range m.properties {
		result[key] = value
	}
	return result
}

func (m *Match) normalize(path string) string {
	path = filepath.FromSlash(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	return filepath.Clean(path)
}

// AddFile declares that path will become available during the run. Declaring a path twice keeps
// the existing gate.
func (m *Match) AddFile(path string) {
	key := m.normalize(path)

	m.gateLock.Lock()
	defer m.gateLock.Unlock()

	if _, ok := m.gates[key]; !ok {
		m.gates[key] = newGate()
	}
}

// HasFile reports whether a gate exists for path. Files outside the tree usually have none.
func (m *Match) HasFile(path string) bool {
	key := m.normalize(path)

	m.gateLock.Lock()
	defer m.gateLock.Unlock()

	_, ok := m.gates[key]
	return ok
}

func (m *Match) gate(op, path string) (*Gate, error) {
	key := m.normalize(path)

	m.gateLock.Lock()
	defer m.gateLock.Unlock()

	gate, ok := m.gates[key]
	if !ok {
		return nil, &FileError{Op: op, Path: path}
	}
	return gate, nil
}

// ProvideFile opens the gate for path. Providing a file twice is harmless.
func (m *Match) ProvideFile(path string) error {
	gate, err := m.gate("provide", path)
	if err != nil {
		return err
	}

	if gate.Open() {
		m.logger.Debug().Str("path", path).Msg("file available")
	}
	return nil
}

// AwaitFile blocks until path was provided. While waiting, the calling target doesn't count
// against the concurrency limit.
func (m *Match) AwaitFile(ctx context.Context, path string) error {
	gate, err := m.gate("await", path)
	if err != nil {
		return err
	}

	if gate.IsOpen() {
		return nil
	}

	m.log(ctx).Debug().Str("path", path).Msg("waiting for file")
	err = m.sched.park(ctx, path, func() error {
		return gate.Wait(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return &InterruptedError{Path: path, Cause: ctx.Err()}
		}
		return err
	}
	return nil
}

// RunCommand runs command through the shell in the root directory. Output is logged as it
// arrives; stderr only shows up if the command fails.
func (m *Match) RunCommand(ctx context.Context, command string) error {
	m.commands.Add(1)
	logger := m.log(ctx)

	if m.opts.DryRun {
		logger.Info().Str("command", command).Msg("skipped command")
		return nil
	}

	logger.Debug().Str("command", command).Msg("running")
	return shell.Run(ctx, command, shell.Options{
		Dir: m.root,
		Stdout: func(line string) {
			logger.Info().Msg(line)
		},
		Stderr: func(line string) {
			logger.Info().Str("stream", "stderr").Msg("error: " + line)
		},
	})
}

// Warnf logs a warning
func (m *Match) Warnf(format string, args ...interface{}) {
	m.logger.Warn().Msgf(format, args...)
}

// Commands returns the number of commands run so far
func (m *Match) Commands() int64 {
	return m.commands.Load()
}

// MatchFiles returns the build descriptions found by Scan
func (m *Match) MatchFiles() []string {
	return m.matchFiles
}

// Files returns every other file found by Scan
func (m *Match) Files() []string {
	return m.files
}

// Targets returns all targets in discovery order
func (m *Match) Targets() []*Target {
	return m.targets
}

// Target looks up a target by name
func (m *Match) Target(name string) (*Target, bool) {
	for _, t := range m.targets {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

// Scan walks the root directory and sorts all files into match files and plain inputs
func (m *Match) Scan() error {
	m.matchFiles = nil
	m.files = nil

	return filepath.WalkDir(m.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return eris.Wrapf(err, "failed to scan %s", path)
		}
		if path == m.root {
			return nil
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") || (entry.IsDir() && name == OutputDir && filepath.Dir(path) == m.root) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			return nil
		}

		if name == MatchFile {
			m.matchFiles = append(m.matchFiles, path)
		} else {
			m.files = append(m.files, path)
		}
		return nil
	})
}

func (m *Match) targetName(file, section string) string {
	rel, err := filepath.Rel(m.root, filepath.Dir(file))
	if err != nil || rel == "." {
		rel = ""
	}

	name := "//" + filepath.ToSlash(rel)
	if section != "" {
		name += ":" + section
	}
	return name
}

// Parse turns every match file found by Scan into targets
func (m *Match) Parse() error {
	env := frontend.Env{
		Registry: m.registry,
		Match:    m,
		NewTarget: func(file, section string) frontend.TargetBuilder {
			return newTarget(m, m.targetName(file, section), file, filepath.Dir(file))
		},
	}

	seen := make(map[string]bool)
	m.targets = nil
	for _, file := range m.matchFiles {
		m.logger.Debug().Str("path", file).Msg("parsing")

		parsed, err := frontend.ParseFile(file, env)
		if err != nil {
			return err
		}

		for _, item := range parsed {
			t := item.(*Target)
			if seen[t.name] {
				return eris.Errorf("%s: target %s is declared twice", file, t.name)
			}
			seen[t.name] = true
			m.targets = append(m.targets, t)
		}
	}
	return nil
}

// SeedFiles opens the gates of all files that exist before the build starts
func (m *Match) SeedFiles() {
	for _, file := range m.files {
		m.AddFile(file)
		// can't fail, the gate was just added
		_ = m.ProvideFile(file)
	}
}

// Configure configures every target in discovery order
func (m *Match) Configure(ctx context.Context) error {
	for _, t := range m.targets {
		if err := t.Configure(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SetUp runs the set up step of every target in discovery order
func (m *Match) SetUp(ctx context.Context) error {
	for _, t := range m.targets {
		if err := t.SetUp(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Match) progressBar() *progressbar.ProgressBar {
	if !m.opts.Progress || m.opts.Quiet || os.Getenv("CI") == "true" {
		return progressbar.NewOptions(len(m.targets), progressbar.OptionSetVisibility(false))
	}

	return progressbar.NewOptions(len(m.targets),
		progressbar.OptionSetDescription("Building"),
		progressbar.OptionSetWriter(m.opts.ProgressWriter),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(m.opts.ProgressWriter, "\n")
		}),
	)
}

// Build builds all targets concurrently and waits until every one of them finished. It returns
// the first error any target ran into.
func (m *Match) Build(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bar := m.progressBar()
	base := m.log(ctx)

	// every target has to be registered before the first one can park or the scheduler would
	// consider a partially started build stuck
	contexts := make([]context.Context, len(m.targets))
	for idx, t := range m.targets {
		logger := base.With().Str("target", t.name).Logger()
		contexts[idx] = m.sched.start(WithLogger(ctx, &logger), t.name)
	}

	var (
		wg       sync.WaitGroup
		errLock  sync.Mutex
		firstErr error
		failed   int
	)

	for idx, t := range m.targets {
		wg.Add(1)
		go func(ctx context.Context, t *Target) {
			defer wg.Done()
			defer m.sched.finish(ctx)

			err := m.sched.acquire(ctx)
			if err == nil {
				Log(ctx).Debug().Msg("building")
				err = t.Build(ctx)
			}

			if err != nil {
				stopped := errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)

				errLock.Lock()
				if !stopped {
					failed++
				}
				first := firstErr == nil
				if first {
					firstErr = err
				}
				errLock.Unlock()

				// targets stopped by the cancellation would only repeat the first error
				if first || (!stopped && ctx.Err() == nil) {
					Log(ctx).Error().Err(err).Msg("build failed")
				}
				if m.opts.FailFast {
					cancel()
				}
			}

			_ = bar.Add(1)
		}(contexts[idx], t)
	}

	wg.Wait()
	_ = bar.Finish()

	if failed > 1 {
		base.Error().Msgf("%d targets failed", failed)
	}
	return firstErr
}

// Light runs all phases: scan, parse, configure, set up and build
func (m *Match) Light(ctx context.Context) error {
	m.started = time.Now()
	if _, ok := ctx.Value(logKey{}).(*zerolog.Logger); !ok {
		ctx = WithLogger(ctx, m.logger)
	}
	logger := Log(ctx)

	logger.Info().Msg("Scanning")
	if err := m.Scan(); err != nil {
		return &StageError{Stage: StageScan, Err: err}
	}

	logger.Info().Msg("Parsing")
	if err := m.Parse(); err != nil {
		return &StageError{Stage: StageParse, Err: err}
	}
	m.SeedFiles()

	logger.Info().Msg("Configuring")
	if err := m.Configure(ctx); err != nil {
		return &StageError{Stage: StageConfigure, Err: err}
	}
	if err := m.SetUp(ctx); err != nil {
		return &StageError{Stage: StageConfigure, Err: err}
	}

	if m.opts.DryRun {
		props := m.Properties()
		keys := make([]string, 0, len(props))
		for key := range props {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			logger.Info().Msgf("%s = %s", key, props[key])
		}
		logger.Info().Msgf("Done %s", FormatElapsed(time.Since(m.started)))
		return nil
	}

	logger.Info().Msg("Building")
	err := m.Build(ctx)
	m.elapsed = time.Since(m.started)

	if m.opts.StateFile != "" {
		if stateErr := WriteState(m.opts.StateFile, m.State(err)); stateErr != nil {
			m.Warnf("failed to write %s: %s", m.opts.StateFile, stateErr)
		}
	}

	if err != nil {
		return &StageError{Stage: StageBuild, Err: err}
	}

	logger.Info().Msgf("Done %s", FormatElapsed(m.elapsed))
	return nil
}

// State summarizes the run for the state file
func (m *Match) State(err error) *RunState {
	state := &RunState{
		RunID:      m.runID,
		Root:       m.root,
		Started:    m.started,
		Elapsed:    m.elapsed,
		Properties: m.Properties(),
		Targets:    make([]TargetSummary, 0, len(m.targets)),
	}
	if err != nil {
		state.Error = err.Error()
	}

	for _, t := range m.targets {
		summary := TargetSummary{
			Name:     t.name,
			File:     t.file,
			State:    t.State().String(),
			Duration: t.Duration(),
		}
		if terr := t.Err(); terr != nil {
			summary.Error = terr.Error()
		}
		state.Targets = append(state.Targets, summary)
	}
	return state
}
