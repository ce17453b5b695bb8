package expression

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
)

// Anonymous is the parameter key of the single unnamed argument of a call
const Anonymous = "ANONYMOUS"

var (
	ErrMissingParameter = eris.New("missing parameter")
	ErrNotLiteral       = eris.New("parameter must be a string literal")
	ErrUnknownFunction  = eris.New("unknown function")
)

// Function is the behaviour behind a call. Resolve runs during the build phase and may block on
// files provided by other targets.
type Function interface {
	Resolve(ctx context.Context) (string, error)
}

// Configurer is implemented by functions that declare files or properties. Configure runs for
// every target before any target is built.
type Configurer interface {
	Configure(ctx context.Context) error
}

// SetUpper is implemented by functions with a step that has to run after configuration but
// before the build phase starts.
type SetUpper interface {
	SetUp(ctx context.Context) error
}

// ListResolver is implemented by functions that naturally produce several values
type ListResolver interface {
	ResolveList(ctx context.Context) ([]string, error)
}

// Settings are the coordinator options functions may depend on
type Settings struct {
	// ResultsDir is where test style functions write their output
	ResultsDir string
	// Libraries lists the property names always added to a classpath
	Libraries []string
}

// Match is the build coordinator as seen by functions
type Match interface {
	Root() string
	Settings() Settings

	Property(key string) (string, error)
	SetProperty(key, value string)
	Properties() map[string]string

	AddFile(path string)
	HasFile(path string) bool
	ProvideFile(path string) error
	AwaitFile(ctx context.Context, path string) error

	RunCommand(ctx context.Context, command string) error
	Warnf(format string, args ...interface{})
}

// Target is the build unit a call belongs to
type Target interface {
	Name() string
	File() string
	Dir() string
}

// Env is passed to function factories
type Env struct {
	Match  Match
	Target Target
}

// ParameterError reports a missing or malformed argument
type ParameterError struct {
	Function  string
	Parameter string
	Err       error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: parameter %s: %s", e.Function, e.Parameter, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

// Params maps parameter names to their argument expressions
type Params map[string]Expression

// Has reports whether key was passed
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Get returns the argument for key or an error naming fn if it is missing
func (p Params) Get(fn, key string) (Expression, error) {
	value, ok := p[key]
	if !ok {
		return nil, &ParameterError{Function: fn, Parameter: key, Err: ErrMissingParameter}
	}
	return value, nil
}

// Literal returns the value of a required argument that has to be known at parse time
func (p Params) Literal(fn, key string) (string, error) {
	value, err := p.Get(fn, key)
	if err != nil {
		return "", err
	}

	literal, ok := value.(*Literal)
	if !ok {
		return "", &ParameterError{Function: fn, Parameter: key, Err: ErrNotLiteral}
	}
	return literal.Value, nil
}

// Optional returns the argument for key or nil
func (p Params) Optional(key string) Expression {
	return p[key]
}

// Keys returns the parameter names in sorted order
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
