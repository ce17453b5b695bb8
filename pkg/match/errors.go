package match

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	ErrProperty     = eris.New("property error")
	ErrFileProtocol = eris.New("file protocol error")
	ErrInterrupted  = eris.New("interrupted")
)

// PropertyError is returned when a property is read before anyone set it
type PropertyError struct {
	Key string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("no targets set property %s", e.Key)
}

func (e *PropertyError) Unwrap() error {
	return ErrProperty
}

// FileError is returned when a file is provided or awaited without being declared first
type FileError struct {
	Op   string
	Path string
}

func (e *FileError) Error() string {
	if e.Op == "await" {
		return fmt.Sprintf("no targets provide %s", e.Path)
	}
	return fmt.Sprintf("%s called for %s before it was added", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return ErrFileProtocol
}

// InterruptedError is returned by AwaitFile if the build was cancelled while waiting
type InterruptedError struct {
	Path  string
	Cause error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted while waiting for %s: %s", e.Path, e.Cause)
}

func (e *InterruptedError) Unwrap() []error {
	return []error{ErrInterrupted, e.Cause}
}

// Stage is one of the phases of a run
type Stage int

const (
	StageScan Stage = iota
	StageParse
	StageConfigure
	StageBuild
)

func (s Stage) String() string {
	switch s {
	case StageScan:
		return "scan"
	case StageParse:
		return "parse"
	case StageConfigure:
		return "configure"
	case StageBuild:
		return "build"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError records which phase of a run failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// BuildTime reports whether the failure happened after all targets were configured
func (e *StageError) BuildTime() bool {
	return e.Stage == StageBuild
}
