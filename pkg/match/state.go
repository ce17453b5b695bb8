package match

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"
)

// TargetSummary is the outcome of one target in a recorded run
type TargetSummary struct {
	Name     string
	File     string
	State    string
	Duration time.Duration
	Error    string
}

// RunState is what a run leaves behind for `match status`
type RunState struct {
	RunID      string
	Root       string
	Started    time.Time
	Elapsed    time.Duration
	Error      string
	Properties map[string]string
	Targets    []TargetSummary
}

func init() {
	gob.Register(RunState{})
	gob.Register(TargetSummary{})
}

// WriteState stores state in file, creating its directory if necessary
func WriteState(file string, state *RunState) error {
	err := os.MkdirAll(filepath.Dir(file), 0o770)
	if err != nil {
		return err
	}

	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	return gob.NewEncoder(handle).Encode(state)
}

// ReadState loads a state previously written by WriteState
func ReadState(file string) (*RunState, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	var state RunState
	err = gob.NewDecoder(handle).Decode(&state)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
