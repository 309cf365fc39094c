package pipeline

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is recorded on a group whose extraction result has a
// different number of entries than the group has action rows, when the strict
// mismatch policy is in effect.
var ErrLengthMismatch = errors.New("extraction length mismatch")

// Stage names used in StageError, logs and metrics.
const (
	StageSynthesize = "synthesize"
	StageExecute    = "execute"
	StageSnapshot   = "snapshot"
	StageExtract    = "extract"
	StageMerge      = "merge"
)

// StageError represents a fatal failure while processing one group.
type StageError struct {
	Group int
	Stage string // "synthesize", "execute", "snapshot", "extract"
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("group %d (%s): %v", e.Group, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(group int, stage string, err error) *StageError {
	return &StageError{
		Group: group,
		Stage: stage,
		Err:   err,
	}
}
