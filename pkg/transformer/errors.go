package transformer

import (
	"errors"

	"github.com/i-StarX/tc-transformer/pkg/transformer/codegen"
	"github.com/i-StarX/tc-transformer/pkg/transformer/parser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/pipeline"
	"github.com/i-StarX/tc-transformer/pkg/transformer/sandbox"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input file is not a valid xlsx format.
var ErrInvalidFormat = errors.New("invalid xlsx format")

// Errors raised by the processing stages.
var (
	ErrMissingColumn   = parser.ErrMissingColumn
	ErrEmptyCompletion = codegen.ErrEmptyCompletion
	ErrInvalidProgram  = sandbox.ErrInvalidProgram
	ErrLengthMismatch  = pipeline.ErrLengthMismatch
)

// StageError represents a fatal failure in one stage of one group.
type StageError = pipeline.StageError

// NewStageError creates a new StageError.
func NewStageError(group int, stage string, err error) *StageError {
	return pipeline.NewStageError(group, stage, err)
}

// IsInputError reports whether err was caused by the uploaded workbook
// rather than by a processing stage.
func IsInputError(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrMissingColumn)
}
