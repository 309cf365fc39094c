// Package transformer enriches manual test-case tables with UI locators.
package transformer

import (
	"fmt"
	"strings"

	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
	"github.com/i-StarX/tc-transformer/pkg/transformer/pipeline"
)

// MatchMode represents how extraction results are paired with rows.
type MatchMode = models.MatchMode

const (
	// MatchAuto pairs by TC Reference when every result echoes one, otherwise by position.
	MatchAuto = models.MatchAuto
	// MatchPositional pairs the i-th result with the i-th action row.
	MatchPositional = models.MatchPositional
	// MatchKeyed pairs results with rows by TC Reference only.
	MatchKeyed = models.MatchKeyed
)

// MismatchPolicy represents the handling of length mismatches.
type MismatchPolicy = pipeline.MismatchPolicy

const (
	// MismatchTolerate ignores excess results and leaves missing rows empty.
	MismatchTolerate = pipeline.MismatchTolerate
	// MismatchStrict discards the results of a mismatched group.
	MismatchStrict = pipeline.MismatchStrict
)

// Options configures processing behavior.
type Options struct {
	// MatchMode specifies how results are paired with rows (auto, positional, keyed).
	MatchMode MatchMode
	// MismatchPolicy specifies the handling of length mismatches (tolerate, strict).
	MismatchPolicy MismatchPolicy
	// RepairAttempts bounds the JSON repair passes per extraction response.
	// If nil, defaults to 2.
	RepairAttempts *int
	// MaxHTMLChars truncates the page markup sent for extraction. 0 disables it.
	MaxHTMLChars int
	// BaseURL is the application under test. Relative Test Data URLs are
	// resolved against it and it is the default login page.
	BaseURL string
	// Sheet selects the worksheet. Empty selects the first sheet.
	Sheet string
	// Range restricts reading to a cell range such as "A1:F40".
	Range string
	// UsePrintArea restricts reading to the sheet's print area when Range is empty.
	UsePrintArea bool
}

// DefaultOptions returns default processing options.
func DefaultOptions() Options {
	return Options{
		MatchMode:      MatchAuto,
		MismatchPolicy: MismatchTolerate,
	}
}

// Repairs returns the number of JSON repair passes to attempt.
func (o Options) Repairs() int {
	if o.RepairAttempts != nil {
		return *o.RepairAttempts
	}
	return pipeline.DefaultRepairAttempts
}

// ParseMatchMode validates a match mode name. Empty selects MatchAuto.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MatchAuto, nil
	case MatchAuto, MatchPositional, MatchKeyed:
		return m, nil
	}
	return "", fmt.Errorf("invalid match mode %q (must be auto, positional or keyed)", s)
}

// ParseMismatchPolicy validates a mismatch policy name. Empty selects MismatchTolerate.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch p := MismatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MismatchTolerate, nil
	case MismatchTolerate, MismatchStrict:
		return p, nil
	}
	return "", fmt.Errorf("invalid mismatch policy %q (must be tolerate or strict)", s)
}
