package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/jsontext"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/i-StarX/tc-transformer/pkg/transformer/metrics"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

// MismatchPolicy decides what happens when an extraction result and its
// group disagree on length.
type MismatchPolicy string

const (
	// MismatchTolerate ignores excess entries and leaves unmatched rows empty.
	MismatchTolerate MismatchPolicy = "tolerate"
	// MismatchStrict discards the whole result of the group.
	MismatchStrict MismatchPolicy = "strict"
)

// DefaultRepairAttempts is the number of repair passes tried on malformed JSON.
const DefaultRepairAttempts = 2

// MergeOptions configures a Merger.
type MergeOptions struct {
	Mode           models.MatchMode
	Policy         MismatchPolicy
	RepairAttempts int
}

// Merger copies extraction results into the rows they describe.
type Merger struct {
	opts    MergeOptions
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewMerger returns a Merger. Zero option values select the defaults.
func NewMerger(opts MergeOptions, logger *zap.Logger, rec *metrics.Recorder) *Merger {
	if opts.Mode == "" {
		opts.Mode = models.MatchAuto
	}
	if opts.Policy == "" {
		opts.Policy = MismatchTolerate
	}
	if opts.RepairAttempts < 0 {
		opts.RepairAttempts = 0
	}
	return &Merger{opts: opts, logger: logging.Named(logger, "merger"), metrics: rec}
}

// Parse decodes an extraction response into locators. Fences are stripped and
// unescaped attribute selectors repaired before parsing; malformed JSON then
// gets up to RepairAttempts repair passes. An object wrapping a single array
// is unwrapped and a lone object is treated as a one-element list.
func (m *Merger) Parse(text string) ([]models.Locator, error) {
	candidate := jsontext.EscapeAttributeQuotes(jsontext.StripFences(text))
	if candidate == "" {
		return nil, errors.New("empty extraction response")
	}

	var raw json.RawMessage
	if err := jsontext.Decode(candidate, m.opts.RepairAttempts, &raw); err != nil {
		return nil, err
	}
	return decodeLocators(raw)
}

func decodeLocators(raw json.RawMessage) ([]models.Locator, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var locs []models.Locator
		if err := json.Unmarshal(raw, &locs); err != nil {
			return nil, err
		}
		return locs, nil
	case strings.HasPrefix(trimmed, "{"):
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		if len(wrapper) == 1 {
			for _, inner := range wrapper {
				if strings.HasPrefix(strings.TrimSpace(string(inner)), "[") {
					return decodeLocators(inner)
				}
			}
		}
		var loc models.Locator
		if err := json.Unmarshal(raw, &loc); err != nil {
			return nil, err
		}
		return []models.Locator{loc}, nil
	}
	return nil, fmt.Errorf("expected a JSON array, got %.20q", trimmed)
}

// Merge parses text and copies the locators into rows, recording the result
// on report, and returns the group outcome. Failures stay local to the group:
// rows are left empty and report.Error explains why.
func (m *Merger) Merge(text string, rows []*models.Row, report *models.GroupReport) string {
	logger := m.logger.With(zap.Int(logging.Group, report.Group))

	locs, err := m.Parse(text)
	if err != nil {
		logger.Warn("extraction response is not valid JSON", zap.Error(err))
		m.metrics.ParseFailure()
		report.Error = fmt.Sprintf("parse extraction response: %v", err)
		return metrics.OutcomeParseFailed
	}
	report.Parsed = len(locs)

	if len(locs) != len(rows) {
		logger.Warn("extraction length mismatch",
			zap.Int("rows", len(rows)),
			zap.Int("parsed", len(locs)),
			zap.String("policy", string(m.opts.Policy)))
		if m.opts.Policy == MismatchStrict {
			report.Error = fmt.Sprintf("%v: %d rows, %d results", ErrLengthMismatch, len(rows), len(locs))
			return metrics.OutcomeMismatch
		}
	}

	mode := m.resolveMode(locs, rows)
	report.MatchMode = mode
	if mode == models.MatchKeyed {
		report.Applied = m.applyKeyed(logger, locs, rows)
	} else {
		report.Applied = applyPositional(locs, rows)
	}
	if report.Applied == 0 {
		return metrics.OutcomeUnmatched
	}
	return metrics.OutcomeEnriched
}

// resolveMode picks keyed matching in auto mode only when the group's
// references are present and unique and every result echoes a distinct one of
// them. Anything else falls back to positional matching.
func (m *Merger) resolveMode(locs []models.Locator, rows []*models.Row) models.MatchMode {
	if m.opts.Mode != models.MatchAuto {
		return m.opts.Mode
	}
	refs := make(map[string]bool, len(rows))
	for _, row := range rows {
		ref := strings.TrimSpace(row.Reference)
		if ref == "" || refs[ref] {
			return models.MatchPositional
		}
		refs[ref] = true
	}
	used := make(map[string]bool, len(locs))
	for _, loc := range locs {
		ref := strings.TrimSpace(loc.Reference)
		if !refs[ref] || used[ref] {
			return models.MatchPositional
		}
		used[ref] = true
	}
	return models.MatchKeyed
}

func applyPositional(locs []models.Locator, rows []*models.Row) int {
	applied := 0
	for i, row := range rows {
		if i >= len(locs) {
			break
		}
		if setLocator(row, locs[i]) {
			applied++
		}
	}
	return applied
}

func (m *Merger) applyKeyed(logger *zap.Logger, locs []models.Locator, rows []*models.Row) int {
	pending := make(map[string][]*models.Row, len(rows))
	for _, row := range rows {
		ref := strings.TrimSpace(row.Reference)
		pending[ref] = append(pending[ref], row)
	}

	applied := 0
	for _, loc := range locs {
		ref := strings.TrimSpace(loc.Reference)
		queue := pending[ref]
		if ref == "" || len(queue) == 0 {
			logger.Warn("extraction result matches no row", zap.String("reference", loc.Reference))
			continue
		}
		pending[ref] = queue[1:]
		if setLocator(queue[0], loc) {
			applied++
		}
	}

	for _, row := range rows {
		if row.Locator.IsZero() {
			logger.Warn("no extraction result for row",
				zap.Int("row", row.Index),
				zap.String("reference", row.Reference))
		}
	}
	return applied
}

func setLocator(row *models.Row, loc models.Locator) bool {
	row.Locator = models.Locator{
		Reference:  row.Reference,
		Type:       loc.Type,
		Role:       loc.Role,
		Expression: loc.Expression,
		Name:       loc.Name,
	}
	return !row.Locator.IsZero()
}
