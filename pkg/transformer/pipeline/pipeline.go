// Package pipeline drives a test-case table through code synthesis, browser
// execution, locator extraction and merging, one group at a time.
package pipeline

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/i-StarX/tc-transformer/pkg/transformer/metrics"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

// Synthesizer produces the browser program for one group.
type Synthesizer interface {
	Generate(ctx context.Context, loginRequired bool, url string) (string, error)
}

// Executor runs a browser program against the session.
type Executor interface {
	Execute(ctx context.Context, session browser.Session, snippet string) error
}

// Extractor asks for the locators of a group's action rows.
type Extractor interface {
	Extract(ctx context.Context, markup string, actions []models.ActionDescriptor) (string, error)
}

// Components are the collaborators a Pipeline calls for every group.
type Components struct {
	Synthesizer Synthesizer
	Executor    Executor
	Extractor   Extractor
	Merger      *Merger
}

// Pipeline processes groups strictly in order against one session.
type Pipeline struct {
	c       Components
	baseURL string
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// New returns a Pipeline. Relative navigation targets are resolved against
// baseURL, which also stands in for groups without a navigation row.
func New(c Components, baseURL string, logger *zap.Logger, rec *metrics.Recorder) *Pipeline {
	if c.Merger == nil {
		c.Merger = NewMerger(MergeOptions{}, logger, rec)
	}
	return &Pipeline{
		c:       c,
		baseURL: strings.TrimSpace(baseURL),
		logger:  logging.Named(logger, "pipeline"),
		metrics: rec,
	}
}

// Run groups rows and processes every group with session. Rows are enriched
// in place. The session is neither created nor closed here.
//
// Synthesis, execution, page-source and extraction failures stop the run and
// are returned as *StageError together with the report so far. Unusable
// extraction responses only affect their own group.
func (p *Pipeline) Run(ctx context.Context, session browser.Session, rows []*models.Row) (*models.RunReport, error) {
	report := &models.RunReport{RunID: runID(ctx)}
	logger := p.logger.With(zap.String(logging.RunID, report.RunID))

	groups := GroupRows(rows)
	logger.Info("run started", zap.Int("rows", len(rows)), zap.Int("groups", len(groups)))

	for i := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		group := &groups[i]
		gr, err := p.runGroup(ctx, logger, session, group)
		report.Groups = append(report.Groups, gr)
		if err != nil {
			p.metrics.Group(metrics.OutcomeFailed)
			logger.Error("group failed", zap.Int(logging.Group, group.Ordinal), zap.Error(err))
			return report, err
		}
	}

	logger.Info("run finished", zap.Int("groups", len(groups)), zap.Int("rows_enriched", report.Applied()))
	return report, nil
}

func (p *Pipeline) runGroup(ctx context.Context, logger *zap.Logger, session browser.Session, group *models.Group) (models.GroupReport, error) {
	target := p.Resolve(group.Target())
	actions := group.Actions()
	gr := models.GroupReport{
		Group:         group.Ordinal,
		FirstRow:      group.FirstIndex(),
		Target:        target,
		LoginRequired: group.Ordinal == 0,
		Actions:       len(actions),
	}
	logger = logger.With(zap.Int(logging.Group, group.Ordinal))
	logger.Debug("processing group", zap.String("target", target), zap.Int("actions", len(actions)))

	start := time.Now()
	program, err := p.c.Synthesizer.Generate(ctx, gr.LoginRequired, target)
	p.metrics.ObserveStage(StageSynthesize, start)
	if err != nil {
		return gr, NewStageError(group.Ordinal, StageSynthesize, err)
	}

	start = time.Now()
	err = p.c.Executor.Execute(ctx, session, program)
	p.metrics.ObserveStage(StageExecute, start)
	if err != nil {
		return gr, NewStageError(group.Ordinal, StageExecute, err)
	}

	markup, err := session.PageSource(ctx)
	if err != nil {
		return gr, NewStageError(group.Ordinal, StageSnapshot, err)
	}

	if len(actions) == 0 {
		logger.Debug("group has no actions, skipping extraction")
		p.metrics.Group(metrics.OutcomeNoActions)
		return gr, nil
	}

	descriptors := make([]models.ActionDescriptor, len(actions))
	for i, row := range actions {
		descriptors[i] = row.Descriptor()
	}

	start = time.Now()
	response, err := p.c.Extractor.Extract(ctx, markup, descriptors)
	p.metrics.ObserveStage(StageExtract, start)
	if err != nil {
		return gr, NewStageError(group.Ordinal, StageExtract, err)
	}

	start = time.Now()
	outcome := p.c.Merger.Merge(response, actions, &gr)
	p.metrics.ObserveStage(StageMerge, start)
	p.metrics.Group(outcome)
	p.metrics.RowsEnriched(gr.Applied)
	logger.Info("group processed",
		zap.String("outcome", outcome),
		zap.Int("parsed", gr.Parsed),
		zap.Int("applied", gr.Applied),
		zap.String("match_mode", string(gr.MatchMode)))
	return gr, nil
}

// Resolve returns target resolved against the base URL. Targets that do not
// parse are returned unchanged. An empty target, as in a group without a
// navigation row, resolves to the base URL itself rather than staying empty,
// so the generated program still has a page to open; with no base URL it
// stays empty.
func (p *Pipeline) Resolve(target string) string {
	target = strings.TrimSpace(target)
	if p.baseURL == "" {
		return target
	}
	if target == "" {
		return p.baseURL
	}
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return target
	}
	return base.ResolveReference(ref).String()
}

type runIDKey struct{}

// WithRunID attaches a run id to ctx for Run to use.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
