package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/browser/browsertest"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
	"github.com/i-StarX/tc-transformer/pkg/transformer/sandbox"
)

type synthCall struct {
	login bool
	url   string
}

// fakeSynth emits a program navigating to the requested url.
type fakeSynth struct {
	calls []synthCall
	err   error
}

func (f *fakeSynth) Generate(ctx context.Context, loginRequired bool, url string) (string, error) {
	f.calls = append(f.calls, synthCall{loginRequired, url})
	if f.err != nil {
		return "", f.err
	}
	return `[{"verb":"navigate","args":{"url":"` + url + `"}}]`, nil
}

type failingExecutor struct {
	err error
}

func (e failingExecutor) Execute(context.Context, browser.Session, string) error {
	return e.err
}

func navExecutor() Executor {
	return sandbox.NewExecutor(nil, zap.NewNop())
}

type extractCall struct {
	markup  string
	actions []models.ActionDescriptor
}

type fakeExtractor struct {
	calls     []extractCall
	responses []string
	err       error
}

func (f *fakeExtractor) Extract(ctx context.Context, markup string, actions []models.ActionDescriptor) (string, error) {
	f.calls = append(f.calls, extractCall{markup, actions})
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func scenarioRows() []*models.Row {
	rows := makeRows("goto", "click", "goto", "type")
	rows[0].TestData = "https://x/login"
	rows[2].TestData = "https://x/cart"
	return rows
}

func TestRunScenario(t *testing.T) {
	synth := &fakeSynth{}
	extractor := &fakeExtractor{responses: []string{
		"```json\n" + `[{"Locator Type":"id","Role (used if locator type is role)":"","Element Locator ":"[id=\"user-name\"]","Element name":"username"}]` + "\n```",
		`[{"Locator Type":"role","Role (used if locator type is role)":"button","Element Locator ":"Checkout","Element name":"checkout"}]`,
	}}
	session := browsertest.New()
	session.Pages["https://x/login"] = "<html><body><input id=\"user-name\"></body></html>"

	p := New(Components{Synthesizer: synth, Executor: navExecutor(), Extractor: extractor}, "", zap.NewNop(), nil)
	rows := scenarioRows()

	report, err := p.Run(context.Background(), session, rows)
	require.NoError(t, err)

	assert.Equal(t, []synthCall{{true, "https://x/login"}, {false, "https://x/cart"}}, synth.calls)

	require.Len(t, extractor.calls, 2)
	assert.Contains(t, extractor.calls[0].markup, `id="user-name"`)
	require.Len(t, extractor.calls[0].actions, 1)
	assert.Equal(t, "TC-2", extractor.calls[0].actions[0].Reference)
	require.Len(t, extractor.calls[1].actions, 1)
	assert.Equal(t, "TC-4", extractor.calls[1].actions[0].Reference)

	assert.True(t, rows[0].Locator.IsZero(), "navigation rows are never enriched")
	assert.Equal(t, `[id="user-name"]`, rows[1].Locator.Expression)
	assert.True(t, rows[2].Locator.IsZero())
	assert.Equal(t, "button", rows[3].Locator.Role)

	require.Len(t, report.Groups, 2)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Groups[0].LoginRequired)
	assert.False(t, report.Groups[1].LoginRequired)
	assert.Equal(t, 2, report.Groups[1].FirstRow)
	assert.Equal(t, 2, report.Applied())
	assert.Zero(t, session.Closed(), "the pipeline never closes the session")
}

func TestRunParseFailureIsContained(t *testing.T) {
	extractor := &fakeExtractor{responses: []string{
		"Sorry, I cannot help with that.",
		`[{"Locator Type":"id","Element Locator ":"checkout"}]`,
	}}
	p := New(Components{Synthesizer: &fakeSynth{}, Executor: navExecutor(), Extractor: extractor}, "", zap.NewNop(), nil)
	rows := scenarioRows()

	report, err := p.Run(context.Background(), browsertest.New(), rows)
	require.NoError(t, err)

	assert.True(t, rows[1].Locator.IsZero())
	assert.NotEmpty(t, report.Groups[0].Error)
	assert.Equal(t, "checkout", rows[3].Locator.Expression)
	assert.Empty(t, report.Groups[1].Error)
}

func TestRunSkipsExtractionWithoutActions(t *testing.T) {
	extractor := &fakeExtractor{}
	synth := &fakeSynth{}
	p := New(Components{Synthesizer: synth, Executor: navExecutor(), Extractor: extractor}, "", zap.NewNop(), nil)
	rows := makeRows("goto", "goto")
	rows[0].TestData = "https://x/a"
	rows[1].TestData = "https://x/b"

	report, err := p.Run(context.Background(), browsertest.New(), rows)
	require.NoError(t, err)
	assert.Len(t, synth.calls, 2)
	assert.Empty(t, extractor.calls)
	assert.Len(t, report.Groups, 2)
}

func TestRunFatalStages(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		synth     *fakeSynth
		exec      Executor
		extractor *fakeExtractor
		failPage  bool
		stage     string
	}{
		{"synthesize", &fakeSynth{err: boom}, navExecutor(), &fakeExtractor{}, false, StageSynthesize},
		{"execute", &fakeSynth{}, failingExecutor{err: boom}, &fakeExtractor{}, false, StageExecute},
		{"snapshot", &fakeSynth{}, navExecutor(), &fakeExtractor{}, true, StageSnapshot},
		{"extract", &fakeSynth{}, navExecutor(), &fakeExtractor{err: boom}, false, StageExtract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := browsertest.New()
			if tt.failPage {
				session.FailOn["PageSource"] = boom
			}
			p := New(Components{Synthesizer: tt.synth, Executor: tt.exec, Extractor: tt.extractor}, "", zap.NewNop(), nil)

			report, err := p.Run(context.Background(), session, scenarioRows())
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.Equal(t, 0, stageErr.Group)
			assert.Len(t, report.Groups, 1, "no group runs after a fatal failure")
			assert.Len(t, tt.synth.calls, 1)
		})
	}
}

func TestRunChecksContextBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	synth := &fakeSynth{}
	extractor := &fakeExtractor{responses: []string{"[]"}}
	cancelling := &cancelOnExtract{fakeExtractor: extractor, cancel: cancel}
	p := New(Components{Synthesizer: synth, Executor: navExecutor(), Extractor: cancelling}, "", zap.NewNop(), nil)

	report, err := p.Run(ctx, browsertest.New(), scenarioRows())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, synth.calls, 1)
	assert.Len(t, report.Groups, 1)
}

type cancelOnExtract struct {
	*fakeExtractor
	cancel context.CancelFunc
}

func (c *cancelOnExtract) Extract(ctx context.Context, markup string, actions []models.ActionDescriptor) (string, error) {
	defer c.cancel()
	return c.fakeExtractor.Extract(ctx, markup, actions)
}

func TestRunUsesRunIDFromContext(t *testing.T) {
	p := New(Components{Synthesizer: &fakeSynth{}, Executor: navExecutor(), Extractor: &fakeExtractor{}}, "", zap.NewNop(), nil)

	report, err := p.Run(WithRunID(context.Background(), "run-1"), browsertest.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Empty(t, report.Groups)
}

func TestResolve(t *testing.T) {
	p := New(Components{}, "https://www.saucedemo.com/", zap.NewNop(), nil)

	assert.Equal(t, "https://www.saucedemo.com/cart.html", p.Resolve("cart.html"))
	assert.Equal(t, "https://www.saucedemo.com/inventory.html", p.Resolve("/inventory.html"))
	assert.Equal(t, "https://other.example/x", p.Resolve("https://other.example/x"))
	assert.Equal(t, "https://www.saucedemo.com/", p.Resolve(""))

	bare := New(Components{}, "", zap.NewNop(), nil)
	assert.Equal(t, "cart.html", bare.Resolve("cart.html"))
	assert.Equal(t, "", bare.Resolve(""))
}
