package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
		wantErr  bool
	}{
		{"id", ByID, false},
		{" CSS ", ByCSS, false},
		{"css selector", ByCSS, false},
		{"link text", ByLinkText, false},
		{"XPath", ByXPath, false},
		{"role", ByRole, false},
		{"class name", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `"Add to cart"`, xpathLiteral("Add to cart"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	assert.Equal(t, `concat("it's ", '"', "quoted", '"', "")`, xpathLiteral(`it's "quoted"`))
}

func TestQuery(t *testing.T) {
	sel, opt, err := query(Locator{By: ByID, Value: "1.main:box"})
	require.NoError(t, err)
	assert.Equal(t, `[id="1.main:box"]`, sel)
	assert.NotNil(t, opt)

	sel, _, err = query(Locator{By: ByName, Value: "user-name"})
	require.NoError(t, err)
	assert.Equal(t, `[name="user-name"]`, sel)

	sel, _, err = query(Locator{By: ByText, Value: "Login"})
	require.NoError(t, err)
	assert.Equal(t, `//*[normalize-space(text())="Login"]`, sel)

	sel, _, err = query(Locator{By: ByRole, Value: "button", Name: "Login"})
	require.NoError(t, err)
	assert.Contains(t, sel, `@role="button" or self::button`)
	assert.Contains(t, sel, `@aria-label="Login"`)

	_, _, err = query(Locator{By: "class"})
	assert.Error(t, err)
}

func TestKeySequence(t *testing.T) {
	assert.Equal(t, kb.Enter, keySequence("Enter"))
	assert.Equal(t, "a", keySequence("a"))
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "id=login-button", Locator{By: ByID, Value: "login-button"}.String())
	assert.Equal(t, `role=button[name="Login"]`, Locator{By: ByRole, Value: "button", Name: "Login"}.String())
}

func TestNewLauncher(t *testing.T) {
	l, err := NewLauncher(Options{Driver: "chromedp"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ChromedpLauncher{}, l)

	l, err = NewLauncher(Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &PlaywrightLauncher{}, l)

	_, err = NewLauncher(Options{Driver: "selenium"}, nil)
	assert.Error(t, err)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
