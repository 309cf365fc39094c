package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/llm"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

const loginPage = `<!DOCTYPE html>
<html><head><title>Swag Labs</title><script>var x = 1;</script><style>body{}</style></head>
<body>
<!-- tracking -->
<form>
<input type="text" placeholder="Username" id="user-name" data-test="username">
<input id="password" type="password">
<button class="btn" id="login-button">  Login
</button>
</form>
<noscript>enable js</noscript>
</body></html>`

func TestNormalizeHTML(t *testing.T) {
	out, err := NormalizeHTML(loginPage, 0)
	require.NoError(t, err)

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "var x")
	assert.NotContains(t, out, "<style")
	assert.NotContains(t, out, "<noscript")
	assert.NotContains(t, out, "tracking")

	assert.Contains(t, out, `<input data-test="username" id="user-name" placeholder="Username" type="text">`)
	assert.Contains(t, out, "    <form>\n      <input")
	assert.Contains(t, out, "<button class=\"btn\" id=\"login-button\">\n        Login\n      </button>")
	assert.NotContains(t, out, "</input>")
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>\n<html>"))
}

func TestNormalizeHTMLTruncates(t *testing.T) {
	full, err := NormalizeHTML(loginPage, 0)
	require.NoError(t, err)

	cut, err := NormalizeHTML(loginPage, 40)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cut, truncatedMarker))
	assert.Equal(t, full[:40], strings.TrimSuffix(cut, truncatedMarker))
}

func TestExtractPrompt(t *testing.T) {
	var got string
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		got = prompt
		return "[]", nil
	})
	e := NewExtractor(completer, 0, zap.NewNop())

	actions := []models.ActionDescriptor{
		{Reference: "TC-1", Description: "Enter username", Action: "fill"},
		{Reference: "TC-2", Description: "Click login", Action: "click"},
	}
	out, err := e.Extract(context.Background(), loginPage, actions)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	assert.Contains(t, got, `id="login-button"`)
	assert.NotContains(t, got, "var x")
	assert.Contains(t, got, `"TC Reference": "TC-1"`)
	assert.Contains(t, got, `"Element Locator "`)
	assert.Contains(t, got, "same order as the steps")
	assert.Less(t, strings.Index(got, "TC-1"), strings.Index(got, "TC-2"))
}

func TestExtractPropagatesErrors(t *testing.T) {
	boom := errors.New("timeout")
	e := NewExtractor(llm.CompleterFunc(func(context.Context, string) (string, error) {
		return "", boom
	}), 0, zap.NewNop())

	_, err := e.Extract(context.Background(), "<p>x</p>", nil)
	assert.ErrorIs(t, err, boom)
}
