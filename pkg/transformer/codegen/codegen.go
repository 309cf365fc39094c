// Package codegen asks a language model for the browser program that brings a
// session to a group's target page.
package codegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/llm"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
)

// ErrEmptyCompletion is returned when the model answers with nothing usable.
var ErrEmptyCompletion = errors.New("empty completion")

// Placeholders the executor substitutes with configured credentials.
const (
	UsernamePlaceholder = "${USERNAME}"
	PasswordPlaceholder = "${PASSWORD}"
)

var promptTemplate = template.Must(template.New("codegen").Parse(`You are an assistant that writes browser automation programs.
Write a JSON program for a browser that is already open. The program is an object
{"version": 1, "steps": [...]} where each step is {"verb": ..., "args": {...}}.

Allowed verbs:
- navigate {"url"}
- click {"by", "value"}
- fill {"by", "value", "text"}
- press {"by", "value", "key"}
- wait {"ms"}
- wait_for {"by", "value"}
Allowed "by" strategies: id, name, css, xpath, text, role, link_text.
For role, "value" is the ARIA role and "name" is the accessible name.
Never open, launch, quit or close a browser. Use the minimal steps necessary.

Requirements:
{{- if .LoginRequired}}
1. Log in at {{.LoginURL}} with username {{.Username}} and password {{.Password}}.
   Use these placeholders literally; they are filled in later.
2. Then navigate to the URL: {{.URL}}
{{- else}}
1. Navigate to the URL: {{.URL}}
{{- end}}
Return only the JSON program (no markdown), no extra text.
`))

type promptData struct {
	LoginRequired bool
	LoginURL      string
	Username      string
	Password      string
	URL           string
}

// Synthesizer turns a target URL into a browser program.
type Synthesizer struct {
	completer llm.Completer
	loginURL  string
	logger    *zap.Logger
}

// NewSynthesizer returns a Synthesizer that logs in at loginURL when asked.
func NewSynthesizer(completer llm.Completer, loginURL string, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		loginURL:  loginURL,
		logger:    logging.Named(logger, "codegen"),
	}
}

// Prompt renders the request sent to the model.
func (s *Synthesizer) Prompt(loginRequired bool, url string) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		LoginRequired: loginRequired,
		LoginURL:      s.loginURL,
		Username:      UsernamePlaceholder,
		Password:      PasswordPlaceholder,
		URL:           url,
	})
	if err != nil {
		return "", fmt.Errorf("render codegen prompt: %w", err)
	}
	return buf.String(), nil
}

// Generate returns the program text produced for url. The text is not
// validated here.
func (s *Synthesizer) Generate(ctx context.Context, loginRequired bool, url string) (string, error) {
	prompt, err := s.Prompt(loginRequired, url)
	if err != nil {
		return "", err
	}

	out, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate program: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyCompletion
	}

	s.logger.Debug("generated program",
		zap.Bool("login_required", loginRequired),
		zap.String("url", url),
		zap.String("program", out))
	return out, nil
}
