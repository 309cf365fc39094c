// Package extract asks a language model which page elements each test step
// interacts with.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/i-StarX/tc-transformer/pkg/transformer/llm"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

var promptTemplate = template.Must(template.New("extract").Parse(`You are an intelligent assistant that extracts web element locators for automated testing.

Here is the HTML structure of the page:
{{.HTML}}

Based on the following test case data (each item is a step on this page):
{{.Actions}}

For each step, extract the required details:
  - "{{.Reference}}" (copy it unchanged from the step)
  - "{{.LocatorType}}" (e.g., locator, role, id)
  - "{{.Role}}" (e.g., button, link)
  - "{{.Locator}}" (the actual locator, e.g., [id="user-name"])
  - "{{.Name}}" (some descriptive name or ID)

Return the result in valid JSON. The JSON must be an array of objects, one per
step and in the same order as the steps, each object with these keys:
["{{.Reference}}", "{{.LocatorType}}", "{{.Role}}", "{{.Locator}}", "{{.Name}}"].
`))

type promptData struct {
	HTML    string
	Actions string

	Reference   string
	LocatorType string
	Role        string
	Locator     string
	Name        string
}

// Extractor turns page markup and step descriptions into locator JSON.
type Extractor struct {
	completer llm.Completer
	maxChars  int
	logger    *zap.Logger
}

// NewExtractor returns an Extractor. maxChars bounds the normalized markup
// sent to the model; zero sends all of it.
func NewExtractor(completer llm.Completer, maxChars int, logger *zap.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		maxChars:  maxChars,
		logger:    logging.Named(logger, "extract"),
	}
}

// Prompt renders the request for markup and actions.
func (e *Extractor) Prompt(markup string, actions []models.ActionDescriptor) (string, error) {
	page, err := NormalizeHTML(markup, e.maxChars)
	if err != nil {
		return "", err
	}
	encoded, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode actions: %w", err)
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, promptData{
		HTML:        page,
		Actions:     string(encoded),
		Reference:   models.ColReference,
		LocatorType: models.ColLocatorType,
		Role:        models.ColRole,
		Locator:     models.ColLocator,
		Name:        models.ColElementName,
	})
	if err != nil {
		return "", fmt.Errorf("render extraction prompt: %w", err)
	}
	return buf.String(), nil
}

// Extract returns the model's raw answer. The answer is not validated here.
func (e *Extractor) Extract(ctx context.Context, markup string, actions []models.ActionDescriptor) (string, error) {
	prompt, err := e.Prompt(markup, actions)
	if err != nil {
		return "", err
	}

	out, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("extract locators: %w", err)
	}
	e.logger.Debug("extraction response", zap.Int("actions", len(actions)), zap.String("response", out))
	return out, nil
}
