// Package sandbox runs generated browser programs against a session.
//
// A program is a JSON document naming a fixed set of verbs. Nothing in it is
// evaluated as code; the interpreter maps each step onto one browser.Session
// call.
package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/i-StarX/tc-transformer/pkg/transformer/browser"
	"github.com/i-StarX/tc-transformer/pkg/transformer/jsontext"
)

// ErrInvalidProgram is returned when generated text is not a runnable program.
var ErrInvalidProgram = errors.New("invalid browser program")

// Version is the only program version the interpreter accepts.
const Version = 1

// Verbs understood by the interpreter.
const (
	VerbNavigate = "navigate"
	VerbClick    = "click"
	VerbFill     = "fill"
	VerbPress    = "press"
	VerbWait     = "wait"
	VerbWaitFor  = "wait_for"
)

// maxWaitMillis bounds a single wait step.
const maxWaitMillis = 60000

// acquireVerbs would create, replace or end the browser session.
var acquireVerbs = map[string]bool{
	"new_session":    true,
	"open_browser":   true,
	"launch":         true,
	"launch_browser": true,
	"new_driver":     true,
	"quit":           true,
	"close":          true,
	"close_session":  true,
	"close_browser":  true,
}

// Step is one instruction of a program.
type Step struct {
	Verb string         `json:"verb"`
	Args map[string]any `json:"args,omitempty"`
}

// Program is a parsed browser program.
type Program struct {
	Version int    `json:"version"`
	Steps   []Step `json:"steps"`
}

// Parse decodes snippet into a Program. Code fences are stripped first and a
// bare steps array is accepted as a version 1 program. Malformed JSON gets up
// to two repair attempts.
func Parse(snippet string) (*Program, error) {
	text := jsontext.StripFences(snippet)
	if text == "" {
		return nil, fmt.Errorf("%w: empty program", ErrInvalidProgram)
	}

	var raw json.RawMessage
	if err := jsontext.Decode(text, 2, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var steps []Step
		if err := json.Unmarshal(raw, &steps); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
		}
		return &Program{Version: Version, Steps: steps}, nil
	}

	var prog Program
	if err := json.Unmarshal(raw, &prog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	return &prog, nil
}

// StripSessionAcquisition removes steps that would open, replace or close the
// browser session and returns the removed verbs.
func (p *Program) StripSessionAcquisition() []string {
	var removed []string
	kept := p.Steps[:0]
	for _, step := range p.Steps {
		if acquireVerbs[normalizeVerb(step.Verb)] {
			removed = append(removed, step.Verb)
			continue
		}
		kept = append(kept, step)
	}
	p.Steps = kept
	return removed
}

// Validate checks the version, every verb and its arguments.
func (p *Program) Validate() error {
	if p.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidProgram, p.Version)
	}
	for i, step := range p.Steps {
		if _, err := compile(step, nil); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalidProgram, i+1, step.Verb, err)
		}
	}
	return nil
}

// instruction is a validated step. Placeholders are substituted only in the
// text typed by fill and the key sent by press.
type instruction struct {
	verb    string
	url     string
	locator browser.Locator
	text    string
	millis  int
}

func compile(step Step, vars map[string]string) (instruction, error) {
	in := instruction{verb: normalizeVerb(step.Verb)}
	args := step.Args

	switch in.verb {
	case VerbNavigate:
		url, err := requireString(args, nil, "url")
		if err != nil {
			return in, err
		}
		in.url = url
	case VerbClick, VerbWaitFor:
		loc, err := locatorArgs(args)
		if err != nil {
			return in, err
		}
		in.locator = loc
	case VerbFill:
		loc, err := locatorArgs(args)
		if err != nil {
			return in, err
		}
		text, ok := lookup(args, "text")
		if !ok {
			return in, errors.New(`missing argument "text"`)
		}
		in.locator = loc
		in.text = Substitute(text, vars)
	case VerbPress:
		loc, err := locatorArgs(args)
		if err != nil {
			return in, err
		}
		key, err := requireString(args, vars, "key")
		if err != nil {
			return in, err
		}
		in.locator = loc
		in.text = key
	case VerbWait:
		ms, err := millisArg(args)
		if err != nil {
			return in, err
		}
		in.millis = ms
	default:
		return in, fmt.Errorf("unknown verb %q", step.Verb)
	}
	return in, nil
}

func locatorArgs(args map[string]any) (browser.Locator, error) {
	by, err := requireString(args, nil, "by")
	if err != nil {
		return browser.Locator{}, err
	}
	strategy, err := browser.ParseStrategy(by)
	if err != nil {
		return browser.Locator{}, err
	}
	value, err := requireString(args, nil, "value")
	if err != nil {
		return browser.Locator{}, err
	}
	name, _ := lookup(args, "name")
	return browser.Locator{By: strategy, Value: value, Name: name}, nil
}

var argAliases = map[string][]string{
	"by":    {"strategy", "using"},
	"value": {"selector", "locator", "target"},
	"url":   {"href"},
	"text":  {"input"},
	"ms":    {"millis", "milliseconds", "duration_ms"},
}

// lookup returns the named argument as a string, trying known aliases.
func lookup(args map[string]any, key string) (string, bool) {
	for _, k := range append([]string{key}, argAliases[key]...) {
		v, ok := args[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t, true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	}
	return "", false
}

func requireString(args map[string]any, vars map[string]string, key string) (string, error) {
	v, ok := lookup(args, key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("missing argument %q", key)
	}
	return Substitute(v, vars), nil
}

func millisArg(args map[string]any) (int, error) {
	raw, ok := lookup(args, "ms")
	if !ok {
		return 0, errors.New(`missing argument "ms"`)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > maxWaitMillis {
		return 0, fmt.Errorf("wait must be between 0 and %d ms, got %q", maxWaitMillis, raw)
	}
	return int(f), nil
}

func normalizeVerb(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Substitute replaces ${NAME} and {{NAME}} placeholders with values from vars.
// Unknown names are left as written.
func Substitute(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.ContainsAny(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
