// Package jsontext cleans up JSON produced by language models.
package jsontext

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
	embeddedFence = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*\\n(.*?)\\n?\\s*```")

	// attrEquals matches an attribute-equality selector whose value quotes
	// are not escaped, e.g. [id="user-name"] inside a JSON string.
	attrEquals = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_:.-]*)="([^"\\]*)"\]`)
)

// StripFences removes a leading ```json / ``` marker and a trailing ``` marker.
// When the text carries prose around a fenced block, the block body is returned.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		if m := embeddedFence.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// EscapeAttributeQuotes escapes the inner quotes of [attr="value"] selectors.
// Already-escaped selectors ([attr=\"value\"]) do not match, so applying it
// twice yields the same text.
func EscapeAttributeQuotes(s string) string {
	return attrEquals.ReplaceAllString(s, `[$1=\"$2\"]`)
}

// Enclosing returns the text between the first opening bracket or brace and
// the last matching closer, dropping any prose around a JSON document.
func Enclosing(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s[start:]
	}
	return s[start : end+1]
}

// repairSteps are applied cumulatively, one per attempt.
var repairSteps = []func(string) (string, error){
	func(s string) (string, error) { return Enclosing(s), nil },
	jsonrepair.JSONRepair,
}

// Decode unmarshals text into v. When that fails it applies up to attempts
// repair steps (wrapper stripping, then a tolerant repair) and retries after
// each. It returns the original error when every attempt fails.
func Decode(text string, attempts int, v any) error {
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}

	candidate := text
	for i := 0; i < attempts && i < len(repairSteps); i++ {
		repaired, rerr := repairSteps[i](candidate)
		if rerr != nil {
			continue
		}
		if repaired == candidate {
			continue
		}
		candidate = repaired
		if json.Unmarshal([]byte(candidate), v) == nil {
			return nil
		}
	}
	return err
}
