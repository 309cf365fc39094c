package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Output column names written by extraction. "Element Locator " keeps its
// trailing space because downstream generators key on the exact header.
const (
	ColLocatorType = "Locator Type"
	ColRole        = "Role (used if locator type is role)"
	ColLocator     = "Element Locator "
	ColElementName = "Element name"
)

// Locator describes the UI element a step acts on.
type Locator struct {
	// Reference echoes the TC Reference of the step the locator belongs to.
	Reference string
	// Type is the locator strategy (e.g. id, css, role).
	Type string
	// Role is the ARIA role, meaningful only when Type is "role".
	Role string
	// Expression is the concrete selector string.
	Expression string
	// Name is a human-readable label for the element.
	Name string
}

// IsZero reports whether no output field is set.
func (l Locator) IsZero() bool {
	return l.Type == "" && l.Role == "" && l.Expression == "" && l.Name == ""
}

// MarshalJSON encodes the locator with the column names used in the table.
func (l Locator) MarshalJSON() ([]byte, error) {
	rec := Record{}
	if l.Reference != "" {
		rec.Set(ColReference, l.Reference)
	}
	rec.Set(ColLocatorType, l.Type)
	rec.Set(ColRole, l.Role)
	rec.Set(ColLocator, l.Expression)
	rec.Set(ColElementName, l.Name)
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a locator object produced by a language model. Keys
// are matched case-insensitively with surrounding whitespace ignored, and
// non-string values are converted to their text form.
func (l *Locator) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Locator{}
	for key, value := range raw {
		text := stringify(value)
		switch normalizeKey(key) {
		case "tc reference", "reference", "ref":
			l.Reference = text
		case "locator type", "type":
			l.Type = text
		case "role (used if locator type is role)", "role":
			l.Role = text
		case "element locator", "locator":
			l.Expression = text
		case "element name", "name":
			l.Name = text
		}
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
