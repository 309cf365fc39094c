// Package models defines data structures for test-case transformation.
package models

import "strings"

// NavigationAction is the action value that starts a new group of rows.
const NavigationAction = "goto"

// Input column names as they appear in the test-case header row.
const (
	ColReference   = "TC Reference"
	ColDescription = "Test case description"
	ColExpected    = "Expected outcome"
	ColActual      = "Actual outcome"
	ColAction      = "Action"
	ColTestData    = "Test Data"
)

// Row represents a single test-case step.
type Row struct {
	// Index is the original 0-based position of the row in the input table.
	Index int `json:"-"`
	// Reference is the test-case reference id.
	Reference string `json:"TC Reference"`
	// Description is the natural-language step description.
	Description string `json:"Test case description"`
	// Expected is the expected outcome of the step.
	Expected string `json:"Expected outcome"`
	// Actual is the recorded actual outcome of the step.
	Actual string `json:"Actual outcome"`
	// Action is the free-text action kind (e.g. goto, click, type).
	Action string `json:"Action"`
	// TestData carries step input such as a URL for navigation rows.
	TestData string `json:"Test Data"`
	// Locator holds the extracted output fields. Empty until extraction succeeds.
	Locator Locator `json:"-"`
}

// IsNavigation reports whether the row starts a new group.
func (r *Row) IsNavigation() bool {
	return IsNavigationAction(r.Action)
}

// IsNavigationAction compares an action value against the navigation sentinel.
func IsNavigationAction(action string) bool {
	return strings.EqualFold(strings.TrimSpace(action), NavigationAction)
}

// Descriptor returns the row fields sent to locator extraction.
func (r *Row) Descriptor() ActionDescriptor {
	return ActionDescriptor{
		Reference:   r.Reference,
		Description: r.Description,
		Expected:    r.Expected,
		Actual:      r.Actual,
		Action:      r.Action,
	}
}

// ActionDescriptor describes one non-navigation step for the extraction model.
type ActionDescriptor struct {
	Reference   string `json:"TC Reference"`
	Description string `json:"Test case description"`
	Expected    string `json:"Expected outcome"`
	Actual      string `json:"Actual outcome"`
	Action      string `json:"Action"`
}
