package models

// MatchMode names how extraction results were paired with rows.
type MatchMode string

const (
	// MatchAuto pairs by reference when possible, otherwise by position.
	MatchAuto MatchMode = "auto"
	// MatchPositional pairs the i-th result with the i-th action row.
	MatchPositional MatchMode = "positional"
	// MatchKeyed pairs results with rows by TC Reference.
	MatchKeyed MatchMode = "keyed"
)

// GroupReport summarizes the processing of one group.
type GroupReport struct {
	// Group is the 0-based group ordinal.
	Group int `json:"group"`
	// FirstRow is the original index of the group's first row.
	FirstRow int `json:"first_row"`
	// Target is the navigation URL used for the group.
	Target string `json:"target,omitempty"`
	// LoginRequired reports whether the group's program was asked to log in.
	LoginRequired bool `json:"login_required"`
	// Actions is the number of non-navigation rows in the group.
	Actions int `json:"actions"`
	// Parsed is the number of locator objects decoded from the extraction response.
	Parsed int `json:"parsed"`
	// Applied is the number of rows that received locator data.
	Applied int `json:"applied"`
	// MatchMode is the pairing mode actually used.
	MatchMode MatchMode `json:"match_mode,omitempty"`
	// Error describes a recovered, group-local failure.
	Error string `json:"error,omitempty"`
}

// RunReport summarizes a whole pipeline run.
type RunReport struct {
	RunID  string        `json:"run_id"`
	Groups []GroupReport `json:"groups"`
}

// Applied returns the total number of enriched rows.
func (r *RunReport) Applied() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Applied
	}
	return n
}
