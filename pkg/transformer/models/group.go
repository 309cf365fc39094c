package models

// Group is a contiguous run of rows starting at a navigation row, or at the
// start of the table when the table does not open with one.
type Group struct {
	// Ordinal is the 0-based position of the group in the run.
	Ordinal int
	// Rows are the group's rows in table order. Never empty.
	Rows []*Row
}

// Target returns the navigation URL of the group, or "" when the group does
// not begin with a navigation row.
func (g *Group) Target() string {
	if len(g.Rows) == 0 || !g.Rows[0].IsNavigation() {
		return ""
	}
	return g.Rows[0].TestData
}

// Actions returns the non-navigation rows of the group in table order.
func (g *Group) Actions() []*Row {
	var actions []*Row
	for _, row := range g.Rows {
		if !row.IsNavigation() {
			actions = append(actions, row)
		}
	}
	return actions
}

// FirstIndex returns the original index of the first row, or -1 for an empty group.
func (g *Group) FirstIndex() int {
	if len(g.Rows) == 0 {
		return -1
	}
	return g.Rows[0].Index
}
