package pipeline

import "github.com/i-StarX/tc-transformer/pkg/transformer/models"

// GroupRows partitions rows into groups. Every navigation row opens a new
// group; other rows join the open group. Rows before the first navigation row
// form a group without a target.
func GroupRows(rows []*models.Row) []models.Group {
	var groups []models.Group
	var current []*models.Row

	flush := func() {
		if len(current) == 0 {
			return
		}
		groups = append(groups, models.Group{Ordinal: len(groups), Rows: current})
		current = nil
	}

	for _, row := range rows {
		if row.IsNavigation() {
			flush()
		}
		current = append(current, row)
	}
	flush()
	return groups
}
