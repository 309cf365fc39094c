package parser

import (
	"fmt"
	"strings"

	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

// knownColumns lists every header the transformer understands, input and output.
var knownColumns = []string{
	models.ColReference,
	models.ColDescription,
	models.ColExpected,
	models.ColActual,
	models.ColAction,
	models.ColTestData,
	models.ColLocatorType,
	models.ColRole,
	models.ColLocator,
	models.ColElementName,
}

// HeaderParams holds parameters for header detection.
type HeaderParams struct {
	// MinKnownColumns is the number of recognised names a row needs to count as the header.
	MinKnownColumns int
}

// DefaultHeaderParams returns default header detection parameters.
func DefaultHeaderParams() HeaderParams {
	return HeaderParams{
		MinKnownColumns: 2,
	}
}

// Header describes the located header row.
type Header struct {
	// Row is the 0-based index of the header within the sheet rows.
	Row int
	// Columns are the header names in sheet order, canonicalised when known.
	Columns []string
	// Index maps a column name to its 0-based column index.
	Index map[string]int
}

// LocateHeader finds the header row within area. The first row holding at
// least MinKnownColumns recognised names wins; otherwise the first non-empty
// row is used.
func LocateHeader(rows [][]string, area *models.CellRange, params HeaderParams) (*Header, error) {
	firstNonEmpty := -1
	for rowIdx, row := range rows {
		if !area.ContainsRow(rowIdx + 1) {
			continue
		}
		if countNonEmptyCells(row, area) == 0 {
			continue
		}
		if firstNonEmpty < 0 {
			firstNonEmpty = rowIdx
		}
		if countKnownCells(row, area) >= params.MinKnownColumns {
			return buildHeader(rows[rowIdx], rowIdx, area), nil
		}
	}

	if firstNonEmpty < 0 {
		return nil, fmt.Errorf("%w: no header row found", ErrMissingColumn)
	}
	return buildHeader(rows[firstNonEmpty], firstNonEmpty, area), nil
}

func buildHeader(row []string, rowIdx int, area *models.CellRange) *Header {
	h := &Header{Row: rowIdx, Index: make(map[string]int)}
	for colIdx, cell := range row {
		if !area.ContainsCol(colIdx + 1) {
			continue
		}
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		if canonical, ok := canonicalColumn(name); ok {
			name = canonical
		}
		if _, dup := h.Index[name]; dup {
			continue
		}
		h.Index[name] = colIdx
		h.Columns = append(h.Columns, name)
	}
	return h
}

// canonicalColumn maps a header cell to a known column name, ignoring case
// and surrounding whitespace.
func canonicalColumn(name string) (string, bool) {
	for _, known := range knownColumns {
		if strings.EqualFold(strings.TrimSpace(known), name) {
			return known, true
		}
	}
	return "", false
}

// countKnownCells counts recognised header names within bounds.
func countKnownCells(row []string, area *models.CellRange) int {
	count := 0
	for colIdx, cell := range row {
		if !area.ContainsCol(colIdx + 1) {
			continue
		}
		if _, ok := canonicalColumn(strings.TrimSpace(cell)); ok {
			count++
		}
	}
	return count
}

// countNonEmptyCells counts non-empty cells within bounds.
func countNonEmptyCells(row []string, area *models.CellRange) int {
	count := 0
	for colIdx, cell := range row {
		if area.ContainsCol(colIdx+1) && strings.TrimSpace(cell) != "" {
			count++
		}
	}
	return count
}
