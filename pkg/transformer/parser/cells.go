// Package parser reads test-case tables from Excel workbooks.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn indicates a required header column is absent.
var ErrMissingColumn = errors.New("missing required column")

// RequiredColumns must be present in every test-case sheet.
var RequiredColumns = []string{models.ColAction, models.ColTestData}

// ReadTable reads the test-case table from a sheet. An empty sheetName selects
// the first sheet; a nil area reads the whole sheet.
func ReadTable(f *excelize.File, sheetName string, area *models.CellRange) (*models.Table, error) {
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	header, err := LocateHeader(rows, area, DefaultHeaderParams())
	if err != nil {
		return nil, err
	}

	for _, col := range RequiredColumns {
		if _, ok := header.Index[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	table := &models.Table{
		SheetName: sheetName,
		Columns:   header.Columns,
	}

	for rowIdx := header.Row + 1; rowIdx < len(rows); rowIdx++ {
		rowNum := rowIdx + 1 // 1-based row index
		if !area.ContainsRow(rowNum) {
			continue
		}
		cells := rows[rowIdx]
		get := func(col string) string {
			colIdx, ok := header.Index[col]
			if !ok || colIdx >= len(cells) {
				return ""
			}
			return parseValue(cells[colIdx])
		}

		row := &models.Row{
			Index:       len(table.Rows),
			Reference:   get(models.ColReference),
			Description: get(models.ColDescription),
			Expected:    get(models.ColExpected),
			Actual:      get(models.ColActual),
			Action:      get(models.ColAction),
			TestData:    get(models.ColTestData),
		}
		if isEmptyRow(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func isEmptyRow(r *models.Row) bool {
	return r.Reference == "" && r.Description == "" && r.Expected == "" &&
		r.Actual == "" && r.Action == "" && r.TestData == ""
}

// parseValue trims a cell value and renders integral floats without a
// fractional part, so a reference typed as 1 and stored as 1.0 reads "1".
func parseValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Contains(s, ".") && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
