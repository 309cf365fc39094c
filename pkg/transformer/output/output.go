// Package output serializes processed test-case tables.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

// DefaultSheet is the sheet name used by WriteXLSX when none is given.
const DefaultSheet = "Test Cases"

// ToJSON serializes records as a JSON array.
func ToJSON(records []models.Record, pretty bool) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	return marshal(records, pretty)
}

// ReportToJSON serializes a run report.
func ReportToJSON(report *models.RunReport, pretty bool) ([]byte, error) {
	return marshal(report, pretty)
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WriteXLSX writes records to a new workbook at path: a header row followed by
// one row per record. Columns follow the first record.
func WriteXLSX(path, sheet string, records []models.Record) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	var columns []string
	if len(records) > 0 {
		columns = records[0].Columns()
	} else {
		columns = models.OutputColumns
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		values := make([]interface{}, len(columns))
		for j, c := range columns {
			v, _ := rec.Get(c)
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
