package parser

import (
	"fmt"
	"strings"

	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
	"github.com/xuri/excelize/v2"
)

// PrintArea returns the print area defined for sheetName, or nil when the
// workbook defines none. Only the first area of a multi-area definition is used.
func PrintArea(f *excelize.File, sheetName string) *models.CellRange {
	for _, dn := range f.GetDefinedName() {
		// Look for _xlnm.Print_Area defined name
		if !strings.EqualFold(dn.Name, "_xlnm.Print_Area") {
			continue
		}
		sheet, areas := parsePrintAreaReference(dn.RefersTo)
		if strings.EqualFold(sheet, sheetName) && len(areas) > 0 {
			return &areas[0]
		}
	}
	return nil
}

// ParseRange parses a user-supplied range such as "A1:F40", "$A$1:$F$40" or
// "Sheet1!A1:F40". The sheet prefix, when present, is returned separately.
func ParseRange(ref string) (string, *models.CellRange, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil, nil
	}

	var sheet string
	rangeStr := ref
	if idx := strings.LastIndex(ref, "!"); idx >= 0 {
		sheet = strings.Trim(ref[:idx], "'")
		rangeStr = ref[idx+1:]
	}

	area := parseRangeToArea(rangeStr)
	if area == nil {
		return "", nil, fmt.Errorf("invalid range %q", ref)
	}
	return sheet, area, nil
}

// parsePrintAreaReference parses a print area reference string.
// Format: 'SheetName'!$A$1:$D$10 or SheetName!$A$1:$D$10
func parsePrintAreaReference(ref string) (string, []models.CellRange) {
	var areas []models.CellRange

	// Split by comma for multiple print areas
	parts := strings.Split(ref, ",")

	var sheetName string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if idx := strings.LastIndex(part, "!"); idx >= 0 {
			sheet := strings.Trim(part[:idx], "'")
			if sheetName == "" {
				sheetName = sheet
			}
			if area := parseRangeToArea(part[idx+1:]); area != nil {
				areas = append(areas, *area)
			}
		}
	}

	return sheetName, areas
}

// parseRangeToArea parses a range string like $A$1:$D$10 to a CellRange.
func parseRangeToArea(rangeStr string) *models.CellRange {
	rangeStr = strings.ReplaceAll(rangeStr, "$", "")

	parts := strings.Split(rangeStr, ":")
	if len(parts) != 2 {
		return nil
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return nil
	}

	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return nil
	}

	return &models.CellRange{
		R1: startRow,
		C1: startCol,
		R2: endRow,
		C2: endCol,
	}
}
