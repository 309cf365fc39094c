package models

// OutputColumns is the fixed, ordered column set of the output table.
var OutputColumns = []string{
	ColReference,
	ColDescription,
	ColExpected,
	ColActual,
	ColAction,
	ColLocatorType,
	ColRole,
	ColLocator,
	ColElementName,
}

// Table represents a parsed test-case sheet.
type Table struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// SheetName is the sheet the rows were read from.
	SheetName string `json:"sheet_name"`
	// Columns lists the header names present in the input, in sheet order.
	Columns []string `json:"columns"`
	// Rows contains the data rows in sheet order.
	Rows []*Row `json:"rows"`
}

// HasColumn reports whether the input header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Project restricts the table to OutputColumns. Input columns missing from the
// sheet are omitted; the locator columns are always emitted.
func (t *Table) Project() []Record {
	var cols []string
	for _, c := range OutputColumns {
		if isLocatorColumn(c) || t.HasColumn(c) {
			cols = append(cols, c)
		}
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := Record{Fields: make([]Field, 0, len(cols))}
		for _, c := range cols {
			rec.Fields = append(rec.Fields, Field{Column: c, Value: row.value(c)})
		}
		records = append(records, rec)
	}
	return records
}

func isLocatorColumn(c string) bool {
	switch c {
	case ColLocatorType, ColRole, ColLocator, ColElementName:
		return true
	}
	return false
}

func (r *Row) value(column string) string {
	switch column {
	case ColReference:
		return r.Reference
	case ColDescription:
		return r.Description
	case ColExpected:
		return r.Expected
	case ColActual:
		return r.Actual
	case ColAction:
		return r.Action
	case ColTestData:
		return r.TestData
	case ColLocatorType:
		return r.Locator.Type
	case ColRole:
		return r.Locator.Role
	case ColLocator:
		return r.Locator.Expression
	case ColElementName:
		return r.Locator.Name
	}
	return ""
}
