package models

// CellRange represents cell coordinate bounds restricting where the table is read.
type CellRange struct {
	// R1 is the start row (1-based).
	R1 int `json:"r1"`
	// C1 is the start column (1-based).
	C1 int `json:"c1"`
	// R2 is the end row (1-based, inclusive).
	R2 int `json:"r2"`
	// C2 is the end column (1-based, inclusive).
	C2 int `json:"c2"`
}

// ContainsRow reports whether the 1-based row lies within the range.
func (a *CellRange) ContainsRow(r int) bool {
	return a == nil || (r >= a.R1 && r <= a.R2)
}

// ContainsCol reports whether the 1-based column lies within the range.
func (a *CellRange) ContainsCol(c int) bool {
	return a == nil || (c >= a.C1 && c <= a.C2)
}
