package models

import "fmt"

// RowRange is a half-open row interval [Start, End)
type RowRange struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

func (r RowRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Len returns the number of rows the range asks for
func (r RowRange) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two ranges share at least one row
func (r RowRange) Overlaps(o RowRange) bool {
	if r.Len() <= 0 || o.Len() <= 0 {
		return false
	}
	return r.Start < o.End && o.Start < r.End
}

// Table is an in-memory tabular dataset with string cells
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Slice returns rows in r. Bounds beyond the table are clamped, so a short
// table yields a short (possibly empty) slice rather than an error.
func (t *Table) Slice(r RowRange) *Table {
	start, end := clamp(r.Start, 0, len(t.Rows)), clamp(r.End, 0, len(t.Rows))
	if end < start {
		end = start
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[start:end]}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DatasetFiles are the local slice files written by the preparer
type DatasetFiles struct {
	TrainPath      string
	ValidationPath string
	TrainRows      int
	ValidationRows int
}
