// =============================================================================
// UWV Sickness Notification XML Generator - Shared Types
// =============================================================================
//
// This package contains the raw upload model shared by the upload readers
// and the pipeline packages. Keeping it here avoids import cycles between:
//   - xlsxparser / csvparser (producers)
//   - normalizer (consumer)
//   - converter (orchestration)
//
// =============================================================================

package types

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CELL VALUES
// =============================================================================

// CellKind describes the shape of a raw cell value as read from the upload.
type CellKind int

const (
	// CellEmpty is a missing or blank cell.
	CellEmpty CellKind = iota

	// CellText is a textual cell (shared/inline strings, CSV fields).
	CellText

	// CellNumber is a numeric cell. Date cells stored as serials arrive here.
	CellNumber

	// CellTime is a cell that already carries a calendar value.
	CellTime

	// CellBool is a boolean cell.
	CellBool
)

// Cell is one raw spreadsheet value.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
	Bool   bool
}

// TextCell builds a text cell; blank input yields an empty cell.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// TimeCell builds a calendar cell.
func TimeCell(t time.Time) Cell {
	return Cell{Kind: CellTime, Time: t}
}

// BoolCell builds a boolean cell.
func BoolCell(b bool) Cell {
	return Cell{Kind: CellBool, Bool: b}
}

// IsEmpty reports whether the cell carries no usable value.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	}
	return false
}

// String renders the cell as trimmed text.
//
// Whole numbers are rendered without a fractional part so identifiers typed
// into numeric cells (BSN, payroll numbers) survive unchanged.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Text)
	case CellNumber:
		if c.Number == float64(int64(c.Number)) {
			return strconv.FormatInt(int64(c.Number), 10)
		}
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellTime:
		return c.Time.Format("2006-01-02T15:04:05")
	case CellBool:
		if c.Bool {
			return "True"
		}
		return "False"
	}
	return ""
}

// =============================================================================
// RAW RECORDS
// =============================================================================

// RawField is one header/value pair of a spreadsheet row.
type RawField struct {
	// Header is the original header text, case and spacing preserved.
	Header string

	// Value is the raw cell.
	Value Cell
}

// RawRecord is one spreadsheet row keyed by original header text.
// Field order follows the column order of the upload.
type RawRecord struct {
	// Row is the 1-based row number in the source sheet (the header is row 1).
	// Zero means unknown; the orchestrator then derives it from the position.
	Row int

	Fields []RawField
}

// Get returns the first cell whose header matches exactly.
func (r RawRecord) Get(header string) (Cell, bool) {
	for _, f := range r.Fields {
		if f.Header == header {
			return f.Value, true
		}
	}
	return Cell{}, false
}

// NewRawRecord builds a record from parallel header/value slices.
func NewRawRecord(row int, headers []string, values []Cell) RawRecord {
	rec := RawRecord{Row: row, Fields: make([]RawField, 0, len(headers))}
	for i, h := range headers {
		var v Cell
		if i < len(values) {
			v = values[i]
		}
		rec.Fields = append(rec.Fields, RawField{Header: h, Value: v})
	}
	return rec
}

// Sheet is the result of reading one upload.
type Sheet struct {
	// Source is the path or name of the uploaded file.
	Source string

	// Headers holds the header row as read.
	Headers []string

	// Records holds the data rows in sheet order.
	Records []RawRecord

	// FormulaCount is the number of formula-like cells sanitized to empty.
	FormulaCount int

	// Date1904 is true when the workbook uses the 1904 date system.
	Date1904 bool
}
