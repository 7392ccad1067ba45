// =============================================================================
// UWV Sickness Notification XML Generator - XLSX Upload Reader
// =============================================================================
//
// This module reads the uploaded workbook into raw records. It does not know
// about the canonical field set; the normalizer maps headers later.
//
// WORKBOOK LAYOUT:
//   - The active sheet is read (the first sheet when none is active)
//   - Row 1 holds the headers; every following row is one record
//   - Empty header cells are named Column_N (1-based column index)
//
//   | Column A  | Column B      | Column C       | Column D      |
//   |-----------|---------------|----------------|---------------|
//   | BSN       | Naam          | DatEersteAoDag | aanvraag_type |
//   | 123456789 | Piet Jansen   | 45352          | ZBM           |
//
// CELL VALUES:
//   Cells are read raw so dates arrive as serial numbers and are converted
//   by the normalizer with the workbook's date system (1900 or 1904).
//
// FORMULAS:
//   Formula cells and text cells starting with "=" become empty. The number
//   of such cells is reported on the Sheet so the caller can warn about it.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
)

// ErrEmptySheet is returned when the selected sheet has no header row.
var ErrEmptySheet = errors.New("sheet has no header row")

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how a workbook is read.
type Options struct {
	// Sheet selects a sheet by name. Empty reads the active sheet.
	Sheet string

	// DataOnly keeps the cached result of formula cells instead of
	// sanitizing them. Text starting with "=" is still sanitized.
	DataOnly bool
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads an XLSX upload with default options.
//
// PARAMETERS:
//   - path: The path to the workbook.
//
// RETURNS:
//   - The sheet with one raw record per data row.
//   - An error if the file cannot be opened or has no header row.
func Parse(path string) (*types.Sheet, error) {
	return ParseWithOptions(path, Options{})
}

// ParseWithOptions reads an XLSX upload.
func ParseWithOptions(path string, opts Options) (*types.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return read(f, path, opts)
}

// ParseReader reads a workbook from r. name is recorded as the source.
func ParseReader(r io.Reader, name string, opts Options) (*types.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return read(f, name, opts)
}

// read extracts the records of one sheet of an open workbook.
func read(f *excelize.File, source string, opts Options) (*types.Sheet, error) {
	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(f.GetActiveSheetIndex())
		if sheetName == "" {
			sheetName = f.GetSheetName(0)
		}
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet '%s': %w", sheetName, err)
	}
	if len(rows) == 0 || isRowEmpty(rows[0]) {
		return nil, fmt.Errorf("%w: '%s'", ErrEmptySheet, sheetName)
	}

	sheet := &types.Sheet{
		Source:   source,
		Headers:  cleanHeaders(rows[0]),
		Date1904: date1904(f),
	}

	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		cells := make([]types.Cell, len(sheet.Headers))
		for col := range sheet.Headers {
			var raw string
			if col < len(rows[i]) {
				raw = rows[i][col]
			}
			cell, sanitized, err := readCell(f, sheetName, col+1, rowNum, raw, opts)
			if err != nil {
				return nil, fmt.Errorf("error reading row %d: %w", rowNum, err)
			}
			if sanitized {
				sheet.FormulaCount++
			}
			cells[col] = cell
		}
		sheet.Records = append(sheet.Records, types.NewRawRecord(rowNum, sheet.Headers, cells))
	}

	return sheet, nil
}

// readCell types one raw value using the cell's stored type.
//
// RETURNS:
//   - The typed cell.
//   - Whether the cell was a formula that got sanitized to empty.
//   - An error if the cell cannot be addressed.
func readCell(f *excelize.File, sheet string, col, row int, raw string, opts Options) (types.Cell, bool, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return types.Cell{}, false, err
	}

	if !opts.DataOnly {
		formula, err := f.GetCellFormula(sheet, ref)
		if err != nil {
			return types.Cell{}, false, fmt.Errorf("cell %s: %w", ref, err)
		}
		if formula != "" {
			return types.Cell{Kind: types.CellEmpty}, true, nil
		}
	}

	if strings.TrimSpace(raw) == "" {
		return types.Cell{Kind: types.CellEmpty}, false, nil
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "=") {
		return types.Cell{Kind: types.CellEmpty}, true, nil
	}

	kind, err := f.GetCellType(sheet, ref)
	if err != nil {
		return types.Cell{}, false, fmt.Errorf("cell %s: %w", ref, err)
	}

	switch kind {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return types.TextCell(raw), false, nil
	case excelize.CellTypeBool:
		return types.BoolCell(raw == "1" || strings.EqualFold(raw, "true")), false, nil
	}

	// Numbers and unset cell types. Date cells are stored as serials.
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return types.NumberCell(n), false, nil
	}
	return types.TextCell(raw), false, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// date1904 reports whether the workbook uses the 1904 date system.
func date1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

// cleanHeaders trims headers and names empty ones after their column.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
