// =============================================================================
// UWV Sickness Notification XML Generator - CSV Upload Reader
// =============================================================================
//
// This module reads CSV exports of the notification spreadsheet into the same
// raw records the XLSX reader produces. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - A configurable header row and data start row
//   - Legacy single-byte encodings (ISO-8859-1, ISO-8859-15, Windows-1252)
//   - A UTF-8 byte order mark
//   - Quoted fields spanning several lines
//
// Every value is a text cell; dates are coerced later by the normalizer.
// Values starting with "=" are sanitized to empty and counted, as in the
// XLSX reader.
//
// ROW NUMBERS:
//   Records are numbered like spreadsheet rows: the first CSV record is row
//   1, whatever number of physical lines a quoted field takes. Blank lines
//   are dropped by encoding/csv before they are counted, so after a blank
//   line "Regel N" is lower than the row a spreadsheet program shows.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
)

// ErrNoHeader is returned when the file ends before the header row.
var ErrNoHeader = errors.New("file has no header row")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV upload.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter, encoding and row layout.
//
// RETURNS:
//   - The sheet with one raw record per non-empty data row.
//   - An error if the file cannot be read or has no header row.
func Parse(filePath string, settings config.CSVSettings) (*types.Sheet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, filePath, settings)
}

// ParseReader reads CSV data from r. name is recorded as the source.
func ParseReader(r io.Reader, name string, settings config.CSVSettings) (*types.Sheet, error) {
	reader, err := NewReader(r, settings)
	if err != nil {
		return nil, err
	}

	sheet := &types.Sheet{Source: name, Headers: reader.Headers()}
	for reader.Next() {
		sheet.Records = append(sheet.Records, reader.Record())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	sheet.FormulaCount = reader.FormulaCount()
	return sheet, nil
}

// =============================================================================
// STREAMING READER
// =============================================================================

// Reader yields raw records one at a time.
//
// USAGE:
//
//	reader, err := NewReader(file, settings)
//	if err != nil {
//	    return err
//	}
//	for reader.Next() {
//	    rec := reader.Record()
//	    // Process the record...
//	}
//	if err := reader.Err(); err != nil {
//	    return err
//	}
type Reader struct {
	reader       *csv.Reader
	settings     config.CSVSettings
	headers      []string
	current      types.RawRecord
	rowNumber    int
	formulaCount int
	err          error
}

// NewReader decodes r with the configured encoding, reads the header row and
// positions the reader on the data start row.
func NewReader(r io.Reader, settings config.CSVSettings) (*Reader, error) {
	dec, err := decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bufio.NewReader(transform.NewReader(r, dec)))
	configureReader(reader, settings)

	p := &Reader{reader: reader, settings: settings}
	if err := p.readHeaders(); err != nil {
		return nil, err
	}
	if err := p.skipToDataStart(); err != nil {
		return nil, err
	}
	return p, nil
}

// readHeaders skips to the header row and reads it.
func (p *Reader) readHeaders() error {
	headerRow := p.settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}

	for p.rowNumber < headerRow {
		row, err := p.reader.Read()
		if err == io.EOF {
			return ErrNoHeader
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", p.rowNumber+1, err)
		}
		p.rowNumber++
		if p.rowNumber == headerRow {
			if isRowEmpty(row) {
				return ErrNoHeader
			}
			p.headers = cleanHeaders(row)
		}
	}
	return nil
}

// skipToDataStart skips rows until the data start row.
func (p *Reader) skipToDataStart() error {
	target := p.settings.DataStartRow
	if target <= p.rowNumber {
		target = p.rowNumber + 1
	}

	for p.rowNumber < target-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		p.rowNumber++
	}
	return nil
}

// Next advances to the next non-empty row. Returns false when there are no
// more rows or an error occurred.
func (p *Reader) Next() bool {
	if p.err != nil {
		return false
	}

	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		cells := make([]types.Cell, len(p.headers))
		for i := range p.headers {
			if i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if strings.HasPrefix(value, "=") {
				p.formulaCount++
				value = ""
			}
			cells[i] = types.TextCell(value)
		}
		p.current = types.NewRawRecord(p.rowNumber, p.headers, cells)
		return true
	}
}

// Record returns the current record.
func (p *Reader) Record() types.RawRecord {
	return p.current
}

// Headers returns the cleaned header row.
func (p *Reader) Headers() []string {
	return p.headers
}

// FormulaCount returns the number of values sanitized so far.
func (p *Reader) FormulaCount() int {
	return p.formulaCount
}

// Err returns any error that occurred during reading.
func (p *Reader) Err() error {
	return p.err
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// decoder returns the transformer turning the configured encoding into
// UTF-8. A leading UTF-8 byte order mark is dropped.
func decoder(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.BOMOverride(encoding.Nop.NewDecoder()), nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "ISO-8859-15", "LATIN9", "LATIN-9":
		enc = charmap.ISO8859_15
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
	return enc.NewDecoder(), nil
}

// configureReader applies the delimiter setting.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = []rune(settings.Delimiter)[0]
		} else {
			reader.Comma = ','
		}
	}

	// Rows exported from spreadsheets are often ragged.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
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

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
