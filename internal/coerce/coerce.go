// Package coerce converts raw spreadsheet values into the wire formats used
// by the sickness notification messages: compact dates (YYYYMMDD), compact
// date-times (YYYYMMDDHHMMSS) and the 1/2 indicator convention.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
)

// Precision selects the wire format produced by Date.
type Precision int

const (
	// DateOnly produces YYYYMMDD.
	DateOnly Precision = iota

	// DateTime produces YYYYMMDDHHMMSS.
	DateTime
)

// Epoch selects the spreadsheet serial date system.
type Epoch int

const (
	// Epoch1900 counts days from 1899-12-30 (the Excel default).
	Epoch1900 Epoch = iota

	// Epoch1904 counts days from 1904-01-01.
	Epoch1904
)

// compactDateTimeLayout is the YYYYMMDDHHMMSS wire format.
const compactDateTimeLayout = "20060102150405"

// maxSerial bounds the numeric range treated as a date serial.
const maxSerial = 60000

var (
	base1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	base1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

	eightDigits    = regexp.MustCompile(`^\d{8}$`)
	fourteenDigits = regexp.MustCompile(`^\d{14}$`)
	numeric        = regexp.MustCompile(`^\d+(\.\d+)?$`)
	nonDigits      = regexp.MustCompile(`\D`)
)

// textLayouts lists the textual formats accepted after serials and compact
// digits. ISO forms come first.
var textLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02-01-2006",
	"02012006",
	"2006/01/02",
	"02/01/2006",
}

// EpochFor maps the workbook date1904 flag to an Epoch.
func EpochFor(date1904 bool) Epoch {
	if date1904 {
		return Epoch1904
	}
	return Epoch1900
}

// Base returns the calendar origin of the epoch.
func (e Epoch) Base() time.Time {
	if e == Epoch1904 {
		return base1904
	}
	return base1900
}

// Date coerces a raw cell into the requested wire format. The boolean is
// false when the value cannot be interpreted; callers omit the field then.
//
// Rules are applied in order: calendar cells, serials in (0, 60000),
// compact date-times, exactly eight digits, textual layouts.
func Date(c types.Cell, p Precision, e Epoch) (string, bool) {
	switch c.Kind {
	case types.CellEmpty:
		return "", false
	case types.CellTime:
		return format(c.Time, p), true
	case types.CellNumber:
		if t, ok := FromSerial(c.Number, e); ok {
			return format(t, p), true
		}
		return DateString(c.String(), p, e)
	case types.CellBool:
		return "", false
	}
	return DateString(c.Text, p, e)
}

// DateString is Date for values that are already text.
func DateString(s string, p Precision, e Epoch) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if numeric.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if t, ok := FromSerial(f, e); ok {
				return format(t, p), true
			}
		}
	}

	// Compact date-times are already in wire format.
	if fourteenDigits.MatchString(s) {
		if t, err := time.Parse(compactDateTimeLayout, s); err == nil {
			return format(t, p), true
		}
		return "", false
	}

	if eightDigits.MatchString(s) {
		if p == DateTime {
			return s + "000000", true
		}
		return s, true
	}

	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return format(t, p), true
		}
	}

	// Separators outside the known layouts, e.g. 2020.01.01.
	if digits := nonDigits.ReplaceAllString(s, ""); len(digits) == 8 {
		if _, err := time.Parse("20060102", digits); err == nil {
			if p == DateTime {
				return digits + "000000", true
			}
			return digits, true
		}
	}

	return "", false
}

// FromSerial converts a spreadsheet serial into a calendar time. Fractions
// carry the time of day.
func FromSerial(serial float64, e Epoch) (time.Time, bool) {
	if serial <= 0 || serial >= maxSerial || math.IsNaN(serial) {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	t := e.Base().AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	return t, true
}

// ToSerial is the inverse of FromSerial for whole days.
func ToSerial(t time.Time, e Epoch) float64 {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return math.Round(d.Sub(e.Base()).Hours() / 24)
}

// IsCompactDate reports whether s is a valid YYYYMMDD calendar date.
func IsCompactDate(s string) bool {
	if !eightDigits.MatchString(s) {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}

func format(t time.Time, p Precision) string {
	if p == DateTime {
		return t.Format(compactDateTimeLayout)
	}
	return t.Format("20060102")
}
