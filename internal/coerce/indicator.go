package coerce

import "strings"

// Indicator values used by the message schema.
const (
	IndicatorYes = "1"
	IndicatorNo  = "2"
)

var indicatorValues = map[string]string{
	"J":     IndicatorYes,
	"JA":    IndicatorYes,
	"Y":     IndicatorYes,
	"YES":   IndicatorYes,
	"1":     IndicatorYes,
	"TRUE":  IndicatorYes,
	"N":     IndicatorNo,
	"NEE":   IndicatorNo,
	"NO":    IndicatorNo,
	"2":     IndicatorNo,
	"FALSE": IndicatorNo,
}

// Indicator maps yes/no spellings onto 1/2. Unrecognized values are returned
// trimmed but otherwise unchanged.
func Indicator(s string) string {
	s = strings.TrimSpace(s)
	if v, ok := indicatorValues[strings.ToUpper(s)]; ok {
		return v
	}
	return s
}

// IsIndicator reports whether s already uses the 1/2 convention.
func IsIndicator(s string) bool {
	return s == IndicatorYes || s == IndicatorNo
}
