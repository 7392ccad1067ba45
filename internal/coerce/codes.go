package coerce

import (
	"regexp"
	"strings"
)

// reasonCodes are the accepted CdRedenZiekmelding values.
var reasonCodes = map[string]bool{
	"01": true, "02": true, "03": true, "04": true,
	"05": true, "06": true, "07": true, "08": true,
	"99": true,
}

var singleDigit = regexp.MustCompile(`^\d$`)

// ReasonCode pads a single-digit sickness reason to two digits, so numeric
// spreadsheet cells holding 1 become "01".
func ReasonCode(s string) string {
	s = strings.TrimSpace(s)
	if singleDigit.MatchString(s) {
		return "0" + s
	}
	return s
}

// IsKnownReasonCode reports whether code (after padding) is an accepted
// sickness reason.
func IsKnownReasonCode(code string) bool {
	return reasonCodes[ReasonCode(code)]
}
