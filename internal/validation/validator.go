// =============================================================================
// UWV Sickness Notification XML Generator - Pre-flight Validation
// =============================================================================
//
// This module checks a canonical record before a message body is built.
// Schema conformance is checked later, against the built body, by the
// schema package; this module only covers what can be decided from the
// record itself.
//
// RULES:
//   error   - BSN present
//   error   - Naam present (after name composition)
//   error   - DatEersteAoDag present and coercible to YYYYMMDD
//   warning - optional dates that cannot be coerced (they are omitted)
//   warning - indicator values outside the yes/no spellings
//   warning - unknown CdRedenZiekmelding codes
//   warning - BSN that is not nine digits, IBAN with an unexpected shape
//
// ERROR HANDLING:
//   - Errors are collected, never thrown
//   - Only "error" severity rejects a row; warnings are logged
//   - Messages are Dutch, matching the "Regel N: ..." row errors
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/uwv-zw-xml/internal/coerce"
	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is "error" (row is rejected) or "warning".
	Severity string

	// Field is the canonical field that failed.
	Field normalizer.Field

	// Value is the offending value.
	Value string

	// Rule names the violated rule.
	Rule string

	// Message is the user-facing text.
	Message string

	// RowNumber is the source sheet row.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Regel %d, veld '%s': %s",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validating one record.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings (including warnings), in rule order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

// Messages returns the messages of error-severity findings.
func (r *ValidationResult) Messages() []string {
	var out []string
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			out = append(out, e.Message)
		}
	}
	return out
}

// Warnings returns warning-severity findings.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors rejects rows that only have warnings.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks canonical records.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

var (
	bsnPattern  = regexp.MustCompile(`^\d{9}$`)
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{10,30}$`)
)

// optionalDates are omitted from the body when they do not coerce.
var optionalDates = []normalizer.Field{
	normalizer.FieldGeboortedatum,
	normalizer.FieldDatOntvangstMeldingWerkgever,
	normalizer.FieldDatTijdOpstellenMelding,
	normalizer.FieldDatB,
}

// ValidateRecord runs every rule against one record.
func (v *Validator) ValidateRecord(rec *normalizer.Record) *ValidationResult {
	result := &ValidationResult{}
	add := func(severity string, field normalizer.Field, rule, msg string) {
		if severity == SeverityWarning && v.options.TreatWarningsAsErrors {
			severity = SeverityError
		}
		result.Errors = append(result.Errors, &ValidationError{
			Severity:  severity,
			Field:     field,
			Value:     rec.Get(field),
			Rule:      rule,
			Message:   msg,
			RowNumber: rec.Row,
		})
	}

	// Required fields.
	bsn := rec.Get(normalizer.FieldBSN)
	if bsn == "" {
		add(SeverityError, normalizer.FieldBSN, "required", "ontbrekende BSN")
	} else if !bsnPattern.MatchString(bsn) {
		add(SeverityWarning, normalizer.FieldBSN, "format", fmt.Sprintf("BSN '%s' bestaat niet uit 9 cijfers", bsn))
	}

	if !rec.Has(normalizer.FieldNaam) {
		add(SeverityError, normalizer.FieldNaam, "required", "ontbrekende Naam")
	}

	aoDag := rec.Get(normalizer.FieldDatEersteAoDag)
	if aoDag == "" {
		add(SeverityError, normalizer.FieldDatEersteAoDag, "required", "ontbrekende DatEersteAoDag")
	} else if s, ok := coerce.DateString(aoDag, coerce.DateOnly, coerce.Epoch1900); !ok || !coerce.IsCompactDate(s) {
		add(SeverityError, normalizer.FieldDatEersteAoDag, "format",
			fmt.Sprintf("ongeldige DatEersteAoDag '%s' (verwacht JJJJMMDD)", aoDag))
	}

	// Optional dates.
	for _, f := range optionalDates {
		val := rec.Get(f)
		if val == "" {
			continue
		}
		_, withTime := normalizer.IsDate(f)
		p := coerce.DateOnly
		if withTime {
			p = coerce.DateTime
		}
		if _, ok := coerce.DateString(val, p, coerce.Epoch1900); !ok {
			add(SeverityWarning, f, "format", fmt.Sprintf("%s '%s' is geen datum en wordt weggelaten", f, val))
		}
	}

	// Indicators.
	for _, f := range normalizer.Fields() {
		if !normalizer.IsIndicator(f) || !rec.Has(f) {
			continue
		}
		if !coerce.IsIndicator(coerce.Indicator(rec.Get(f))) {
			add(SeverityWarning, f, "indicator", fmt.Sprintf("%s '%s' is geen ja/nee-waarde", f, rec.Get(f)))
		}
	}

	// Codes and account numbers.
	if code := rec.Get(normalizer.FieldCdRedenZiekmelding); code != "" && !coerce.IsKnownReasonCode(code) {
		add(SeverityWarning, normalizer.FieldCdRedenZiekmelding, "code",
			fmt.Sprintf("onbekende CdRedenZiekmelding '%s'", code))
	}
	if iban := rec.Get(normalizer.FieldIBAN); iban != "" {
		compact := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
		if !ibanPattern.MatchString(compact) {
			add(SeverityWarning, normalizer.FieldIBAN, "format", fmt.Sprintf("IBAN '%s' heeft een onverwacht formaat", iban))
		}
	}

	for _, e := range result.Errors {
		if e.Severity == SeverityError {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}
	result.IsValid = result.ErrorCount == 0

	return result
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatErrors renders findings one per line.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "Geen validatiefouten."
	}
	var b strings.Builder
	for i, e := range errs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Error())
	}
	return b.String()
}
