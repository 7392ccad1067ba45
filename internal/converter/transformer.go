// =============================================================================
// UWV Sickness Notification XML Generator - Transformation Engine
// =============================================================================
//
// This module applies the configured transformation rules to canonical
// records. Rules run after normalization and before pre-flight validation,
// so a rule can repair a value that would otherwise reject the row.
//
// TRANSFORMATION TYPES:
//   - String manipulations (trim, case conversion, prepend, append)
//   - Length handling (zero padding, ensure_length, truncate)
//   - Replacements (plain and regular expression)
//   - Lookup table replacements
//   - Empty-value fallbacks (fixed default or another field)
//
// EXAMPLE (config.yaml):
//
//   transformation_rules:
//     - field: Personeelsnr
//       actions:
//         - type: extract_digits
//         - type: pad_zeros_to_length
//           value: "6"
//     - field: CdSrtIndiener
//       actions:
//         - type: if_empty_use_default
//           value: WG
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// compiledRule is a rule resolved against the canonical field set.
type compiledRule struct {
	field   normalizer.Field
	actions []compiledAction
}

type compiledAction struct {
	config.TransformationAction
	re    *regexp.Regexp
	other normalizer.Field
}

// Transformer applies transformation rules to canonical records.
type Transformer struct {
	rules []compiledRule
}

var supportedActions = map[string]bool{
	"trim":                 true,
	"uppercase":            true,
	"lowercase":            true,
	"remove_spaces":        true,
	"prepend_string":       true,
	"append_string":        true,
	"pad_zeros_to_length":  true,
	"ensure_length":        true,
	"truncate":             true,
	"replace":              true,
	"regex_replace":        true,
	"extract_digits":       true,
	"lookup":               true,
	"lookup_with_default":  true,
	"if_empty_use_default": true,
	"if_empty_use_field":   true,
}

// NewTransformer resolves and checks the rules.
//
// PARAMETERS:
//   - rules: The configured rules. Field names may be canonical names or
//     any accepted column alias.
//
// RETURNS:
//   - The Transformer.
//   - An error naming the first unknown field, unknown action type or
//     invalid regular expression.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{}
	for i, rule := range rules {
		field, ok := resolveField(rule.Field)
		if !ok {
			return nil, fmt.Errorf("transformation rule %d: unknown field '%s'", i+1, rule.Field)
		}

		cr := compiledRule{field: field}
		for _, action := range rule.Actions {
			if !supportedActions[action.Type] {
				return nil, fmt.Errorf("transformation rule %d (%s): unknown transformation type: %s", i+1, rule.Field, action.Type)
			}
			ca := compiledAction{TransformationAction: action}
			switch action.Type {
			case "regex_replace":
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("transformation rule %d (%s): invalid regex pattern: %w", i+1, rule.Field, err)
				}
				ca.re = re
			case "if_empty_use_field":
				other, ok := resolveField(action.Value)
				if !ok {
					return nil, fmt.Errorf("transformation rule %d (%s): unknown field '%s'", i+1, rule.Field, action.Value)
				}
				ca.other = other
			}
			cr.actions = append(cr.actions, ca)
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

// Len returns the number of rules.
func (t *Transformer) Len() int {
	return len(t.rules)
}

// Apply runs every rule against rec, in configuration order.
func (t *Transformer) Apply(rec *normalizer.Record) {
	for _, rule := range t.rules {
		value := rec.Get(rule.field)
		for _, action := range rule.actions {
			value = applyAction(value, action, rec)
		}
		rec.Set(rule.field, value)
	}
}

// resolveField accepts a canonical name or a column alias.
func resolveField(name string) (normalizer.Field, bool) {
	for _, f := range normalizer.Fields() {
		if string(f) == name {
			return f, true
		}
	}
	return normalizer.Lookup(name)
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

var nonDigit = regexp.MustCompile(`\D`)

// applyAction applies a single transformation action.
func applyAction(value string, action compiledAction, rec *normalizer.Record) string {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value)

	case "uppercase":
		return strings.ToUpper(value)

	case "lowercase":
		return strings.ToLower(value)

	case "remove_spaces":
		// "NL91 ABNA 0417 1643 00" -> "NL91ABNA0417164300"
		return strings.Join(strings.Fields(value), "")

	case "prepend_string":
		if value == "" {
			return value
		}
		return action.Value + value

	case "append_string":
		if value == "" {
			return value
		}
		return value + action.Value

	// =========================================================================
	// LENGTH HANDLING
	// =========================================================================

	case "pad_zeros_to_length":
		// "123" with value "8" -> "00000123"
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 || value == "" {
			return value
		}
		return PadLeft(value, n, '0')

	case "ensure_length":
		// Truncate from the right or pad with leading zeros.
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 || value == "" {
			return value
		}
		if r := []rune(value); len(r) > n {
			return string(r[:n])
		}
		return PadLeft(value, n, '0')

	case "truncate":
		n, err := strconv.Atoi(action.Value)
		if err != nil || n < 0 {
			return value
		}
		if r := []rune(value); len(r) > n {
			return string(r[:n])
		}
		return value

	// =========================================================================
	// REPLACEMENTS
	// =========================================================================

	case "replace":
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case "regex_replace":
		return action.re.ReplaceAllString(value, action.Value)

	case "extract_digits":
		// "06-123 456 78" -> "0612345678"
		return nonDigit.ReplaceAllString(value, "")

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement
		}
		return value

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement
		}
		return action.Value

	// =========================================================================
	// EMPTY-VALUE FALLBACKS
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			return rec.Get(action.other)
		}
		return value
	}

	return value
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target
// length in runes.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
