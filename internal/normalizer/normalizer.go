// =============================================================================
// UWV Sickness Notification XML Generator - Field Normalizer
// =============================================================================
//
// The normalizer maps arbitrary spreadsheet headers onto the canonical field
// set. Headers are folded into tokens (lower-case, diacritics removed, only
// letters and digits kept) and matched against the alias table in fields.go.
//
// NORMALIZATION STEPS:
//   1. Tokenize every header; the first header producing a token wins.
//   2. Probe each canonical field's aliases in order; first non-empty value.
//   3. Coerce date fields inline (serials, compact digits, textual layouts).
//   4. Split Naam into name parts when only Naam is present.
//   5. Compose Naam from name parts when it is missing.
//   6. Keep unrecognized columns, in column order, as extension fields.
//
// The normalizer never fails: absent data is an empty string.
//
// =============================================================================

package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/uwv-zw-xml/internal/coerce"
	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
)

// =============================================================================
// CANONICAL RECORD
// =============================================================================

// Extra is a column that matched no alias.
type Extra struct {
	Key   string
	Value string
}

// Record is the canonical form of one spreadsheet row. Every canonical field
// is present; missing values are empty strings.
type Record struct {
	// Row is the 1-based source sheet row.
	Row int

	values map[Field]string

	// Extras holds unrecognized columns in column order.
	Extras []Extra
}

// NewRecord returns a record with every canonical field set to "".
func NewRecord(row int) *Record {
	r := &Record{Row: row, values: make(map[Field]string, len(fieldOrder))}
	for _, f := range fieldOrder {
		r.values[f] = ""
	}
	return r
}

// Get returns the value of a canonical field.
func (r *Record) Get(f Field) string {
	return r.values[f]
}

// Has reports whether the field carries a non-blank value.
func (r *Record) Has(f Field) bool {
	return strings.TrimSpace(r.values[f]) != ""
}

// Set assigns a canonical field. Unknown fields are ignored.
func (r *Record) Set(f Field, v string) {
	if _, ok := r.values[f]; ok {
		r.values[f] = strings.TrimSpace(v)
	}
}

// Extra returns the value of an unrecognized column by its original key.
func (r *Record) Extra(key string) (string, bool) {
	for _, e := range r.Extras {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// IsBlank reports whether every identity-bearing field is empty.
func (r *Record) IsBlank() bool {
	for _, f := range identityFields {
		if r.Has(f) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := NewRecord(r.Row)
	for k, v := range r.values {
		c.values[k] = v
	}
	c.Extras = append([]Extra(nil), r.Extras...)
	return c
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer converts raw records into canonical records.
type Normalizer struct {
	epoch coerce.Epoch
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDate1904 selects the 1904 serial epoch for date cells.
func WithDate1904(enabled bool) Option {
	return func(n *Normalizer) {
		n.epoch = coerce.EpochFor(enabled)
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{epoch: coerce.Epoch1900}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// tokenIndex maps a header token to the position of its first column.
type tokenIndex map[string]int

// Normalize maps one raw record onto the canonical field set.
func (n *Normalizer) Normalize(raw types.RawRecord) *Record {
	rec := NewRecord(raw.Row)

	index := make(tokenIndex, len(raw.Fields))
	for i, f := range raw.Fields {
		tok := Token(f.Header)
		if tok == "" {
			continue
		}
		if _, seen := index[tok]; !seen {
			index[tok] = i
		}
	}

	knownTokens := make(map[string]bool)
	for _, field := range fieldOrder {
		for _, alias := range aliases[field] {
			pos, ok := index[alias]
			if !ok {
				continue
			}
			knownTokens[alias] = true
			cell := raw.Fields[pos].Value
			if cell.IsEmpty() || rec.Has(field) {
				continue
			}
			rec.values[field] = n.value(field, cell)
		}
	}

	splitName(rec)
	composeName(rec, raw, index)

	for _, f := range raw.Fields {
		if strings.TrimSpace(f.Header) == "" || knownTokens[Token(f.Header)] {
			continue
		}
		rec.Extras = append(rec.Extras, Extra{Key: f.Header, Value: f.Value.String()})
	}

	return rec
}

// value renders a cell for a field, coercing dates inline. Values that do
// not coerce are kept verbatim so validation can report them.
func (n *Normalizer) value(field Field, cell types.Cell) string {
	if withTime, isDate := dateFields[field]; isDate {
		p := coerce.DateOnly
		if withTime {
			p = coerce.DateTime
		}
		if s, ok := coerce.Date(cell, p, n.epoch); ok {
			return s
		}
	}
	return cell.String()
}

// =============================================================================
// NAME HANDLING
// =============================================================================

var initialTokens = []string{"voorletters", "initialen", "initials", "voornaam"}

// composeName fills Naam from name parts when it is empty.
func composeName(rec *Record, raw types.RawRecord, index tokenIndex) {
	if rec.Has(FieldNaam) {
		return
	}

	first, last := rec.Get(FieldEersteVoornaam), rec.Get(FieldAchternaam)
	if trivialName(last) {
		last = ""
	}
	if first != "" && last != "" {
		parts := []string{first}
		if v := rec.Get(FieldVoorvoegsel); v != "" {
			parts = append(parts, v)
		}
		rec.values[FieldNaam] = strings.Join(append(parts, last), " ")
		return
	}

	if last != "" {
		rec.values[FieldNaam] = last
		return
	}

	for _, tok := range initialTokens {
		if pos, ok := index[tok]; ok {
			if v := raw.Fields[pos].Value.String(); v != "" {
				rec.values[FieldNaam] = v
				return
			}
		}
	}
}

// trivialName reports placeholder values that spreadsheets leave behind in
// empty name cells.
func trivialName(s string) bool {
	return s == "" || s == "0" || strings.EqualFold(s, "None")
}

// splitName derives first name, initials and last name from Naam when the
// upload only carries a full name.
func splitName(rec *Record) {
	if !rec.Has(FieldNaam) || rec.Has(FieldEersteVoornaam) || rec.Has(FieldAchternaam) {
		return
	}
	parts := strings.Fields(rec.Get(FieldNaam))
	if len(parts) < 2 {
		rec.values[FieldAchternaam] = rec.Get(FieldNaam)
		return
	}
	rec.values[FieldEersteVoornaam] = parts[0]
	rec.values[FieldAchternaam] = strings.Join(parts[1:], " ")
	if !rec.Has(FieldVoorletters) {
		rec.values[FieldVoorletters] = strings.ToUpper(string([]rune(parts[0])[:1])) + "."
	}
}

// =============================================================================
// TOKENS
// =============================================================================

// Token folds a header into its lookup token: diacritics removed,
// lower-cased, only letters and digits kept.
func Token(header string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(header) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Lookup returns the canonical field accepting the given header, if any.
func Lookup(header string) (Field, bool) {
	tok := Token(header)
	for _, f := range fieldOrder {
		for _, a := range aliases[f] {
			if a == tok {
				return f, true
			}
		}
	}
	return "", false
}
