package normalizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
)

func raw(row int, kv ...any) types.RawRecord {
	rec := types.RawRecord{Row: row}
	for i := 0; i+1 < len(kv); i += 2 {
		var c types.Cell
		switch v := kv[i+1].(type) {
		case string:
			c = types.TextCell(v)
		case float64:
			c = types.NumberCell(v)
		case int:
			c = types.NumberCell(float64(v))
		case types.Cell:
			c = v
		}
		rec.Fields = append(rec.Fields, types.RawField{Header: kv[i].(string), Value: c})
	}
	return rec
}

func TestToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"BSN", "bsn"},
		{"Burger Service Nummer", "burgerservicenummer"},
		{"Rekeningnummer (IBAN)", "rekeningnummeriban"},
		{"aanvraag_type", "aanvraagtype"},
		{"Geboortedátum", "geboortedatum"},
		{"  ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Token(tt.header), tt.header)
	}
}

func TestAliasTokensAreUnique(t *testing.T) {
	owner := make(map[string]Field)
	for _, f := range Fields() {
		for _, a := range Aliases(f) {
			assert.Equal(t, a, Token(a), "alias %q of %s is not a token", a, f)
			if prev, dup := owner[a]; dup {
				t.Errorf("alias %q claimed by %s and %s", a, prev, f)
			}
			owner[a] = f
		}
	}
	assert.Len(t, aliases, len(fieldOrder))
}

func TestNormalize_AliasVariants(t *testing.T) {
	n := New()

	rec := n.Normalize(raw(2,
		"Burgerservicenummer", "123456789",
		"Voornaam", "Jan",
		"Tussenvoegsel", "de",
		"Achternaam", "Vries",
		"Rekeningnummer (IBAN)", "NL91ABNA0417164300",
		"Loonheffingennr", "123456789L01",
		"Eerste ziektedag", "2024-03-01",
	))

	assert.Equal(t, 2, rec.Row)
	assert.Equal(t, "123456789", rec.Get(FieldBSN))
	assert.Equal(t, "Jan", rec.Get(FieldEersteVoornaam))
	assert.Equal(t, "de", rec.Get(FieldVoorvoegsel))
	assert.Equal(t, "Vries", rec.Get(FieldAchternaam))
	assert.Equal(t, "Jan de Vries", rec.Get(FieldNaam))
	assert.Equal(t, "NL91ABNA0417164300", rec.Get(FieldIBAN))
	assert.Equal(t, "123456789L01", rec.Get(FieldLoonheffingennummer))
	assert.Equal(t, "20240301", rec.Get(FieldDatEersteAoDag))
	assert.Empty(t, rec.Extras)
}

func TestNormalize_EveryFieldPresent(t *testing.T) {
	rec := New().Normalize(raw(2, "BSN", "1"))
	for _, f := range Fields() {
		_, ok := rec.values[f]
		assert.True(t, ok, f)
	}
	assert.False(t, rec.Has(FieldIBAN))
}

func TestNormalize_FirstNonEmptyAliasWins(t *testing.T) {
	rec := New().Normalize(raw(2,
		"BSN", "",
		"Burgerservicenr", "999999999",
	))
	assert.Equal(t, "999999999", rec.Get(FieldBSN))
}

func TestNormalize_DateCoercion(t *testing.T) {
	rec := New().Normalize(raw(2,
		"DatEersteAoDag", 43831,
		"Geboortedatum", "01-02-1980",
		"DatTijdOpstellenMelding", "20240101",
		"DatB", "onbekend",
	))
	assert.Equal(t, "20200101", rec.Get(FieldDatEersteAoDag))
	assert.Equal(t, "19800201", rec.Get(FieldGeboortedatum))
	assert.Equal(t, "20240101000000", rec.Get(FieldDatTijdOpstellenMelding))
	assert.Equal(t, "onbekend", rec.Get(FieldDatB))

	rec = New(WithDate1904(true)).Normalize(raw(2, "DatEersteAoDag", 42369))
	assert.Equal(t, "20200101", rec.Get(FieldDatEersteAoDag))
}

func TestNormalize_NameComposition(t *testing.T) {
	tests := []struct {
		name string
		in   types.RawRecord
		want string
	}{
		{
			name: "explicit naam",
			in:   raw(2, "Naam", "P. Jansen", "Achternaam", "Jansen"),
			want: "P. Jansen",
		},
		{
			name: "first and last",
			in:   raw(2, "EersteVoornaam", "Piet", "Achternaam", "Jansen"),
			want: "Piet Jansen",
		},
		{
			name: "last name only",
			in:   raw(2, "Achternaam", "Jansen"),
			want: "Jansen",
		},
		{
			name: "zero last name falls through to initials",
			in:   raw(2, "Achternaam", "0", "Voorletters", "P."),
			want: "P.",
		},
		{
			name: "none last name falls through to first name",
			in:   raw(2, "Achternaam", "None", "Voornaam", "Piet"),
			want: "Piet",
		},
		{
			name: "nothing",
			in:   raw(2, "BSN", "123"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New().Normalize(tt.in)
			assert.Equal(t, tt.want, rec.Get(FieldNaam))
		})
	}
}

func TestNormalize_NameSplit(t *testing.T) {
	rec := New().Normalize(raw(2, "Naam", "Piet van Dam"))
	assert.Equal(t, "Piet", rec.Get(FieldEersteVoornaam))
	assert.Equal(t, "van Dam", rec.Get(FieldAchternaam))
	assert.Equal(t, "P.", rec.Get(FieldVoorletters))

	rec = New().Normalize(raw(2, "Naam", "Cher"))
	assert.Equal(t, "Cher", rec.Get(FieldAchternaam))
	assert.Equal(t, "", rec.Get(FieldEersteVoornaam))
}

func TestNormalize_ExtrasKeepColumnOrder(t *testing.T) {
	rec := New().Normalize(raw(2,
		"Opmerking", "let op",
		"BSN", "123456789",
		"2e regel/info", "x",
		"bsn", "ignored duplicate",
		"Leeg", "",
	))

	want := []Extra{
		{Key: "Opmerking", Value: "let op"},
		{Key: "2e regel/info", Value: "x"},
		{Key: "Leeg", Value: ""},
	}
	if diff := cmp.Diff(want, rec.Extras); diff != "" {
		t.Errorf("extras mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "123456789", rec.Get(FieldBSN))

	v, ok := rec.Extra("Opmerking")
	require.True(t, ok)
	assert.Equal(t, "let op", v)
}

func TestRecord_IsBlank(t *testing.T) {
	assert.True(t, New().Normalize(raw(7, "Opmerking", "alleen dit", "Geslacht", "M")).IsBlank())
	assert.False(t, New().Normalize(raw(7, "IBAN", "NL91ABNA0417164300")).IsBlank())
	assert.False(t, New().Normalize(raw(7, "Voorletters", "J.")).IsBlank())
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("Rekeningnummer (IBAN)")
	require.True(t, ok)
	assert.Equal(t, FieldIBAN, f)

	_, ok = Lookup("Opmerking")
	assert.False(t, ok)
}

func TestRecord_Clone(t *testing.T) {
	rec := New().Normalize(raw(3, "BSN", "1", "X", "y"))
	c := rec.Clone()
	c.Set(FieldBSN, "2")
	c.Extras[0].Value = "z"
	assert.Equal(t, "1", rec.Get(FieldBSN))
	assert.Equal(t, "y", rec.Extras[0].Value)
}
