package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
)

func apply(t *testing.T, field normalizer.Field, value string, actions ...config.TransformationAction) string {
	t.Helper()
	tr, err := NewTransformer([]config.TransformationRule{{Field: string(field), Actions: actions}})
	require.NoError(t, err)
	rec := normalizer.NewRecord(2)
	rec.Set(field, value)
	tr.Apply(rec)
	return rec.Get(field)
}

func TestTransformer_Actions(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		action config.TransformationAction
		want   string
	}{
		{"uppercase", "nl91abna", config.TransformationAction{Type: "uppercase"}, "NL91ABNA"},
		{"lowercase", "ABC", config.TransformationAction{Type: "lowercase"}, "abc"},
		{"remove spaces", "NL91 ABNA 0417 1643 00", config.TransformationAction{Type: "remove_spaces"}, "NL91ABNA0417164300"},
		{"prepend", "123", config.TransformationAction{Type: "prepend_string", Value: "P"}, "P123"},
		{"prepend skips empty", "", config.TransformationAction{Type: "prepend_string", Value: "P"}, ""},
		{"append", "123", config.TransformationAction{Type: "append_string", Value: "L01"}, "123L01"},
		{"pad zeros", "123", config.TransformationAction{Type: "pad_zeros_to_length", Value: "8"}, "00000123"},
		{"pad zeros bad length", "123", config.TransformationAction{Type: "pad_zeros_to_length", Value: "x"}, "123"},
		{"ensure length pads", "42", config.TransformationAction{Type: "ensure_length", Value: "4"}, "0042"},
		{"ensure length cuts", "123456", config.TransformationAction{Type: "ensure_length", Value: "4"}, "1234"},
		{"truncate", "abcdef", config.TransformationAction{Type: "truncate", Value: "3"}, "abc"},
		{"truncate runes", "ëëëë", config.TransformationAction{Type: "truncate", Value: "2"}, "ëë"},
		{"replace", "a-b-c", config.TransformationAction{Type: "replace", Find: "-", Value: ""}, "abc"},
		{"regex replace", "P-00123", config.TransformationAction{Type: "regex_replace", Find: `^P-0*`, Value: ""}, "123"},
		{"extract digits", "06-123 456 78", config.TransformationAction{Type: "extract_digits"}, "0612345678"},
		{"lookup hit", "A", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"A": "1"}}, "1"},
		{"lookup miss", "B", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"A": "1"}}, "B"},
		{"lookup default", "B", config.TransformationAction{Type: "lookup_with_default", Value: "9", LookupTable: map[string]string{"A": "1"}}, "9"},
		{"default on empty", "", config.TransformationAction{Type: "if_empty_use_default", Value: "WG"}, "WG"},
		{"default keeps value", "ZS", config.TransformationAction{Type: "if_empty_use_default", Value: "WG"}, "ZS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, normalizer.FieldPersoneelsnr, tt.value, tt.action))
		})
	}
}

func TestTransformer_ChainAndAlias(t *testing.T) {
	tr, err := NewTransformer([]config.TransformationRule{
		{Field: "burgerservicenr", Actions: []config.TransformationAction{
			{Type: "extract_digits"},
			{Type: "pad_zeros_to_length", Value: "9"},
		}},
		{Field: "Personeelsnr", Actions: []config.TransformationAction{
			{Type: "if_empty_use_field", Value: "BSN"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Len())

	rec := normalizer.NewRecord(2)
	rec.Set(normalizer.FieldBSN, "12.345.678")
	tr.Apply(rec)

	assert.Equal(t, "012345678", rec.Get(normalizer.FieldBSN))
	assert.Equal(t, "012345678", rec.Get(normalizer.FieldPersoneelsnr))
}

func TestNewTransformer_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule config.TransformationRule
	}{
		{"unknown field", config.TransformationRule{Field: "Onbekend", Actions: []config.TransformationAction{{Type: "trim"}}}},
		{"unknown type", config.TransformationRule{Field: "BSN", Actions: []config.TransformationAction{{Type: "reverse"}}}},
		{"bad regex", config.TransformationRule{Field: "BSN", Actions: []config.TransformationAction{{Type: "regex_replace", Find: "("}}}},
		{"unknown source field", config.TransformationRule{Field: "BSN", Actions: []config.TransformationAction{{Type: "if_empty_use_field", Value: "Onbekend"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransformer([]config.TransformationRule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "007", PadLeft("7", 3, '0'))
	assert.Equal(t, "1234", PadLeft("1234", 3, '0'))
}
