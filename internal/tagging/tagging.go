// =============================================================================
// UWV Sickness Notification XML Generator - Dataset Tagging
// =============================================================================
//
// This module marks the entries of a dataset catalogue with the message
// types they can be uploaded as, so the upload screen can filter on them.
//
// CATALOGUE FORMAT (YAML):
//
//   datasets:
//     - id: ds-001
//       label: Ziekmelding Digipoort
//       fields:
//         BSN: "123456789"
//         Iban: NL91ABNA0417164300
//       types: [Digipoort, VM, ZBM]
//
//   A bare list of datasets is accepted as well. Keys other than id, label,
//   fields and types are kept as they are.
//
// INFERENCE (conservative):
//   - IBAN, BIC, BSN or Loonheffingennummer present -> ZBM and VM
//   - label (or fields.Naam) mentioning digipoort or otp3 -> Digipoort
//   - no signal -> no types, unless defaults are requested
//
// =============================================================================

package tagging

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
)

// DefaultTypes is applied to datasets without any signal when requested.
var DefaultTypes = []string{"ZBM", "VM", "Digipoort"}

// =============================================================================
// CATALOGUE STRUCTURE
// =============================================================================

// Dataset is one catalogue entry.
type Dataset struct {
	ID     string         `yaml:"id"`
	Label  string         `yaml:"label,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`
	Types  []string       `yaml:"types"`

	// Extra keeps keys the catalogue carries besides the ones above.
	Extra map[string]any `yaml:",inline"`
}

// Catalogue is a list of datasets.
type Catalogue struct {
	Datasets []Dataset `yaml:"datasets"`
}

// Change records a dataset whose types were replaced.
type Change struct {
	ID     string
	Before []string
	After  []string
}

// =============================================================================
// LOADING AND SAVING
// =============================================================================

// LoadCatalogue reads a catalogue file.
//
// PARAMETERS:
//   - path: The YAML file. Either a mapping with a datasets list or a bare
//     list of datasets.
//
// RETURNS:
//   - The catalogue.
//   - An error if the file cannot be read or decoded.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes catalogue YAML.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	c := &Catalogue{}
	if len(doc.Content) == 0 {
		return c, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&c.Datasets); err != nil {
			return nil, fmt.Errorf("failed to parse catalogue: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Decode(c); err != nil {
			return nil, fmt.Errorf("failed to parse catalogue: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to parse catalogue: expected a mapping or a list")
	}
	return c, nil
}

// Save writes the catalogue as YAML.
func (c *Catalogue) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode catalogue: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode catalogue: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write catalogue: %w", err)
	}
	return nil
}

// =============================================================================
// TAGGING
// =============================================================================

// Tag replaces the types of every dataset whose inferred set differs. The
// older type keys are dropped from changed datasets.
//
// PARAMETERS:
//   - applyDefaults: Use DefaultTypes for datasets without any signal.
//
// RETURNS:
//   - The changes, in catalogue order.
func (c *Catalogue) Tag(applyDefaults bool) []Change {
	var changes []Change
	for i := range c.Datasets {
		ds := &c.Datasets[i]

		inferred := InferTypes(*ds)
		if len(inferred) == 0 && applyDefaults {
			inferred = append([]string(nil), DefaultTypes...)
		}

		current := ds.CurrentTypes()
		if !sameSet(current, inferred) {
			changes = append(changes, Change{ID: ds.ID, Before: current, After: inferred})
			ds.Types = inferred
			delete(ds.Extra, "aanvraag_types")
			delete(ds.Extra, "aanvraag_type")
		}
	}
	return changes
}

// InferTypes derives the compatible message types of a dataset, sorted.
func InferTypes(ds Dataset) []string {
	set := make(map[string]bool)

	for key, v := range ds.Fields {
		if !nonEmpty(v) {
			continue
		}
		f, ok := normalizer.Lookup(key)
		if !ok {
			continue
		}
		switch f {
		case normalizer.FieldIBAN, normalizer.FieldBIC, normalizer.FieldBSN, normalizer.FieldLoonheffingennummer:
			set["ZBM"] = true
			set["VM"] = true
		}
	}

	label := strings.ToLower(ds.nameLabel())
	if strings.Contains(label, "digipoort") || strings.Contains(label, "otp3") {
		set["Digipoort"] = true
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CurrentTypes returns the types the dataset carries, including the older
// aanvraag_types and aanvraag_type keys.
func (ds Dataset) CurrentTypes() []string {
	if len(ds.Types) > 0 {
		return ds.Types
	}
	for _, key := range []string{"aanvraag_types", "aanvraag_type"} {
		switch v := ds.Extra[key].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, x := range v {
				out = append(out, fmt.Sprint(x))
			}
			return out
		case nil:
		default:
			if s := fmt.Sprint(v); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

// DisplayLabel is the label, the Naam field or the id.
func (ds Dataset) DisplayLabel() string {
	if l := ds.nameLabel(); l != "" {
		return l
	}
	return ds.ID
}

func (ds Dataset) nameLabel() string {
	if ds.Label != "" {
		return ds.Label
	}
	for key, v := range ds.Fields {
		if f, ok := normalizer.Lookup(key); ok && f == normalizer.FieldNaam && nonEmpty(v) {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func nonEmpty(v any) bool {
	return v != nil && strings.TrimSpace(fmt.Sprint(v)) != ""
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
