// =============================================================================
// UWV Sickness Notification XML Generator - XML Writer Module
// =============================================================================
//
// This module turns element trees into bytes and back. It serializes
// envelopes and standalone message bodies, and extracts the bodies from
// existing envelope files so they can be validated on their own.
//
// EXTRACTION:
//   Every UwvZwMeldingInternBody element is found wherever it sits in the
//   document, whatever its prefix. The extracted copy is detached from the
//   envelope, so its namespace declaration is added when it was inherited
//   from an ancestor.
//
// =============================================================================

package xmlwriter

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrNoBody is returned when a document holds no message body.
var ErrNoBody = errors.New("no " + BodyElement + " element found")

// =============================================================================
// SERIALIZATION OPTIONS
// =============================================================================

// SerializeOptions contains options for XML serialization.
type SerializeOptions struct {
	// Indent is the number of spaces per level. Negative disables
	// indentation.
	// Default: 2
	Indent int

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the declaration.
	// Default: "UTF-8"
	Encoding string
}

// DefaultSerializeOptions returns the default serialization options.
func DefaultSerializeOptions() SerializeOptions {
	return SerializeOptions{
		Indent:                2,
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
	}
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Serialize writes root as a standalone document. root itself is not
// modified.
func Serialize(root *etree.Element, options SerializeOptions) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("failed to serialize XML: nil element")
	}

	doc := etree.NewDocument()
	if options.IncludeXMLDeclaration {
		doc.CreateProcInst("xml", fmt.Sprintf(`version="%s" encoding="%s"`, options.XMLVersion, options.Encoding))
	}
	doc.SetRoot(root.Copy())
	if options.Indent >= 0 {
		doc.Indent(options.Indent)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}
	return out, nil
}

// BodyBytes serializes one message body as a standalone document, the
// form the schema validator expects.
func BodyBytes(body *etree.Element) ([]byte, error) {
	return Serialize(body, DefaultSerializeOptions())
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractBodies returns detached copies of every message body in data, in
// document order. data may be a full envelope or a bare body.
func ExtractBodies(data []byte) ([]*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	found := doc.FindElements("//" + BodyElement)
	if root := doc.Root(); root != nil && root.Tag == BodyElement && !contains(found, root) {
		found = append([]*etree.Element{root}, found...)
	}
	if len(found) == 0 {
		return nil, ErrNoBody
	}

	bodies := make([]*etree.Element, 0, len(found))
	for _, el := range found {
		bodies = append(bodies, detach(el))
	}
	return bodies, nil
}

// ExtractFirstBody returns the first message body in data, serialized as a
// standalone document.
func ExtractFirstBody(data []byte) ([]byte, error) {
	bodies, err := ExtractBodies(data)
	if err != nil {
		return nil, err
	}
	return BodyBytes(bodies[0])
}

// detach copies el and declares the namespace it inherited, if any.
func detach(el *etree.Element) *etree.Element {
	ns := el.NamespaceURI()
	cp := el.Copy()
	if ns == "" {
		return cp
	}

	key := "xmlns"
	if el.Space != "" {
		key = "xmlns:" + el.Space
	}
	if cp.SelectAttr(key) == nil {
		cp.CreateAttr(key, ns)
	}
	return cp
}

func contains(list []*etree.Element, el *etree.Element) bool {
	for _, e := range list {
		if e == el {
			return true
		}
	}
	return false
}
