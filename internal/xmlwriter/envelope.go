// =============================================================================
// UWV Sickness Notification XML Generator - Envelope Builder
// =============================================================================
//
// This module wraps one or more message bodies in a SOAP envelope carrying
// the UwvML routing header.
//
// XML STRUCTURE:
//
//   <SOAP-ENV:Envelope xmlns:SOAP-ENV="...">
//     <SOAP-ENV:Header>
//       <uwvh:UwvMLHeader xmlns:uwvh="...">
//         <RouteInformatie>...</RouteInformatie>
//         <BerichtIdentificatie>...</BerichtIdentificatie>
//         <Transactie>...</Transactie>
//       </uwvh:UwvMLHeader>
//     </SOAP-ENV:Header>
//     <SOAP-ENV:Body>
//       <UwvZwMeldingInternBody xmlns="...">...</UwvZwMeldingInternBody>
//       ...
//     </SOAP-ENV:Body>
//   </SOAP-ENV:Envelope>
//
// DETERMINISTIC MODE:
//   When EnvelopeParams.FixedTime is set, every timestamp uses it and the
//   exchange and transaction references are derived from it and the seed
//   instead of being random. Two builds with the same input are then
//   byte-identical.
//
// =============================================================================

package xmlwriter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
)

// Header limits.
const (
	maxTesterLength    = 30
	maxReferenceLength = 50

	// timestampLayout is RFC 3339 that always prints a numeric offset.
	timestampLayout = "2006-01-02T15:04:05-07:00"
	compactLayout   = "20060102150405"
)

// =============================================================================
// TYPES
// =============================================================================

// EnvelopeParams are the per-upload inputs of an envelope.
type EnvelopeParams struct {
	// Sender is Bron/ApplicatieNaam. Empty uses the configured source
	// application.
	Sender string

	// TesterName is the human identifier in BerichtReferentienr.
	TesterName string

	// FixedTime enables deterministic mode.
	FixedTime *time.Time

	// Seed separates the identifiers of envelopes built in the same
	// deterministic run (for example the output file key).
	Seed string
}

// Deterministic reports whether fixed timestamps are in use.
func (p EnvelopeParams) Deterministic() bool {
	return p.FixedTime != nil
}

// Envelope is a built SOAP envelope.
type Envelope struct {
	// Root is the SOAP-ENV:Envelope element.
	Root *etree.Element

	// ExchangeNr is RouteInformatie/GegevensUitwisselingsnr.
	ExchangeNr string

	// MessageRef is BerichtIdentificatie/BerichtReferentienr.
	MessageRef string

	// TransactionRef is Transactie/TransactieReferentienr.
	TransactionRef string

	// Bodies is the number of message bodies in SOAP-ENV:Body.
	Bodies int
}

// Bytes serializes the envelope with an XML declaration.
func (e *Envelope) Bytes() ([]byte, error) {
	return Serialize(e.Root, DefaultSerializeOptions())
}

// EnvelopeBuilder builds envelopes.
type EnvelopeBuilder struct {
	Header config.HeaderSettings

	now func() time.Time
}

// EnvelopeOption configures an EnvelopeBuilder.
type EnvelopeOption func(*EnvelopeBuilder)

// WithClock replaces the wall clock used outside deterministic mode.
func WithClock(now func() time.Time) EnvelopeOption {
	return func(b *EnvelopeBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewEnvelopeBuilder creates a builder for the given header settings.
func NewEnvelopeBuilder(header config.HeaderSettings, opts ...EnvelopeOption) *EnvelopeBuilder {
	b := &EnvelopeBuilder{Header: header, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// =============================================================================
// BUILDING
// =============================================================================

// Build wraps messages in a new envelope.
//
// PARAMETERS:
//   - messages: The bodies, in output order. At least one is required.
//   - params: Sender, tester name and the optional fixed timestamp.
//
// RETURNS:
//   - The envelope. Bodies are copied, so messages remain usable.
//   - An error if there are no messages.
func (b *EnvelopeBuilder) Build(messages []*Message, params EnvelopeParams) (*Envelope, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("failed to build envelope: no message bodies")
	}

	ts := b.now()
	if params.Deterministic() {
		ts = *params.FixedTime
	}
	stamp := ts.Format(timestampLayout)

	env := &Envelope{
		ExchangeNr:     "GegUitNr-" + b.shortID(params, ts, "exchange"),
		MessageRef:     MessageReference(params.TesterName, ts),
		TransactionRef: "TraRef-" + b.shortID(params, ts, "transaction"),
		Bodies:         len(messages),
	}

	root := etree.NewElement("SOAP-ENV:Envelope")
	root.CreateAttr("xmlns:SOAP-ENV", NamespaceSOAP)

	header := root.CreateElement("SOAP-ENV:Header")
	uwvh := header.CreateElement("uwvh:UwvMLHeader")
	uwvh.CreateAttr("xmlns:uwvh", NamespaceHeader)

	// Routing.
	route := uwvh.CreateElement("RouteInformatie")
	bron := route.CreateElement("Bron")
	sender := strings.TrimSpace(params.Sender)
	if sender == "" {
		sender = b.Header.SourceApplication
	}
	bron.CreateElement("ApplicatieNaam").SetText(sender)
	bron.CreateElement("DatTijdVersturenBericht").SetText(stamp)
	route.CreateElement("Bestemming").CreateElement("ApplicatieNaam").SetText(b.Header.DestinationApplication)
	route.CreateElement("GegevensUitwisselingsnr").SetText(env.ExchangeNr)
	if ref := strings.TrimSpace(b.Header.ExternalReference); ref != "" {
		route.CreateElement("RefnrGegevensUitwisselingsExtern").SetText(ref)
	}

	// Message identification.
	bi := uwvh.CreateElement("BerichtIdentificatie")
	bi.CreateElement("BerichtReferentienr").SetText(env.MessageRef)
	bt := bi.CreateElement("BerichtType")
	bt.CreateElement("BerichtNaam").SetText(b.Header.MessageName)
	bt.CreateElement("VersieMajor").SetText(b.Header.VersionMajor)
	bt.CreateElement("VersieMinor").SetText(b.Header.VersionMinor)
	bt.CreateElement("Buildnr").SetText(b.Header.BuildNr)
	bt.CreateElement("CommunicatieType").SetText(b.Header.CommunicationType)
	bt.CreateElement("CommunicatieElement").SetText(b.Header.CommunicationElement)
	bi.CreateElement("DatTijdAanmaakBericht").SetText(stamp)
	bi.CreateElement("IndTestbericht").SetText(b.Header.TestMessage)

	// Transaction. Every envelope is self-contained.
	tr := uwvh.CreateElement("Transactie")
	tr.CreateElement("TransactieReferentienr").SetText(env.TransactionRef)
	tr.CreateElement("Volgordenr").SetText("1")
	tr.CreateElement("IndLaatsteBericht").SetText("1")

	body := root.CreateElement("SOAP-ENV:Body")
	for i, m := range messages {
		if m == nil || m.Element == nil {
			return nil, fmt.Errorf("failed to build envelope: message %d has no body", i+1)
		}
		body.AddChild(m.Element.Copy())
	}

	env.Root = root
	return env, nil
}

// shortID returns eight hex characters: random, or derived from the
// timestamp, seed and purpose in deterministic mode.
func (b *EnvelopeBuilder) shortID(params EnvelopeParams, ts time.Time, purpose string) string {
	var id uuid.UUID
	if params.Deterministic() {
		name := strings.Join([]string{ts.Format(time.RFC3339Nano), params.Seed, purpose}, "|")
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	} else {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

var testerInvalid = regexp.MustCompile(`[^0-9A-Za-z_\-.]`)

// MessageReference composes BerichtReferentienr from the tester name
// (whitespace removed, at most 30 characters) and the UTC timestamp.
func MessageReference(tester string, ts time.Time) string {
	name := testerInvalid.ReplaceAllString(strings.Join(strings.Fields(tester), ""), "")
	if name == "" {
		name = "tester"
	}
	return truncate(truncate(name, maxTesterLength)+"_"+ts.UTC().Format(compactLayout), maxReferenceLength)
}
