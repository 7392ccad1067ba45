// =============================================================================
// UWV Sickness Notification XML Generator - Message Body Builder
// =============================================================================
//
// This module builds one UwvZwMeldingInternBody element per canonical record.
//
// XML STRUCTURE:
//
//   <UwvZwMeldingInternBody xmlns="...UwvZwMeldingInternBody-v0428">
//     <CdBerichtType>ZBM</CdBerichtType>
//     <IndAlleenControleUzs>2</IndAlleenControleUzs>
//     <Ketenpartij>...<Contactgegevens/></Ketenpartij>
//     <NatuurlijkPersoon>...</NatuurlijkPersoon>
//     <Contactgegevens>...</Contactgegevens>
//     <MeldingZiekte>...</MeldingZiekte>
//     <AdministratieveEenheid>
//       ...<Bankrekening/><SectorRisicogroep/><Arbeidsverhouding/>
//     </AdministratieveEenheid>
//     <Extension_Column>...</Extension_Column>   <!-- unrecognized columns -->
//   </UwvZwMeldingInternBody>
//
// EMISSION RULES:
//   - Containers are always emitted, even when empty
//   - Optional leaves are emitted only when the trimmed value is non-empty
//   - Required leaves fall back to the configured defaults
//   - Date leaves that cannot be coerced are omitted
//   - Indicator leaves are normalized to 1/2
//
// =============================================================================

package xmlwriter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/uwv-zw-xml/internal/coerce"
	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
)

// =============================================================================
// NAMESPACES AND CODES
// =============================================================================

const (
	// NamespaceSOAP is the SOAP 1.1 envelope namespace (prefix SOAP-ENV).
	NamespaceSOAP = "http://schemas.xmlsoap.org/soap/envelope/"

	// NamespaceHeader is the UwvML header namespace (prefix uwvh).
	NamespaceHeader = "http://schemas.uwv.nl/UwvML/Header-v0202"

	// NamespaceBody is the default namespace of the message body.
	NamespaceBody = "http://schemas.uwv.nl/UwvML/Berichten/UwvZwMeldingInternBody-v0428"

	// BodyElement is the message body root tag.
	BodyElement = "UwvZwMeldingInternBody"
)

// Message-type codes.
const (
	TypeZBM  = "ZBM"
	TypeVM   = "VM"
	TypeOTP3 = "OTP3"

	// SenderDigipoort is the upload label that maps onto OTP3.
	SenderDigipoort = "Digipoort"
)

// =============================================================================
// BUILDER
// =============================================================================

// leafKind selects how a leaf value is rendered.
type leafKind int

const (
	kindText leafKind = iota
	kindDate
	kindDateTime
	kindIndicator
	kindReason
)

// leaf maps one canonical field onto one element.
type leaf struct {
	tag   string
	field normalizer.Field
	kind  leafKind
}

// BodyBuilder builds message bodies.
type BodyBuilder struct {
	// Namespace is declared as the default namespace of the body.
	Namespace string

	// Defaults fill required leaves the record leaves empty.
	Defaults config.BodyDefaults

	// Extensions enables emission of unrecognized columns.
	Extensions bool
}

// NewBodyBuilder creates a builder with the body namespace and the given
// defaults.
func NewBodyBuilder(defaults config.BodyDefaults, extensions bool) *BodyBuilder {
	return &BodyBuilder{
		Namespace:  NamespaceBody,
		Defaults:   defaults,
		Extensions: extensions,
	}
}

// Message is a built body with the data needed to name and wrap it.
type Message struct {
	// Element is the UwvZwMeldingInternBody element.
	Element *etree.Element

	// Type is the message-type code written into CdBerichtType.
	Type string

	// Row is the source sheet row.
	Row int

	// BSN identifies the person for file naming.
	BSN string
}

// Build creates the body for rec with an already resolved message-type code.
func (b *BodyBuilder) Build(rec *normalizer.Record, messageType string) (*Message, error) {
	if rec == nil {
		return nil, fmt.Errorf("failed to build body: nil record")
	}
	if strings.TrimSpace(messageType) == "" {
		return nil, fmt.Errorf("failed to build body: empty message type")
	}

	root := etree.NewElement(BodyElement)
	root.CreateAttr("xmlns", b.Namespace)

	root.CreateElement("CdBerichtType").SetText(messageType)
	b.required(root, "IndAlleenControleUzs", coerce.Indicator(rec.Get(normalizer.FieldIndAlleenControleUzs)), b.Defaults.IndAlleenControleUzs)

	b.ketenpartij(root, rec)
	b.emit(root.CreateElement("NatuurlijkPersoon"), rec, natuurlijkPersoon)
	b.emit(root.CreateElement("Contactgegevens"), rec, contactgegevens)
	b.emit(root.CreateElement("MeldingZiekte"), rec, meldingZiekte)
	b.administratieveEenheid(root, rec)

	if b.Extensions {
		for _, e := range rec.Extras {
			v := strings.TrimSpace(e.Value)
			if v == "" {
				continue
			}
			root.CreateElement(SanitizeTag(e.Key)).SetText(v)
		}
	}

	return &Message{
		Element: root,
		Type:    messageType,
		Row:     rec.Row,
		BSN:     rec.Get(normalizer.FieldBSN),
	}, nil
}

// ketenpartij writes the sender/filer block. The payroll tax number fills
// both FiscaalNr (first nine characters) and Loonheffingennr (in full).
func (b *BodyBuilder) ketenpartij(root *etree.Element, rec *normalizer.Record) {
	kp := root.CreateElement("Ketenpartij")

	if lhn := rec.Get(normalizer.FieldLoonheffingennummer); lhn != "" {
		kp.CreateElement("FiscaalNr").SetText(truncate(lhn, 9))
		kp.CreateElement("Loonheffingennr").SetText(lhn)
	}
	optional(kp, "Naam", rec.Get(normalizer.FieldIndienerNaam))
	b.required(kp, "CdRolKetenpartij", rec.Get(normalizer.FieldCdRolKetenpartij), b.Defaults.CdRolKetenpartij)
	b.required(kp, "CdSrtIndiener", rec.Get(normalizer.FieldCdSrtIndiener), b.Defaults.CdSrtIndiener)
	b.required(kp, "NaamSoftwarePakket", rec.Get(normalizer.FieldNaamSoftwarePakket), b.Defaults.NaamSoftwarePakket)
	b.required(kp, "VersieSoftwarePakket", rec.Get(normalizer.FieldVersieSoftwarePakket), b.Defaults.VersieSoftwarePakket)
	optional(kp, "BerichtkenmerkIndiener", rec.Get(normalizer.FieldBerichtkenmerkIndiener))
	b.required(kp, "VolgNr", rec.Get(normalizer.FieldKpVolgNr), b.Defaults.VolgNr)

	b.emit(kp.CreateElement("Contactgegevens"), rec, ketenpartijContact)
}

// administratieveEenheid writes the employer block with its three
// nested containers.
func (b *BodyBuilder) administratieveEenheid(root *etree.Element, rec *normalizer.Record) {
	ae := root.CreateElement("AdministratieveEenheid")
	optional(ae, "Loonheffingennr", rec.Get(normalizer.FieldLoonheffingennummer))
	optional(ae, "Naam", rec.Get(normalizer.FieldAENaam))
	b.emit(ae.CreateElement("Bankrekening"), rec, bankrekening)
	b.emit(ae.CreateElement("SectorRisicogroep"), rec, sectorRisicogroep)
	b.emit(ae.CreateElement("Arbeidsverhouding"), rec, arbeidsverhouding)
}

// emit writes the non-empty leaves of a layout under parent.
func (b *BodyBuilder) emit(parent *etree.Element, rec *normalizer.Record, layout []leaf) {
	for _, l := range layout {
		raw := strings.TrimSpace(rec.Get(l.field))
		if raw == "" {
			continue
		}
		v, ok := render(raw, l.kind)
		if !ok {
			continue
		}
		parent.CreateElement(l.tag).SetText(v)
	}
}

// required writes a leaf, falling back to def when value is blank.
func (b *BodyBuilder) required(parent *etree.Element, tag, value, def string) {
	v := strings.TrimSpace(value)
	if v == "" {
		v = def
	}
	parent.CreateElement(tag).SetText(v)
}

func optional(parent *etree.Element, tag, value string) {
	if v := strings.TrimSpace(value); v != "" {
		parent.CreateElement(tag).SetText(v)
	}
}

func render(v string, kind leafKind) (string, bool) {
	switch kind {
	case kindDate:
		return coerce.DateString(v, coerce.DateOnly, coerce.Epoch1900)
	case kindDateTime:
		return coerce.DateString(v, coerce.DateTime, coerce.Epoch1900)
	case kindIndicator:
		return coerce.Indicator(v), true
	case kindReason:
		return coerce.ReasonCode(v), true
	}
	return v, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// =============================================================================
// MESSAGE TYPE RESOLUTION
// =============================================================================

// ResolveMessageType returns the code a record asks for and whether the
// record carried one at all. A Digipoort label maps to OTP3; anything else
// is used verbatim; no value defaults to ZBM.
func ResolveMessageType(rec *normalizer.Record) (string, bool) {
	explicit := strings.TrimSpace(rec.Get(normalizer.FieldCdBerichtType))
	if explicit == "" {
		return TypeZBM, false
	}
	if strings.EqualFold(explicit, SenderDigipoort) {
		return TypeOTP3, true
	}
	return explicit, true
}

// SenderType maps an upload selection label to a message-type code.
func SenderType(sender string) string {
	switch strings.ToUpper(strings.TrimSpace(sender)) {
	case strings.ToUpper(SenderDigipoort), TypeOTP3:
		return TypeOTP3
	case TypeVM:
		return TypeVM
	case TypeZBM:
		return TypeZBM
	}
	return ""
}

// FriendlyType is the lower-case type name used in file names.
func FriendlyType(code string) string {
	switch strings.ToUpper(code) {
	case TypeOTP3:
		return "digipoort"
	case TypeZBM:
		return "zbm"
	case TypeVM:
		return "vm"
	}
	return strings.ToLower(code)
}

// =============================================================================
// EXTENSION TAGS
// =============================================================================

var (
	tagSeparators = regexp.MustCompile(`[\s/]+`)
	tagInvalid    = regexp.MustCompile(`[^0-9A-Za-z_\-.]`)
	tagBadStart   = regexp.MustCompile(`^[0-9\-.]`)
)

// SanitizeTag turns a spreadsheet header into a usable element name.
// Colons are dropped so the name never introduces an undeclared prefix.
func SanitizeTag(key string) string {
	t := strings.TrimSpace(key)
	t = tagSeparators.ReplaceAllString(t, "_")
	t = tagInvalid.ReplaceAllString(t, "")
	if t == "" {
		return "Field"
	}
	if tagBadStart.MatchString(t) {
		t = "F_" + t
	}
	return t
}

// =============================================================================
// LAYOUTS
// =============================================================================

var ketenpartijContact = []leaf{
	{"NaamContactpersoonAfd", normalizer.FieldKpNaamContactpersoon, kindText},
	{"TelefoonnrContactpersoonAfd", normalizer.FieldKpTelefoonnrContactpersoonAfd, kindText},
}

var natuurlijkPersoon = []leaf{
	{"Burgerservicenr", normalizer.FieldBSN, kindText},
	{"Geboortedat", normalizer.FieldGeboortedatum, kindDate},
	{"IndOverlijden", normalizer.FieldIndOverlijden, kindIndicator},
	{"Geslacht", normalizer.FieldGeslacht, kindText},
	{"EersteVoornaam", normalizer.FieldEersteVoornaam, kindText},
	{"Voorletters", normalizer.FieldVoorletters, kindText},
	{"Voorvoegsel", normalizer.FieldVoorvoegsel, kindText},
	{"SignificantDeelVanDeAchternaam", normalizer.FieldAchternaam, kindText},
	{"Telefoonnr", normalizer.FieldTelefoonnr, kindText},
	{"TelefoonnrMobiel", normalizer.FieldTelefoonnrMobiel, kindText},
	{"TelefoonnrBuitenland", normalizer.FieldTelefoonnrBuitenland, kindText},
}

var contactgegevens = []leaf{
	{"NaamContactpersoonAfd", normalizer.FieldContactNaamContactpersoonAfd, kindText},
	{"Geslacht", normalizer.FieldContactGeslacht, kindText},
	{"TelefoonnrContactpersoonAfd", normalizer.FieldContactTelefoonnrContactpersoonAfd, kindText},
	{"NrLokaleVestiging", normalizer.FieldContactNrLokaleVestiging, kindText},
	{"EMailAdres", normalizer.FieldContactEMailAdres, kindText},
}

var meldingZiekte = []leaf{
	{"IndVerzoekTotIntrekken", normalizer.FieldIndVerzoekTotIntrekken, kindIndicator},
	{"ReferentieMelding", normalizer.FieldReferentieMelding, kindText},
	{"DatTijdOpstellenMelding", normalizer.FieldDatTijdOpstellenMelding, kindDateTime},
	{"DatOntvangstMeldingWerkgever", normalizer.FieldDatOntvangstMeldingWerkgever, kindDate},
	{"DatEersteAoDag", normalizer.FieldDatEersteAoDag, kindDate},
	{"ToelichtingMelding", normalizer.FieldToelichtingMelding, kindText},
	{"IndWerkverplichtingEersteAoDag", normalizer.FieldIndWerkverplichtingEersteAoDag, kindIndicator},
	{"IndDirecteUitkering", normalizer.FieldIndDirecteUitkering, kindIndicator},
	{"CdRedenAangifteAo", normalizer.FieldCdRedenAangifteAo, kindText},
	{"CdRedenZiekmelding", normalizer.FieldCdRedenZiekmelding, kindReason},
	{"AantGewerkteUrenEersteAoDag", normalizer.FieldAantGewerkteUrenEersteAoDag, kindText},
	{"AantRoosterurenEersteAoDag", normalizer.FieldAantRoosterurenEersteAoDag, kindText},
	{"IndWerkdagOpZaterdag", normalizer.FieldIndWerkdagOpZaterdag, kindIndicator},
	{"IndWerkdagOpZondag", normalizer.FieldIndWerkdagOpZondag, kindIndicator},
	{"BedrSvLoonGedWerkenEersteAoDag", normalizer.FieldBedrSvLoonGedWerkenEersteAoDag, kindText},
	{"CdRedenRegres", normalizer.FieldCdRedenRegres, kindText},
	{"OmsRedenTeLateAanvraagUitkering", normalizer.FieldOmsRedenTeLateAanvraagUitkering, kindText},
	{"GemiddeldAantWerkurenPerWeek", normalizer.FieldGemiddeldAantWerkurenPerWeek, kindText},
	{"IndEDnstvrbndCtrTijdensZiekte", normalizer.FieldIndEDnstvrbndCtrTijdensZiekte, kindIndicator},
}

var bankrekening = []leaf{
	{"Bankrekeningnr", normalizer.FieldBankrekeningnr, kindText},
	{"Bic", normalizer.FieldBIC, kindText},
	{"Iban", normalizer.FieldIBAN, kindText},
}

var sectorRisicogroep = []leaf{
	{"CdRisicopremiegroep", normalizer.FieldCdRisicopremiegroep, kindText},
	{"CdSectorOsv", normalizer.FieldCdSectorOsv, kindText},
}

var arbeidsverhouding = []leaf{
	{"Volgnr", normalizer.FieldVolgnr, kindText},
	{"IndLoonheffingskorting", normalizer.FieldIndLoonheffingskorting, kindIndicator},
	{"Personeelsnr", normalizer.FieldPersoneelsnr, kindText},
	{"NaamBeroepOngecodeerd", normalizer.FieldNaamBeroepOngecodeerd, kindText},
	{"CdAardArbv", normalizer.FieldCdAardArbv, kindText},
	{"CdLbtabel", normalizer.FieldCdLbtabel, kindText},
	{"DatB", normalizer.FieldDatB, kindDate},
	{"AantLoonwachtdagen", normalizer.FieldAantLoonwachtdagen, kindText},
	{"PercLoondoorbetalingTijdensAo", normalizer.FieldPercLoondoorbetalingTijdensAo, kindText},
	{"IndArbeidsgehandicapt", normalizer.FieldIndArbeidsgehandicapt, kindIndicator},
}
