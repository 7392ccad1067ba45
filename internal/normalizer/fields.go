package normalizer

// Field is a canonical domain field name.
type Field string

// Canonical fields. The string value doubles as the default alias token
// source: it is tokenized the same way headers are.
const (
	// Control
	FieldCdBerichtType        Field = "CdBerichtType"
	FieldIndAlleenControleUzs Field = "IndAlleenControleUzs"

	// Ketenpartij (sender/filer)
	FieldLoonheffingennummer           Field = "Loonheffingennummer"
	FieldIndienerNaam                  Field = "IndienerNaam"
	FieldCdRolKetenpartij              Field = "CdRolKetenpartij"
	FieldCdSrtIndiener                 Field = "CdSrtIndiener"
	FieldNaamSoftwarePakket            Field = "NaamSoftwarePakket"
	FieldVersieSoftwarePakket          Field = "VersieSoftwarePakket"
	FieldBerichtkenmerkIndiener        Field = "BerichtkenmerkIndiener"
	FieldKpVolgNr                      Field = "Kp_VolgNr"
	FieldKpNaamContactpersoon          Field = "Kp_NaamContactpersoon"
	FieldKpTelefoonnrContactpersoonAfd Field = "Kp_TelefoonnrContactpersoonAfd"

	// NatuurlijkPersoon
	FieldBSN                  Field = "BSN"
	FieldGeboortedatum        Field = "Geboortedatum"
	FieldIndOverlijden        Field = "IndOverlijden"
	FieldGeslacht             Field = "Geslacht"
	FieldEersteVoornaam       Field = "EersteVoornaam"
	FieldVoorletters          Field = "Voorletters"
	FieldVoorvoegsel          Field = "Voorvoegsel"
	FieldAchternaam           Field = "Achternaam"
	FieldNaam                 Field = "Naam"
	FieldTelefoonnr           Field = "Telefoonnr"
	FieldTelefoonnrMobiel     Field = "TelefoonnrMobiel"
	FieldTelefoonnrBuitenland Field = "TelefoonnrBuitenland"

	// Contactgegevens
	FieldContactNaamContactpersoonAfd       Field = "Contact_NaamContactpersoonAfd"
	FieldContactGeslacht                    Field = "Contact_Geslacht"
	FieldContactTelefoonnrContactpersoonAfd Field = "Contact_TelefoonnrContactpersoonAfd"
	FieldContactNrLokaleVestiging           Field = "Contact_NrLokaleVestiging"
	FieldContactEMailAdres                  Field = "Contact_EMailAdres"

	// MeldingZiekte
	FieldIndVerzoekTotIntrekken          Field = "IndVerzoekTotIntrekken"
	FieldReferentieMelding               Field = "ReferentieMelding"
	FieldDatTijdOpstellenMelding         Field = "DatTijdOpstellenMelding"
	FieldDatOntvangstMeldingWerkgever    Field = "DatOntvangstMeldingWerkgever"
	FieldDatEersteAoDag                  Field = "DatEersteAoDag"
	FieldToelichtingMelding              Field = "ToelichtingMelding"
	FieldIndWerkverplichtingEersteAoDag  Field = "IndWerkverplichtingEersteAoDag"
	FieldIndDirecteUitkering             Field = "IndDirecteUitkering"
	FieldCdRedenAangifteAo               Field = "CdRedenAangifteAo"
	FieldCdRedenZiekmelding              Field = "CdRedenZiekmelding"
	FieldAantGewerkteUrenEersteAoDag     Field = "AantGewerkteUrenEersteAoDag"
	FieldAantRoosterurenEersteAoDag      Field = "AantRoosterurenEersteAoDag"
	FieldIndWerkdagOpZaterdag            Field = "IndWerkdagOpZaterdag"
	FieldIndWerkdagOpZondag              Field = "IndWerkdagOpZondag"
	FieldBedrSvLoonGedWerkenEersteAoDag  Field = "BedrSvLoonGedWerkenEersteAoDag"
	FieldCdRedenRegres                   Field = "CdRedenRegres"
	FieldOmsRedenTeLateAanvraagUitkering Field = "OmsRedenTeLateAanvraagUitkering"
	FieldGemiddeldAantWerkurenPerWeek    Field = "GemiddeldAantWerkurenPerWeek"
	FieldIndEDnstvrbndCtrTijdensZiekte   Field = "IndEDnstvrbndCtrTijdensZiekte"

	// AdministratieveEenheid
	FieldAENaam                        Field = "AE_Naam"
	FieldBankrekeningnr                Field = "Bankrekeningnr"
	FieldBIC                           Field = "BIC"
	FieldIBAN                          Field = "IBAN"
	FieldCdRisicopremiegroep           Field = "CdRisicopremiegroep"
	FieldCdSectorOsv                   Field = "CdSectorOsv"
	FieldVolgnr                        Field = "Volgnr"
	FieldIndLoonheffingskorting        Field = "IndLoonheffingskorting"
	FieldPersoneelsnr                  Field = "Personeelsnr"
	FieldNaamBeroepOngecodeerd         Field = "NaamBeroepOngecodeerd"
	FieldCdAardArbv                    Field = "CdAardArbv"
	FieldCdLbtabel                     Field = "CdLbtabel"
	FieldDatB                          Field = "DatB"
	FieldAantLoonwachtdagen            Field = "AantLoonwachtdagen"
	FieldPercLoondoorbetalingTijdensAo Field = "PercLoondoorbetalingTijdensAo"
	FieldIndArbeidsgehandicapt         Field = "IndArbeidsgehandicapt"
)

// aliases maps every canonical field to the header tokens it accepts, in
// probe order. Tokens are lower-case alphanumerics (see Token).
var aliases = map[Field][]string{
	FieldCdBerichtType:        {"cdberichttype", "aanvraagtype", "type", "berichttype"},
	FieldIndAlleenControleUzs: {"indalleencontroleuzs"},

	FieldLoonheffingennummer:           {"loonheffingennummer", "loonheffingennr", "loonheffingsnummer", "lhnr"},
	FieldIndienerNaam:                  {"indienernaam", "naamindiener"},
	FieldCdRolKetenpartij:              {"cdrolketenpartij"},
	FieldCdSrtIndiener:                 {"cdsrtindiener"},
	FieldNaamSoftwarePakket:            {"naamsoftwarepakket"},
	FieldVersieSoftwarePakket:          {"versiesoftwarepakket"},
	FieldBerichtkenmerkIndiener:        {"berichtkenmerkindiener"},
	FieldKpVolgNr:                      {"kpvolgnr", "volgnrketenpartij"},
	FieldKpNaamContactpersoon:          {"kpnaamcontactpersoon", "kpnaamcontactpersoonafd"},
	FieldKpTelefoonnrContactpersoonAfd: {"kptelefoonnrcontactpersoonafd", "kptelefoonnrcontactpersoon"},

	FieldBSN:                  {"bsn", "burgerservicenr", "burgerservicenummer", "sofinummer"},
	FieldGeboortedatum:        {"geboortedatum", "geboortedat", "gebdatum", "dateofbirth"},
	FieldIndOverlijden:        {"indoverlijden"},
	FieldGeslacht:             {"geslacht", "gender"},
	FieldEersteVoornaam:       {"eerstevoornaam", "voornaam", "firstname"},
	FieldVoorletters:          {"voorletters", "initialen", "initials"},
	FieldVoorvoegsel:          {"voorvoegsel", "tussenvoegsel", "voorvoegsels"},
	FieldAchternaam:           {"achternaam", "significantdeelvandeachternaam", "lastname", "surname"},
	FieldNaam:                 {"naam", "name", "volledigenaam", "fullname"},
	FieldTelefoonnr:           {"telefoonnr", "telefoonnummer", "telefoon"},
	FieldTelefoonnrMobiel:     {"telefoonnrmobiel", "mobiel", "mobielnummer"},
	FieldTelefoonnrBuitenland: {"telefoonnrbuitenland"},

	FieldContactNaamContactpersoonAfd:       {"contactnaamcontactpersoonafd", "naamcontactpersoonafd"},
	FieldContactGeslacht:                    {"contactgeslacht"},
	FieldContactTelefoonnrContactpersoonAfd: {"contacttelefoonnrcontactpersoonafd", "telefoonnrcontactpersoonafd"},
	FieldContactNrLokaleVestiging:           {"contactnrlokalevestiging", "nrlokalevestiging"},
	FieldContactEMailAdres:                  {"contactemailadres", "emailadres", "email"},

	FieldIndVerzoekTotIntrekken:          {"indverzoektotintrekken"},
	FieldReferentieMelding:               {"referentiemelding"},
	FieldDatTijdOpstellenMelding:         {"dattijdopstellenmelding"},
	FieldDatOntvangstMeldingWerkgever:    {"datontvangstmeldingwerkgever"},
	FieldDatEersteAoDag:                  {"dateersteaodag", "eersteaodag", "eersteziektedag", "datumeersteziektedag"},
	FieldToelichtingMelding:              {"toelichtingmelding", "toelichting"},
	FieldIndWerkverplichtingEersteAoDag:  {"indwerkverplichtingeersteaodag"},
	FieldIndDirecteUitkering:             {"inddirecteuitkering"},
	FieldCdRedenAangifteAo:               {"cdredenaangifteao"},
	FieldCdRedenZiekmelding:              {"cdredenziekmelding", "redenziekmelding"},
	FieldAantGewerkteUrenEersteAoDag:     {"aantgewerkteureneersteaodag"},
	FieldAantRoosterurenEersteAoDag:      {"aantroosterureneersteaodag"},
	FieldIndWerkdagOpZaterdag:            {"indwerkdagopzaterdag"},
	FieldIndWerkdagOpZondag:              {"indwerkdagopzondag"},
	FieldBedrSvLoonGedWerkenEersteAoDag:  {"bedrsvloongedwerkeneersteaodag"},
	FieldCdRedenRegres:                   {"cdredenregres"},
	FieldOmsRedenTeLateAanvraagUitkering: {"omsredentelateaanvraaguitkering"},
	FieldGemiddeldAantWerkurenPerWeek:    {"gemiddeldaantwerkurenperweek"},
	FieldIndEDnstvrbndCtrTijdensZiekte:   {"indednstvrbndctrtijdensziekte"},

	FieldAENaam:                        {"aenaam", "naamadministratieveeenheid"},
	FieldBankrekeningnr:                {"bankrekeningnr", "bankrekeningnummer"},
	FieldBIC:                           {"bic", "biccode"},
	FieldIBAN:                          {"iban", "rekeningnummeriban", "ibanrekeningnummer"},
	FieldCdRisicopremiegroep:           {"cdrisicopremiegroep"},
	FieldCdSectorOsv:                   {"cdsectorosv"},
	FieldVolgnr:                        {"volgnr", "volgnrarbeidsverhouding"},
	FieldIndLoonheffingskorting:        {"indloonheffingskorting"},
	FieldPersoneelsnr:                  {"personeelsnr", "personeelsnummer"},
	FieldNaamBeroepOngecodeerd:         {"naamberoepongecodeerd", "beroep"},
	FieldCdAardArbv:                    {"cdaardarbv"},
	FieldCdLbtabel:                     {"cdlbtabel"},
	FieldDatB:                          {"datb", "datumindienst", "datumaanvangarbeidsverhouding"},
	FieldAantLoonwachtdagen:            {"aantloonwachtdagen"},
	FieldPercLoondoorbetalingTijdensAo: {"percloondoorbetalingtijdensao"},
	FieldIndArbeidsgehandicapt:         {"indarbeidsgehandicapt"},
}

// fieldOrder fixes the probe and iteration order over canonical fields.
var fieldOrder = []Field{
	FieldCdBerichtType, FieldIndAlleenControleUzs,
	FieldLoonheffingennummer, FieldIndienerNaam, FieldCdRolKetenpartij, FieldCdSrtIndiener,
	FieldNaamSoftwarePakket, FieldVersieSoftwarePakket, FieldBerichtkenmerkIndiener, FieldKpVolgNr,
	FieldKpNaamContactpersoon, FieldKpTelefoonnrContactpersoonAfd,
	FieldBSN, FieldGeboortedatum, FieldIndOverlijden, FieldGeslacht, FieldEersteVoornaam,
	FieldVoorletters, FieldVoorvoegsel, FieldAchternaam, FieldNaam, FieldTelefoonnr,
	FieldTelefoonnrMobiel, FieldTelefoonnrBuitenland,
	FieldContactNaamContactpersoonAfd, FieldContactGeslacht, FieldContactTelefoonnrContactpersoonAfd,
	FieldContactNrLokaleVestiging, FieldContactEMailAdres,
	FieldIndVerzoekTotIntrekken, FieldReferentieMelding, FieldDatTijdOpstellenMelding,
	FieldDatOntvangstMeldingWerkgever, FieldDatEersteAoDag, FieldToelichtingMelding,
	FieldIndWerkverplichtingEersteAoDag, FieldIndDirecteUitkering, FieldCdRedenAangifteAo,
	FieldCdRedenZiekmelding, FieldAantGewerkteUrenEersteAoDag, FieldAantRoosterurenEersteAoDag,
	FieldIndWerkdagOpZaterdag, FieldIndWerkdagOpZondag, FieldBedrSvLoonGedWerkenEersteAoDag,
	FieldCdRedenRegres, FieldOmsRedenTeLateAanvraagUitkering, FieldGemiddeldAantWerkurenPerWeek,
	FieldIndEDnstvrbndCtrTijdensZiekte,
	FieldAENaam, FieldBankrekeningnr, FieldBIC, FieldIBAN, FieldCdRisicopremiegroep, FieldCdSectorOsv,
	FieldVolgnr, FieldIndLoonheffingskorting, FieldPersoneelsnr, FieldNaamBeroepOngecodeerd,
	FieldCdAardArbv, FieldCdLbtabel, FieldDatB, FieldAantLoonwachtdagen,
	FieldPercLoondoorbetalingTijdensAo, FieldIndArbeidsgehandicapt,
}

// dateFields are coerced while normalizing, keyed by their wire precision.
var dateFields = map[Field]bool{
	FieldGeboortedatum:                false,
	FieldDatOntvangstMeldingWerkgever: false,
	FieldDatEersteAoDag:               false,
	FieldDatB:                         false,
	FieldDatTijdOpstellenMelding:      true,
}

// identityFields decide whether a row is blank.
var identityFields = []Field{
	FieldBSN, FieldNaam, FieldEersteVoornaam, FieldVoorletters, FieldAchternaam,
	FieldLoonheffingennummer, FieldIBAN,
}

// Fields returns every canonical field in the fixed order.
func Fields() []Field {
	out := make([]Field, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// Aliases returns the accepted header tokens for a field.
func Aliases(f Field) []string {
	return append([]string(nil), aliases[f]...)
}

// indicatorFields carry the 1/2 yes/no convention.
var indicatorFields = map[Field]bool{
	FieldIndAlleenControleUzs:           true,
	FieldIndOverlijden:                  true,
	FieldIndVerzoekTotIntrekken:         true,
	FieldIndWerkverplichtingEersteAoDag: true,
	FieldIndDirecteUitkering:            true,
	FieldIndWerkdagOpZaterdag:           true,
	FieldIndWerkdagOpZondag:             true,
	FieldIndEDnstvrbndCtrTijdensZiekte:  true,
	FieldIndLoonheffingskorting:         true,
	FieldIndArbeidsgehandicapt:          true,
}

// IsIndicator reports whether f uses the 1/2 indicator convention.
func IsIndicator(f Field) bool {
	return indicatorFields[f]
}

// IsDate reports whether f is a date field and whether it carries a time.
func IsDate(f Field) (isDate, withTime bool) {
	withTime, isDate = dateFields[f]
	return isDate, withTime
}
