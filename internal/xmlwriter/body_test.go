package xmlwriter

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
)

func testDefaults() config.BodyDefaults {
	return config.Default().Defaults
}

func testRecord(row int, kv map[normalizer.Field]string) *normalizer.Record {
	rec := normalizer.NewRecord(row)
	for k, v := range kv {
		rec.Set(k, v)
	}
	return rec
}

func fullRecord() *normalizer.Record {
	return testRecord(2, map[normalizer.Field]string{
		normalizer.FieldBSN:                 "123456789",
		normalizer.FieldNaam:                "Piet Jansen",
		normalizer.FieldEersteVoornaam:      "Piet",
		normalizer.FieldAchternaam:          "Jansen",
		normalizer.FieldGeboortedatum:       "1980-01-02",
		normalizer.FieldDatEersteAoDag:      "20240301",
		normalizer.FieldLoonheffingennummer: "123456789L01",
		normalizer.FieldIBAN:                "NL91ABNA0417164300",
	})
}

func childTags(el *etree.Element) []string {
	var tags []string
	for _, c := range el.ChildElements() {
		tags = append(tags, c.Tag)
	}
	return tags
}

func TestBuild_TopLevelOrder(t *testing.T) {
	msg, err := NewBodyBuilder(testDefaults(), true).Build(fullRecord(), TypeZBM)
	require.NoError(t, err)

	assert.Equal(t, BodyElement, msg.Element.Tag)
	assert.Equal(t, NamespaceBody, msg.Element.SelectAttrValue("xmlns", ""))

	want := []string{
		"CdBerichtType",
		"IndAlleenControleUzs",
		"Ketenpartij",
		"NatuurlijkPersoon",
		"Contactgegevens",
		"MeldingZiekte",
		"AdministratieveEenheid",
	}
	if diff := cmp.Diff(want, childTags(msg.Element)); diff != "" {
		t.Errorf("top-level order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "ZBM", msg.Element.FindElement("CdBerichtType").Text())
	assert.Equal(t, 2, msg.Row)
	assert.Equal(t, "123456789", msg.BSN)
}

func TestBuild_EmptyRecordUsesDefaults(t *testing.T) {
	msg, err := NewBodyBuilder(testDefaults(), true).Build(normalizer.NewRecord(4), TypeVM)
	require.NoError(t, err)

	kp := msg.Element.FindElement("Ketenpartij")
	require.NotNil(t, kp)
	assert.Equal(t, []string{
		"CdRolKetenpartij",
		"CdSrtIndiener",
		"NaamSoftwarePakket",
		"VersieSoftwarePakket",
		"VolgNr",
		"Contactgegevens",
	}, childTags(kp))
	assert.Equal(t, "01", kp.FindElement("CdRolKetenpartij").Text())
	assert.Equal(t, "WG", kp.FindElement("CdSrtIndiener").Text())
	assert.Equal(t, "Generated", kp.FindElement("NaamSoftwarePakket").Text())
	assert.Equal(t, "1.0", kp.FindElement("VersieSoftwarePakket").Text())
	assert.Equal(t, "1", kp.FindElement("VolgNr").Text())
	assert.Equal(t, "2", msg.Element.FindElement("IndAlleenControleUzs").Text())

	// Containers are present even when empty.
	for _, path := range []string{
		"NatuurlijkPersoon",
		"Contactgegevens",
		"MeldingZiekte",
		"AdministratieveEenheid/Bankrekening",
		"AdministratieveEenheid/SectorRisicogroep",
		"AdministratieveEenheid/Arbeidsverhouding",
	} {
		el := msg.Element.FindElement(path)
		require.NotNil(t, el, path)
		assert.Empty(t, el.ChildElements(), path)
	}
}

func TestBuild_PayrollNumberFillsBothLeaves(t *testing.T) {
	msg, err := NewBodyBuilder(testDefaults(), false).Build(fullRecord(), TypeZBM)
	require.NoError(t, err)

	assert.Equal(t, "123456789", msg.Element.FindElement("Ketenpartij/FiscaalNr").Text())
	assert.Equal(t, "123456789L01", msg.Element.FindElement("Ketenpartij/Loonheffingennr").Text())
	assert.Equal(t, "123456789L01", msg.Element.FindElement("AdministratieveEenheid/Loonheffingennr").Text())
}

func TestBuild_LeafFormatting(t *testing.T) {
	rec := fullRecord()
	rec.Set(normalizer.FieldIndDirecteUitkering, "Ja")
	rec.Set(normalizer.FieldIndWerkdagOpZaterdag, "nee")
	rec.Set(normalizer.FieldCdRedenZiekmelding, "3")
	rec.Set(normalizer.FieldDatTijdOpstellenMelding, "2024-03-01")
	rec.Set(normalizer.FieldDatOntvangstMeldingWerkgever, "geen datum")

	msg, err := NewBodyBuilder(testDefaults(), false).Build(rec, TypeZBM)
	require.NoError(t, err)

	mz := msg.Element.FindElement("MeldingZiekte")
	assert.Equal(t, "19800102", msg.Element.FindElement("NatuurlijkPersoon/Geboortedat").Text())
	assert.Equal(t, "1", mz.FindElement("IndDirecteUitkering").Text())
	assert.Equal(t, "2", mz.FindElement("IndWerkdagOpZaterdag").Text())
	assert.Equal(t, "03", mz.FindElement("CdRedenZiekmelding").Text())
	assert.Equal(t, "20240301000000", mz.FindElement("DatTijdOpstellenMelding").Text())
	assert.Nil(t, mz.FindElement("DatOntvangstMeldingWerkgever"))
	assert.Equal(t, "NL91ABNA0417164300", msg.Element.FindElement("AdministratieveEenheid/Bankrekening/Iban").Text())
}

func TestBuild_NormalizedDateTimeSurvives(t *testing.T) {
	tests := []struct {
		name string
		cell types.Cell
		want string
	}{
		{"iso text", types.TextCell("2024-03-01T10:15:00"), "20240301101500"},
		{"compact date", types.TextCell("20240301"), "20240301000000"},
		{"calendar cell", types.TimeCell(time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)), "20240301101500"},
		{"serial", types.NumberCell(45352.5), "20240301120000"},
	}

	headers := []string{"BSN", "Naam", "DatEersteAoDag", "DatTijdOpstellenMelding"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := types.NewRawRecord(2, headers, []types.Cell{
				types.TextCell("123456789"),
				types.TextCell("Piet Jansen"),
				types.TextCell("20240301"),
				tt.cell,
			})
			rec := normalizer.New().Normalize(raw)

			msg, err := NewBodyBuilder(testDefaults(), false).Build(rec, TypeZBM)
			require.NoError(t, err)

			leaf := msg.Element.FindElement("MeldingZiekte/DatTijdOpstellenMelding")
			require.NotNil(t, leaf)
			assert.Equal(t, tt.want, leaf.Text())
		})
	}
}

func TestBuild_PersonOrder(t *testing.T) {
	rec := fullRecord()
	rec.Set(normalizer.FieldVoorletters, "P.")
	rec.Set(normalizer.FieldGeslacht, "1")

	msg, err := NewBodyBuilder(testDefaults(), false).Build(rec, TypeZBM)
	require.NoError(t, err)

	want := []string{"Burgerservicenr", "Geboortedat", "Geslacht", "EersteVoornaam", "Voorletters", "SignificantDeelVanDeAchternaam"}
	if diff := cmp.Diff(want, childTags(msg.Element.FindElement("NatuurlijkPersoon"))); diff != "" {
		t.Errorf("person order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ExtensionFields(t *testing.T) {
	rec := fullRecord()
	rec.Extras = []normalizer.Extra{
		{Key: "Mijn Kolom/2", Value: "x"},
		{Key: "1abc", Value: "y"},
		{Key: "leeg", Value: "  "},
	}

	msg, err := NewBodyBuilder(testDefaults(), true).Build(rec, TypeZBM)
	require.NoError(t, err)
	tags := childTags(msg.Element)
	assert.Equal(t, []string{"Mijn_Kolom_2", "F_1abc"}, tags[len(tags)-2:])
	assert.Nil(t, msg.Element.FindElement("leeg"))

	msg, err = NewBodyBuilder(testDefaults(), false).Build(rec, TypeZBM)
	require.NoError(t, err)
	tags = childTags(msg.Element)
	assert.Len(t, tags, 7)
	assert.Equal(t, "AdministratieveEenheid", tags[6])
}

func TestBuild_Errors(t *testing.T) {
	b := NewBodyBuilder(testDefaults(), true)

	_, err := b.Build(nil, TypeZBM)
	assert.Error(t, err)

	_, err = b.Build(fullRecord(), " ")
	assert.Error(t, err)
}

func TestBuild_Idempotent(t *testing.T) {
	b := NewBodyBuilder(testDefaults(), true)
	rec := fullRecord()
	rec.Extras = []normalizer.Extra{{Key: "Notitie", Value: "n"}}

	first, err := b.Build(rec, TypeZBM)
	require.NoError(t, err)
	second, err := b.Build(rec, TypeZBM)
	require.NoError(t, err)

	a, err := BodyBytes(first.Element)
	require.NoError(t, err)
	c, err := BodyBytes(second.Element)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(c))
}

func TestSanitizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Opmerking", "Opmerking"},
		{"  Extra veld ", "Extra_veld"},
		{"a/b c", "a_b_c"},
		{"prijs (€)", "prijs_"},
		{"2e contact", "F_2e_contact"},
		{"-x", "F_-x"},
		{".dot", "F_.dot"},
		{"ns:tag", "nstag"},
		{"###", "Field"},
		{"", "Field"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTag(tt.in))
		})
	}
}

func TestResolveMessageType(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		wantCode     string
		wantExplicit bool
	}{
		{"digipoort label", "Digipoort", TypeOTP3, true},
		{"digipoort lower case", "digipoort", TypeOTP3, true},
		{"zbm", "ZBM", TypeZBM, true},
		{"vm", "VM", TypeVM, true},
		{"verbatim", "XYZ", "XYZ", true},
		{"missing", "", TypeZBM, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord(2, map[normalizer.Field]string{normalizer.FieldCdBerichtType: tt.value})
			code, explicit := ResolveMessageType(rec)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExplicit, explicit)
		})
	}
}

func TestSenderAndFriendlyType(t *testing.T) {
	assert.Equal(t, TypeOTP3, SenderType("Digipoort"))
	assert.Equal(t, TypeOTP3, SenderType("otp3"))
	assert.Equal(t, TypeVM, SenderType(" vm "))
	assert.Equal(t, TypeZBM, SenderType("ZBM"))
	assert.Equal(t, "", SenderType("anders"))

	assert.Equal(t, "digipoort", FriendlyType(TypeOTP3))
	assert.Equal(t, "zbm", FriendlyType(TypeZBM))
	assert.Equal(t, "vm", FriendlyType("vm"))
	assert.Equal(t, "xyz", FriendlyType("XYZ"))
}
