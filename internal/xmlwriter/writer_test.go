package xmlwriter

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/schema"
)

const testSchema = "../schema/testdata/body.xsd"

func TestRoundTrip_ExtractedBodyValidates(t *testing.T) {
	v := schema.New(testSchema)
	defer v.Close()
	require.NoError(t, v.Load())

	msgs := buildMessages(t, 1)
	direct, err := BodyBytes(msgs[0].Element)
	require.NoError(t, err)
	ok, errs := v.Validate(direct)
	require.True(t, ok, "%v", errs)

	ts := fixedTime(t)
	env, err := NewEnvelopeBuilder(config.Default().Header).Build(msgs, EnvelopeParams{FixedTime: &ts})
	require.NoError(t, err)
	data, err := env.Bytes()
	require.NoError(t, err)

	extracted, err := ExtractFirstBody(data)
	require.NoError(t, err)
	assert.Equal(t, string(direct), string(extracted))

	ok, errs = v.Validate(extracted)
	assert.True(t, ok, "%v", errs)
}

func TestExtractBodies_Bulk(t *testing.T) {
	ts := fixedTime(t)
	env, err := NewEnvelopeBuilder(config.Default().Header).Build(buildMessages(t, 3), EnvelopeParams{FixedTime: &ts})
	require.NoError(t, err)
	data, err := env.Bytes()
	require.NoError(t, err)

	bodies, err := ExtractBodies(data)
	require.NoError(t, err)
	require.Len(t, bodies, 3)
	for _, b := range bodies {
		assert.Nil(t, b.Parent())
		assert.Equal(t, NamespaceBody, b.NamespaceURI())
	}
}

func TestExtractBodies_BareBody(t *testing.T) {
	msgs := buildMessages(t, 1)
	data, err := BodyBytes(msgs[0].Element)
	require.NoError(t, err)

	bodies, err := ExtractBodies(data)
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.Equal(t, "ZBM", bodies[0].FindElement("CdBerichtType").Text())
}

func TestExtractBodies_InheritedNamespaceIsDeclared(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" xmlns:b="` + NamespaceBody + `">
  <s:Body>
    <b:UwvZwMeldingInternBody><b:CdBerichtType>VM</b:CdBerichtType></b:UwvZwMeldingInternBody>
  </s:Body>
</s:Envelope>`)

	bodies, err := ExtractBodies(data)
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.Equal(t, NamespaceBody, bodies[0].SelectAttrValue("xmlns:b", ""))

	out, err := BodyBytes(bodies[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `<b:UwvZwMeldingInternBody xmlns:b="`+NamespaceBody+`">`)
}

func TestExtractBodies_Errors(t *testing.T) {
	_, err := ExtractBodies([]byte(`<Envelope><Body/></Envelope>`))
	assert.ErrorIs(t, err, ErrNoBody)

	_, err = ExtractFirstBody([]byte("<<not xml"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoBody)
}

func TestSerialize_Options(t *testing.T) {
	el := etree.NewElement("a")
	el.CreateElement("b").SetText("x")

	opts := DefaultSerializeOptions()
	opts.IncludeXMLDeclaration = false
	opts.Indent = -1
	out, err := Serialize(el, opts)
	require.NoError(t, err)
	assert.Equal(t, "<a><b>x</b></a>", string(out))

	out, err = Serialize(el, DefaultSerializeOptions())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(out), "\n  <b>x</b>\n")

	_, err = Serialize(nil, opts)
	assert.Error(t, err)
}
