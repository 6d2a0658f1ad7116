package htmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title> Charcoal N Chill | Hookah Lounge </title>
  <meta name="description" content="Alpharetta's hookah lounge.">
  <script type="application/ld+json">
  {"@context":"https://schema.org","@graph":[
    {"@type":"BarOrPub","name":"Charcoal N Chill","telephone":"(470) 546-6965"},
    {"@type":"WebSite","url":"https://charcoalnchill.com"}
  ]}
  </script>
  <style>body { color: red; }</style>
</head>
<body>
  <h1>Charcoal N Chill</h1>
  <p>Charcoal N Chill is a hookah lounge in Alpharetta, GA.</p>
  <script>var hidden = "do not index";</script>
  <div>Open daily <b>5pm</b> to 2am</div>
  <script type="application/ld+json">[{"@type":"FAQPage","mainEntity":[]}, {"broken": </script>
  <script type="application/ld+json">{not json}</script>
</body>
</html>`

func TestParse_ExtractsSignals(t *testing.T) {
	doc, err := Parse(strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "Charcoal N Chill | Hookah Lounge", doc.Title)
	assert.Equal(t, "Alpharetta's hookah lounge.", doc.MetaDescription)
	assert.Equal(t, "Charcoal N Chill", doc.H1)
	assert.Equal(t, []string{"Charcoal N Chill is a hookah lounge in Alpharetta, GA."}, doc.Paragraphs)
	assert.Contains(t, doc.VisibleText, "Open daily 5pm to 2am")
	assert.NotContains(t, doc.VisibleText, "do not index")
	assert.NotContains(t, doc.VisibleText, "color: red")
	assert.NotContains(t, doc.VisibleText, "Hookah Lounge |")
}

func TestParse_StructuredData(t *testing.T) {
	doc, err := Parse(strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.Equal(t, 3, doc.StructuredDataBlocks)
	assert.Equal(t, 2, doc.InvalidBlocks)
	require.Len(t, doc.StructuredData, 2)
	assert.True(t, HasType(doc.StructuredData[0], "BarOrPub"))
	assert.Equal(t, "(470) 546-6965", StringField(doc.StructuredData[0], "telephone"))
}

func TestParse_NoStructuredData(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<html><body><p>Welcome to our website.</p></body></html>`))
	require.NoError(t, err)

	assert.Zero(t, doc.StructuredDataBlocks)
	assert.Empty(t, doc.StructuredData)
	assert.Equal(t, "Welcome to our website.", doc.VisibleText)
	assert.Empty(t, doc.H1)
}

func TestEntityTypes(t *testing.T) {
	entity := map[string]any{"@type": []any{"Restaurant", 7, "http://schema.org/LocalBusiness"}}

	assert.Equal(t, []string{"Restaurant", "http://schema.org/LocalBusiness"}, EntityTypes(entity))
	assert.True(t, HasType(entity, "localbusiness"))
	assert.False(t, HasType(entity, "FAQPage"))
	assert.Nil(t, EntityTypes(map[string]any{}))
}

func TestStringFieldAndPresent(t *testing.T) {
	entity := map[string]any{
		"name":           "  Charcoal N Chill ",
		"acceptedAnswer": map[string]any{"@type": "Answer", "text": "Yes."},
		"image":          []any{"https://example.com/a.jpg"},
		"geo":            map[string]any{},
		"address":        "",
	}

	assert.Equal(t, "Charcoal N Chill", StringField(entity, "name"))
	assert.Equal(t, "Yes.", StringField(entity, "acceptedAnswer"))
	assert.Equal(t, "https://example.com/a.jpg", StringField(entity, "image"))
	assert.True(t, Present(entity, "image"))
	assert.False(t, Present(entity, "geo"))
	assert.False(t, Present(entity, "address"))
	assert.False(t, Present(entity, "missing"))
}
