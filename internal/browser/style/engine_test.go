package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

func sheet(origin parser.Origin, css string) *parser.Stylesheet {
	return parser.Parse([]byte(css), origin)
}

func colorOf(t *testing.T, m PropertyMap) parser.Color {
	t.Helper()
	c, ok := m.Color("color")
	require.True(t, ok, "color is not set")
	return c
}

// --- Tests for The Cascade Algorithm ---

func TestCascadeOriginPrecedence(t *testing.T) {
	sheets := []*parser.Stylesheet{
		sheet(parser.OriginUser, `* { color: green; }`),
		sheet(parser.OriginAuthor, `* { color: blue; }`),
		sheet(parser.OriginUserAgent, `* { color: yellow; }`),
	}
	doc := dom.NewDocument()
	text := doc.AppendText(doc.Root(), "")

	collected := Collect(sheets, doc, text)
	require.Len(t, collected.Rules, 3)

	m := collected.Cascade(doc)
	assert.Equal(t, parser.Color{R: 0, G: 0, B: 255, A: 255}, colorOf(t, m))
	assert.Len(t, m, 1, "untouched properties stay absent")
}

func TestCascadeIgnoresSpecificityWithinOrigin(t *testing.T) {
	doc, target := parseHTMLAndFind(t, `<p id="target" class="highlight">Test</p>`, "target")
	css := sheet(parser.OriginAuthor, `
		#target { color: red; }
		p.highlight { color: green; }
		p { color: blue; }
	`)

	collected := Collect([]*parser.Stylesheet{css}, doc, target)
	require.Len(t, collected.Rules, 3)
	assert.Equal(t, Specificity{IDs: 1}, collected.Rules[0].Specificity)

	// Stylesheet order: the last rule wins.
	assert.Equal(t, parser.Color{R: 0, G: 0, B: 255, A: 255}, colorOf(t, collected.Cascade(doc)))

	// With specificity ordering the id rule wins.
	assert.Equal(t, parser.Color{R: 255, G: 0, B: 0, A: 255}, colorOf(t, collected.CascadeBySpecificity(doc)))
}

func TestCascadeStyleAttributeAndHints(t *testing.T) {
	doc, err := dom.ParseString(`<html><body bgcolor="chucknorris" text="#00f" marginwidth="20" topmargin="5">
		<p id="p" style="color: purple; margin-left: 3px">x</p>
		<img id="img" width="120" height="50%">
	</body></html>`)
	require.NoError(t, err)

	author := sheet(parser.OriginAuthor, `p { color: red; margin-left: 10px } body { margin-bottom: 1px }`)
	user := sheet(parser.OriginUser, `body { background-color: white; margin-top: 99px }`)
	sheets := []*parser.Stylesheet{user, author}

	body := Collect(sheets, doc, doc.Body()).Cascade(doc)
	bg, ok := body.Color("background-color")
	require.True(t, ok)
	assert.Equal(t, parser.Color{R: 192, G: 0, B: 0, A: 255}, bg, "hints override user styles")
	assert.Equal(t, parser.Color{R: 0, G: 0, B: 255, A: 255}, colorOf(t, body))
	assert.Equal(t, "5px", body["margin-top"].Raw)
	assert.Equal(t, "20px", body["margin-left"].Raw)
	assert.Equal(t, "20px", body["margin-right"].Raw)
	assert.Equal(t, "1px", body["margin-bottom"].Raw, "author styles override hints")

	p := doc.ElementsByTag("p")[0]
	pm := Collect(sheets, doc, p).Cascade(doc)
	assert.Equal(t, parser.Color{R: 128, G: 0, B: 128, A: 255}, colorOf(t, pm))
	assert.Equal(t, "3px", pm["margin-left"].Raw)

	img := doc.ElementsByTag("img")[0]
	im := Collect(nil, doc, img).Cascade(doc)
	assert.Equal(t, "120px", im["width"].Raw)
	assert.Equal(t, "50%", im["height"].Raw)
}

func TestBodyMarginDefaultsTo8px(t *testing.T) {
	doc, err := dom.ParseString(`<body>x</body>`)
	require.NoError(t, err)
	m := Collect(nil, doc, doc.Body()).Cascade(doc)
	for _, side := range Sides {
		assert.Equal(t, "8px", m[marginProperty(side)].Raw, side.String())
	}
}

func marginProperty(s Side) parser.Property { return parser.Property("margin-" + s.String()) }

func TestParseLegacyColor(t *testing.T) {
	tests := []struct {
		in   string
		want parser.Color
		ok   bool
	}{
		{"red", parser.Color{R: 255, G: 0, B: 0, A: 255}, true},
		{"#0f0", parser.Color{R: 0, G: 255, B: 0, A: 255}, true},
		{"#00ff00", parser.Color{R: 0, G: 255, B: 0, A: 255}, true},
		{"00ff00", parser.Color{R: 0, G: 255, B: 0, A: 255}, true},
		{"chucknorris", parser.Color{R: 192, G: 0, B: 0, A: 255}, true},
		{"transparent", parser.Color{}, false},
		{"", parser.Color{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLegacyColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- Tests for inheritance and computed values ---

func TestComputeInheritance(t *testing.T) {
	sheets := []*parser.Stylesheet{
		sheet(parser.OriginUser, `* { color: green; display: block; }`),
		sheet(parser.OriginAuthor, `* { color: blue; }`),
		sheet(parser.OriginUserAgent, `* { color: yellow; }`),
	}
	doc := dom.NewDocument()
	div := doc.AppendElement(doc.Root(), "div")

	parent := Compute(Collect(sheets, doc, div), doc, nil)
	assert.Equal(t, parser.Color{R: 0, G: 0, B: 255, A: 255}, colorOf(t, parent))
	assert.True(t, parent["display"].IsKeyword("block"))

	child := Compute(CollectedStyles{Node: dom.NoNode}, doc, parent)
	assert.Equal(t, parser.Color{R: 0, G: 0, B: 255, A: 255}, colorOf(t, child))
	_, hasDisplay := child["display"]
	assert.False(t, hasDisplay, "display does not inherit")
}

func TestComputeResolvesKeywordsAndFontSize(t *testing.T) {
	doc, err := dom.ParseString(`<div id="outer"><p id="inner"><span id="leaf">x</span></p></div>`)
	require.NoError(t, err)
	css := sheet(parser.OriginAuthor, `
		#outer { font-size: 20px; font-weight: bold; border-top-color: red; padding-left: 4px }
		#inner { font-size: 1.5em; font-weight: bolder; padding-left: inherit; border-top-color: initial }
		#leaf { font-size: smaller; color: unset; line-height: 2 }
	`)
	sheets := []*parser.Stylesheet{css}
	byID := func(id string) dom.NodeID {
		for n := range doc.Descendants(doc.Root()) {
			if v, ok := doc.Attr(n, "id"); ok && v == id {
				return n
			}
		}
		return dom.NoNode
	}

	outer := Compute(Collect(sheets, doc, byID("outer")), doc, nil)
	assert.Equal(t, 20.0, outer.FontSize())
	assert.Equal(t, 700, outer.FontWeight())

	inner := Compute(Collect(sheets, doc, byID("inner")), doc, outer)
	assert.Equal(t, 30.0, inner.FontSize())
	assert.Equal(t, 900, inner.FontWeight())
	assert.Equal(t, "4px", inner["padding-left"].Raw)
	_, hasBorder := inner["border-top-color"]
	assert.False(t, hasBorder)

	leaf := Compute(Collect(sheets, doc, byID("leaf")), doc, inner)
	assert.InDelta(t, 25.0, leaf.FontSize(), 1e-9)
	assert.Equal(t, 900, leaf.FontWeight(), "inherited")
	assert.InDelta(t, 50.0, leaf.LineHeight(LengthContext{FontSize: leaf.FontSize()}), 1e-9)
	_, hasColor := leaf["color"]
	assert.False(t, hasColor)
}

func TestEngineUserAgentDefaults(t *testing.T) {
	doc, err := dom.ParseString(`<html><head><title>t</title></head><body><h1>Title</h1><p>x</p><span>s</span></body></html>`)
	require.NoError(t, err)
	engine := NewEngine(zaptest.NewLogger(t))

	html := engine.Compute(doc, doc.DocumentElement(), nil)
	d, _ := html.Display()
	assert.Equal(t, DisplayBlock, d)
	assert.Equal(t, 16.0, html.FontSize())
	assert.Equal(t, []string{"serif"}, html.FontFamilies())

	head := engine.Compute(doc, doc.Head(), html)
	d, _ = head.Display()
	assert.Equal(t, DisplayNone, d)

	body := engine.Compute(doc, doc.Body(), html)
	h1 := engine.Compute(doc, doc.ElementsByTag("h1")[0], body)
	assert.Equal(t, 32.0, h1.FontSize())
	assert.Equal(t, 700, h1.FontWeight())
	lc := engine.LengthContext(h1)
	assert.InDelta(t, 0.67*32, h1.Margin(Top, lc, 1000), 1e-9)

	span := engine.Compute(doc, doc.ElementsByTag("span")[0], body)
	d, kw := span.Display()
	assert.Equal(t, DisplayInline, d)
	assert.Equal(t, "inline", kw)
}

func TestDisplayDefaultsToBlock(t *testing.T) {
	doc, err := dom.ParseString(`<body><x-card>one</x-card><em>two</em></body>`)
	require.NoError(t, err)
	engine := NewEngine(zaptest.NewLogger(t))
	body := engine.Compute(doc, doc.Body(), nil)

	d, kw := engine.Compute(doc, doc.ElementsByTag("x-card")[0], body).Display()
	assert.Equal(t, DisplayBlock, d, "unknown elements are blocks")
	assert.Equal(t, "block", kw)

	d, _ = engine.Compute(doc, doc.ElementsByTag("em")[0], body).Display()
	assert.Equal(t, DisplayInline, d, "phrasing elements are inline through the user agent sheet")

	d, kw = PropertyMap{}.Display()
	assert.Equal(t, DisplayBlock, d)
	assert.Equal(t, "block", kw)
}

func TestEngineMediaAndFontFaces(t *testing.T) {
	doc, err := dom.ParseString(`<div id="d">x</div>`)
	require.NoError(t, err)
	engine := NewEngine(nil, WithEnvironment(Environment{ViewportWidth: 500, ViewportHeight: 800}))
	engine.AddAuthorSheet(sheet(parser.OriginAuthor, `
		@media (max-width: 600px) { div { display: flex } }
		@font-face { font-family: Web; src: url(web.woff2) }
	`))

	div := doc.ElementsByTag("div")[0]
	d, kw := engine.Compute(doc, div, nil).Display()
	assert.Equal(t, DisplayUnsupported, d)
	assert.Equal(t, "flex", kw)
	require.Len(t, engine.FontFaces(), 1)
	assert.Equal(t, "web", engine.FontFaces()[0].Rule.Family, "unquoted family names are case-folded keywords")

	engine.SetEnvironment(Environment{ViewportWidth: 1200, ViewportHeight: 800})
	d, _ = engine.Compute(doc, div, nil).Display()
	assert.Equal(t, DisplayBlock, d)
	assert.Equal(t, BaseFontSize, engine.Environment().DefaultFontSize)
}

func TestCollectIsDeterministic(t *testing.T) {
	doc, target := parseHTMLAndFind(t, `<p id="t" class="a">x</p>`, "t")
	sheets := []*parser.Stylesheet{
		sheet(parser.OriginAuthor, `.a { color: red } p, #t { margin: 0 } div { color: blue }`),
		sheet(parser.OriginUser, `* { color: green }`),
	}
	first := Collect(sheets, doc, target)
	second := Collect(sheets, doc, target)
	assert.Equal(t, first, second)
	require.Len(t, first.Rules, 3)
	assert.Equal(t, Specificity{IDs: 1}, first.Rules[1].Specificity)
	assert.Equal(t, parser.OriginUser, first.Rules[2].Rule.Origin)
}
