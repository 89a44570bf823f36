// internal/browser/layout/layout_test.go
package layout_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/layout"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

const delta = 1e-6

// -- Test Helpers --

// fakeImages serves natural sizes from a map and records every request.
type fakeImages struct {
	sizes     map[string]text.Size
	requested []string
}

func (f *fakeImages) NaturalSize(u *url.URL) (float64, float64, bool) {
	f.requested = append(f.requested, u.String())
	s, ok := f.sizes[u.String()]
	return s.Width, s.Height, ok
}

type fixture struct {
	ctx    *layout.Context
	root   *layout.Box
	images *fakeImages
}

// setupLayoutTest parses the document, applies css as an author sheet and
// lays the result out in an 800x600 viewport.
func setupLayoutTest(t *testing.T, html, css string, opts ...func(*layout.Context)) *fixture {
	t.Helper()
	doc, err := dom.ParseString(html)
	require.NoError(t, err, "Failed to parse test HTML")

	env := style.Environment{DefaultFontSize: 16, ViewportWidth: 800, ViewportHeight: 600}
	engine := style.NewEngine(zaptest.NewLogger(t), style.WithEnvironment(env))
	if css != "" {
		engine.AddAuthorSheet(parser.Parse([]byte(css), parser.OriginAuthor))
	}

	images := &fakeImages{sizes: map[string]text.Size{}}
	base, err := url.Parse("https://example.com/page/index.html")
	require.NoError(t, err)
	ctx := &layout.Context{
		Document: doc,
		Styles:   engine,
		BaseURL:  base,
		Viewport: text.Size{Width: 800, Height: 600},
		Fonts:    font.NewProvider(zaptest.NewLogger(t), font.WithDirectories(t.TempDir())),
		Images:   images,
		Log:      zaptest.NewLogger(t),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	return &fixture{ctx: ctx, root: layout.Generate(ctx), images: images}
}

// byID finds the box generated for the element with the given id.
func (f *fixture) byID(t *testing.T, id string) *layout.Box {
	t.Helper()
	var found *layout.Box
	f.root.Walk(func(b *layout.Box) bool {
		if b.Kind != layout.KindNormal {
			return true
		}
		if v, ok := f.ctx.Document.Attr(b.Node, "id"); ok && v == id {
			found = b
			return false
		}
		return true
	})
	require.NotNil(t, found, "no box for #%s", id)
	return found
}

func textBoxes(b *layout.Box) []*layout.Box {
	var out []*layout.Box
	b.Walk(func(c *layout.Box) bool {
		if c.IsText() {
			out = append(out, c)
		}
		return true
	})
	return out
}

func distinctLines(frags []text.Fragment) int {
	ys := map[float64]bool{}
	for _, f := range frags {
		ys[f.Position.Y] = true
	}
	return len(ys)
}

// -- Tests --

func TestInitialContainingBlock(t *testing.T) {
	f := setupLayoutTest(t, `<html><body></body></html>`, "")
	root := f.root

	assert.Equal(t, layout.KindRoot, root.Kind)
	assert.Equal(t, layout.ContextBlock, root.Context)
	assert.Equal(t, 800.0, root.Dimensions.Width, "the root keeps the viewport width")
	assert.Equal(t, 600.0, root.Dimensions.Height, "the root keeps the viewport height")
	require.NotNil(t, root.Font)
	assert.Equal(t, "go", root.Font.Family())
	assert.Equal(t, parser.Black, root.Actual.TextColor)
	assert.Equal(t, parser.White, root.Actual.BackgroundColor)
	require.Len(t, root.Children, 1)
}

func TestBlockStacking(t *testing.T) {
	f := setupLayoutTest(t, `<html><body id="body">
		<div id="a" style="height: 10px"></div>
		<div id="b" style="height: 20px; margin-top: 5px"></div>
	</body></html>`, "")

	a, b, body := f.byID(t, "a"), f.byID(t, "b"), f.byID(t, "body")
	assert.Equal(t, text.Point{X: 8, Y: 8}, a.Dimensions.Position)
	assert.Zero(t, a.Dimensions.Width, "an empty block has no children to span")
	assert.Equal(t, 18.0, b.Dimensions.MarginBox().Y, "b starts below a")
	assert.Equal(t, 23.0, b.Dimensions.Position.Y)
	assert.Equal(t, 35.0, body.Dimensions.Height, "auto height is the stacked children")
	assert.Zero(t, body.Dimensions.Width, "auto width is the widest child")
	assert.Len(t, body.Children, 2, "whitespace between blocks produces no boxes")
}

func TestAutoWidthIsChildExtent(t *testing.T) {
	f := setupLayoutTest(t, `<body>
		<div id="a"><div id="c" style="width: 100%; height: 5px"></div></div>
		<div id="t">x</div>
	</body>`, `#a { margin: 10px; padding: 5px; border: 2px solid black }`)

	a, c := f.byID(t, "a"), f.byID(t, "c")
	assert.InDelta(t, 784-20-10-4, c.Dimensions.Width, delta, "children get the containing width minus the edges")
	assert.InDelta(t, c.Dimensions.MarginBox().Width, a.Dimensions.Width, delta)
	assert.InDelta(t, 25, a.Dimensions.Position.X, delta)
	assert.InDelta(t, 784, a.Dimensions.MarginBox().Width, delta)
	assert.InDelta(t, 5, a.Dimensions.Height, delta)

	tb := f.byID(t, "t")
	require.Len(t, tb.Children, 1)
	line := tb.Children[0]
	assert.Greater(t, tb.Dimensions.Width, 0.0)
	assert.Less(t, tb.Dimensions.Width, 784.0, "a text block shrinks to its line")
	assert.InDelta(t, line.Dimensions.MarginBox().Width, tb.Dimensions.Width, delta)
}

func TestUnknownElementsStack(t *testing.T) {
	f := setupLayoutTest(t, `<body><x-card id="a">one</x-card><x-card id="b">two</x-card></body>`, "")

	a, b := f.byID(t, "a"), f.byID(t, "b")
	assert.Equal(t, layout.ContextBlock, a.Context)
	assert.Equal(t, layout.ContextBlock, b.Context)
	assert.Equal(t, a.Dimensions.Position.X, b.Dimensions.Position.X)
	assert.InDelta(t, a.Dimensions.MarginBox().Y+a.Dimensions.MarginBox().Height, b.Dimensions.MarginBox().Y, delta)
	assert.Greater(t, b.Dimensions.Position.Y, a.Dimensions.Position.Y)
}

func TestTextNodesMatchUniversalRules(t *testing.T) {
	f := setupLayoutTest(t, `<body><p id="p">hi</p></body>`,
		`* { color: blue } p { color: red; background-color: yellow }`)

	p := f.byID(t, "p")
	assert.Equal(t, parser.Color{R: 255, A: 255}, p.Actual.TextColor)
	texts := textBoxes(p)
	require.Len(t, texts, 1)
	assert.Equal(t, parser.Color{B: 255, A: 255}, texts[0].Actual.TextColor, "the universal rule styles the text node")
	assert.Equal(t, parser.Transparent, texts[0].Actual.BackgroundColor)
	assert.True(t, texts[0].Style["color"].IsKeyword("blue"))
}

func TestAuthorSizesWin(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a" style="height: 50px; width: 120px">hello</div></body>`, "")

	a := f.byID(t, "a")
	assert.Equal(t, 50.0, a.Dimensions.Height)
	assert.Equal(t, 120.0, a.Dimensions.Width)
}

func TestRelativeLengths(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a"></div></body>`,
		`#a { font-size: 20px; width: 50vw; height: 2rem; padding-left: 1em }`)

	a := f.byID(t, "a")
	assert.InDelta(t, 400, a.Dimensions.Width, delta)
	assert.InDelta(t, 32, a.Dimensions.Height, delta)
	assert.InDelta(t, 20, a.Dimensions.Padding.Left, delta)
	assert.InDelta(t, 20, a.FontSize, delta)
}

func TestDisplayNoneAndUnsupported(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := setupLayoutTest(t, `<body id="body"><div style="display: none">hidden</div><div style="display: flex">flex</div><p>shown</p></body>`, "",
		func(ctx *layout.Context) { ctx.Log = zap.New(core) })

	body := f.byID(t, "body")
	require.Len(t, body.Children, 1)
	assert.Equal(t, "p", f.ctx.Document.TagName(body.Children[0].Node))

	entries := logs.FilterMessage("Element omitted because of an unsupported display value").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "flex", entries[0].ContextMap()["display"])
}

func TestAnonymousInlineWrapper(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a">before<p>block</p>after</div></body>`, "")

	a := f.byID(t, "a")
	require.Len(t, a.Children, 3)
	for _, i := range []int{0, 2} {
		w := a.Children[i]
		assert.Equal(t, layout.KindAnonymous, w.Kind)
		assert.Equal(t, layout.ContextInline, w.Context)
		require.Len(t, w.Children, 1)
		assert.True(t, w.Children[0].IsText())
	}
	assert.Equal(t, layout.KindNormal, a.Children[1].Kind)

	// The wrappers shrink to their text and take part in block stacking.
	first, p := a.Children[0], a.Children[1]
	assert.Greater(t, first.Dimensions.Height, 0.0)
	assert.InDelta(t, first.Dimensions.MarginBox().Y+first.Dimensions.MarginBox().Height, p.Dimensions.MarginBox().Y, delta)
}

func TestTextWrapsWithinWidth(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a">`+strings.Repeat("word ", 40)+`</div></body>`,
		`#a { width: 100px; line-height: 20px }`)

	a := f.byID(t, "a")
	texts := textBoxes(a)
	require.Len(t, texts, 1)
	frags := texts[0].Fragments
	require.NotEmpty(t, frags)

	lines := distinctLines(frags)
	assert.Greater(t, lines, 1, "text wraps onto several lines")
	for _, fr := range frags {
		assert.LessOrEqual(t, fr.Position.X+fr.Size.Width, a.Dimensions.Position.X+100+delta, "fragment %q overflows", fr.Text)
	}

	wrapper := a.Children[0]
	assert.Len(t, wrapper.Lines, lines)
	assert.InDelta(t, float64(lines)*20, a.Dimensions.Height, delta)
}

func TestInlineElementsShareLines(t *testing.T) {
	f := setupLayoutTest(t, `<body><p id="p">Hello <b id="b">bold</b> world</p></body>`, "")

	p, b := f.byID(t, "p"), f.byID(t, "b")
	require.Len(t, p.Children, 1)
	wrapper := p.Children[0]
	require.Len(t, wrapper.Children, 3)
	hello, world := wrapper.Children[0], wrapper.Children[2]

	require.NotEmpty(t, hello.Fragments)
	require.NotEmpty(t, world.Fragments)
	assert.Equal(t, hello.Dimensions.Position.Y, b.Dimensions.Position.Y, "same line")
	assert.GreaterOrEqual(t, b.Dimensions.Position.X, hello.Dimensions.Position.X+hello.Dimensions.Width-delta)
	assert.GreaterOrEqual(t, world.Dimensions.Position.X, b.Dimensions.Position.X+b.Dimensions.Width-delta)
	assert.Len(t, wrapper.Lines, 1)
}

func TestLineBreakElement(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a">one<br>two<br><br>three</div></body>`, `#a { line-height: 20px }`)

	a := f.byID(t, "a")
	texts := textBoxes(a)
	require.Len(t, texts, 3)
	assert.InDelta(t, 8, texts[0].Dimensions.Position.Y, delta)
	assert.InDelta(t, 28, texts[1].Dimensions.Position.Y, delta)
	assert.InDelta(t, 68, texts[2].Dimensions.Position.Y, delta, "an empty line keeps its height")
	assert.InDelta(t, 8, texts[2].Dimensions.Position.X, delta)
	assert.InDelta(t, 80, a.Dimensions.Height, delta)
}

func TestInlineBlockMovesToNextLine(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a"><span id="x"></span><span id="y"></span></div></body>`,
		`#a { width: 100px } span { display: inline-block; width: 60px; height: 10px }`)

	x, y := f.byID(t, "x"), f.byID(t, "y")
	assert.Equal(t, text.Point{X: 8, Y: 8}, x.Dimensions.Position)
	assert.Equal(t, text.Point{X: 8, Y: 18}, y.Dimensions.Position, "y does not fit next to x")
	assert.Equal(t, 20.0, f.byID(t, "a").Dimensions.Height)
}

func TestImages(t *testing.T) {
	f := setupLayoutTest(t, `<body>
		<img id="natural" src="a.png">
		<img id="scaled" src="a.png" style="width: 80px">
		<img id="pending" src="/img/missing.png">
	</body>`, "", func(ctx *layout.Context) {
		ctx.Images.(*fakeImages).sizes["https://example.com/page/a.png"] = text.Size{Width: 40, Height: 30}
	})

	natural := f.byID(t, "natural")
	require.NotNil(t, natural.Replaced)
	assert.Equal(t, layout.ReplacedImage, natural.Replaced.Kind)
	assert.Equal(t, "https://example.com/page/a.png", natural.Replaced.Source.String())
	assert.Equal(t, 40.0, natural.Dimensions.Width)
	assert.Equal(t, 30.0, natural.Dimensions.Height)

	scaled := f.byID(t, "scaled")
	assert.Equal(t, 80.0, scaled.Dimensions.Width)
	assert.Equal(t, 60.0, scaled.Dimensions.Height, "height follows the aspect ratio")

	pending := f.byID(t, "pending")
	assert.Zero(t, pending.Dimensions.Width)
	assert.Zero(t, pending.Dimensions.Height)
	assert.Contains(t, f.images.requested, "https://example.com/img/missing.png")
}

func TestRelayoutPicksUpDecodedImages(t *testing.T) {
	f := setupLayoutTest(t, `<body><img id="i" src="late.png"></body>`, "")
	before := layout.Snap(f.root, f.ctx.Document)

	layout.Relayout(f.ctx, f.root)
	assert.Equal(t, before, layout.Snap(f.root, f.ctx.Document), "layout is repeatable")

	f.images.sizes["https://example.com/page/late.png"] = text.Size{Width: 12, Height: 7}
	layout.Relayout(f.ctx, f.root)
	img := f.byID(t, "i")
	assert.Equal(t, 12.0, img.Dimensions.Width)
	assert.Equal(t, 7.0, img.Dimensions.Height)
}

func TestFormControls(t *testing.T) {
	f := setupLayoutTest(t, `<body>
		<input id="check" type="checkbox">
		<input id="radio" type="radio">
		<input id="text">
		<input id="submit" type="submit">
		<button id="button">Press me</button>
	</body>`, "")

	const em = 13.333
	check := f.byID(t, "check")
	assert.Equal(t, layout.ReplacedCheckbox, check.Replaced.Kind)
	assert.InDelta(t, 0.8125*em, check.Dimensions.Width, 1e-3)
	assert.InDelta(t, check.Dimensions.Width, check.Dimensions.Height, delta)

	assert.Equal(t, layout.ReplacedRadio, f.byID(t, "radio").Replaced.Kind)

	input := f.byID(t, "text")
	assert.Equal(t, layout.ReplacedInputText, input.Replaced.Kind)
	assert.InDelta(t, 10*em, input.Dimensions.Width, 1e-3)
	assert.InDelta(t, input.LineHeight, input.Dimensions.Height, delta)

	submit := f.byID(t, "submit")
	assert.Equal(t, layout.ReplacedInputButton, submit.Replaced.Kind)
	assert.Equal(t, "Submit", submit.Replaced.Label)

	button := f.byID(t, "button")
	assert.Equal(t, layout.ReplacedButton, button.Replaced.Kind)
	assert.Equal(t, "Press me", button.Replaced.Label)
	assert.Greater(t, button.Dimensions.Width, em)
	assert.Empty(t, button.Children, "the label is not laid out as text")
}

func TestBackgroundImageRequested(t *testing.T) {
	f := setupLayoutTest(t, `<body><div id="a"></div></body>`, `#a { background-image: url("../bg.png") }`)

	a := f.byID(t, "a")
	require.NotNil(t, a.BackgroundImage)
	assert.Equal(t, "https://example.com/bg.png", a.BackgroundImage.String())
	assert.Contains(t, f.images.requested, "https://example.com/bg.png")
}

func TestFontResolution(t *testing.T) {
	f := setupLayoutTest(t, `<body id="body">
		<p id="mono">code</p>
		<p id="unloaded">text</p>
		<span id="same">same</span>
	</body>`, `#mono { font-family: "Nope", monospace } #unloaded { font-family: sans-serif; font-weight: bold }`,
		func(ctx *layout.Context) {
			_, err := ctx.Fonts.LoadFromSystem(font.NewDescriptor(font.Monospace, font.WeightNormal, font.StyleNormal))
			require.NoError(t, err)
		})

	body := f.byID(t, "body")
	require.NotNil(t, body.Font)

	mono := f.byID(t, "mono")
	require.NotNil(t, mono.Font)
	assert.Equal(t, "go mono", mono.Font.Family())
	assert.Equal(t, font.Monospace, mono.FontDescriptor.Family)

	unloaded := f.byID(t, "unloaded")
	assert.Same(t, body.Font, unloaded.Font, "a face that is not loaded falls back to the parent's")

	assert.Same(t, body.Font, f.byID(t, "same").Font)
}

func TestSnapshotDump(t *testing.T) {
	f := setupLayoutTest(t, `<body><p id="p">Hi</p></body>`, "")

	snap := layout.Snap(f.root, f.ctx.Document)
	assert.Equal(t, "root", snap.Kind)
	require.Len(t, snap.Children, 1)

	var sb strings.Builder
	require.NoError(t, snap.Dump(&sb))
	out := sb.String()
	assert.True(t, strings.HasPrefix(out, "root/block"))
	assert.Contains(t, out, "normal/block")
	assert.Contains(t, out, `"Hi"`)
}
