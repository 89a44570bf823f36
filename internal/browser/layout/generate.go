// internal/browser/layout/generate.go
package layout

import (
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

// Generate builds the layout tree of ctx.Document and lays it out. The
// returned box is the initial containing block.
func Generate(ctx *Context) *Box {
	g := &generator{ctx: ctx, log: ctx.logger().Named("layout")}
	root := g.initialContainingBlock()
	if ctx.Document != nil {
		if html := ctx.Document.DocumentElement(); html != dom.NoNode {
			if b := g.generate(html, root); b != nil {
				root.Children = append(root.Children, b)
			}
		}
	}
	root.Children = g.wrapInline(root, root.Children)
	root.Layout(&FormattingState{ctx: ctx, EndedWithWhitespace: true})
	return root
}

type generator struct {
	ctx *Context
	log *zap.Logger
}

func (g *generator) initialContainingBlock() *Box {
	ctx := g.ctx
	env := style.DefaultEnvironment
	if ctx.Styles != nil {
		env = ctx.Styles.Environment()
	}
	b := &Box{
		Kind:     KindRoot,
		Context:  ContextBlock,
		Node:     dom.NoNode,
		Style:    style.PropertyMap{"display": parser.Keyword("block")},
		FontSize: env.DefaultFontSize,
		Actual: ActualValues{
			TextColor:       parser.Black,
			BackgroundColor: parser.White,
			Hinting:         ctx.Hinting,
		},
		Language: ctx.Language,
		sized:    sizing{width: ctx.Viewport.Width, height: ctx.Viewport.Height},
	}
	if ctx.Document != nil {
		b.Node = ctx.Document.Root()
	}
	b.LineHeight = b.FontSize * style.DefaultLineHeight
	b.resetSize()

	if ctx.Fonts != nil {
		family, emojiFamily := ctx.families()
		desc := font.NewDescriptor(family, font.WeightNormal, font.StyleNormal)
		face, err := ctx.Fonts.LoadFromSystem(desc)
		if err != nil && family != font.Serif {
			g.log.Warn("Default font family unavailable, using serif", zap.Stringer("descriptor", desc), zap.Error(err))
			desc = desc.WithFamily(font.Serif)
			face, err = ctx.Fonts.LoadFromSystem(desc)
		}
		if err != nil {
			g.log.Error("Failed to load the initial font", zap.Stringer("descriptor", desc), zap.Error(err))
		}
		b.Font, b.FontDescriptor = face, desc
		emoji, err := ctx.Fonts.LoadFromSystem(font.NewDescriptor(emojiFamily, font.WeightNormal, font.StyleNormal))
		if err != nil {
			g.log.Debug("No emoji font", zap.Error(err))
		}
		b.EmojiFont = emoji
	}
	return b
}

func (g *generator) generate(node dom.NodeID, parent *Box) *Box {
	doc := g.ctx.Document
	switch doc.Kind(node) {
	case dom.KindText:
		return g.textBox(node, parent)
	case dom.KindElement:
	default:
		return nil
	}

	m := g.compute(node, parent.Style)
	display, raw := m.Display()
	switch display {
	case style.DisplayNone:
		return nil
	case style.DisplayUnsupported:
		g.log.Warn("Element omitted because of an unsupported display value",
			zap.String("display", raw),
			zap.String("element", doc.Path(node)))
		return nil
	}

	b := &Box{
		Kind:    KindNormal,
		Context: ContextInline,
		Node:    node,
		Style:   m,
		atomic:  display == style.DisplayInlineBlock,
	}
	if display.IsBlockLevel() {
		b.Context = ContextBlock
	}
	b.FontSize = m.FontSizeOr(parent.FontSize)
	b.lengths = g.lengthContext(m)
	b.LineHeight = m.LineHeight(b.lengths)
	b.Features = text.Features{Kerning: m.FontKerning(), Ligatures: m.FontVariantLigatures(), Caps: m.FontVariantCaps()}
	b.Language = g.language(node, parent)
	g.resolveFont(b, parent)
	b.Actual = g.actualValues(m, parent)
	g.dimensions(b, parent)
	g.backgroundImage(b)

	if doc.ElementKind(node) == dom.Br {
		b.lineBreak = true
		return b
	}
	if r := g.replaced(node); r != nil {
		b.Replaced = r
		b.atomic = true
		return b
	}

	for child := range doc.Children(node) {
		if cb := g.generate(child, b); cb != nil {
			b.Children = append(b.Children, cb)
		}
	}
	if b.Context == ContextBlock {
		b.Children = g.wrapInline(b, b.Children)
	}
	return b
}

func (g *generator) compute(node dom.NodeID, parent style.PropertyMap) style.PropertyMap {
	if g.ctx.Styles == nil {
		return style.Compute(style.CollectedStyles{Node: node}, g.ctx.Document, parent)
	}
	return g.ctx.Styles.Compute(g.ctx.Document, node, parent)
}

func (g *generator) lengthContext(m style.PropertyMap) style.LengthContext {
	if g.ctx.Styles != nil {
		return g.ctx.Styles.LengthContext(m)
	}
	env := style.DefaultEnvironment
	return style.LengthContext{
		FontSize:       m.FontSizeOr(env.DefaultFontSize),
		RootFontSize:   env.DefaultFontSize,
		ViewportWidth:  g.ctx.Viewport.Width,
		ViewportHeight: g.ctx.Viewport.Height,
	}
}

func (g *generator) language(node dom.NodeID, parent *Box) language.Tag {
	if tag := g.ctx.Document.Lang(node); tag != language.Und {
		return tag
	}
	return parent.Language
}

// textBox makes an anonymous box for a text node. The node is styled on its
// own, so universal rules reach it, but never paints a background. Its
// context is copied from the parent; wrapInline moves it into an inline
// context later.
func (g *generator) textBox(node dom.NodeID, parent *Box) *Box {
	m := g.compute(node, parent.Style)
	av := g.actualValues(m, parent)
	av.BackgroundColor = parser.Transparent
	return &Box{
		Kind:           KindAnonymous,
		Context:        parent.Context,
		Node:           node,
		Style:          m,
		Text:           g.ctx.Document.Text(node),
		Font:           parent.Font,
		FontDescriptor: parent.FontDescriptor,
		EmojiFont:      parent.EmojiFont,
		FontSize:       parent.FontSize,
		LineHeight:     parent.LineHeight,
		Features:       parent.Features,
		Language:       parent.Language,
		Actual:         av,
		isText:         true,
		lengths:        parent.lengths,
	}
}

// wrapInline puts every run of inline-level children of a block container
// into an anonymous box with an inline context. Runs of collapsible
// whitespace produce nothing.
func (g *generator) wrapInline(parent *Box, children []*Box) []*Box {
	out := make([]*Box, 0, len(children))
	var run []*Box
	flush := func() {
		if len(run) == 0 {
			return
		}
		if !slices.ContainsFunc(run, func(b *Box) bool { return !b.collapsibleWhitespace() }) {
			run = nil
			return
		}
		out = append(out, g.anonymousInline(parent, run))
		run = nil
	}
	for _, c := range children {
		if c.isInlineLevel() {
			run = append(run, c)
			continue
		}
		flush()
		out = append(out, c)
	}
	flush()
	return out
}

func (b *Box) collapsibleWhitespace() bool {
	if !b.isText {
		return false
	}
	return text.ParseWhiteSpace(b.Style.WhiteSpace()).Collapses() && strings.Trim(b.Text, " \t\n\f\r") == ""
}

func (g *generator) anonymousInline(parent *Box, children []*Box) *Box {
	for _, c := range children {
		if c.isText {
			c.Context = ContextInline
		}
	}
	b := &Box{
		Kind:           KindAnonymous,
		Context:        ContextInline,
		Node:           parent.Node,
		Style:          parent.Style,
		Children:       children,
		Font:           parent.Font,
		FontDescriptor: parent.FontDescriptor,
		EmojiFont:      parent.EmojiFont,
		FontSize:       parent.FontSize,
		LineHeight:     parent.LineHeight,
		Features:       parent.Features,
		Language:       parent.Language,
		Actual:         ActualValues{TextColor: parent.Actual.TextColor, BackgroundColor: parser.Transparent, Hinting: parent.Actual.Hinting},
		lengths:        parent.lengths,
		sized:          sizing{width: parent.sized.width, autoWidth: true, autoHeight: true},
	}
	b.resetSize()
	return b
}

// -- Fonts --

// resolveFont picks the first family of the font-family list the provider
// has a face for. A box whose font properties equal its parent's shares the
// parent's face, and so does a box none of whose families resolve.
func (g *generator) resolveFont(b, parent *Box) {
	b.Font, b.FontDescriptor, b.EmojiFont = parent.Font, parent.FontDescriptor, parent.EmojiFont
	if sameFontProperties(b.Style, parent.Style) || g.ctx.Fonts == nil {
		return
	}
	weight := font.Weight(b.Style.FontWeight())
	slant := font.ParseStyle(b.Style.FontStyle())
	for _, family := range b.Style.FontFamilies() {
		desc := font.NewDescriptor(family, weight, slant)
		if face, ok := g.ctx.Fonts.Get(desc); ok {
			b.Font, b.FontDescriptor = face, desc
			return
		}
	}
	g.log.Debug("No loaded face for font-family, using the parent's",
		zap.Strings("families", b.Style.FontFamilies()),
		zap.Stringer("fallback", parent.FontDescriptor))
}

func sameFontProperties(a, b style.PropertyMap) bool {
	return slices.Equal(a.FontFamilies(), b.FontFamilies()) &&
		a.FontWeight() == b.FontWeight() &&
		a.FontStyle() == b.FontStyle()
}

// -- Actual values and dimensions --

func (g *generator) actualValues(m style.PropertyMap, parent *Box) ActualValues {
	av := ActualValues{TextColor: parent.Actual.TextColor, BackgroundColor: parser.Transparent, Hinting: parent.Actual.Hinting}
	if v, ok := m.Get("color"); ok && !v.IsKeyword("currentcolor") {
		if c, ok := v.Color(); ok {
			av.TextColor = c
		}
	}
	if v, ok := m.Get("background-color"); ok {
		if v.IsKeyword("currentcolor") {
			av.BackgroundColor = av.TextColor
		} else if c, ok := v.Color(); ok {
			av.BackgroundColor = c
		}
	}
	return av
}

// dimensions resolves margins, borders, paddings and the content size. An
// auto width hands children the containing width minus the horizontal
// edges; the box's own auto width and height are set by layout from the
// extent of its children.
func (g *generator) dimensions(b, parent *Box) {
	m, lc := b.Style, b.lengths
	cw := parent.sized.width
	d := &b.Dimensions
	for _, s := range style.Sides {
		d.Margin.set(s, m.Margin(s, lc, cw))
		d.Border.set(s, m.BorderWidth(s, lc))
		d.Padding.set(s, m.Padding(s, lc, cw))
	}

	if w, ok := m.Size("width", lc, cw); ok {
		b.sized.width = w
	} else {
		b.sized.width = max(cw-d.horizontal(), 0)
		b.sized.autoWidth = true
	}

	if h, ok := g.height(m, lc, parent); ok {
		b.sized.height = h
	} else {
		b.sized.autoHeight = true
	}
	b.resetSize()
}

// height resolves the height property. A percentage of an auto height
// behaves as auto.
func (g *generator) height(m style.PropertyMap, lc style.LengthContext, parent *Box) (float64, bool) {
	v, ok := m.Get("height")
	if !ok {
		return 0, false
	}
	if c, single := v.Single(); single && c.Kind == parser.ComponentPercentage && parent.sized.autoHeight {
		return 0, false
	}
	return m.Size("height", lc, parent.sized.height)
}

func (g *generator) backgroundImage(b *Box) {
	ref, ok := b.Style.BackgroundImage()
	if !ok {
		return
	}
	u, ok := g.ctx.resolve(ref)
	if !ok {
		return
	}
	b.BackgroundImage = u
	if g.ctx.Images != nil {
		g.ctx.Images.NaturalSize(u)
	}
}
