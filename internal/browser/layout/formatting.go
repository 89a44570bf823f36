// internal/browser/layout/formatting.go
package layout

import (
	"math"

	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

const epsilon = 1e-9

// FormattingState is what a formatting context shares with the boxes it
// lays out.
type FormattingState struct {
	ctx *Context
	// Box establishes the context. It is nil above the initial containing block.
	Box *Box
	// EndedWithWhitespace is whether the last inline content ended in
	// whitespace. Block and inline formatting roots start with it set, so
	// leading whitespace of their first line collapses away.
	EndedWithWhitespace bool

	line *lineState
}

// Relayout positions an existing tree again, picking up faces and images
// that finished loading since it was generated.
func Relayout(ctx *Context, root *Box) {
	g := &generator{ctx: ctx, log: ctx.logger().Named("layout")}
	for _, c := range root.Children {
		g.refreshFonts(c, root)
	}
	root.Layout(&FormattingState{ctx: ctx, EndedWithWhitespace: true})
}

func (g *generator) refreshFonts(b, parent *Box) {
	switch {
	case b.Kind == KindNormal:
		g.resolveFont(b, parent)
	default:
		b.Font, b.FontDescriptor, b.EmojiFont = parent.Font, parent.FontDescriptor, parent.EmojiFont
	}
	for _, c := range b.Children {
		g.refreshFonts(c, b)
	}
}

// Layout positions b and its descendants. Block containers place the margin
// box of a child before calling Layout on it; inline contexts place their
// children at the pen.
func (b *Box) Layout(parent *FormattingState) {
	ls := parent.line
	if b.isText {
		b.layoutText(parent)
		return
	}
	if b.lineBreak && ls != nil {
		b.layoutLineBreak(parent)
		return
	}
	if ls != nil && b.Context == ContextInline && !b.atomic {
		b.layoutInlineFlow(parent)
		return
	}

	if ls != nil {
		b.Dimensions.SetMarginPosition(ls.pen)
	}
	switch {
	case b.Replaced != nil:
		b.layoutReplaced(parent.ctx.Images)
	case b.Context == ContextInline:
		b.layoutInlineRoot(parent)
	default:
		b.layoutBlock(parent)
	}
	if ls != nil {
		ls.placeAtomic(b)
		parent.EndedWithWhitespace = false
	}
}

// -- Block Formatting Context --

// layoutBlock stacks children vertically. Auto sizes become the extent of
// the children.
func (b *Box) layoutBlock(parent *FormattingState) {
	b.resetSize()
	st := &FormattingState{ctx: parent.ctx, Box: b, EndedWithWhitespace: true}
	origin := b.Dimensions.Position

	var yOffset, widest float64
	for _, c := range b.Children {
		c.Dimensions.SetMarginPosition(text.Point{X: origin.X, Y: origin.Y + yOffset})
		c.Layout(st)
		mb := c.Dimensions.MarginBox()
		yOffset += mb.Height
		widest = math.Max(widest, mb.Width)
	}

	if b.sized.autoHeight {
		b.Dimensions.Height = yOffset
	}
	if b.sized.autoWidth {
		b.Dimensions.Width = widest
	}
}

// -- Inline Formatting Context (IFC) and Line Breaking --

// lineState is the pen of an inline formatting context.
type lineState struct {
	startX   float64
	maxWidth float64
	// pen.Y is the top of the current line.
	pen           text.Point
	width, height float64
	content       bool
	lines         []LineBox
}

func newLineState(origin text.Point, maxWidth float64) *lineState {
	return &lineState{startX: origin.X, maxWidth: maxWidth, pen: origin}
}

func (ls *lineState) extend(right, height float64) {
	ls.width = math.Max(ls.width, right-ls.startX)
	ls.height = math.Max(ls.height, height)
	ls.content = true
}

// breakTo closes the current line and starts the next one at y.
func (ls *lineState) breakTo(y float64) {
	ls.lines = append(ls.lines, LineBox{Y: ls.pen.Y, Width: ls.width, Height: ls.height})
	ls.pen = text.Point{X: ls.startX, Y: y}
	ls.width, ls.height, ls.content = 0, 0, false
}

func (ls *lineState) newLine() {
	ls.breakTo(ls.pen.Y + ls.height)
}

func (ls *lineState) finish() []LineBox {
	if ls.content || ls.height > 0 {
		ls.breakTo(ls.pen.Y + ls.height)
	}
	return ls.lines
}

// placeAtomic puts a laid out box at the pen, moving it to a new line when
// it would overflow a line that already holds content.
func (ls *lineState) placeAtomic(b *Box) {
	mb := b.Dimensions.MarginBox()
	if ls.pen.X+mb.Width > ls.startX+ls.maxWidth+epsilon && ls.pen.X > ls.startX+epsilon {
		ls.newLine()
		b.translate(ls.pen.X-mb.X, ls.pen.Y-mb.Y)
	}
	ls.pen.X += mb.Width
	ls.extend(ls.pen.X, mb.Height)
}

// takeText folds a breaker result into the line state. Lines after the
// first move down when earlier content made the first line taller than the
// breaker assumed.
func (ls *lineState) takeText(res text.Result) []text.Fragment {
	firstY := ls.pen.Y
	frags := res.Fragments
	end := res.End

	if end.Y > firstY+epsilon {
		firstHeight := ls.height
		nextY := end.Y
		for _, f := range frags {
			if f.Position.Y <= firstY+epsilon {
				firstHeight = math.Max(firstHeight, f.Size.Height)
			} else {
				nextY = math.Min(nextY, f.Position.Y)
			}
		}
		if shift := firstHeight - (nextY - firstY); shift > epsilon {
			moved := make([]text.Fragment, len(frags))
			for i, f := range frags {
				if f.Position.Y > firstY+epsilon {
					f.Position.Y += shift
				}
				moved[i] = f
			}
			frags = moved
			end.Y += shift
		}
	}

	for _, f := range frags {
		if f.Position.Y > ls.pen.Y+epsilon {
			ls.breakTo(f.Position.Y)
		}
		ls.extend(f.Position.X+f.Size.Width, f.Size.Height)
	}
	if end.Y > ls.pen.Y+epsilon {
		ls.breakTo(end.Y)
	}
	ls.pen.X = end.X
	return frags
}

// layoutInlineRoot lays children out on lines inside b's content box.
func (b *Box) layoutInlineRoot(parent *FormattingState) {
	b.resetSize()
	ls := newLineState(b.Dimensions.Position, b.Dimensions.Width)
	st := &FormattingState{ctx: parent.ctx, Box: b, EndedWithWhitespace: true, line: ls}
	for _, c := range b.Children {
		c.Layout(st)
	}
	b.Lines = ls.finish()

	var widest, total float64
	for _, l := range b.Lines {
		widest = math.Max(widest, l.Width)
		total += l.Height
	}
	if b.sized.autoWidth {
		b.Dimensions.Width = widest
	}
	if b.sized.autoHeight {
		b.Dimensions.Height = total
	}
}

// layoutInlineFlow lays out a non-atomic inline box on its parent's lines.
// Its content box is the area its children cover.
func (b *Box) layoutInlineFlow(parent *FormattingState) {
	ls := parent.line
	d := &b.Dimensions
	ls.pen.X += d.Margin.Left + d.Border.Left + d.Padding.Left
	start := ls.pen

	st := &FormattingState{ctx: parent.ctx, Box: b, EndedWithWhitespace: parent.EndedWithWhitespace, line: ls}
	for _, c := range b.Children {
		c.Layout(st)
	}
	parent.EndedWithWhitespace = st.EndedWithWhitespace

	area := Rect{X: start.X, Y: start.Y}
	for _, c := range b.Children {
		area = area.Union(c.Dimensions.MarginBox())
	}
	d.Position = text.Point{X: area.X, Y: area.Y}
	d.Width, d.Height = area.Width, area.Height

	ls.pen.X += d.Padding.Right + d.Border.Right + d.Margin.Right
	ls.extend(ls.pen.X, 0)
}

// layoutLineBreak ends the current line. A line holding nothing else is
// one line-height tall.
func (b *Box) layoutLineBreak(parent *FormattingState) {
	ls := parent.line
	b.Dimensions.Position = ls.pen
	b.Dimensions.Width, b.Dimensions.Height = 0, b.LineHeight
	ls.extend(ls.pen.X, b.LineHeight)
	ls.newLine()
	parent.EndedWithWhitespace = true
}

// layoutText breaks the text of an anonymous box into fragments. Its size
// is the bounding box of the fragments.
func (b *Box) layoutText(parent *FormattingState) {
	ls := parent.line
	if ls == nil {
		width := text.Unbounded
		if parent.Box != nil {
			width = parent.Box.Dimensions.Width
		}
		ls = newLineState(b.Dimensions.Position, width)
	}
	start := ls.pen

	res := parent.ctx.breaker().Break(text.Request{
		Text:                 b.Text,
		Origin:               ls.pen,
		LineStartX:           ls.startX,
		MaxWidth:             ls.maxWidth,
		FontSize:             b.FontSize,
		LineHeight:           b.LineHeight,
		Face:                 measurer(b.Font),
		EmojiFace:            measurer(b.EmojiFont),
		Hinting:              b.Actual.Hinting,
		Features:             b.Features,
		WhiteSpace:           text.ParseWhiteSpace(b.Style.WhiteSpace()),
		Transform:            text.ParseTransform(b.Style.TextTransform()),
		Language:             b.Language,
		PrecededByWhitespace: parent.EndedWithWhitespace,
	})
	parent.EndedWithWhitespace = res.EndsWithWhitespace
	b.Fragments = ls.takeText(res)

	if len(b.Fragments) == 0 {
		b.Dimensions.Position = start
		b.Dimensions.Width, b.Dimensions.Height = 0, 0
		return
	}
	area := fragmentRect(b.Fragments[0])
	for _, f := range b.Fragments[1:] {
		area = area.Union(fragmentRect(f))
	}
	b.Dimensions.Position = text.Point{X: area.X, Y: area.Y}
	b.Dimensions.Width, b.Dimensions.Height = area.Width, area.Height
}

func fragmentRect(f text.Fragment) Rect {
	return Rect{X: f.Position.X, Y: f.Position.Y, Width: f.Size.Width, Height: f.Size.Height}
}

// measurer keeps a nil face from turning into a non-nil interface.
func measurer(f *font.Face) text.Measurer {
	if f == nil {
		return nil
	}
	return f
}
