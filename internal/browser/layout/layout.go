// Package layout turns a styled DOM into a tree of positioned boxes. The
// tree is rebuilt wholesale by Generate and positioned by Box.Layout.
package layout

import (
	"math"
	"net/url"

	"golang.org/x/text/language"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

// -- Core Structures: Box Model and Dimensions --

// Dimensions defines the geometry of a layout box. Position is the top-left
// corner of the content area.
type Dimensions struct {
	Position text.Point
	Width    float64
	Height   float64

	Padding Edges
	Border  Edges
	Margin  Edges
}

// ContentBox returns the content area.
func (d Dimensions) ContentBox() Rect {
	return Rect{X: d.Position.X, Y: d.Position.Y, Width: d.Width, Height: d.Height}
}

// PaddingBox returns the rectangle enclosing the padding area.
func (d Dimensions) PaddingBox() Rect {
	return d.ContentBox().ExpandedBy(d.Padding)
}

// BorderBox returns the rectangle enclosing the border area.
func (d Dimensions) BorderBox() Rect {
	return d.PaddingBox().ExpandedBy(d.Border)
}

// MarginBox returns the rectangle enclosing the margin area.
func (d Dimensions) MarginBox() Rect {
	return d.BorderBox().ExpandedBy(d.Margin)
}

// SetMarginPosition places the box so its margin box starts at p.
func (d *Dimensions) SetMarginPosition(p text.Point) {
	d.Position = text.Point{
		X: p.X + d.Margin.Left + d.Border.Left + d.Padding.Left,
		Y: p.Y + d.Margin.Top + d.Border.Top + d.Padding.Top,
	}
}

// horizontal is the space taken by margins, borders and paddings on the x axis.
func (d Dimensions) horizontal() float64 {
	return d.Margin.Left + d.Margin.Right + d.Border.Left + d.Border.Right + d.Padding.Left + d.Padding.Right
}

// Rect is an axis-aligned rectangle in reference pixels.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ExpandedBy returns a new rectangle expanded by the edge sizes.
func (r Rect) ExpandedBy(e Edges) Rect {
	return Rect{
		X:      r.X - e.Left,
		Y:      r.Y - e.Top,
		Width:  r.Width + e.Left + e.Right,
		Height: r.Height + e.Top + e.Bottom,
	}
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1, y1 := math.Max(r.X+r.Width, o.X+o.Width), math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Edges holds the four sides of a margin, border or padding.
type Edges struct {
	Top, Right, Bottom, Left float64
}

func (e *Edges) set(s style.Side, v float64) {
	switch s {
	case style.Top:
		e.Top = v
	case style.Right:
		e.Right = v
	case style.Bottom:
		e.Bottom = v
	case style.Left:
		e.Left = v
	}
}

// -- Layout Tree (Box Tree) --

// Kind distinguishes the initial containing block, element boxes and boxes
// the generator makes up for text and inline runs.
type Kind uint8

const (
	KindRoot Kind = iota
	KindNormal
	KindAnonymous
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindNormal:
		return "normal"
	}
	return "anonymous"
}

// ContextKind is the formatting context a box establishes for its children.
type ContextKind uint8

const (
	ContextBlock ContextKind = iota
	ContextInline
)

func (c ContextKind) String() string {
	if c == ContextInline {
		return "inline"
	}
	return "block"
}

// ActualValues are the used values painting needs.
type ActualValues struct {
	TextColor       parser.Color
	BackgroundColor parser.Color
	Hinting         text.Hinting
}

// LineBox is one line of an inline formatting context.
type LineBox struct {
	Y, Width, Height float64
}

// Box is a node in the layout tree.
type Box struct {
	Kind    Kind
	Context ContextKind
	// Node is the DOM node the box was generated for. Anonymous inline
	// wrappers carry the node of the block that contains them.
	Node       dom.NodeID
	Style      style.PropertyMap
	Dimensions Dimensions
	Children   []*Box

	// Text is the character data of a text run.
	Text string

	Font *font.Face
	// FontDescriptor is the descriptor Font was found under.
	FontDescriptor font.Descriptor
	EmojiFont      *font.Face
	FontSize       float64
	LineHeight     float64
	Features       text.Features
	Language       language.Tag

	Fragments []text.Fragment
	Lines     []LineBox

	BackgroundImage *url.URL
	Replaced        *Replaced
	Actual          ActualValues

	sized     sizing
	isText    bool
	atomic    bool
	lineBreak bool
	lengths   style.LengthContext
}

// sizing keeps the generated content size so that layout can run again
// without regenerating the tree.
type sizing struct {
	width, height         float64
	autoWidth, autoHeight bool
}

// IsText reports whether the box holds a run of text.
func (b *Box) IsText() bool { return b.isText }

// Walk calls fn for b and its descendants in tree order until fn returns false.
func (b *Box) Walk(fn func(*Box) bool) bool {
	if !fn(b) {
		return false
	}
	for _, c := range b.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// resetSize restores the generated size before a layout pass.
func (b *Box) resetSize() {
	b.Dimensions.Width = b.sized.width
	b.Dimensions.Height = b.sized.height
}

// translate moves b and everything inside it.
func (b *Box) translate(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	b.Dimensions.Position.X += dx
	b.Dimensions.Position.Y += dy
	if len(b.Fragments) > 0 {
		moved := make([]text.Fragment, len(b.Fragments))
		for i, f := range b.Fragments {
			f.Position.X += dx
			f.Position.Y += dy
			moved[i] = f
		}
		b.Fragments = moved
	}
	for i := range b.Lines {
		b.Lines[i].Y += dy
	}
	for _, c := range b.Children {
		c.translate(dx, dy)
	}
}

// isInlineLevel reports whether b takes part in an inline formatting context
// of its parent.
func (b *Box) isInlineLevel() bool {
	return b.isText || b.lineBreak || (b.Kind == KindNormal && b.Context == ContextInline)
}
