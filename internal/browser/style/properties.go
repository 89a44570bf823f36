// internal/browser/style/properties.go
package style

import (
	"math"

	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

const (
	// BaseFontSize is the initial font size in reference pixels.
	BaseFontSize = 16.0
	// DefaultLineHeight is the multiplier used for 'line-height: normal'.
	DefaultLineHeight = 1.2
	// InitialBorderWidth is what 'medium' and an unset border width resolve to.
	InitialBorderWidth = 3.0
)

// PropertyMap holds the cascaded value of every property that was set for a
// node. Absent properties take their initial value through the accessors.
type PropertyMap map[parser.Property]parser.Value

// Get returns the value of p and whether it was set.
func (m PropertyMap) Get(p parser.Property) (parser.Value, bool) {
	v, ok := m[p]
	return v, ok
}

// Keyword returns the single keyword of p, or fallback.
func (m PropertyMap) Keyword(p parser.Property, fallback string) string {
	if k := m[p].Keyword(); k != "" {
		return k
	}
	return fallback
}

// Clone returns an independent copy of the map.
func (m PropertyMap) Clone() PropertyMap {
	out := make(PropertyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold the same values.
func (m PropertyMap) Equal(o PropertyMap) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		if ov, ok := o[k]; !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

// -- Display --

// Display is the outer display type of an element.
type Display uint8

const (
	DisplayInline Display = iota
	DisplayBlock
	DisplayInlineBlock
	DisplayListItem
	DisplayFlowRoot
	DisplayNone
	// DisplayUnsupported covers flex, grid, table and anything unknown.
	DisplayUnsupported
)

// IsBlockLevel reports whether the display generates a block container.
func (d Display) IsBlockLevel() bool {
	return d == DisplayBlock || d == DisplayListItem || d == DisplayFlowRoot
}

// Display returns the display type and its keyword. Elements without a
// display value, including unknown and custom elements, are blocks.
func (m PropertyMap) Display() (Display, string) {
	v, ok := m["display"]
	if !ok {
		return DisplayBlock, "block"
	}
	switch k := v.Keyword(); k {
	case "inline":
		return DisplayInline, k
	case "block":
		return DisplayBlock, k
	case "inline-block":
		return DisplayInlineBlock, k
	case "list-item":
		return DisplayListItem, k
	case "flow-root":
		return DisplayFlowRoot, k
	case "none":
		return DisplayNone, k
	}
	return DisplayUnsupported, v.Raw
}

// -- Colors --

// Color resolves a color property. currentcolor resolves to the color
// property; ok is false when p is unset or not a color.
func (m PropertyMap) Color(p parser.Property) (parser.Color, bool) {
	v, ok := m[p]
	if !ok {
		return parser.Color{}, false
	}
	if v.IsKeyword("currentcolor") {
		return m.TextColor(), true
	}
	return v.Color()
}

// TextColor is the color property, black when unset.
func (m PropertyMap) TextColor() parser.Color {
	v, ok := m["color"]
	if !ok || v.IsKeyword("currentcolor") {
		return parser.Black
	}
	if c, ok := v.Color(); ok {
		return c
	}
	return parser.Black
}

// BackgroundColor is transparent when unset.
func (m PropertyMap) BackgroundColor() parser.Color {
	if c, ok := m.Color("background-color"); ok {
		return c
	}
	return parser.Transparent
}

// BackgroundImage returns the url() of background-image.
func (m PropertyMap) BackgroundImage() (string, bool) {
	return m["background-image"].URL()
}

// -- Fonts and text --

// FontFamilies returns the font-family list, or nil when unset.
func (m PropertyMap) FontFamilies() []string {
	return m["font-family"].Families()
}

// FontSize returns the resolved font size in pixels, BaseFontSize when unset
// or still relative.
func (m PropertyMap) FontSize() float64 {
	if c, ok := m["font-size"].Single(); ok && c.Kind == parser.ComponentLength && c.Unit == parser.UnitPx {
		return c.Number
	}
	return BaseFontSize
}

// FontWeight returns the numeric weight; normal is 400 and bold is 700.
func (m PropertyMap) FontWeight() int {
	return weightOf(m["font-weight"], 400)
}

func weightOf(v parser.Value, fallback int) int {
	c, ok := v.Single()
	if !ok {
		return fallback
	}
	switch {
	case c.Kind == parser.ComponentNumber && c.Number >= 1 && c.Number <= 1000:
		return int(c.Number)
	case c.Kind == parser.ComponentKeyword && c.Text == "normal":
		return 400
	case c.Kind == parser.ComponentKeyword && c.Text == "bold":
		return 700
	}
	return fallback
}

// FontStyle is normal, italic or oblique.
func (m PropertyMap) FontStyle() string {
	switch k := m.Keyword("font-style", "normal"); k {
	case "italic", "oblique":
		return k
	}
	return "normal"
}

// FontKerning is auto, normal or none.
func (m PropertyMap) FontKerning() string { return m.Keyword("font-kerning", "auto") }

// FontVariantLigatures returns normal, none, or the raw list of ligature keywords.
func (m PropertyMap) FontVariantLigatures() string {
	v, ok := m["font-variant-ligatures"]
	if !ok {
		return "normal"
	}
	return v.Raw
}

// FontVariantCaps is normal, small-caps, all-small-caps, petite-caps,
// all-petite-caps, unicase or titling-caps.
func (m PropertyMap) FontVariantCaps() string { return m.Keyword("font-variant-caps", "normal") }

// WhiteSpace is normal, nowrap, pre, pre-wrap or pre-line.
func (m PropertyMap) WhiteSpace() string { return m.Keyword("white-space", "normal") }

// TextTransform is none, uppercase, lowercase or capitalize.
func (m PropertyMap) TextTransform() string { return m.Keyword("text-transform", "none") }

// LineHeight resolves line-height against the element's font size.
func (m PropertyMap) LineHeight(lc LengthContext) float64 {
	v, ok := m["line-height"]
	if !ok || v.IsKeyword("normal") {
		return lc.FontSize * DefaultLineHeight
	}
	if c, ok := v.Single(); ok && c.Kind == parser.ComponentNumber {
		return lc.FontSize * c.Number
	}
	if px, ok := lc.Resolve(v, lc.FontSize); ok {
		return px
	}
	return lc.FontSize * DefaultLineHeight
}

// -- Box model --

// Side is one of the four box edges.
type Side uint8

const (
	Top Side = iota
	Right
	Bottom
	Left
)

var sideNames = [4]string{"top", "right", "bottom", "left"}

func (s Side) String() string { return sideNames[s] }

// Sides lists the edges in CSS order.
var Sides = [4]Side{Top, Right, Bottom, Left}

// Margin resolves margin-<side>; auto and unset are 0.
func (m PropertyMap) Margin(s Side, lc LengthContext, containingWidth float64) float64 {
	px, _ := lc.Resolve(m[parser.Property("margin-"+s.String())], containingWidth)
	return px
}

// Padding resolves padding-<side>; unset is 0.
func (m PropertyMap) Padding(s Side, lc LengthContext, containingWidth float64) float64 {
	px, _ := lc.Resolve(m[parser.Property("padding-"+s.String())], containingWidth)
	return math.Max(px, 0)
}

// BorderStyle returns border-<side>-style, none when unset.
func (m PropertyMap) BorderStyle(s Side) string {
	return m.Keyword(parser.Property("border-"+s.String()+"-style"), "none")
}

// BorderWidth resolves border-<side>-width. A none or hidden style forces 0.
func (m PropertyMap) BorderWidth(s Side, lc LengthContext) float64 {
	if st := m.BorderStyle(s); st == "none" || st == "hidden" {
		return 0
	}
	v, ok := m[parser.Property("border-"+s.String()+"-width")]
	if !ok {
		return InitialBorderWidth
	}
	switch v.Keyword() {
	case "thin":
		return 1
	case "medium":
		return InitialBorderWidth
	case "thick":
		return 5
	}
	if px, ok := lc.Resolve(v, 0); ok {
		return math.Max(px, 0)
	}
	return InitialBorderWidth
}

// BorderColor resolves border-<side>-color; the initial value is black.
func (m PropertyMap) BorderColor(s Side) parser.Color {
	if c, ok := m.Color(parser.Property("border-" + s.String() + "-color")); ok {
		return c
	}
	return parser.Black
}

// Size resolves width or height. ok is false for auto or unset.
func (m PropertyMap) Size(p parser.Property, lc LengthContext, reference float64) (float64, bool) {
	px, ok := lc.Resolve(m[p], reference)
	if !ok {
		return 0, false
	}
	return math.Max(px, 0), true
}

// -- Lengths --

// LengthContext carries what relative units resolve against.
type LengthContext struct {
	FontSize       float64
	RootFontSize   float64
	ViewportWidth  float64
	ViewportHeight float64
}

// Resolve converts a single length or percentage to pixels. Percentages use
// reference. ok is false for auto, keywords and anything else.
func (lc LengthContext) Resolve(v parser.Value, reference float64) (float64, bool) {
	c, ok := v.Single()
	if !ok {
		return 0, false
	}
	switch c.Kind {
	case parser.ComponentPercentage:
		return reference * c.Number / 100, true
	case parser.ComponentNumber:
		if c.Number == 0 {
			return 0, true
		}
		return 0, false
	case parser.ComponentLength:
		return lc.resolveUnit(c.Number, c.Unit)
	}
	return 0, false
}

func (lc LengthContext) resolveUnit(n float64, unit parser.Unit) (float64, bool) {
	switch unit {
	case parser.UnitPx:
		return n, true
	case parser.UnitRem:
		return n * lc.RootFontSize, true
	case parser.UnitEm:
		return n * lc.FontSize, true
	case parser.UnitEx, parser.UnitCh:
		return n * lc.FontSize / 2, true
	case parser.UnitVw:
		return n * lc.ViewportWidth / 100, true
	case parser.UnitVh:
		return n * lc.ViewportHeight / 100, true
	case parser.UnitVmin:
		return n * math.Min(lc.ViewportWidth, lc.ViewportHeight) / 100, true
	case parser.UnitVmax:
		return n * math.Max(lc.ViewportWidth, lc.ViewportHeight) / 100, true
	case parser.UnitPt:
		return n * 96 / 72, true
	case parser.UnitPc:
		return n * 16, true
	case parser.UnitIn:
		return n * 96, true
	case parser.UnitCm:
		return n * 96 / 2.54, true
	case parser.UnitMm:
		return n * 96 / 25.4, true
	case parser.UnitQ:
		return n * 96 / 101.6, true
	}
	return 0, false
}
