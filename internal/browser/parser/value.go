// internal/browser/parser/value.go
package parser

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ComponentKind discriminates Component.
type ComponentKind uint8

const (
	ComponentKeyword ComponentKind = iota
	ComponentLength
	ComponentPercentage
	ComponentNumber
	ComponentColor
	ComponentString
	ComponentURL
	ComponentFunction
	ComponentComma
	ComponentSlash
	// ComponentOther keeps tokens the engine has no use for (unicode ranges,
	// stray delimiters) in Text.
	ComponentOther
)

// Unit is a length unit, lowercase.
type Unit string

const (
	UnitPx   Unit = "px"
	UnitEm   Unit = "em"
	UnitRem  Unit = "rem"
	UnitEx   Unit = "ex"
	UnitCh   Unit = "ch"
	UnitVw   Unit = "vw"
	UnitVh   Unit = "vh"
	UnitVmin Unit = "vmin"
	UnitVmax Unit = "vmax"
	UnitPt   Unit = "pt"
	UnitPc   Unit = "pc"
	UnitIn   Unit = "in"
	UnitCm   Unit = "cm"
	UnitMm   Unit = "mm"
	UnitQ    Unit = "q"
	UnitDeg  Unit = "deg"
)

// Component is one typed token group of a value.
type Component struct {
	Kind ComponentKind
	// Text is the keyword (lowercase), string, URL, function name or raw text.
	Text   string
	Number float64
	Unit   Unit
	Color  Color
	Args   []Component
}

// Color is a non-premultiplied sRGB color.
type Color struct {
	R, G, B, A uint8
}

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{}
)

func (c Component) String() string {
	switch c.Kind {
	case ComponentKeyword, ComponentOther:
		return c.Text
	case ComponentLength:
		return formatNumber(c.Number) + string(c.Unit)
	case ComponentPercentage:
		return formatNumber(c.Number) + "%"
	case ComponentNumber:
		return formatNumber(c.Number)
	case ComponentColor:
		if c.Text != "" {
			return c.Text
		}
		return c.Color.String()
	case ComponentString:
		return strconv.Quote(c.Text)
	case ComponentURL:
		return "url(" + strconv.Quote(c.Text) + ")"
	case ComponentFunction:
		return c.Text + "(" + joinComponents(c.Args) + ")"
	case ComponentComma:
		return ","
	case ComponentSlash:
		return "/"
	}
	return ""
}

func (c Color) String() string {
	if c.A == 255 {
		return "rgb(" + strconv.Itoa(int(c.R)) + ", " + strconv.Itoa(int(c.G)) + ", " + strconv.Itoa(int(c.B)) + ")"
	}
	return "rgba(" + strconv.Itoa(int(c.R)) + ", " + strconv.Itoa(int(c.G)) + ", " + strconv.Itoa(int(c.B)) + ", " +
		formatNumber(math.Round(float64(c.A)/255*1000)/1000) + ")"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinComponents(cs []Component) string {
	var sb strings.Builder
	for i, c := range cs {
		if i > 0 && c.Kind != ComponentComma {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Value is the parsed right-hand side of a declaration.
type Value struct {
	Components []Component
	// Raw is the normalized source text.
	Raw string
}

// NewValue builds a Value from components, deriving Raw from them.
func NewValue(cs ...Component) Value {
	return Value{Components: cs, Raw: joinComponents(cs)}
}

// Keyword builds a single-keyword Value.
func Keyword(k string) Value {
	return NewValue(Component{Kind: ComponentKeyword, Text: strings.ToLower(k)})
}

// Px builds a single pixel length Value.
func Px(v float64) Value {
	return NewValue(Component{Kind: ComponentLength, Number: v, Unit: UnitPx})
}

func (v Value) String() string { return v.Raw }

// IsZero reports whether the value has no components.
func (v Value) IsZero() bool { return len(v.Components) == 0 }

// Equal compares values by their normalized text.
func (v Value) Equal(o Value) bool { return v.Raw == o.Raw }

// Single returns the only component of the value.
func (v Value) Single() (Component, bool) {
	if len(v.Components) != 1 {
		return Component{}, false
	}
	return v.Components[0], true
}

// Keyword returns the keyword when the value is exactly one keyword, or "".
func (v Value) Keyword() string {
	if c, ok := v.Single(); ok && c.Kind == ComponentKeyword {
		return c.Text
	}
	return ""
}

// IsKeyword reports whether the value is exactly the keyword k.
func (v Value) IsKeyword(k string) bool {
	return v.Keyword() == k
}

// Color resolves the value as a color. currentcolor is not resolved here.
func (v Value) Color() (Color, bool) {
	c, ok := v.Single()
	if !ok {
		return Color{}, false
	}
	return c.AsColor()
}

// AsColor interprets a component as a color.
func (c Component) AsColor() (Color, bool) {
	switch c.Kind {
	case ComponentColor:
		return c.Color, true
	case ComponentKeyword:
		return NamedColor(c.Text)
	}
	return Color{}, false
}

// URL returns the url() target when the value is a single URL.
func (v Value) URL() (string, bool) {
	if c, ok := v.Single(); ok && c.Kind == ComponentURL {
		return c.Text, true
	}
	return "", false
}

// Families splits a font-family value into its family names. Unquoted
// multi-word names are joined with single spaces; generic keywords are
// returned lowercase.
func (v Value) Families() []string {
	var families []string
	var words []string
	flush := func() {
		if len(words) > 0 {
			families = append(families, strings.Join(words, " "))
			words = nil
		}
	}
	for _, c := range v.Components {
		switch c.Kind {
		case ComponentComma:
			flush()
		case ComponentString:
			flush()
			families = append(families, c.Text)
		case ComponentKeyword, ComponentOther:
			words = append(words, c.Text)
		}
	}
	flush()
	return families
}

// IsLength reports whether the component is a length or a unitless zero.
func (c Component) IsLength() bool {
	return c.Kind == ComponentLength || (c.Kind == ComponentNumber && c.Number == 0)
}

// NamedColor looks up a CSS color keyword.
func NamedColor(name string) (Color, bool) {
	name = strings.ToLower(name)
	if name == "transparent" {
		return Transparent, true
	}
	if rgba, ok := colornames.Map[name]; ok {
		return Color{rgba.R, rgba.G, rgba.B, rgba.A}, true
	}
	return Color{}, false
}

// ParseHexColor parses #rgb, #rgba, #rrggbb and #rrggbbaa.
func ParseHexColor(hex string) (Color, bool) {
	hex = strings.TrimPrefix(hex, "#")
	for i := 0; i < len(hex); i++ {
		if hexDigit(hex[i]) < 0 {
			return Color{}, false
		}
	}
	d := func(i int) uint8 { return uint8(hexDigit(hex[i])) }
	switch len(hex) {
	case 3:
		return Color{d(0) * 17, d(1) * 17, d(2) * 17, 255}, true
	case 4:
		return Color{d(0) * 17, d(1) * 17, d(2) * 17, d(3) * 17}, true
	case 6:
		return Color{d(0)<<4 | d(1), d(2)<<4 | d(3), d(4)<<4 | d(5), 255}, true
	case 8:
		return Color{d(0)<<4 | d(1), d(2)<<4 | d(3), d(4)<<4 | d(5), d(6)<<4 | d(7)}, true
	}
	return Color{}, false
}

func hexDigit(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// colorFunction evaluates rgb(), rgba(), hsl() and hsla() arguments.
func colorFunction(name string, args []Component) (Color, bool) {
	var nums []Component
	for _, a := range args {
		switch a.Kind {
		case ComponentComma, ComponentSlash:
		case ComponentNumber, ComponentPercentage, ComponentLength:
			nums = append(nums, a)
		default:
			return Color{}, false
		}
	}
	if len(nums) < 3 || len(nums) > 4 {
		return Color{}, false
	}
	alpha := uint8(255)
	if len(nums) == 4 {
		a := nums[3].Number
		if nums[3].Kind == ComponentPercentage {
			a /= 100
		}
		alpha = uint8(clamp(a*255+0.5, 0, 255))
	}

	switch name {
	case "rgb", "rgba":
		ch := func(c Component) uint8 {
			if c.Kind == ComponentPercentage {
				return uint8(clamp(c.Number/100*255+0.5, 0, 255))
			}
			return uint8(clamp(c.Number+0.5, 0, 255))
		}
		return Color{ch(nums[0]), ch(nums[1]), ch(nums[2]), alpha}, true
	case "hsl", "hsla":
		h := math.Mod(nums[0].Number, 360)
		if h < 0 {
			h += 360
		}
		s := clamp(nums[1].Number/100, 0, 1)
		l := clamp(nums[2].Number/100, 0, 1)
		r, g, b := hslToRGB(h/360, s, l)
		return Color{r, g, b, alpha}, true
	}
	return Color{}, false
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	var t2 float64
	if l <= 0.5 {
		t2 = l * (s + 1)
	} else {
		t2 = l + s - l*s
	}
	t1 := l*2 - t2
	hue := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t*6 < 1:
			v = t1 + (t2-t1)*t*6
		case t*2 < 1:
			v = t2
		case t*3 < 2:
			v = t1 + (t2-t1)*(2.0/3-t)*6
		default:
			v = t1
		}
		return uint8(clamp(v*255+0.5, 0, 255))
	}
	return hue(h + 1.0/3), hue(h), hue(h - 1.0/3)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
