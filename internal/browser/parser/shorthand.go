// internal/browser/parser/shorthand.go
package parser

var sides = [4]string{"top", "right", "bottom", "left"}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

var borderWidthKeywords = map[string]bool{"thin": true, "medium": true, "thick": true}

var fontSizeKeywords = map[string]bool{
	"xx-small": true, "x-small": true, "small": true, "medium": true, "large": true,
	"x-large": true, "xx-large": true, "xxx-large": true, "larger": true, "smaller": true,
}

var fontStretchKeywords = map[string]bool{
	"ultra-condensed": true, "extra-condensed": true, "condensed": true, "semi-condensed": true,
	"semi-expanded": true, "expanded": true, "extra-expanded": true, "ultra-expanded": true,
}

func isCSSWideKeyword(k string) bool {
	return k == "inherit" || k == "initial" || k == "unset"
}

// longhandsOf lists the longhands a shorthand sets, in a stable order.
func longhandsOf(p Property) []Property {
	switch p {
	case "margin", "padding":
		return sideProps(string(p), "")
	case "border-width":
		return sideProps("border", "-width")
	case "border-style":
		return sideProps("border", "-style")
	case "border-color":
		return sideProps("border", "-color")
	case "border":
		var out []Property
		for _, suffix := range []string{"-width", "-style", "-color"} {
			out = append(out, sideProps("border", suffix)...)
		}
		return out
	case "border-top", "border-right", "border-bottom", "border-left":
		return []Property{p + "-width", p + "-style", p + "-color"}
	case "background":
		return []Property{"background-color", "background-image"}
	case "font":
		return []Property{"font-style", "font-variant-caps", "font-weight", "font-size", "line-height", "font-family"}
	}
	return nil
}

func sideProps(prefix, suffix string) []Property {
	out := make([]Property, 4)
	for i, s := range sides {
		out[i] = Property(prefix + "-" + s + suffix)
	}
	return out
}

// IsShorthand reports whether the property is expanded at parse time.
func IsShorthand(p Property) bool {
	return longhandsOf(p) != nil
}

// expandShorthand rewrites a shorthand declaration into its longhands.
// Non-shorthands are returned unchanged. An unparseable shorthand yields nil.
func expandShorthand(d Declaration) []Declaration {
	longhands := longhandsOf(d.Property)
	if longhands == nil {
		return []Declaration{d}
	}

	if k := d.Value.Keyword(); isCSSWideKeyword(k) {
		out := make([]Declaration, len(longhands))
		for i, p := range longhands {
			out[i] = Declaration{Property: p, Value: d.Value, Important: d.Important}
		}
		return out
	}

	var values map[Property]Value
	switch d.Property {
	case "margin", "padding", "border-width", "border-style", "border-color":
		values = expandBoxSides(longhands, d.Value.Components)
	case "border":
		values = expandBorder(d.Value.Components, sides[:]...)
	case "border-top", "border-right", "border-bottom", "border-left":
		values = expandBorder(d.Value.Components, string(d.Property[len("border-"):]))
	case "background":
		values = expandBackground(d.Value.Components)
	case "font":
		values = expandFont(d.Value.Components)
	}
	if values == nil {
		return nil
	}

	out := make([]Declaration, 0, len(longhands))
	for _, p := range longhands {
		if v, ok := values[p]; ok {
			out = append(out, Declaration{Property: p, Value: v, Important: d.Important})
		}
	}
	return out
}

// expandBoxSides applies the 1-to-4 value rule: top, right, bottom, left.
func expandBoxSides(longhands []Property, cs []Component) map[Property]Value {
	var parts []Component
	for _, c := range cs {
		if c.Kind == ComponentComma || c.Kind == ComponentSlash {
			return nil
		}
		parts = append(parts, c)
	}
	var t, r, b, l Component
	switch len(parts) {
	case 1:
		t, r, b, l = parts[0], parts[0], parts[0], parts[0]
	case 2:
		t, r, b, l = parts[0], parts[1], parts[0], parts[1]
	case 3:
		t, r, b, l = parts[0], parts[1], parts[2], parts[1]
	case 4:
		t, r, b, l = parts[0], parts[1], parts[2], parts[3]
	default:
		return nil
	}
	return map[Property]Value{
		longhands[0]: NewValue(t),
		longhands[1]: NewValue(r),
		longhands[2]: NewValue(b),
		longhands[3]: NewValue(l),
	}
}

// expandBorder handles border and border-<side>. Omitted parts reset to
// their initial values.
func expandBorder(cs []Component, which ...string) map[Property]Value {
	width := Keyword("medium")
	style := Keyword("none")
	color := Keyword("currentcolor")
	var haveWidth, haveStyle, haveColor bool

	for _, c := range cs {
		switch {
		case !haveWidth && (c.IsLength() || (c.Kind == ComponentKeyword && borderWidthKeywords[c.Text])):
			width, haveWidth = NewValue(c), true
		case !haveStyle && c.Kind == ComponentKeyword && borderStyles[c.Text]:
			style, haveStyle = NewValue(c), true
		case !haveColor && (c.Kind == ComponentKeyword && c.Text == "currentcolor"):
			color, haveColor = NewValue(c), true
		case !haveColor && isColorComponent(c):
			color, haveColor = NewValue(c), true
		default:
			return nil
		}
	}

	out := make(map[Property]Value, 3*len(which))
	for _, side := range which {
		out[Property("border-"+side+"-width")] = width
		out[Property("border-"+side+"-style")] = style
		out[Property("border-"+side+"-color")] = color
	}
	return out
}

func isColorComponent(c Component) bool {
	_, ok := c.AsColor()
	return ok
}

func expandBackground(cs []Component) map[Property]Value {
	out := map[Property]Value{
		"background-color": Keyword("transparent"),
		"background-image": Keyword("none"),
	}
	for _, c := range cs {
		switch {
		case c.Kind == ComponentURL:
			out["background-image"] = NewValue(c)
		case c.Kind == ComponentKeyword && c.Text == "none":
			out["background-image"] = NewValue(c)
		case c.Kind == ComponentKeyword && c.Text == "currentcolor":
			out["background-color"] = NewValue(c)
		case isColorComponent(c):
			out["background-color"] = NewValue(c)
		}
		// Repeat, position, size and attachment have no longhand here.
	}
	return out
}

// expandFont parses [style || variant || weight || stretch]? size [/ line-height]? family.
func expandFont(cs []Component) map[Property]Value {
	out := map[Property]Value{
		"font-style":        Keyword("normal"),
		"font-variant-caps": Keyword("normal"),
		"font-weight":       Keyword("normal"),
		"line-height":       Keyword("normal"),
	}

	i := 0
	for ; i < len(cs); i++ {
		c := cs[i]
		if c.Kind == ComponentKeyword {
			switch {
			case c.Text == "normal":
				continue
			case c.Text == "italic" || c.Text == "oblique":
				out["font-style"] = NewValue(c)
				continue
			case c.Text == "small-caps":
				out["font-variant-caps"] = NewValue(c)
				continue
			case c.Text == "bold" || c.Text == "bolder" || c.Text == "lighter":
				out["font-weight"] = NewValue(c)
				continue
			case fontStretchKeywords[c.Text]:
				continue
			}
		}
		if c.Kind == ComponentNumber && c.Number >= 1 && c.Number <= 1000 {
			out["font-weight"] = NewValue(c)
			continue
		}
		break
	}

	if i >= len(cs) {
		return nil
	}
	size := cs[i]
	if !(size.Kind == ComponentLength || size.Kind == ComponentPercentage ||
		(size.Kind == ComponentKeyword && fontSizeKeywords[size.Text])) {
		return nil
	}
	out["font-size"] = NewValue(size)
	i++

	if i < len(cs) && cs[i].Kind == ComponentSlash {
		if i+1 >= len(cs) {
			return nil
		}
		out["line-height"] = NewValue(cs[i+1])
		i += 2
	}

	if i >= len(cs) {
		return nil
	}
	out["font-family"] = NewValue(cs[i:]...)
	return out
}
