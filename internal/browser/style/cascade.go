// internal/browser/style/cascade.go
package style

import (
	"slices"
	"strings"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

// Cascade resolves the collected rules into a PropertyMap. Origins apply in
// ascending precedence: user agent, user, presentational hints, author, and
// finally the element's style attribute. Inside one origin, rules apply in
// stylesheet order and specificity is not consulted; later writes win.
func (c CollectedStyles) Cascade(doc *dom.Document) PropertyMap {
	return c.cascade(doc, false)
}

// CascadeBySpecificity is Cascade with the rules of each origin stably
// ordered by ascending specificity first, as CSS prescribes.
func (c CollectedStyles) CascadeBySpecificity(doc *dom.Document) PropertyMap {
	return c.cascade(doc, true)
}

func (c CollectedStyles) cascade(doc *dom.Document, bySpecificity bool) PropertyMap {
	rules := c.Rules
	if bySpecificity {
		rules = slices.Clone(rules)
		slices.SortStableFunc(rules, func(a, b ApplicableRule) int {
			return a.Specificity.Compare(b.Specificity)
		})
	}

	m := make(PropertyMap)
	m.applyOrigin(rules, parser.OriginUserAgent)
	m.applyOrigin(rules, parser.OriginUser)
	if doc != nil && c.Node != dom.NoNode && doc.IsElement(c.Node) {
		m.applyPresentationalHints(doc, c.Node)
	}
	m.applyOrigin(rules, parser.OriginAuthor)
	if doc != nil && c.Node != dom.NoNode && doc.IsElement(c.Node) {
		if style, ok := doc.Attr(c.Node, "style"); ok && strings.TrimSpace(style) != "" {
			m.applyDeclarations(parser.ParseDeclarations([]byte(style)))
		}
	}
	return m
}

func (m PropertyMap) applyOrigin(rules []ApplicableRule, origin parser.Origin) {
	for _, r := range rules {
		if r.Rule.Origin == origin {
			m.applyDeclarations(r.Rule.Declarations)
		}
	}
}

func (m PropertyMap) applyDeclarations(decls []parser.Declaration) {
	for _, d := range decls {
		m[d.Property] = d.Value
	}
}

// -- Presentational hints --

func (m PropertyMap) applyPresentationalHints(doc *dom.Document, node dom.NodeID) {
	switch doc.ElementKind(node) {
	case dom.Body:
		if v, ok := doc.Attr(node, "bgcolor"); ok {
			if c, ok := ParseLegacyColor(v); ok {
				m["background-color"] = colorValue(c)
			}
		}
		if v, ok := doc.Attr(node, "text"); ok {
			if c, ok := ParseLegacyColor(v); ok {
				m["color"] = colorValue(c)
			}
		}
		m["margin-top"] = parser.Px(bodyMargin(doc, node, "marginheight", "topmargin"))
		m["margin-right"] = parser.Px(bodyMargin(doc, node, "marginwidth", "rightmargin"))
		m["margin-bottom"] = parser.Px(bodyMargin(doc, node, "marginheight", "bottommargin"))
		m["margin-left"] = parser.Px(bodyMargin(doc, node, "marginwidth", "leftmargin"))

	case dom.Img:
		for _, p := range []parser.Property{"width", "height"} {
			if v, ok := doc.Attr(node, string(p)); ok {
				if dim, ok := parseDimension(v); ok {
					m[p] = dim
				}
			}
		}
	}
}

// bodyMargin reads the first attribute if present, otherwise the second,
// falling back to 8px.
func bodyMargin(doc *dom.Document, node dom.NodeID, primary, secondary string) float64 {
	if v, ok := doc.Attr(node, primary); ok {
		if n, ok := parseNonNegativeInteger(v); ok {
			return float64(n)
		}
	} else if v, ok := doc.Attr(node, secondary); ok {
		if n, ok := parseNonNegativeInteger(v); ok {
			return float64(n)
		}
	}
	return 8
}

func colorValue(c parser.Color) parser.Value {
	return parser.NewValue(parser.Component{Kind: parser.ComponentColor, Color: c})
}

// parseNonNegativeInteger reads the leading digits after optional whitespace
// and a plus sign.
func parseNonNegativeInteger(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\f\r")
	s = strings.TrimPrefix(s, "+")
	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		if n < 1<<24 {
			n = n*10 + int(s[digits]-'0')
		}
	}
	return n, digits > 0
}

// parseDimension maps an HTML dimension attribute ("120", "50%") to a value.
func parseDimension(s string) (parser.Value, bool) {
	n, ok := parseNonNegativeInteger(s)
	if !ok {
		return parser.Value{}, false
	}
	rest := strings.TrimLeft(strings.TrimLeft(strings.TrimSpace(s), "+"), "0123456789")
	if strings.HasPrefix(rest, "%") {
		return parser.NewValue(parser.Component{Kind: parser.ComponentPercentage, Number: float64(n)}), true
	}
	return parser.Px(float64(n)), true
}

// ParseLegacyColor implements the HTML rules for legacy color attributes such
// as bgcolor="chucknorris".
func ParseLegacyColor(s string) (parser.Color, bool) {
	s = strings.Trim(s, " \t\n\f\r")
	if s == "" || strings.EqualFold(s, "transparent") {
		return parser.Color{}, false
	}
	if c, ok := parser.NamedColor(s); ok {
		return c, true
	}
	if len(s) == 4 && s[0] == '#' {
		if c, ok := parser.ParseHexColor(s); ok {
			return c, true
		}
	}

	var b strings.Builder
	for _, r := range s {
		if r > 0xFFFF {
			b.WriteString("00")
		} else {
			b.WriteRune(r)
		}
	}
	digits := []byte(b.String())
	if len(digits) > 128 {
		digits = digits[:128]
	}
	if len(digits) > 0 && digits[0] == '#' {
		digits = digits[1:]
	}
	for i, c := range digits {
		if !isHex(c) {
			digits[i] = '0'
		}
	}
	for len(digits) == 0 || len(digits)%3 != 0 {
		digits = append(digits, '0')
	}

	n := len(digits) / 3
	parts := [3][]byte{digits[:n], digits[n : 2*n], digits[2*n:]}
	if n > 8 {
		for i := range parts {
			parts[i] = parts[i][n-8:]
		}
		n = 8
	}
	for n > 2 && parts[0][0] == '0' && parts[1][0] == '0' && parts[2][0] == '0' {
		for i := range parts {
			parts[i] = parts[i][1:]
		}
		n--
	}
	if n > 2 {
		for i := range parts {
			parts[i] = parts[i][:2]
		}
	}

	var ch [3]uint8
	for i, p := range parts {
		v := 0
		for _, c := range p {
			v = v<<4 | hexValue(c)
		}
		ch[i] = uint8(v)
	}
	return parser.Color{R: ch[0], G: ch[1], B: ch[2], A: 255}, true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}
