// internal/browser/style/compute.go
package style

import (
	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

// InheritedProperties are copied from the parent when a node leaves them unset.
var InheritedProperties = []parser.Property{
	"color",
	"font-family",
	"font-size",
	"font-style",
	"font-weight",
	"font-kerning",
	"font-variant-caps",
	"font-variant-ligatures",
	"line-height",
	"text-transform",
	"white-space",
	"text-align",
	"visibility",
}

var inherited = func() map[parser.Property]bool {
	m := make(map[parser.Property]bool, len(InheritedProperties))
	for _, p := range InheritedProperties {
		m[p] = true
	}
	return m
}()

// IsInherited reports whether p inherits by default.
func IsInherited(p parser.Property) bool { return inherited[p] }

// Inherit fills every inherited property that m leaves unset from parent.
func Inherit(m, parent PropertyMap) {
	if parent == nil {
		return
	}
	for _, p := range InheritedProperties {
		if _, ok := m[p]; ok {
			continue
		}
		if v, ok := parent[p]; ok {
			m[p] = v
		}
	}
}

// Environment is what computed values depend on beyond the cascade.
type Environment struct {
	DefaultFontSize float64
	ViewportWidth   float64
	ViewportHeight  float64
}

// DefaultEnvironment is a 1024x768 viewport with a 16px base font.
var DefaultEnvironment = Environment{DefaultFontSize: BaseFontSize, ViewportWidth: 1024, ViewportHeight: 768}

// Compute cascades collected and derives the computed map against parent,
// which is nil for the root.
func Compute(collected CollectedStyles, doc *dom.Document, parent PropertyMap) PropertyMap {
	return DefaultEnvironment.compute(collected.Cascade(doc), parent)
}

// compute resolves CSS-wide keywords, applies inheritance and converts font
// size and weight to absolute values.
func (env Environment) compute(m, parent PropertyMap) PropertyMap {
	for p, v := range m {
		switch v.Keyword() {
		case "inherit":
			m.inheritOne(p, parent)
		case "initial":
			delete(m, p)
		case "unset":
			if IsInherited(p) {
				m.inheritOne(p, parent)
			} else {
				delete(m, p)
			}
		}
	}

	parentSize := env.DefaultFontSize
	parentWeight := 400
	if parent != nil {
		parentSize = parent.FontSizeOr(env.DefaultFontSize)
		parentWeight = parent.FontWeight()
	}

	if v, ok := m["font-size"]; ok {
		m["font-size"] = parser.Px(env.resolveFontSize(v, parentSize))
	}
	if v, ok := m["font-weight"]; ok {
		switch v.Keyword() {
		case "bolder":
			m["font-weight"] = weightValue(bolder(parentWeight))
		case "lighter":
			m["font-weight"] = weightValue(lighter(parentWeight))
		}
	}

	Inherit(m, parent)
	return m
}

func (m PropertyMap) inheritOne(p parser.Property, parent PropertyMap) {
	if v, ok := parent[p]; ok {
		m[p] = v
		return
	}
	delete(m, p)
}

// FontSizeOr is FontSize with an explicit default.
func (m PropertyMap) FontSizeOr(def float64) float64 {
	if _, ok := m["font-size"]; !ok {
		return def
	}
	return m.FontSize()
}

var absoluteFontSizes = map[string]float64{
	"xx-small":  3.0 / 5,
	"x-small":   3.0 / 4,
	"small":     8.0 / 9,
	"medium":    1,
	"large":     6.0 / 5,
	"x-large":   3.0 / 2,
	"xx-large":  2,
	"xxx-large": 3,
}

func (env Environment) resolveFontSize(v parser.Value, parentSize float64) float64 {
	if k := v.Keyword(); k != "" {
		if scale, ok := absoluteFontSizes[k]; ok {
			return env.DefaultFontSize * scale
		}
		switch k {
		case "larger":
			return parentSize * 1.2
		case "smaller":
			return parentSize / 1.2
		}
		return parentSize
	}
	lc := LengthContext{
		FontSize:       parentSize,
		RootFontSize:   env.DefaultFontSize,
		ViewportWidth:  env.ViewportWidth,
		ViewportHeight: env.ViewportHeight,
	}
	if px, ok := lc.Resolve(v, parentSize); ok && px >= 0 {
		return px
	}
	return parentSize
}

func weightValue(w int) parser.Value {
	return parser.NewValue(parser.Component{Kind: parser.ComponentNumber, Number: float64(w)})
}

func bolder(w int) int {
	switch {
	case w < 350:
		return 400
	case w < 550:
		return 700
	case w < 900:
		return 900
	}
	return w
}

func lighter(w int) int {
	switch {
	case w < 100:
		return w
	case w < 550:
		return 100
	case w < 750:
		return 400
	}
	return 700
}
