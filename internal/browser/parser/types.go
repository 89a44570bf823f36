// internal/browser/parser/types.go
package parser

import "net/url"

// Origin identifies who supplied a stylesheet. Declarations from a later
// origin override earlier ones during the cascade.
type Origin uint8

const (
	OriginUserAgent Origin = iota
	OriginUser
	OriginAuthor
)

func (o Origin) String() string {
	switch o {
	case OriginUserAgent:
		return "user-agent"
	case OriginUser:
		return "user"
	case OriginAuthor:
		return "author"
	}
	return "unknown"
}

// Property is a lowercase CSS property name (e.g., "margin-top").
type Property string

// Declaration is a single property/value pair of a rule.
type Declaration struct {
	Property Property
	Value    Value
	// Important is recorded but the cascade has no important tier.
	Important bool
}

// Stylesheet is a parsed sheet. It is not modified after parsing.
type Stylesheet struct {
	Origin Origin
	Rules  []Rule
	// Imports lists @import targets in source order.
	Imports []string
	// BaseURL resolves relative url() references. May be nil.
	BaseURL *url.URL
}

// Rule is one of *StyleRule, *MediaRule or *FontFaceRule.
type Rule interface {
	isRule()
}

// StyleRule applies Declarations to every node matched by Selectors.
type StyleRule struct {
	Origin       Origin
	Selectors    SelectorList
	Declarations []Declaration
}

// MediaRule groups rules that apply only when Query matches.
type MediaRule struct {
	Query MediaQuery
	Rules []Rule
}

// FontFaceRule is an @font-face block.
type FontFaceRule struct {
	Family string
	// Style is "" when font-style was not declared.
	Style string
	// Weight is nil when font-weight was not declared.
	Weight        *WeightRange
	UnicodeRanges []UnicodeRange
	Sources       []FontSource
}

func (*StyleRule) isRule()    {}
func (*MediaRule) isRule()    {}
func (*FontFaceRule) isRule() {}

// WeightRange is an inclusive font-weight range. A single weight has Min == Max.
type WeightRange struct {
	Min, Max int
}

// Contains reports whether w lies within the range.
func (r WeightRange) Contains(w int) bool {
	return w >= r.Min && w <= r.Max
}

// UnicodeRange is an inclusive code point range.
type UnicodeRange struct {
	Lo, Hi rune
}

// Intersects reports whether the two ranges overlap.
func (r UnicodeRange) Intersects(o UnicodeRange) bool {
	return r.Lo <= o.Hi && o.Lo <= r.Hi
}

// FontSource is one entry of an @font-face src list: either a url() with an
// optional format hint, or a local() face name.
type FontSource struct {
	URL    string
	Format string
	Local  string
}

// IsLocal reports whether the source names a locally installed face.
func (s FontSource) IsLocal() bool { return s.Local != "" }

// StyleRules yields every style rule in the sheet, descending into media
// rules whose query matches env.
func (s *Stylesheet) StyleRules(env MediaEnv, yield func(*StyleRule)) {
	walkRules(s.Rules, env, yield)
}

func walkRules(rules []Rule, env MediaEnv, yield func(*StyleRule)) {
	for _, r := range rules {
		switch rule := r.(type) {
		case *StyleRule:
			yield(rule)
		case *MediaRule:
			if rule.Query.Matches(env) {
				walkRules(rule.Rules, env, yield)
			}
		case *FontFaceRule:
		}
	}
}

// FontFaces returns the @font-face rules of the sheet in order, including
// those nested in media rules that match env.
func (s *Stylesheet) FontFaces(env MediaEnv) []*FontFaceRule {
	var out []*FontFaceRule
	var walk func([]Rule)
	walk = func(rules []Rule) {
		for _, r := range rules {
			switch rule := r.(type) {
			case *FontFaceRule:
				out = append(out, rule)
			case *MediaRule:
				if rule.Query.Matches(env) {
					walk(rule.Rules)
				}
			case *StyleRule:
			}
		}
	}
	walk(s.Rules)
	return out
}
