// internal/browser/parser/media.go
package parser

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// MediaEnv describes the output device media queries are evaluated against.
type MediaEnv struct {
	Type          string
	Width, Height float64
}

// Screen is the environment of a 1024x768 screen.
var Screen = MediaEnv{Type: "screen", Width: 1024, Height: 768}

// MediaQuery is a comma-separated media query list. An empty list matches
// every environment.
type MediaQuery struct {
	Raw     string
	Queries []MediaQueryItem
}

// MediaQueryItem is one query of the list: [not|only] type [and (feature)]*.
type MediaQueryItem struct {
	Not      bool
	Type     string
	Features []MediaFeature
	// Invalid queries never match.
	Invalid bool
}

// MediaFeature is a parenthesized feature test, e.g. (min-width: 600px).
type MediaFeature struct {
	Name  string
	Value Component
	// HasValue is false for boolean features such as (color).
	HasValue bool
}

// Matches evaluates the query list against env.
func (q MediaQuery) Matches(env MediaEnv) bool {
	if len(q.Queries) == 0 {
		return true
	}
	for _, item := range q.Queries {
		if item.matches(env) {
			return true
		}
	}
	return false
}

func (item MediaQueryItem) matches(env MediaEnv) bool {
	if item.Invalid {
		return false
	}
	ok := item.Type == "" || item.Type == "all" || item.Type == env.Type
	for _, f := range item.Features {
		ok = ok && f.matches(env)
	}
	if item.Not {
		return !ok
	}
	return ok
}

func (f MediaFeature) matches(env MediaEnv) bool {
	if !f.HasValue {
		return f.Name == "color" || f.Name == "width" || f.Name == "height"
	}
	switch f.Name {
	case "width":
		return mediaLength(f.Value) == env.Width
	case "min-width":
		return env.Width >= mediaLength(f.Value)
	case "max-width":
		return env.Width <= mediaLength(f.Value)
	case "height":
		return mediaLength(f.Value) == env.Height
	case "min-height":
		return env.Height >= mediaLength(f.Value)
	case "max-height":
		return env.Height <= mediaLength(f.Value)
	case "orientation":
		portrait := env.Height >= env.Width
		return (f.Value.Text == "portrait") == portrait
	case "prefers-color-scheme":
		return f.Value.Text == "light"
	case "prefers-reduced-motion":
		return f.Value.Text == "no-preference"
	}
	return false
}

// mediaLength resolves a media feature length; font-relative units use the
// initial font size of 16px.
func mediaLength(c Component) float64 {
	switch c.Kind {
	case ComponentNumber:
		return c.Number
	case ComponentLength:
		switch c.Unit {
		case UnitEm, UnitRem:
			return c.Number * 16
		case UnitPt:
			return c.Number * 4 / 3
		case UnitIn:
			return c.Number * 96
		case UnitCm:
			return c.Number * 96 / 2.54
		case UnitMm:
			return c.Number * 96 / 25.4
		}
		return c.Number
	}
	return -1
}

// parseMediaQuery reads the prelude tokens of an @media rule.
func parseMediaQuery(tokens []css.Token) MediaQuery {
	mq := MediaQuery{Raw: rawText(tokens)}
	for _, group := range splitTopLevel(tokens) {
		mq.Queries = append(mq.Queries, parseMediaQueryItem(group))
	}
	return mq
}

func parseMediaQueryItem(tokens []css.Token) MediaQueryItem {
	var item MediaQueryItem
	expectType := true
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.TokenType {
		case css.WhitespaceToken:
		case css.IdentToken:
			word := strings.ToLower(string(t.Data))
			switch {
			case word == "not" && expectType:
				item.Not = true
			case word == "only" && expectType:
			case word == "and":
			case expectType:
				item.Type = word
				expectType = false
			default:
				item.Invalid = true
			}
		case css.LeftParenthesisToken:
			end := matchingParen(tokens, i)
			feature, ok := parseMediaFeature(tokens[i+1 : end])
			if !ok {
				item.Invalid = true
			}
			item.Features = append(item.Features, feature)
			expectType = false
			i = end
		default:
			item.Invalid = true
		}
	}
	return item
}

func parseMediaFeature(tokens []css.Token) (MediaFeature, bool) {
	var f MediaFeature
	var rest []css.Token
	for i, t := range tokens {
		if t.TokenType == css.IdentToken && f.Name == "" {
			f.Name = strings.ToLower(string(t.Data))
			continue
		}
		if t.TokenType == css.ColonToken {
			rest = tokens[i+1:]
			break
		}
	}
	if f.Name == "" {
		return f, false
	}
	if rest != nil {
		cs := newTokenStream(rest).components(false)
		if len(cs) != 1 {
			return f, false
		}
		f.Value, f.HasValue = cs[0], true
	}
	return f, true
}

// matchingParen returns the index of the parenthesis closing tokens[open],
// or len(tokens) when it is missing.
func matchingParen(tokens []css.Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].TokenType {
		case css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens)
}
