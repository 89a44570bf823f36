// internal/browser/style/match.go
package style

import (
	"strings"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

// Matches reports whether node satisfies sel. Matching is pure and reads the
// document only.
func Matches(doc *dom.Document, node dom.NodeID, sel parser.Selector) bool {
	switch v := sel.(type) {
	case parser.SimpleSelector:
		return matchSimple(doc, node, v)
	case parser.CompoundSelector:
		return matchCompound(doc, node, v)
	case parser.ComplexSelector:
		return matchComplex(doc, node, v, len(v.Links))
	}
	return false
}

// MostSpecificMatch returns the matching selector of list with the highest
// specificity. Ties resolve to the earliest selector in the list.
func MostSpecificMatch(doc *dom.Document, node dom.NodeID, list parser.SelectorList) (parser.Selector, Specificity, bool) {
	var (
		best     parser.Selector
		bestSpec Specificity
		found    bool
	)
	for _, sel := range list {
		spec := SpecificityOf(sel)
		if found && !bestSpec.Less(spec) {
			continue
		}
		if Matches(doc, node, sel) {
			best, bestSpec, found = sel, spec, true
		}
	}
	return best, bestSpec, found
}

func matchCompound(doc *dom.Document, node dom.NodeID, c parser.CompoundSelector) bool {
	for _, s := range c {
		if !matchSimple(doc, node, s) {
			return false
		}
	}
	return len(c) > 0
}

// compoundAt returns the compound at position i of the chain; 0 is Topmost.
func compoundAt(c parser.ComplexSelector, i int) parser.CompoundSelector {
	if i == 0 {
		return c.Topmost
	}
	return c.Links[i-1].Compound
}

// matchComplex matches compounds right to left, starting at index i.
func matchComplex(doc *dom.Document, node dom.NodeID, c parser.ComplexSelector, i int) bool {
	if node == dom.NoNode || !matchCompound(doc, node, compoundAt(c, i)) {
		return false
	}
	if i == 0 {
		return true
	}

	switch c.Links[i-1].Combinator {
	case parser.CombinatorChild:
		parent := doc.Parent(node)
		return parent != dom.NoNode && doc.IsElement(parent) && matchComplex(doc, parent, c, i-1)

	case parser.CombinatorDescendant:
		for a := range doc.Ancestors(node) {
			if !doc.IsElement(a) {
				break
			}
			if matchComplex(doc, a, c, i-1) {
				return true
			}
		}
		return false

	case parser.CombinatorNextSibling:
		return matchComplex(doc, doc.PreviousElementSibling(node), c, i-1)

	case parser.CombinatorSubsequentSibling:
		for s := doc.PreviousElementSibling(node); s != dom.NoNode; s = doc.PreviousElementSibling(s) {
			if matchComplex(doc, s, c, i-1) {
				return true
			}
		}
		return false
	}
	return false
}

func matchSimple(doc *dom.Document, node dom.NodeID, s parser.SimpleSelector) bool {
	if s.Kind == parser.SimpleUniversal {
		// Also true for text nodes, so "*" rules reach anonymous text.
		return true
	}
	if !doc.IsElement(node) {
		return false
	}

	switch s.Kind {
	case parser.SimpleType:
		return asciiEqualFold(doc.TagName(node), s.Name)
	case parser.SimpleID:
		id, ok := doc.Attr(node, "id")
		return ok && id == s.Name
	case parser.SimpleClass:
		for _, c := range doc.Classes(node) {
			if c == s.Name {
				return true
			}
		}
		return false
	case parser.SimpleAttribute:
		return matchAttribute(doc, node, s.Attribute)
	case parser.SimplePseudoClass:
		return matchPseudo(doc, node, s.Pseudo)
	}
	return false
}

// caseInsensitiveAttributes are the HTML attributes whose values selectors
// compare ASCII-case-insensitively by default.
var caseInsensitiveAttributes = map[string]bool{
	"accept": true, "accept-charset": true, "align": true, "alink": true, "axis": true,
	"bgcolor": true, "charset": true, "checked": true, "clear": true, "codetype": true,
	"color": true, "compact": true, "declare": true, "defer": true, "dir": true,
	"direction": true, "disabled": true, "enctype": true, "face": true, "frame": true,
	"hreflang": true, "http-equiv": true, "lang": true, "language": true, "link": true,
	"media": true, "method": true, "multiple": true, "nohref": true, "noresize": true,
	"noshade": true, "nowrap": true, "readonly": true, "rel": true, "rev": true,
	"rules": true, "scope": true, "scrolling": true, "selected": true, "shape": true,
	"target": true, "text": true, "type": true, "valign": true, "valuetype": true,
	"vlink": true,
}

func matchAttribute(doc *dom.Document, node dom.NodeID, sel parser.AttributeSelector) bool {
	actual, found := doc.Attr(node, sel.Name)
	if !found {
		return false
	}
	if sel.Operator == parser.AttrExists {
		return true
	}

	want := sel.Value
	fold := sel.Case == parser.CaseASCIIInsensitive ||
		(sel.Case == parser.CaseDefault && caseInsensitiveAttributes[sel.Name])
	if fold {
		actual, want = asciiLower(actual), asciiLower(want)
	}

	switch sel.Operator {
	case parser.AttrEquals:
		return actual == want
	case parser.AttrIncludes:
		if want == "" || strings.ContainsAny(want, " \t\n\f\r") {
			return false
		}
		for _, word := range strings.Fields(actual) {
			if word == want {
				return true
			}
		}
		return false
	case parser.AttrDashMatch:
		return actual == want || strings.HasPrefix(actual, want+"-")
	case parser.AttrPrefix:
		return want != "" && strings.HasPrefix(actual, want)
	case parser.AttrSuffix:
		return want != "" && strings.HasSuffix(actual, want)
	case parser.AttrSubstring:
		return want != "" && strings.Contains(actual, want)
	}
	return false
}

var formControls = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"optgroup": true, "option": true, "fieldset": true,
}

func matchPseudo(doc *dom.Document, node dom.NodeID, pc parser.PseudoClass) bool {
	switch pc {
	case parser.PseudoEmpty:
		for c := range doc.Children(node) {
			switch doc.Kind(c) {
			case dom.KindComment:
			case dom.KindText:
				if !doc.IsWhitespaceText(c) {
					return false
				}
			default:
				return false
			}
		}
		return true

	case parser.PseudoChecked:
		if doc.ElementKind(node) != dom.Input || !doc.HasAttr(node, "checked") {
			return false
		}
		t, _ := doc.Attr(node, "type")
		t = asciiLower(t)
		return t == "checkbox" || t == "radio"

	case parser.PseudoFirstChild:
		return hasParent(doc, node) && doc.PreviousElementSibling(node) == dom.NoNode
	case parser.PseudoLastChild:
		return hasParent(doc, node) && doc.NextElementSibling(node) == dom.NoNode
	case parser.PseudoOnlyChild:
		return hasParent(doc, node) &&
			doc.PreviousElementSibling(node) == dom.NoNode &&
			doc.NextElementSibling(node) == dom.NoNode

	case parser.PseudoRoot:
		return node == doc.DocumentElement()

	case parser.PseudoLink:
		tag := doc.TagName(node)
		return (tag == "a" || tag == "area") && doc.HasAttr(node, "href")

	case parser.PseudoDisabled:
		return formControls[doc.TagName(node)] && doc.HasAttr(node, "disabled")
	case parser.PseudoEnabled:
		return formControls[doc.TagName(node)] && !doc.HasAttr(node, "disabled")
	}

	// No interaction state, so dynamic pseudo-classes never match.
	return false
}

func hasParent(doc *dom.Document, node dom.NodeID) bool {
	return doc.Parent(node) != dom.NoNode
}

func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func asciiEqualFold(a, b string) bool {
	return len(a) == len(b) && asciiLower(a) == asciiLower(b)
}
