// internal/browser/parser/selector.go
package parser

import (
	"strconv"
	"strings"
)

// Selector is one of SimpleSelector, CompoundSelector or ComplexSelector.
type Selector interface {
	isSelector()
	String() string
}

// SelectorList is a comma-separated group of selectors.
type SelectorList []Selector

func (l SelectorList) String() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// SimpleKind discriminates SimpleSelector.
type SimpleKind uint8

const (
	SimpleUniversal SimpleKind = iota
	SimpleType
	SimpleID
	SimpleClass
	SimpleAttribute
	SimplePseudoClass
)

// SimpleSelector matches a single property of a node. Name holds the tag
// (lowercase), id or class; Attribute and Pseudo are used by their kinds.
type SimpleSelector struct {
	Kind      SimpleKind
	Name      string
	Attribute AttributeSelector
	Pseudo    PseudoClass
}

// CompoundSelector matches when all its simple selectors match.
type CompoundSelector []SimpleSelector

// ComplexSelector is a chain of compounds joined by combinators, written left
// to right. Topmost is the leftmost compound; the last link's compound is the
// subject.
type ComplexSelector struct {
	Topmost CompoundSelector
	Links   []Link
}

// Link joins the previous compound to Compound with Combinator.
type Link struct {
	Combinator Combinator
	Compound   CompoundSelector
}

// Combinator relates two compounds of a complex selector.
type Combinator uint8

const (
	CombinatorDescendant Combinator = iota
	CombinatorChild
	CombinatorNextSibling
	CombinatorSubsequentSibling
)

func (c Combinator) String() string {
	switch c {
	case CombinatorChild:
		return " > "
	case CombinatorNextSibling:
		return " + "
	case CombinatorSubsequentSibling:
		return " ~ "
	}
	return " "
}

// AttributeOperator is the comparison of an attribute selector.
type AttributeOperator uint8

const (
	AttrExists AttributeOperator = iota
	AttrEquals
	AttrIncludes  // ~=
	AttrDashMatch // |=
	AttrPrefix    // ^=
	AttrSuffix    // $=
	AttrSubstring // *=
)

var attrOperatorText = [...]string{"", "=", "~=", "|=", "^=", "$=", "*="}

func (o AttributeOperator) String() string { return attrOperatorText[o] }

// AttributeCase is the case-sensitivity flag of an attribute selector.
type AttributeCase uint8

const (
	// CaseDefault follows the HTML rules for the attribute.
	CaseDefault AttributeCase = iota
	// CaseASCIIInsensitive is the "i" flag.
	CaseASCIIInsensitive
	// CaseIdentical is the "s" flag.
	CaseIdentical
)

// AttributeSelector is the content of a [...] selector.
type AttributeSelector struct {
	Name     string
	Operator AttributeOperator
	Value    string
	Case     AttributeCase
}

func (a AttributeSelector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(a.Name)
	if a.Operator != AttrExists {
		sb.WriteString(a.Operator.String())
		sb.WriteString(strconv.Quote(a.Value))
		switch a.Case {
		case CaseASCIIInsensitive:
			sb.WriteString(" i")
		case CaseIdentical:
			sb.WriteString(" s")
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// PseudoClass is a supported pseudo-class.
type PseudoClass uint8

const (
	PseudoChecked PseudoClass = iota
	PseudoDisabled
	PseudoEmpty
	PseudoEnabled
	PseudoFirstChild
	PseudoLastChild
	PseudoOnlyChild
	PseudoRoot
	PseudoLink
	// The dynamic pseudo-classes parse but never match.
	PseudoHover
	PseudoFocus
	PseudoFocusWithin
	PseudoFocusVisible
	PseudoActive
	PseudoVisited
	PseudoTarget
)

var pseudoNames = map[string]PseudoClass{
	"checked":       PseudoChecked,
	"disabled":      PseudoDisabled,
	"empty":         PseudoEmpty,
	"enabled":       PseudoEnabled,
	"first-child":   PseudoFirstChild,
	"last-child":    PseudoLastChild,
	"only-child":    PseudoOnlyChild,
	"root":          PseudoRoot,
	"link":          PseudoLink,
	"any-link":      PseudoLink,
	"hover":         PseudoHover,
	"focus":         PseudoFocus,
	"focus-within":  PseudoFocusWithin,
	"focus-visible": PseudoFocusVisible,
	"active":        PseudoActive,
	"visited":       PseudoVisited,
	"target":        PseudoTarget,
}

var pseudoText = [...]string{
	"checked", "disabled", "empty", "enabled", "first-child", "last-child",
	"only-child", "root", "link", "hover", "focus", "focus-within",
	"focus-visible", "active", "visited", "target",
}

func (p PseudoClass) String() string {
	if int(p) < len(pseudoText) {
		return pseudoText[p]
	}
	return "unknown"
}

// Dynamic reports whether the pseudo-class depends on interaction state.
func (p PseudoClass) Dynamic() bool {
	return p >= PseudoHover
}

func (SimpleSelector) isSelector()   {}
func (CompoundSelector) isSelector() {}
func (ComplexSelector) isSelector()  {}

func (s SimpleSelector) String() string {
	switch s.Kind {
	case SimpleUniversal:
		return "*"
	case SimpleType:
		return s.Name
	case SimpleID:
		return "#" + s.Name
	case SimpleClass:
		return "." + s.Name
	case SimpleAttribute:
		return s.Attribute.String()
	case SimplePseudoClass:
		return ":" + s.Pseudo.String()
	}
	return ""
}

func (c CompoundSelector) String() string {
	var sb strings.Builder
	for _, s := range c {
		sb.WriteString(s.String())
	}
	return sb.String()
}

func (c ComplexSelector) String() string {
	var sb strings.Builder
	sb.WriteString(c.Topmost.String())
	for _, l := range c.Links {
		sb.WriteString(l.Combinator.String())
		sb.WriteString(l.Compound.String())
	}
	return sb.String()
}

// Subject returns the rightmost compound, the one that must match the node itself.
func (c ComplexSelector) Subject() CompoundSelector {
	if len(c.Links) == 0 {
		return c.Topmost
	}
	return c.Links[len(c.Links)-1].Compound
}

// Equal reports structural equality of two selectors through their
// canonical text.
func Equal(a, b Selector) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
