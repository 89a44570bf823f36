// internal/browser/style/specificity.go
package style

import (
	"cmp"
	"fmt"

	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

// Specificity is the (ids, classes, types) weight of a selector. Values are
// ordered lexicographically.
type Specificity struct {
	IDs     int
	Classes int
	Types   int
}

// SpecificityOf counts the simple selectors of sel. Attribute selectors and
// pseudo-classes count as classes; the universal selector counts as nothing.
func SpecificityOf(sel parser.Selector) Specificity {
	var s Specificity
	switch v := sel.(type) {
	case parser.SimpleSelector:
		s.addSimple(v)
	case parser.CompoundSelector:
		s.addCompound(v)
	case parser.ComplexSelector:
		s.addCompound(v.Topmost)
		for _, l := range v.Links {
			s.addCompound(l.Compound)
		}
	}
	return s
}

func (s *Specificity) addCompound(c parser.CompoundSelector) {
	for _, simple := range c {
		s.addSimple(simple)
	}
}

func (s *Specificity) addSimple(simple parser.SimpleSelector) {
	switch simple.Kind {
	case parser.SimpleUniversal:
	case parser.SimpleID:
		s.IDs++
	case parser.SimpleClass, parser.SimpleAttribute, parser.SimplePseudoClass:
		s.Classes++
	case parser.SimpleType:
		s.Types++
	default:
		panic(fmt.Sprintf("style: unknown simple selector kind %d", simple.Kind))
	}
}

// Compare returns -1, 0 or +1 as s is less than, equal to or greater than o.
func (s Specificity) Compare(o Specificity) int {
	switch {
	case s.IDs != o.IDs:
		return cmp.Compare(s.IDs, o.IDs)
	case s.Classes != o.Classes:
		return cmp.Compare(s.Classes, o.Classes)
	default:
		return cmp.Compare(s.Types, o.Types)
	}
}

// Less reports whether s orders strictly before o.
func (s Specificity) Less(o Specificity) bool { return s.Compare(o) < 0 }

func (s Specificity) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.IDs, s.Classes, s.Types)
}
