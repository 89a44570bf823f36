// internal/browser/style/collect.go
package style

import (
	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

// ApplicableRule is a style rule whose selector list matched a node, along
// with the specificity of the winning selector.
type ApplicableRule struct {
	Rule        *parser.StyleRule
	Specificity Specificity
}

// CollectedStyles lists the rules matching one node in stylesheet order. It
// borrows the rules from their stylesheets.
type CollectedStyles struct {
	Node  dom.NodeID
	Rules []ApplicableRule
}

// Collect gathers the rules of sheets that match node on a screen medium.
func Collect(sheets []*parser.Stylesheet, doc *dom.Document, node dom.NodeID) CollectedStyles {
	return CollectWithMedia(sheets, parser.Screen, doc, node)
}

// CollectWithMedia is Collect with an explicit media environment. @media
// blocks whose query matches env are walked as if inlined; @font-face rules
// are ignored.
func CollectWithMedia(sheets []*parser.Stylesheet, env parser.MediaEnv, doc *dom.Document, node dom.NodeID) CollectedStyles {
	collected := CollectedStyles{Node: node}
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		sheet.StyleRules(env, func(rule *parser.StyleRule) {
			if _, spec, ok := MostSpecificMatch(doc, node, rule.Selectors); ok {
				collected.Rules = append(collected.Rules, ApplicableRule{Rule: rule, Specificity: spec})
			}
		})
	}
	return collected
}
