package dom

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Path returns an XPath-like location for id, used to identify nodes in
// diagnostics and box dumps. An element with an id attribute anchors the
// path, e.g. //*[@id='main']/p[2]/text()[1].
func (d *Document) Path(id NodeID) string {
	if !d.Valid(id) {
		return ""
	}

	var segments []string
	anchored := false
	for n := id; n != NoNode && d.nodes[n].Kind != KindDocument; n = d.nodes[n].Parent {
		node := d.nodes[n]
		switch node.Kind {
		case KindElement:
			if v, ok := d.Attr(n, "id"); ok && v != "" {
				segments = append(segments, fmt.Sprintf("//*[@id='%s']", v))
				anchored = true
			} else {
				segments = append(segments, fmt.Sprintf("%s[%d]", node.Tag, d.sameKindIndex(n)))
			}
		case KindText:
			segments = append(segments, fmt.Sprintf("text()[%d]", d.sameKindIndex(n)))
		case KindComment:
			segments = append(segments, fmt.Sprintf("comment()[%d]", d.sameKindIndex(n)))
		}
		if anchored {
			break
		}
	}

	if len(segments) == 0 {
		return "/"
	}
	slices.Reverse(segments)
	path := strings.Join(segments, "/")
	if !anchored {
		path = "/" + path
	}
	return path
}

// sameKindIndex is the 1-based position of id among preceding siblings of
// the same kind (and tag, for elements).
func (d *Document) sameKindIndex(id NodeID) int {
	n := d.nodes[id]
	index := 1
	for s := n.PrevSibling; s != NoNode; s = d.nodes[s].PrevSibling {
		sib := d.nodes[s]
		if sib.Kind == n.Kind && sib.Tag == n.Tag {
			index++
		}
	}
	return index
}

// Lang returns the language of id taken from the nearest lang attribute on
// it or an ancestor. Unparseable or missing values yield language.Und.
func (d *Document) Lang(id NodeID) language.Tag {
	for n := id; n != NoNode; n = d.nodes[n].Parent {
		if d.nodes[n].Kind != KindElement {
			continue
		}
		v, ok := d.Attr(n, "lang")
		if !ok {
			if v, ok = d.Attr(n, "xml:lang"); !ok {
				continue
			}
		}
		tag, err := language.Parse(strings.TrimSpace(v))
		if err != nil {
			return language.Und
		}
		return tag
	}
	return language.Und
}
