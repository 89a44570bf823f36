package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

// Parse reads an HTML document with the HTML5 tree construction rules.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	d := NewDocument()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		d.importHTML(d.Root(), c)
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func (d *Document) importHTML(parent NodeID, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		attrs := make([]Attribute, 0, len(n.Attr))
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			attrs = append(attrs, Attribute{Name: name, Value: a.Val})
		}
		id := d.AppendElement(parent, n.Data, attrs...)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			d.importHTML(id, c)
		}
	case html.TextNode:
		d.AppendText(parent, n.Data)
	case html.CommentNode:
		d.AppendComment(parent, n.Data)
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			d.importHTML(parent, c)
		}
	}
	// Doctype and raw nodes carry nothing the engine renders.
}

// ParseXHTML reads a well-formed XML or XHTML document. Namespace prefixes
// are dropped from element names and kept on attribute names.
func ParseXHTML(r io.Reader) (*Document, error) {
	x := etree.NewDocument()
	x.ReadSettings.Permissive = true
	if _, err := x.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing xhtml: %w", err)
	}
	root := x.Root()
	if root == nil {
		return nil, fmt.Errorf("parsing xhtml: document has no root element")
	}
	d := NewDocument()
	d.importXML(d.Root(), root)
	return d, nil
}

func (d *Document) importXML(parent NodeID, e *etree.Element) {
	attrs := make([]Attribute, 0, len(e.Attr))
	for _, a := range e.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		name := a.Key
		if a.Space != "" {
			name = a.Space + ":" + a.Key
		}
		attrs = append(attrs, Attribute{Name: name, Value: a.Value})
	}
	id := d.AppendElement(parent, e.Tag, attrs...)

	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			d.importXML(id, t)
		case *etree.CharData:
			d.AppendText(id, t.Data)
		case *etree.Comment:
			d.AppendComment(id, t.Data)
		}
	}
}
