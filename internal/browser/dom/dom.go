// Package dom holds the document tree the style and layout passes read.
//
// Nodes live in a single arena and refer to each other by NodeID, so a
// Document can be shared read-only by every pass of a session without
// pointer cycles.
package dom

import (
	"iter"
	"strings"
)

// NodeID indexes a node within its Document.
type NodeID int32

// NoNode is the absent link (no parent, no sibling, ...).
const NoNode NodeID = -1

// Kind is the node type.
type Kind uint8

const (
	KindDocument Kind = iota
	KindElement
	KindText
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	}
	return "unknown"
}

// ElementKind classifies the elements the engine treats specially.
// Everything else is Generic.
type ElementKind uint8

const (
	Generic ElementKind = iota
	HTML
	Head
	Body
	Style
	Link
	Img
	Input
	Button
	Br
)

var elementKinds = map[string]ElementKind{
	"html":   HTML,
	"head":   Head,
	"body":   Body,
	"style":  Style,
	"link":   Link,
	"img":    Img,
	"input":  Input,
	"button": Button,
	"br":     Br,
}

// ElementKindOf returns the kind for a lowercase tag name.
func ElementKindOf(tag string) ElementKind {
	return elementKinds[tag]
}

// Attribute is a name/value pair. Names are stored lowercase.
type Attribute struct {
	Name  string
	Value string
}

// Node is one entry of the arena.
type Node struct {
	Kind    Kind
	Element ElementKind
	// Tag is the lowercase local name for elements.
	Tag   string
	Attrs []Attribute
	// Text is the character data of text and comment nodes.
	Text string

	Parent      NodeID
	FirstChild  NodeID
	LastChild   NodeID
	PrevSibling NodeID
	NextSibling NodeID
}

// Document is an arena-allocated node tree. Node 0 is the document node.
type Document struct {
	nodes []Node
}

// NewDocument returns a document holding only its root document node.
func NewDocument() *Document {
	d := &Document{nodes: make([]Node, 0, 64)}
	d.nodes = append(d.nodes, Node{
		Kind:        KindDocument,
		Parent:      NoNode,
		FirstChild:  NoNode,
		LastChild:   NoNode,
		PrevSibling: NoNode,
		NextSibling: NoNode,
	})
	return d
}

// Root returns the document node.
func (d *Document) Root() NodeID { return 0 }

// Len is the number of nodes in the arena.
func (d *Document) Len() int { return len(d.nodes) }

// Valid reports whether id refers to a node of d.
func (d *Document) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(d.nodes)
}

// Node returns the node for id. The returned value is a copy.
func (d *Document) Node(id NodeID) Node {
	return d.nodes[id]
}

func (d *Document) appendNode(parent NodeID, n Node) NodeID {
	id := NodeID(len(d.nodes))
	n.Parent = parent
	n.FirstChild, n.LastChild = NoNode, NoNode
	n.PrevSibling, n.NextSibling = NoNode, NoNode

	if parent != NoNode {
		p := &d.nodes[parent]
		if p.LastChild != NoNode {
			d.nodes[p.LastChild].NextSibling = id
			n.PrevSibling = p.LastChild
		} else {
			p.FirstChild = id
		}
		p.LastChild = id
	}
	d.nodes = append(d.nodes, n)
	return id
}

// AppendElement adds an element with the given tag as the last child of parent.
func (d *Document) AppendElement(parent NodeID, tag string, attrs ...Attribute) NodeID {
	tag = strings.ToLower(tag)
	normalized := make([]Attribute, len(attrs))
	for i, a := range attrs {
		normalized[i] = Attribute{Name: strings.ToLower(a.Name), Value: a.Value}
	}
	return d.appendNode(parent, Node{
		Kind:    KindElement,
		Element: ElementKindOf(tag),
		Tag:     tag,
		Attrs:   normalized,
	})
}

// AppendText adds a text node as the last child of parent.
func (d *Document) AppendText(parent NodeID, text string) NodeID {
	return d.appendNode(parent, Node{Kind: KindText, Text: text})
}

// AppendComment adds a comment node as the last child of parent.
func (d *Document) AppendComment(parent NodeID, text string) NodeID {
	return d.appendNode(parent, Node{Kind: KindComment, Text: text})
}

// SetAttr sets or replaces an attribute on an element.
func (d *Document) SetAttr(id NodeID, name, value string) {
	name = strings.ToLower(name)
	n := &d.nodes[id]
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attribute{Name: name, Value: value})
}

// -- Queries --

func (d *Document) Kind(id NodeID) Kind               { return d.nodes[id].Kind }
func (d *Document) ElementKind(id NodeID) ElementKind { return d.nodes[id].Element }
func (d *Document) IsElement(id NodeID) bool          { return d.nodes[id].Kind == KindElement }
func (d *Document) IsText(id NodeID) bool             { return d.nodes[id].Kind == KindText }
func (d *Document) Parent(id NodeID) NodeID           { return d.nodes[id].Parent }

// TagName returns the lowercase tag, or "" for non-elements.
func (d *Document) TagName(id NodeID) string { return d.nodes[id].Tag }

// Text returns the character data of a text or comment node.
func (d *Document) Text(id NodeID) string { return d.nodes[id].Text }

// Children yields the direct children of id in document order.
func (d *Document) Children(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for c := d.nodes[id].FirstChild; c != NoNode; c = d.nodes[c].NextSibling {
			if !yield(c) {
				return
			}
		}
	}
}

// Descendants yields every node below id in pre-order.
func (d *Document) Descendants(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		d.walk(id, yield)
	}
}

func (d *Document) walk(id NodeID, yield func(NodeID) bool) bool {
	for c := d.nodes[id].FirstChild; c != NoNode; c = d.nodes[c].NextSibling {
		if !yield(c) || !d.walk(c, yield) {
			return false
		}
	}
	return true
}

// Ancestors yields the parent chain of id, nearest first.
func (d *Document) Ancestors(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for p := d.nodes[id].Parent; p != NoNode; p = d.nodes[p].Parent {
			if !yield(p) {
				return
			}
		}
	}
}

// PreviousElementSibling skips text and comment siblings.
func (d *Document) PreviousElementSibling(id NodeID) NodeID {
	for s := d.nodes[id].PrevSibling; s != NoNode; s = d.nodes[s].PrevSibling {
		if d.nodes[s].Kind == KindElement {
			return s
		}
	}
	return NoNode
}

// NextElementSibling skips text and comment siblings.
func (d *Document) NextElementSibling(id NodeID) NodeID {
	for s := d.nodes[id].NextSibling; s != NoNode; s = d.nodes[s].NextSibling {
		if d.nodes[s].Kind == KindElement {
			return s
		}
	}
	return NoNode
}

// Attr returns the value of the named attribute. Names match case-insensitively.
func (d *Document) Attr(id NodeID, name string) (string, bool) {
	for _, a := range d.nodes[id].Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (d *Document) HasAttr(id NodeID, name string) bool {
	_, ok := d.Attr(id, name)
	return ok
}

// Classes splits the class attribute on ASCII whitespace.
func (d *Document) Classes(id NodeID) []string {
	v, ok := d.Attr(id, "class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// DocumentElement returns the first element child of the document node.
func (d *Document) DocumentElement() NodeID {
	for c := range d.Children(d.Root()) {
		if d.IsElement(c) {
			return c
		}
	}
	return NoNode
}

func (d *Document) childOfRootByKind(kind ElementKind) NodeID {
	html := d.DocumentElement()
	if html == NoNode {
		return NoNode
	}
	for c := range d.Children(html) {
		if d.IsElement(c) && d.nodes[c].Element == kind {
			return c
		}
	}
	return NoNode
}

func (d *Document) Head() NodeID { return d.childOfRootByKind(Head) }
func (d *Document) Body() NodeID { return d.childOfRootByKind(Body) }

// ElementsByTag returns every element with the given tag in document order.
func (d *Document) ElementsByTag(tag string) []NodeID {
	tag = strings.ToLower(tag)
	var out []NodeID
	for id := range d.Descendants(d.Root()) {
		if d.nodes[id].Kind == KindElement && d.nodes[id].Tag == tag {
			out = append(out, id)
		}
	}
	return out
}

// IsWhitespaceText reports whether id is a text node holding only ASCII whitespace.
func (d *Document) IsWhitespaceText(id NodeID) bool {
	n := d.nodes[id]
	return n.Kind == KindText && strings.Trim(n.Text, " \t\n\f\r") == ""
}

// TextContent concatenates every descendant text node of id.
func (d *Document) TextContent(id NodeID) string {
	if d.IsText(id) {
		return d.nodes[id].Text
	}
	var sb strings.Builder
	for c := range d.Descendants(id) {
		if d.IsText(c) {
			sb.WriteString(d.nodes[c].Text)
		}
	}
	return sb.String()
}
