// internal/browser/layout/snapshot.go
package layout

import (
	"fmt"
	"io"
	"strings"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
)

// Snapshot is a serializable copy of a laid out tree.
type Snapshot struct {
	Kind      string             `json:"kind" yaml:"kind"`
	Context   string             `json:"context" yaml:"context"`
	Element   string             `json:"element,omitempty" yaml:"element,omitempty"`
	Text      string             `json:"text,omitempty" yaml:"text,omitempty"`
	Content   Rect               `json:"content" yaml:"content"`
	Margin    Rect               `json:"margin" yaml:"margin"`
	Font      string             `json:"font,omitempty" yaml:"font,omitempty"`
	FontSize  float64            `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Replaced  string             `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	Image     string             `json:"backgroundImage,omitempty" yaml:"backgroundImage,omitempty"`
	Fragments []FragmentSnapshot `json:"fragments,omitempty" yaml:"fragments,omitempty"`
	Children  []*Snapshot        `json:"children,omitempty" yaml:"children,omitempty"`
}

// FragmentSnapshot is one placed piece of text.
type FragmentSnapshot struct {
	Text string `json:"text" yaml:"text"`
	Rect Rect   `json:"rect" yaml:"rect"`
}

// Snap copies the tree under b. doc names the elements and may be nil.
func Snap(b *Box, doc *dom.Document) *Snapshot {
	s := &Snapshot{
		Kind:     b.Kind.String(),
		Context:  b.Context.String(),
		Content:  b.Dimensions.ContentBox(),
		Margin:   b.Dimensions.MarginBox(),
		FontSize: b.FontSize,
	}
	if b.isText {
		s.Context = "text"
		s.Text = b.Text
	}
	if doc != nil && b.Kind == KindNormal {
		s.Element = doc.Path(b.Node)
	}
	if b.Font != nil {
		s.Font = b.FontDescriptor.String()
	}
	if b.Replaced != nil {
		s.Replaced = b.Replaced.Kind.String()
	}
	if b.BackgroundImage != nil {
		s.Image = b.BackgroundImage.String()
	}
	for _, f := range b.Fragments {
		s.Fragments = append(s.Fragments, FragmentSnapshot{Text: f.Text, Rect: fragmentRect(f)})
	}
	for _, c := range b.Children {
		s.Children = append(s.Children, Snap(c, doc))
	}
	return s
}

// Dump writes an indented outline of the tree.
func (s *Snapshot) Dump(w io.Writer) error {
	return s.dump(w, 0)
}

func (s *Snapshot) dump(w io.Writer, depth int) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(s.Kind)
	sb.WriteByte('/')
	sb.WriteString(s.Context)
	if s.Element != "" {
		sb.WriteByte(' ')
		sb.WriteString(s.Element)
	}
	if s.Replaced != "" {
		fmt.Fprintf(&sb, " [%s]", s.Replaced)
	}
	r := s.Content
	fmt.Fprintf(&sb, " %.2f,%.2f %.2fx%.2f", r.X, r.Y, r.Width, r.Height)
	if s.Text != "" {
		fmt.Fprintf(&sb, " %q", s.Text)
	}
	sb.WriteByte('\n')
	for _, f := range s.Fragments {
		fmt.Fprintf(&sb, "%s  > %q at %.2f,%.2f %.2fx%.2f\n", strings.Repeat("  ", depth), f.Text, f.Rect.X, f.Rect.Y, f.Rect.Width, f.Rect.Height)
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	for _, c := range s.Children {
		if err := c.dump(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
