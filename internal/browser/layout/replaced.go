// internal/browser/layout/replaced.go
package layout

import (
	"net/url"
	"strings"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
)

// ReplacedKind is the kind of content a replaced element shows.
type ReplacedKind uint8

const (
	ReplacedImage ReplacedKind = iota + 1
	ReplacedButton
	ReplacedCheckbox
	ReplacedRadio
	ReplacedInputButton
	ReplacedInputText
)

var replacedNames = [...]string{
	ReplacedImage:       "image",
	ReplacedButton:      "button",
	ReplacedCheckbox:    "checkbox",
	ReplacedRadio:       "radio",
	ReplacedInputButton: "input-button",
	ReplacedInputText:   "input-text",
}

func (k ReplacedKind) String() string {
	if int(k) < len(replacedNames) && replacedNames[k] != "" {
		return replacedNames[k]
	}
	return "unknown"
}

// Replaced describes an element whose content is outside the CSS
// formatting model.
type Replaced struct {
	Kind ReplacedKind
	// Source is the image URL, nil when the img has no usable src.
	Source *url.URL
	// Label is the text of a button.
	Label string
}

// Intrinsic sizes of form controls, in ems.
const (
	checkboxSize    = 0.8125
	textInputWidth  = 10.0
	buttonPadding   = 1.0
	controlMinWidth = 1.0
)

func (g *generator) replaced(node dom.NodeID) *Replaced {
	doc := g.ctx.Document
	switch doc.ElementKind(node) {
	case dom.Img:
		r := &Replaced{Kind: ReplacedImage}
		if src, ok := doc.Attr(node, "src"); ok && strings.TrimSpace(src) != "" {
			if u, ok := g.ctx.resolve(strings.TrimSpace(src)); ok {
				r.Source = u
				if g.ctx.Images != nil {
					g.ctx.Images.NaturalSize(u)
				}
			}
		}
		return r
	case dom.Button:
		return &Replaced{Kind: ReplacedButton, Label: strings.Join(strings.Fields(doc.TextContent(node)), " ")}
	case dom.Input:
		typ, _ := doc.Attr(node, "type")
		value, hasValue := doc.Attr(node, "value")
		switch strings.ToLower(strings.TrimSpace(typ)) {
		case "checkbox":
			return &Replaced{Kind: ReplacedCheckbox}
		case "radio":
			return &Replaced{Kind: ReplacedRadio}
		case "submit":
			if !hasValue {
				value = "Submit"
			}
			return &Replaced{Kind: ReplacedInputButton, Label: value}
		case "reset":
			if !hasValue {
				value = "Reset"
			}
			return &Replaced{Kind: ReplacedInputButton, Label: value}
		case "button":
			return &Replaced{Kind: ReplacedInputButton, Label: value}
		}
		return &Replaced{Kind: ReplacedInputText}
	}
	return nil
}

// intrinsicSize is the size of the replaced content before author sizes
// apply. ok is false for an image that has not been decoded yet.
func (b *Box) intrinsicSize(images ImageSource) (w, h float64, ok bool) {
	em := b.FontSize
	switch b.Replaced.Kind {
	case ReplacedImage:
		if b.Replaced.Source == nil || images == nil {
			return 0, 0, false
		}
		return images.NaturalSize(b.Replaced.Source)
	case ReplacedCheckbox, ReplacedRadio:
		return checkboxSize * em, checkboxSize * em, true
	case ReplacedInputText:
		return textInputWidth * em, b.LineHeight, true
	case ReplacedButton, ReplacedInputButton:
		label := 0.0
		if b.Font != nil && b.Replaced.Label != "" {
			label = b.Font.Measure(b.Replaced.Label, em, b.Actual.Hinting).Width
		}
		return max(label+buttonPadding*em, controlMinWidth*em), b.LineHeight, true
	}
	return 0, 0, false
}

// layoutReplaced sizes a replaced box. Author sizes win; a missing side of
// an image follows its aspect ratio.
func (b *Box) layoutReplaced(images ImageSource) {
	b.resetSize()
	iw, ih, ok := b.intrinsicSize(images)
	if !ok {
		iw, ih = 0, 0
	}
	autoW, autoH := b.sized.autoWidth, b.sized.autoHeight
	w, h := b.Dimensions.Width, b.Dimensions.Height
	switch {
	case autoW && autoH:
		w, h = iw, ih
	case autoW:
		w = iw
		if b.Replaced.Kind == ReplacedImage && ih > 0 {
			w = h * iw / ih
		}
	case autoH:
		h = ih
		if b.Replaced.Kind == ReplacedImage && iw > 0 {
			h = w * ih / iw
		}
	}
	b.Dimensions.Width, b.Dimensions.Height = w, h
}
