// Package font resolves font descriptors to faces and measures text with
// them. Faces come from the bundled Go fonts, local font directories, or
// bytes downloaded for @font-face rules.
package font

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when no face exists for a descriptor.
	ErrNotFound = errors.New("font not found")
	// ErrUnsupportedFormat is returned for font data this backend cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported font format")
)

// Generic family names.
const (
	Serif     = "serif"
	SansSerif = "sans-serif"
	Monospace = "monospace"
	Cursive   = "cursive"
	Fantasy   = "fantasy"
	SystemUI  = "system-ui"
	Emoji     = "emoji"
)

var generics = map[string]bool{
	Serif: true, SansSerif: true, Monospace: true, Cursive: true,
	Fantasy: true, SystemUI: true, Emoji: true,
}

// IsGeneric reports whether family is a generic family keyword.
func IsGeneric(family string) bool {
	return generics[strings.ToLower(family)]
}

// Weight is a numeric font weight between 1 and 1000.
type Weight int

const (
	WeightThin   Weight = 100
	WeightLight  Weight = 300
	WeightNormal Weight = 400
	WeightMedium Weight = 500
	WeightBold   Weight = 700
	WeightBlack  Weight = 900
)

// ParseWeight reads a CSS weight keyword or number.
func ParseWeight(s string) (Weight, bool) {
	switch strings.ToLower(s) {
	case "normal":
		return WeightNormal, true
	case "bold":
		return WeightBold, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 1000 {
		return 0, false
	}
	return Weight(n), true
}

// IsBold reports whether the weight renders with a bold face.
func (w Weight) IsBold() bool { return w >= 600 }

// Style is the font-style slant.
type Style uint8

const (
	StyleNormal Style = iota
	StyleItalic
	StyleOblique
)

// ParseStyle reads a font-style keyword; unknown keywords are normal.
func ParseStyle(s string) Style {
	switch strings.ToLower(s) {
	case "italic":
		return StyleItalic
	case "oblique":
		return StyleOblique
	}
	return StyleNormal
}

func (s Style) String() string {
	switch s {
	case StyleItalic:
		return "italic"
	case StyleOblique:
		return "oblique"
	}
	return "normal"
}

// Descriptor identifies a face. Family is compared case-insensitively, so
// descriptors should be built with NewDescriptor when used as map keys.
type Descriptor struct {
	Family string
	Weight Weight
	Style  Style
}

// NewDescriptor builds a normalized descriptor.
func NewDescriptor(family string, weight Weight, style Style) Descriptor {
	if weight == 0 {
		weight = WeightNormal
	}
	return Descriptor{Family: strings.ToLower(strings.TrimSpace(family)), Weight: weight, Style: style}
}

// WithFamily returns d with another family.
func (d Descriptor) WithFamily(family string) Descriptor {
	return NewDescriptor(family, d.Weight, d.Style)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %d %s", d.Family, d.Weight, d.Style)
}
