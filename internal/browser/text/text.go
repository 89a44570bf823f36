// internal/browser/text/text.go
package text

import (
	"math"
	"strings"
)

// Unbounded is the MaxWidth of a request that never wraps.
var Unbounded = math.Inf(1)

// Point is a position in reference pixels.
type Point struct {
	X, Y float64
}

// Size is an extent in reference pixels.
type Size struct {
	Width, Height float64
}

// Hinting selects how glyph outlines snap to the pixel grid when measuring.
type Hinting uint8

const (
	HintingNone Hinting = iota
	HintingVertical
	HintingFull
)

func (h Hinting) String() string {
	switch h {
	case HintingVertical:
		return "vertical"
	case HintingFull:
		return "full"
	}
	return "none"
}

// Measurer measures a run of text set in one face.
type Measurer interface {
	Measure(text string, size float64, hinting Hinting) Size
}

// FeatureMeasurer is a Measurer that can apply OpenType features.
type FeatureMeasurer interface {
	Measurer
	MeasureFeatures(text string, size float64, hinting Hinting, features []Feature) Size
}

// Fragment is a positioned run of text on one line. Fragments are never
// modified after the breaker returns them.
type Fragment struct {
	Text     string
	Position Point
	Size     Size
	Face     Measurer
	Emoji    bool
}

// -- white-space --

// WhiteSpace is the computed white-space mode.
type WhiteSpace uint8

const (
	WhiteSpaceNormal WhiteSpace = iota
	WhiteSpaceNowrap
	WhiteSpacePre
	WhiteSpacePreWrap
	WhiteSpacePreLine
)

var whiteSpaceNames = map[string]WhiteSpace{
	"normal":   WhiteSpaceNormal,
	"nowrap":   WhiteSpaceNowrap,
	"pre":      WhiteSpacePre,
	"pre-wrap": WhiteSpacePreWrap,
	"pre-line": WhiteSpacePreLine,
}

// ParseWhiteSpace maps a keyword to its mode; unknown keywords are normal.
func ParseWhiteSpace(s string) WhiteSpace {
	return whiteSpaceNames[strings.ToLower(s)]
}

// Collapses reports whether runs of spaces and tabs collapse.
func (w WhiteSpace) Collapses() bool {
	return w == WhiteSpaceNormal || w == WhiteSpaceNowrap || w == WhiteSpacePreLine
}

// Wraps reports whether lines may break at spaces.
func (w WhiteSpace) Wraps() bool {
	return w != WhiteSpaceNowrap && w != WhiteSpacePre
}

// PreservesNewlines reports whether a newline forces a line break.
func (w WhiteSpace) PreservesNewlines() bool {
	return w == WhiteSpacePre || w == WhiteSpacePreWrap || w == WhiteSpacePreLine
}

// -- text-transform --

// TextTransform is the computed text-transform.
type TextTransform uint8

const (
	TransformNone TextTransform = iota
	TransformUppercase
	TransformLowercase
	TransformCapitalize
)

// ParseTransform maps a keyword to its transform; unknown keywords are none.
func ParseTransform(s string) TextTransform {
	switch strings.ToLower(s) {
	case "uppercase":
		return TransformUppercase
	case "lowercase":
		return TransformLowercase
	case "capitalize":
		return TransformCapitalize
	}
	return TransformNone
}
