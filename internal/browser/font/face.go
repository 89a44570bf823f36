// internal/browser/font/face.go
package font

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

// DefaultCacheSize is the number of measurements a face remembers.
const DefaultCacheSize = 1024

// Face is a parsed font that measures text. Shaping runs through go-text's
// HarfBuzz port; line metrics come from x/image when it can parse the font
// and from the hhea/OS2 extents otherwise.
//
// Face is safe for concurrent use.
type Face struct {
	family string
	aspect gotext.Aspect
	source string

	font  *gotext.Font
	sfnt  *opentype.Font
	cache *measureCache

	mu     sync.Mutex
	face   *gotext.Face
	shaper shaping.HarfbuzzShaper
	buf    sfnt.Buffer
}

// NewFace parses font data in any supported container format.
func NewFace(data []byte, cacheSize int) (*Face, error) {
	raw, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	parsed, err := gotext.ParseTTF(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Format: format, Offset: 0, Err: err}
	}
	cache, err := newMeasureCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create measure cache: %w", err)
	}

	desc := parsed.Font.Describe()
	f := &Face{
		family: strings.ToLower(desc.Family),
		aspect: desc.Aspect,
		font:   parsed.Font,
		face:   gotext.NewFace(parsed.Font),
		cache:  cache,
	}
	// Color bitmap fonts without outlines are rejected by x/image.
	if sf, err := opentype.Parse(raw); err == nil {
		f.sfnt = sf
		if name, err := sf.Name(&f.buf, sfnt.NameIDFamily); err == nil && name != "" {
			f.family = strings.ToLower(name)
		}
	}
	return f, nil
}

// Family is the lowercased family name from the font's name table.
func (f *Face) Family() string { return f.family }

// Descriptor describes the face as found in its own metadata.
func (f *Face) Descriptor() Descriptor {
	style := StyleNormal
	if f.aspect.Style == gotext.StyleItalic {
		style = StyleItalic
	}
	weight := Weight(math.Round(float64(f.aspect.Weight)))
	return NewDescriptor(f.family, weight, style)
}

// Source is the path or URL the face was loaded from, if any.
func (f *Face) Source() string { return f.source }

func (f *Face) String() string {
	return fmt.Sprintf("font.Face(%s)", f.family)
}

// HasGlyph reports whether the font maps r to a glyph.
func (f *Face) HasGlyph(r rune) bool {
	_, ok := f.font.NominalGlyph(r)
	return ok
}

// Metrics are vertical font metrics in pixels.
type Metrics struct {
	Ascent  float64
	Descent float64
	Height  float64
}

// Metrics returns the line metrics at size pixels.
func (f *Face) Metrics(size float64, hinting text.Hinting) Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metricsLocked(size, hinting)
}

func (f *Face) metricsLocked(size float64, hinting text.Hinting) Metrics {
	if f.sfnt != nil {
		face, err := opentype.NewFace(f.sfnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: xHinting(hinting)})
		if err == nil {
			m := face.Metrics()
			return Metrics{
				Ascent:  fixedToFloat(m.Ascent),
				Descent: fixedToFloat(m.Descent),
				Height:  fixedToFloat(m.Height),
			}
		}
	}
	ext, ok := f.face.FontHExtents()
	if !ok {
		return Metrics{Ascent: size, Height: size}
	}
	scale := size / float64(f.font.Upem())
	m := Metrics{
		Ascent:  float64(ext.Ascender) * scale,
		Descent: -float64(ext.Descender) * scale,
	}
	m.Height = m.Ascent + m.Descent + float64(ext.LineGap)*scale
	if hinting == text.HintingFull || hinting == text.HintingVertical {
		m.Ascent, m.Descent, m.Height = math.Round(m.Ascent), math.Round(m.Descent), math.Round(m.Height)
	}
	return m
}

// Measure returns the advance width of s and the line height at size.
func (f *Face) Measure(s string, size float64, hinting text.Hinting) text.Size {
	return f.MeasureFeatures(s, size, hinting, nil)
}

// MeasureFeatures measures s with OpenType features applied.
func (f *Face) MeasureFeatures(s string, size float64, hinting text.Hinting, features []text.Feature) text.Size {
	key := measureKey{text: s, size: size, hinting: hinting, features: featureKey(features)}
	if sz, ok := f.cache.Get(key); ok {
		return sz
	}

	f.mu.Lock()
	width := f.shapeLocked(s, size, features)
	height := f.metricsLocked(size, hinting).Height
	f.mu.Unlock()

	if hinting == text.HintingFull {
		width = math.Round(width)
	}
	sz := text.Size{Width: width, Height: height}
	f.cache.Add(key, sz)
	return sz
}

func (f *Face) shapeLocked(s string, size float64, features []text.Feature) float64 {
	if s == "" {
		return 0
	}
	runes := []rune(s)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      f.face,
		Size:      floatToFixed(size),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}
	for _, ft := range features {
		tag, err := parseTag(ft.Tag)
		if err != nil {
			continue
		}
		input.FontFeatures = append(input.FontFeatures, shaping.FontFeature{Tag: tag, Value: ft.Value})
	}
	out := f.shaper.Shape(input)
	return fixedToFloat(out.Advance)
}

func parseTag(s string) (ot.Tag, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid feature tag %q", s)
	}
	return ot.NewTag(s[0], s[1], s[2], s[3]), nil
}

func featureKey(features []text.Feature) string {
	if len(features) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ft := range features {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%d", ft.Tag, ft.Value)
	}
	return b.String()
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func xHinting(h text.Hinting) xfont.Hinting {
	switch h {
	case text.HintingVertical:
		return xfont.HintingVertical
	case text.HintingFull:
		return xfont.HintingFull
	}
	return xfont.HintingNone
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
