// internal/browser/text/linebreak.go
package text

import (
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Request describes one run of inline text to be broken into line fragments.
type Request struct {
	Text string

	// Origin is where the first fragment starts. Its X may lie right of
	// LineStartX when earlier inline content occupies the line.
	Origin     Point
	LineStartX float64
	// MaxWidth is the available line width measured from LineStartX.
	MaxWidth float64
	FontSize float64
	// LineHeight, when positive, overrides the measured height of every line.
	LineHeight float64

	Face      Measurer
	EmojiFace Measurer
	Hinting   Hinting
	Features  Features

	WhiteSpace WhiteSpace
	Transform  TextTransform
	Language   language.Tag

	// PrecededByWhitespace is whether the previous inline content ended in
	// whitespace.
	PrecededByWhitespace bool
}

// Result is the output of Break.
type Result struct {
	Fragments          []Fragment
	EndsWithWhitespace bool
	// End is the pen position after the last fragment. End.Y is the top of
	// the last line.
	End Point
	// LineHeight is the height of the last line.
	LineHeight float64
}

// Breaker lays text out into line box fragments.
type Breaker struct {
	log *zap.Logger
}

// NewBreaker creates a line breaker.
func NewBreaker(log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{log: log.Named("linebreak")}
}

type tokenKind uint8

const (
	tokenWord tokenKind = iota
	tokenSpace
	tokenNewline
)

type run struct {
	start, end int
	emoji      bool
}

// token is a unit of packing: a word made of one or more runs, a run of
// spaces, or a forced line break.
type token struct {
	kind       tokenKind
	start, end int
	runs       []run
}

// Break collapses, transforms, segments and packs req.Text.
func (b *Breaker) Break(req Request) Result {
	text := CollapseWhiteSpace(req.Text, req.WhiteSpace, req.PrecededByWhitespace)
	text = Transform(text, req.Transform, req.Language)

	res := Result{End: req.Origin, EndsWithWhitespace: req.PrecededByWhitespace}
	if text == "" {
		return res
	}
	res.EndsWithWhitespace = EndsWithWhitespace(text)
	if req.Face == nil {
		b.log.Warn("No font face to measure text with", zap.Int("bytes", len(text)))
		return res
	}

	tokens, boundaries := tokenize(text)
	p := &packer{
		log:        b.log,
		req:        req,
		text:       text,
		boundaries: boundaries,
		features:   req.Features.OpenType(),
		x:          req.Origin.X,
		y:          req.Origin.Y,
		right:      req.LineStartX + req.MaxWidth,
		wraps:      req.WhiteSpace.Wraps(),
	}
	// Earlier inline content on the first line makes it non-empty.
	p.lineHasContent = req.Origin.X > req.LineStartX
	if math.IsNaN(p.right) {
		p.right = math.Inf(1)
	}
	p.pack(tokens)

	res.Fragments = p.frags
	res.End = Point{X: p.x, Y: p.y}
	res.LineHeight = p.lineHeight
	return res
}

// tokenize splits text on Unicode word boundaries and groups the segments
// into packing tokens. It also returns every segment boundary for
// diagnostics.
func tokenize(text string) ([]token, []int) {
	var tokens []token
	boundaries := []int{0}
	offset := 0
	for seg := range words(text) {
		start, end := offset, offset+len(seg)
		offset = end
		boundaries = append(boundaries, end)

		switch {
		case isNewlineSegment(seg):
			tokens = append(tokens, token{kind: tokenNewline, start: start, end: end})
			continue
		case strings.TrimLeft(seg, " \t\f") == "":
			tokens = append(tokens, token{kind: tokenSpace, start: start, end: end})
			continue
		}

		r := run{start: start, end: end, emoji: IsEmojiWord(seg)}
		last := len(tokens) - 1
		if last < 0 || tokens[last].kind != tokenWord {
			tokens = append(tokens, token{kind: tokenWord, start: start, end: end, runs: []run{r}})
			continue
		}
		w := &tokens[last]
		w.end = end
		if prev := &w.runs[len(w.runs)-1]; prev.emoji == r.emoji {
			prev.end = end
		} else {
			w.runs = append(w.runs, r)
		}
	}
	return tokens, boundaries
}

func isNewlineSegment(seg string) bool {
	return seg != "" && strings.Trim(seg, "\r\n") == ""
}

// pending is the fragment being extended on the current line.
type pending struct {
	start, end    int
	emoji         bool
	x             float64
	width, height float64
	face          Measurer
}

type packer struct {
	log        *zap.Logger
	req        Request
	text       string
	boundaries []int
	features   []Feature

	x, y           float64
	right          float64
	wraps          bool
	lineHeight     float64
	lineHasContent bool

	cur     *pending
	frags   []Fragment
	aborted bool
}

const epsilon = 1e-9

func (p *packer) pack(tokens []token) {
	for _, t := range tokens {
		if p.aborted {
			return
		}
		switch t.kind {
		case tokenNewline:
			if p.req.WhiteSpace.PreservesNewlines() {
				p.flush()
				p.newLine()
			}
		case tokenSpace:
			p.placeSpace(t)
		case tokenWord:
			p.placeWord(t)
		}
	}
	p.flush()
}

func (p *packer) placeSpace(t token) {
	s, ok := p.slice(t.start, t.end)
	if !ok {
		return
	}
	size := p.measure(p.req.Face, s)
	if p.wraps && p.x+size.Width > p.right+epsilon {
		// The space is dropped and the line ends here.
		p.flush()
		if p.lineHasContent {
			p.newLine()
		}
		return
	}
	if p.cur == nil {
		p.cur = &pending{start: t.start, end: t.start, x: p.x, face: p.req.Face}
	}
	p.cur.end = t.end
	p.cur.width += size.Width
	p.cur.height = math.Max(p.cur.height, p.height(size))
	p.advance(size)
}

func (p *packer) placeWord(t token) {
	type measured struct {
		run
		face Measurer
		size Size
	}
	parts := make([]measured, 0, len(t.runs))
	var width float64
	for _, r := range t.runs {
		s, ok := p.slice(r.start, r.end)
		if !ok {
			return
		}
		face := p.req.Face
		if r.emoji && p.req.EmojiFace != nil {
			face = p.req.EmojiFace
		}
		size := p.measure(face, s)
		parts = append(parts, measured{run: r, face: face, size: size})
		width += size.Width
	}

	if p.wraps && p.lineHasContent && p.x+width > p.right+epsilon {
		p.flush()
		p.newLine()
	}

	for _, m := range parts {
		if p.cur != nil && (p.cur.emoji != m.emoji || p.cur.end != m.start) {
			p.flush()
		}
		if p.cur == nil {
			p.cur = &pending{start: m.start, end: m.start, emoji: m.emoji, x: p.x, face: m.face}
		}
		p.cur.end = m.end
		p.cur.width += m.size.Width
		p.cur.height = math.Max(p.cur.height, p.height(m.size))
		p.advance(m.size)
	}
	p.lineHasContent = true
}

func (p *packer) advance(size Size) {
	p.x += size.Width
	p.lineHeight = math.Max(p.lineHeight, p.height(size))
}

func (p *packer) height(size Size) float64 {
	if p.req.LineHeight > 0 {
		return p.req.LineHeight
	}
	return size.Height
}

func (p *packer) flush() {
	if p.cur == nil {
		return
	}
	cur := p.cur
	p.cur = nil
	s, ok := p.slice(cur.start, cur.end)
	if !ok || s == "" {
		return
	}
	p.frags = append(p.frags, Fragment{
		Text:     s,
		Position: Point{X: cur.x, Y: p.y},
		Size:     Size{Width: cur.width, Height: cur.height},
		Face:     cur.face,
		Emoji:    cur.emoji,
	})
}

func (p *packer) newLine() {
	h := p.lineHeight
	if h == 0 {
		h = p.height(p.measure(p.req.Face, " "))
	}
	p.y += h
	p.x = p.req.LineStartX
	p.lineHeight = 0
	p.lineHasContent = false
}

func (p *packer) measure(face Measurer, s string) Size {
	if len(p.features) > 0 {
		if fm, ok := face.(FeatureMeasurer); ok {
			return fm.MeasureFeatures(s, p.req.FontSize, p.req.Hinting, p.features)
		}
	}
	return face.Measure(s, p.req.FontSize, p.req.Hinting)
}

// slice returns text[start:end] after checking that both ends are ordered,
// in range and on rune starts. A violation aborts the current Break.
func (p *packer) slice(start, end int) (string, bool) {
	if start < 0 || end > len(p.text) || start > end || !runeBoundary(p.text, start) || !runeBoundary(p.text, end) {
		p.log.Error("Fragment boundaries violate text invariants",
			zap.String("text", p.text),
			zap.Ints("word_boundaries", p.boundaries),
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("len", len(p.text)),
		)
		p.aborted = true
		p.cur = nil
		return "", false
	}
	return p.text[start:end], true
}

func runeBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}
