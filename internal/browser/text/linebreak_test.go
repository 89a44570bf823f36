package text

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/language"
)

// monoFace gives every rune 10px of advance, spaces 5px, and a 20px line.
type monoFace struct {
	calls    int
	features [][]Feature
}

func (f *monoFace) Measure(s string, size float64, _ Hinting) Size {
	f.calls++
	var w float64
	for _, r := range s {
		if r == ' ' {
			w += 5
		} else {
			w += 10
		}
	}
	return Size{Width: w, Height: 20}
}

func (f *monoFace) MeasureFeatures(s string, size float64, h Hinting, features []Feature) Size {
	f.features = append(f.features, features)
	return f.Measure(s, size, h)
}

// emojiFace is taller and wider than monoFace.
type emojiFace struct{}

func (emojiFace) Measure(s string, _ float64, _ Hinting) Size {
	return Size{Width: 24 * float64(utf8.RuneCountInString(s)), Height: 28}
}

func breakText(t *testing.T, req Request) Result {
	t.Helper()
	if req.Face == nil {
		req.Face = &monoFace{}
	}
	if req.FontSize == 0 {
		req.FontSize = 16
	}
	return NewBreaker(zaptest.NewLogger(t)).Break(req)
}

func TestBreakWrapsGreedily(t *testing.T) {
	res := breakText(t, Request{Text: "aaaa bbbb cccc", MaxWidth: 100})

	require.Len(t, res.Fragments, 2)
	line1, line2 := res.Fragments[0], res.Fragments[1]

	assert.Equal(t, "aaaa bbbb ", line1.Text)
	assert.Equal(t, Point{X: 0, Y: 0}, line1.Position)
	assert.Equal(t, Size{Width: 90, Height: 20}, line1.Size)

	assert.Equal(t, "cccc", line2.Text)
	assert.Equal(t, Point{X: 0, Y: line1.Position.Y + line1.Size.Height}, line2.Position)
	assert.Equal(t, Point{X: 40, Y: 20}, res.End)
	assert.False(t, res.EndsWithWhitespace)
}

func TestBreakDropsOverflowingSpace(t *testing.T) {
	// "aaaa bbbb" is 85px; the following space would end at 90 > 88.
	res := breakText(t, Request{Text: "aaaa bbbb cccc", MaxWidth: 88})
	require.Len(t, res.Fragments, 2)
	assert.Equal(t, "aaaa bbbb", res.Fragments[0].Text)
	assert.Equal(t, 85.0, res.Fragments[0].Size.Width)
	assert.Equal(t, "cccc", res.Fragments[1].Text)
	assert.Equal(t, 0.0, res.Fragments[1].Position.X)
}

func TestBreakPlacesOverflowingFirstWord(t *testing.T) {
	res := breakText(t, Request{Text: "aaaaaaaa bb", MaxWidth: 30})
	require.Len(t, res.Fragments, 2)
	assert.Equal(t, "aaaaaaaa", res.Fragments[0].Text)
	assert.Equal(t, 80.0, res.Fragments[0].Size.Width)
	assert.Equal(t, "bb", res.Fragments[1].Text)
	assert.Equal(t, 20.0, res.Fragments[1].Position.Y)
}

func TestBreakContinuesAfterEarlierInlineContent(t *testing.T) {
	res := breakText(t, Request{
		Text:       "aaaa",
		Origin:     Point{X: 80, Y: 10},
		LineStartX: 0,
		MaxWidth:   100,
	})
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, Point{X: 0, Y: 30}, res.Fragments[0].Position, "wraps below the occupied line")

	res = breakText(t, Request{Text: "aa", Origin: Point{X: 80}, MaxWidth: 100})
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, Point{X: 80}, res.Fragments[0].Position)
}

func TestBreakLeadingSpace(t *testing.T) {
	res := breakText(t, Request{Text: "  foo", Origin: Point{X: 30}, MaxWidth: Unbounded})
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, " foo", res.Fragments[0].Text)
	assert.Equal(t, 35.0, res.Fragments[0].Size.Width)

	res = breakText(t, Request{Text: "  foo", Origin: Point{X: 30}, MaxWidth: Unbounded, PrecededByWhitespace: true})
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, "foo", res.Fragments[0].Text)
}

func TestBreakWhiteSpaceModes(t *testing.T) {
	t.Run("nowrap", func(t *testing.T) {
		res := breakText(t, Request{Text: "aaaa bbbb cccc", MaxWidth: 50, WhiteSpace: WhiteSpaceNowrap})
		require.Len(t, res.Fragments, 1)
		assert.Equal(t, 130.0, res.Fragments[0].Size.Width)
	})
	t.Run("pre keeps spaces and newlines", func(t *testing.T) {
		res := breakText(t, Request{Text: "a  b\ncc", MaxWidth: 10, WhiteSpace: WhiteSpacePre})
		require.Len(t, res.Fragments, 2)
		assert.Equal(t, "a  b", res.Fragments[0].Text)
		assert.Equal(t, "cc", res.Fragments[1].Text)
		assert.Equal(t, 20.0, res.Fragments[1].Position.Y)
	})
	t.Run("pre-line collapses spaces but breaks at newlines", func(t *testing.T) {
		res := breakText(t, Request{Text: "a   b \n  c", MaxWidth: Unbounded, WhiteSpace: WhiteSpacePreLine})
		require.Len(t, res.Fragments, 2)
		assert.Equal(t, "a b", res.Fragments[0].Text)
		assert.Equal(t, Point{X: 0, Y: 20}, res.Fragments[1].Position)
	})
	t.Run("normal folds newlines into spaces", func(t *testing.T) {
		res := breakText(t, Request{Text: "a\n\nb", MaxWidth: Unbounded})
		require.Len(t, res.Fragments, 1)
		assert.Equal(t, "a b", res.Fragments[0].Text)
	})
	t.Run("empty lines in pre advance by a line", func(t *testing.T) {
		res := breakText(t, Request{Text: "a\n\nb", MaxWidth: Unbounded, WhiteSpace: WhiteSpacePre})
		require.Len(t, res.Fragments, 2)
		assert.Equal(t, 40.0, res.Fragments[1].Position.Y)
	})
}

func TestBreakEmojiRunsUseEmojiFace(t *testing.T) {
	mono := &monoFace{}
	res := breakText(t, Request{Text: "hi 😀 there", MaxWidth: Unbounded, Face: mono, EmojiFace: emojiFace{}})

	require.Len(t, res.Fragments, 3)
	assert.Equal(t, "hi ", res.Fragments[0].Text)
	assert.False(t, res.Fragments[0].Emoji)
	assert.Same(t, mono, res.Fragments[0].Face)

	assert.Equal(t, "😀 ", res.Fragments[1].Text)
	assert.True(t, res.Fragments[1].Emoji)
	assert.Equal(t, emojiFace{}, res.Fragments[1].Face)
	assert.Equal(t, 25.0, res.Fragments[1].Position.X)
	assert.Equal(t, 29.0, res.Fragments[1].Size.Width)

	assert.Equal(t, "there", res.Fragments[2].Text)
	assert.Equal(t, 54.0, res.Fragments[2].Position.X)
	assert.Equal(t, 28.0, res.LineHeight, "the tallest run sets the line height")
}

func TestBreakEmojiFallsBackToPrimaryFace(t *testing.T) {
	mono := &monoFace{}
	res := breakText(t, Request{Text: "a😀", MaxWidth: Unbounded, Face: mono})
	require.Len(t, res.Fragments, 2, "an emoji boundary always splits fragments")
	assert.Same(t, mono, res.Fragments[1].Face)
	assert.True(t, res.Fragments[1].Emoji)
}

func TestBreakTransformsAndFeatures(t *testing.T) {
	mono := &monoFace{}
	res := breakText(t, Request{
		Text:      "hello world",
		MaxWidth:  Unbounded,
		Face:      mono,
		Transform: TransformCapitalize,
		Language:  language.English,
		Features:  Features{Kerning: "none", Caps: "small-caps"},
	})
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, "Hello World", res.Fragments[0].Text)
	require.NotEmpty(t, mono.features)
	assert.Equal(t, []Feature{{"kern", 0}, {"smcp", 1}}, mono.features[0])
}

func TestBreakLineHeightOverride(t *testing.T) {
	res := breakText(t, Request{Text: "aaaa bbbb", MaxWidth: 45, LineHeight: 32})
	require.Len(t, res.Fragments, 2)
	assert.Equal(t, 32.0, res.Fragments[0].Size.Height)
	assert.Equal(t, 32.0, res.Fragments[1].Position.Y)
}

func TestBreakEmptyAndFacelessRequests(t *testing.T) {
	res := breakText(t, Request{Text: "   ", MaxWidth: Unbounded, PrecededByWhitespace: true})
	assert.Empty(t, res.Fragments)
	assert.True(t, res.EndsWithWhitespace)

	res = breakText(t, Request{Text: "", MaxWidth: Unbounded})
	assert.Empty(t, res.Fragments)
	assert.False(t, res.EndsWithWhitespace)

	core, logs := observer.New(zapcore.WarnLevel)
	res = NewBreaker(zap.New(core)).Break(Request{Text: "abc ", MaxWidth: Unbounded, Origin: Point{X: 3}})
	assert.Empty(t, res.Fragments)
	assert.True(t, res.EndsWithWhitespace)
	assert.Equal(t, Point{X: 3}, res.End)
	assert.Equal(t, 1, logs.FilterMessage("No font face to measure text with").Len())
}

func TestSliceValidationAbortsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	p := &packer{
		log:        zap.New(core),
		text:       "héllo",
		boundaries: []int{0, 6},
		req:        Request{Face: &monoFace{}, FontSize: 16},
		right:      Unbounded,
		wraps:      true,
	}

	p.pack([]token{
		{kind: tokenWord, start: 0, end: 1, runs: []run{{start: 0, end: 1}}},
		{kind: tokenWord, start: 1, end: 2, runs: []run{{start: 1, end: 2}}}, // splits é
		{kind: tokenWord, start: 3, end: 6, runs: []run{{start: 3, end: 6}}},
	})

	assert.True(t, p.aborted)
	require.Len(t, p.frags, 0, "the open fragment is discarded with the call")
	entries := logs.FilterMessage("Fragment boundaries violate text invariants").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "héllo", fields["text"])
	assert.EqualValues(t, 1, fields["start"])
	assert.EqualValues(t, 2, fields["end"])

	for _, tt := range []struct{ start, end int }{{-1, 2}, {3, 2}, {0, 99}} {
		p.aborted = false
		_, ok := p.slice(tt.start, tt.end)
		assert.False(t, ok)
	}
}

func TestTokenize(t *testing.T) {
	tokens, boundaries := tokenize("ab, 👩🏼‍💻x\nz")
	kinds := make([]tokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.kind
	}
	assert.Equal(t, []tokenKind{tokenWord, tokenSpace, tokenWord, tokenNewline, tokenWord}, kinds)
	assert.Equal(t, 0, boundaries[0])
	assert.Equal(t, len("ab, 👩🏼‍💻x\nz"), boundaries[len(boundaries)-1])

	emojiWord := tokens[2]
	require.Len(t, emojiWord.runs, 2)
	assert.True(t, emojiWord.runs[0].emoji)
	assert.False(t, emojiWord.runs[1].emoji)
}
