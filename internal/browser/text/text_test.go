package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestCollapseWhiteSpace(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		mode     WhiteSpace
		preceded bool
		want     string
	}{
		{"runs collapse", "a \t\n b", WhiteSpaceNormal, false, "a b"},
		{"leading kept", "  a", WhiteSpaceNormal, false, " a"},
		{"leading dropped after whitespace", "  a", WhiteSpaceNormal, true, "a"},
		{"trailing kept", "a  \n", WhiteSpaceNormal, true, "a "},
		{"only whitespace", " \n ", WhiteSpaceNormal, false, " "},
		{"only whitespace after whitespace", " \n ", WhiteSpaceNormal, true, ""},
		{"nowrap collapses too", "a   b", WhiteSpaceNowrap, false, "a b"},
		{"pre untouched", " a  b\n", WhiteSpacePre, true, " a  b\n"},
		{"pre-wrap untouched", "a  b", WhiteSpacePreWrap, false, "a  b"},
		{"pre-line keeps newlines", " a  \n\t b \n c ", WhiteSpacePreLine, false, " a\nb\nc "},
		{"non-ascii space survives", "a\u00a0\u00a0b", WhiteSpaceNormal, false, "a\u00a0\u00a0b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollapseWhiteSpace(tt.in, tt.mode, tt.preceded))
		})
	}
}

func TestEndsWithWhitespace(t *testing.T) {
	assert.True(t, EndsWithWhitespace("a "))
	assert.True(t, EndsWithWhitespace("a\n"))
	assert.False(t, EndsWithWhitespace("aé"))
	assert.False(t, EndsWithWhitespace(""))
}

func TestTransform(t *testing.T) {
	tests := []struct {
		in   string
		tt   TextTransform
		tag  language.Tag
		want string
	}{
		{"Hello", TransformNone, language.English, "Hello"},
		{"hello world", TransformUppercase, language.English, "HELLO WORLD"},
		{"straße", TransformUppercase, language.German, "STRASSE"},
		{"HELLO", TransformLowercase, language.English, "hello"},
		{"İstanbul", TransformLowercase, language.Turkish, "istanbul"},
		{"hello wORLD", TransformCapitalize, language.English, "Hello WORLD"},
		{"ijsland is mooi", TransformCapitalize, language.Dutch, "IJsland Is Mooi"},
		{"ijsland", TransformCapitalize, language.English, "Ijsland"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Transform(tt.in, tt.tt, tt.tag))
		})
	}
}

func TestIsEmojiWord(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"❤️", true},
		{"👩🏼‍💻", true},
		{"🇳🇱", true},
		{"Hello, world!", false},
		{"ٱلْعَرَبِيَّةُ", false},
		{"4.0", false},
		{"#1", false},
		{"a😀", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmojiWord(tt.in))
		})
	}
	assert.True(t, IsEmojiRune('7'), "digits are emoji components")
}

func TestWordsConcatenateBack(t *testing.T) {
	in := "Hello, wörld! 👩🏼‍💻 done."
	var out string
	var n int
	for w := range words(in) {
		out += w
		n++
	}
	assert.Equal(t, in, out)
	assert.Greater(t, n, 5)
}

func TestFeaturesOpenType(t *testing.T) {
	assert.True(t, Features{}.IsDefault())
	assert.True(t, Features{Kerning: "auto", Ligatures: "normal", Caps: "normal"}.IsDefault())
	assert.Empty(t, Features{}.OpenType())

	assert.Equal(t, []Feature{{"kern", 1}}, Features{Kerning: "normal"}.OpenType())
	assert.Equal(t,
		[]Feature{{"liga", 0}, {"clig", 0}, {"dlig", 0}, {"hlig", 0}, {"calt", 0}},
		Features{Ligatures: "none"}.OpenType())
	assert.Equal(t,
		[]Feature{{"liga", 0}, {"clig", 0}, {"dlig", 1}},
		Features{Ligatures: "no-common-ligatures discretionary-ligatures"}.OpenType())
	assert.Equal(t, []Feature{{"pcap", 1}, {"c2pc", 1}}, Features{Caps: "all-petite-caps"}.OpenType())
	assert.False(t, Features{Caps: "unicase"}.IsDefault())
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, WhiteSpacePreLine, ParseWhiteSpace("pre-line"))
	assert.Equal(t, WhiteSpaceNormal, ParseWhiteSpace("bogus"))
	assert.True(t, WhiteSpacePreWrap.Wraps())
	assert.False(t, WhiteSpacePre.Wraps())
	assert.True(t, WhiteSpacePre.PreservesNewlines())
	assert.False(t, WhiteSpaceNowrap.PreservesNewlines())
	assert.True(t, WhiteSpacePreLine.Collapses())

	assert.Equal(t, TransformCapitalize, ParseTransform("Capitalize"))
	assert.Equal(t, TransformNone, ParseTransform("full-width"))
	assert.Equal(t, "full", HintingFull.String())
}
