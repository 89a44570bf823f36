// internal/browser/text/collapse.go
package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func isASCIISpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\f' || r == '\r'
}

func isSpaceExceptNewline(r rune) bool {
	return r != '\n' && isASCIISpace(r)
}

// CollapseWhiteSpace applies the white-space processing of mode to s. For the
// collapsing modes every run of ASCII whitespace becomes one space. A leading
// space survives only when the preceding inline content did not already end
// in whitespace; a trailing space always survives. pre-line keeps newlines
// and drops the spaces around them. Other modes return s unchanged.
func CollapseWhiteSpace(s string, mode WhiteSpace, precededByWhitespace bool) string {
	switch mode {
	case WhiteSpaceNormal, WhiteSpaceNowrap:
		return collapseRun(s, isASCIISpace, !precededByWhitespace, true)
	case WhiteSpacePreLine:
		lines := strings.Split(s, "\n")
		last := len(lines) - 1
		for i, line := range lines {
			lines[i] = collapseRun(line, isSpaceExceptNewline, i == 0 && !precededByWhitespace, i == last)
		}
		return strings.Join(lines, "\n")
	}
	return s
}

func collapseRun(s string, space func(rune) bool, keepLeading, keepTrailing bool) string {
	words := strings.FieldsFunc(s, space)
	var b strings.Builder
	b.Grow(len(s))
	if keepLeading && strings.IndexFunc(s, space) == 0 {
		b.WriteByte(' ')
	}
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if keepTrailing && len(words) > 0 && endsWithFunc(s, space) {
		b.WriteByte(' ')
	}
	return b.String()
}

func endsWithFunc(s string, f func(rune) bool) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && f(r)
}

// EndsWithWhitespace reports whether s ends in ASCII whitespace.
func EndsWithWhitespace(s string) bool { return endsWithFunc(s, isASCIISpace) }

// Transform applies a text-transform using the case rules of tag.
// Capitalize title-cases the first letter of every word and leaves the rest
// alone, so Dutch "ijsland" becomes "IJsland".
func Transform(s string, t TextTransform, tag language.Tag) string {
	switch t {
	case TransformUppercase:
		return cases.Upper(tag).String(s)
	case TransformLowercase:
		return cases.Lower(tag).String(s)
	case TransformCapitalize:
		caser := cases.Title(tag, cases.NoLower)
		var b strings.Builder
		b.Grow(len(s))
		for word := range words(s) {
			b.WriteString(caser.String(word))
		}
		return b.String()
	}
	return s
}
