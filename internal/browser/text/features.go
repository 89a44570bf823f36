// internal/browser/text/features.go
package text

import "strings"

// Feature is one OpenType feature setting, e.g. {"kern", 0}.
type Feature struct {
	Tag   string
	Value uint32
}

// Features holds the font-kerning, font-variant-ligatures and
// font-variant-caps keywords of a run.
type Features struct {
	Kerning   string
	Ligatures string
	Caps      string
}

// IsDefault reports whether the shaper defaults apply unchanged.
func (f Features) IsDefault() bool {
	return (f.Kerning == "" || f.Kerning == "auto") &&
		(f.Ligatures == "" || f.Ligatures == "normal") &&
		(f.Caps == "" || f.Caps == "normal")
}

var ligatureKeywords = map[string][]Feature{
	"common-ligatures":           {{"liga", 1}, {"clig", 1}},
	"no-common-ligatures":        {{"liga", 0}, {"clig", 0}},
	"discretionary-ligatures":    {{"dlig", 1}},
	"no-discretionary-ligatures": {{"dlig", 0}},
	"historical-ligatures":       {{"hlig", 1}},
	"no-historical-ligatures":    {{"hlig", 0}},
	"contextual":                 {{"calt", 1}},
	"no-contextual":              {{"calt", 0}},
}

var capsKeywords = map[string][]Feature{
	"small-caps":      {{"smcp", 1}},
	"all-small-caps":  {{"smcp", 1}, {"c2sc", 1}},
	"petite-caps":     {{"pcap", 1}},
	"all-petite-caps": {{"pcap", 1}, {"c2pc", 1}},
	"unicase":         {{"unic", 1}},
	"titling-caps":    {{"titl", 1}},
}

// OpenType translates the keywords to feature settings for the shaper.
func (f Features) OpenType() []Feature {
	var out []Feature
	switch f.Kerning {
	case "normal":
		out = append(out, Feature{"kern", 1})
	case "none":
		out = append(out, Feature{"kern", 0})
	}

	switch lig := strings.TrimSpace(f.Ligatures); lig {
	case "", "normal":
	case "none":
		out = append(out, Feature{"liga", 0}, Feature{"clig", 0}, Feature{"dlig", 0}, Feature{"hlig", 0}, Feature{"calt", 0})
	default:
		for _, kw := range strings.Fields(lig) {
			out = append(out, ligatureKeywords[kw]...)
		}
	}

	return append(out, capsKeywords[f.Caps]...)
}
