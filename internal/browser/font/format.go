// internal/browser/font/format.go
package font

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Format is a font container format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCollection
	FormatEmbeddedOpenType
	FormatOpenType
	FormatSVG
	FormatTrueType
	FormatWOFF
	FormatWOFF2
)

var formatNames = [...]string{
	FormatUnknown:          "unknown",
	FormatCollection:       "collection",
	FormatEmbeddedOpenType: "embedded-opentype",
	FormatOpenType:         "opentype",
	FormatSVG:              "svg",
	FormatTrueType:         "truetype",
	FormatWOFF:             "woff",
	FormatWOFF2:            "woff2",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

// ParseFormat reads the string of a CSS format() hint.
func ParseFormat(s string) Format {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return Format(f)
		}
	}
	// Legacy hints from older stylesheets.
	switch s {
	case "truetype-aat":
		return FormatTrueType
	case "woff-variations":
		return FormatWOFF
	case "woff2-variations":
		return FormatWOFF2
	case "opentype-variations":
		return FormatOpenType
	}
	return FormatUnknown
}

// Supported reports whether Decode can produce a face from the format.
func (f Format) Supported() bool {
	switch f {
	case FormatOpenType, FormatTrueType, FormatWOFF, FormatWOFF2:
		return true
	}
	return false
}

const (
	tagWOFF  = 0x774F4646 // wOFF
	tagWOFF2 = 0x774F4632 // wOF2
	tagOTTO  = 0x4F54544F // OTTO
	tagTTCF  = 0x74746366 // ttcf
	tagTrue  = 0x74727565 // true
)

// Sniff identifies the container format from the leading bytes of data.
func Sniff(data []byte) Format {
	if len(data) >= 4 {
		switch binary.BigEndian.Uint32(data) {
		case tagWOFF:
			return FormatWOFF
		case tagWOFF2:
			return FormatWOFF2
		case tagOTTO:
			return FormatOpenType
		case tagTTCF:
			return FormatCollection
		case 0x00010000, tagTrue:
			return FormatTrueType
		}
	}
	// EOT carries its magic number 0x504C at offset 34.
	if len(data) >= 36 && data[34] == 0x4C && data[35] == 0x50 {
		return FormatEmbeddedOpenType
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("<svg")) || bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return FormatSVG
	}
	return FormatUnknown
}

// DecodeError reports malformed font data at a byte offset.
type DecodeError struct {
	Format Format
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s font at offset %d: %v", e.Format, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode returns the sfnt bytes of a font file and the container format it
// was stored in.
func Decode(data []byte) ([]byte, Format, error) {
	format := Sniff(data)
	switch format {
	case FormatTrueType, FormatOpenType:
		return data, format, nil
	case FormatWOFF:
		out, err := decodeWOFF(data)
		return out, format, err
	case FormatWOFF2:
		out, err := decodeWOFF2(data)
		return out, format, err
	}
	return nil, format, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
