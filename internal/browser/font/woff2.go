// internal/browser/font/woff2.go
package font

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// knownTags is indexed by the low six bits of a WOFF2 table directory entry.
var knownTags = [63]string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

const (
	tagGlyf = 0x676C7966
	tagLoca = 0x6C6F6361

	woff2HeaderSize = 48
)

type woff2Entry struct {
	tag         uint32
	origLength  int
	length      int // bytes occupied in the decompressed stream
	transformed bool
}

// decodeWOFF2 unpacks a WOFF 2.0 file. All tables share one brotli stream;
// glyf and loca may be stored in the transformed encoding, which is rebuilt
// here. Collections and the transformed hmtx table are not supported.
func decodeWOFF2(data []byte) ([]byte, error) {
	r := &reader{data: data, format: FormatWOFF2}
	r.u32() // signature
	flavor := r.u32()
	length := r.u32()
	numTables := int(r.u16())
	reserved := r.u16()
	totalSfntSize := r.u32()
	totalCompressedSize := int(r.u32())
	r.bytes(woff2HeaderSize - r.off) // version, metadata and private data blocks
	if r.err != nil {
		return nil, r.err
	}
	if int(length) != len(data) || reserved != 0 || numTables == 0 || totalSfntSize > maxFontSize {
		return nil, &DecodeError{Format: FormatWOFF2, Offset: 0, Err: errBadHeader}
	}
	if flavor == tagTTCF {
		return nil, &DecodeError{Format: FormatWOFF2, Offset: 4, Err: fmt.Errorf("%w: font collection", ErrUnsupportedFormat)}
	}

	entries := make([]woff2Entry, numTables)
	total := 0
	for i := range entries {
		e, err := readWOFF2Entry(r)
		if err != nil {
			return nil, err
		}
		if total += e.length; total > maxFontSize {
			return nil, &DecodeError{Format: FormatWOFF2, Offset: r.off, Err: errTooLarge}
		}
		entries[i] = e
	}

	streamOffset := r.off
	compressed := r.bytes(totalCompressedSize)
	if r.err != nil {
		return nil, r.err
	}
	stream, err := unbrotli(compressed, total)
	if err != nil {
		return nil, &DecodeError{Format: FormatWOFF2, Offset: streamOffset, Err: err}
	}

	tables := make([]sfntTable, 0, numTables)
	var glyfData []byte
	var loca *woff2Entry
	haveGlyf := false
	off := 0
	for i := range entries {
		e := &entries[i]
		raw := stream[off : off+e.length]
		off += e.length
		switch {
		case e.tag == tagGlyf && e.transformed:
			glyfData, haveGlyf = raw, true
		case e.tag == tagLoca && e.transformed:
			loca = e
		default:
			tables = append(tables, sfntTable{tag: e.tag, data: raw})
		}
	}
	if haveGlyf != (loca != nil) {
		return nil, &DecodeError{Format: FormatWOFF2, Offset: woff2HeaderSize, Err: errors.New("glyf and loca must be transformed together")}
	}
	if haveGlyf {
		glyf, locaData, err := reconstructGlyf(glyfData, loca.origLength)
		if err != nil {
			return nil, err
		}
		tables = append(tables,
			sfntTable{tag: tagGlyf, data: glyf},
			sfntTable{tag: tagLoca, data: locaData},
		)
	}
	return buildSFNT(flavor, tables), nil
}

func readWOFF2Entry(r *reader) (woff2Entry, error) {
	start := r.off
	flags := r.u8()
	var tag uint32
	if idx := flags & 0x3f; idx == 63 {
		tag = r.u32()
	} else {
		tag = binary.BigEndian.Uint32([]byte(knownTags[idx]))
	}
	version := flags >> 6
	origLength := int(r.base128())

	e := woff2Entry{tag: tag, origLength: origLength, length: origLength}
	if tag == tagGlyf || tag == tagLoca {
		// Version 0 is the glyf transform for these two; 3 is the null transform.
		e.transformed = version == 0
	} else {
		e.transformed = version != 0
	}
	if e.transformed {
		e.length = int(r.base128())
	}
	if r.err != nil {
		return e, r.err
	}

	switch {
	case e.transformed && tag != tagGlyf && tag != tagLoca:
		return e, &DecodeError{Format: FormatWOFF2, Offset: start, Err: fmt.Errorf("%w: transformed %q table", ErrUnsupportedFormat, tagString(tag))}
	case e.transformed && tag == tagLoca && e.length != 0:
		return e, &DecodeError{Format: FormatWOFF2, Offset: start, Err: errors.New("transformed loca must be empty")}
	}
	return e, nil
}

func unbrotli(src []byte, size int) ([]byte, error) {
	br := brotli.NewReader(bytes.NewReader(src))
	out := make([]byte, size)
	if _, err := io.ReadFull(br, out); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	if n, _ := br.Read(make([]byte, 1)); n != 0 {
		return nil, errors.New("brotli: stream longer than table directory")
	}
	return out, nil
}

// base128 reads a UIntBase128: up to five bytes, seven bits each, high bit
// set on all but the last.
func (r *reader) base128() uint32 {
	var acc uint32
	for i := range 5 {
		b := r.u8()
		if r.err != nil {
			return 0
		}
		if i == 0 && b == 0x80 {
			r.fail(errors.New("UIntBase128 has leading zeros"))
			return 0
		}
		if acc&0xFE000000 != 0 {
			r.fail(errors.New("UIntBase128 overflows 32 bits"))
			return 0
		}
		acc = acc<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return acc
		}
	}
	r.fail(errors.New("UIntBase128 longer than 5 bytes"))
	return 0
}

// u255 reads a 255UInt16.
func (r *reader) u255() uint16 {
	const (
		wordCode         = 253
		oneMoreByteCode2 = 254
		oneMoreByteCode1 = 255
		lowestUCode      = 253
	)
	switch code := r.u8(); code {
	case wordCode:
		return r.u16()
	case oneMoreByteCode1:
		return lowestUCode + uint16(r.u8())
	case oneMoreByteCode2:
		return 2*lowestUCode + uint16(r.u8())
	default:
		return uint16(code)
	}
}
