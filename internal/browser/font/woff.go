// internal/browser/font/woff.go
package font

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// maxFontSize bounds the decoded size of a single font.
const maxFontSize = 64 << 20

var errTooLarge = errors.New("decoded font exceeds size limit")

// decodeWOFF unpacks a WOFF 1.0 file. Each table is stored either raw or
// zlib-compressed.
func decodeWOFF(data []byte) ([]byte, error) {
	r := &reader{data: data, format: FormatWOFF}
	r.u32() // signature
	flavor := r.u32()
	length := r.u32()
	numTables := int(r.u16())
	reserved := r.u16()
	totalSfntSize := r.u32()
	r.bytes(24) // version, metadata and private data blocks
	if r.err != nil {
		return nil, r.err
	}
	if int(length) != len(data) || reserved != 0 || numTables == 0 || totalSfntSize > maxFontSize {
		return nil, &DecodeError{Format: FormatWOFF, Offset: 0, Err: errBadHeader}
	}

	tables := make([]sfntTable, 0, numTables)
	total := 0
	for range numTables {
		entry := r.off
		tag := r.u32()
		offset := int(r.u32())
		compLength := int(r.u32())
		origLength := int(r.u32())
		checksum := r.u32()
		if r.err != nil {
			return nil, r.err
		}
		if offset < 0 || compLength > origLength || offset+compLength > len(data) {
			return nil, &DecodeError{Format: FormatWOFF, Offset: entry, Err: fmt.Errorf("table %q out of bounds", tagString(tag))}
		}
		if total += origLength; total > maxFontSize {
			return nil, &DecodeError{Format: FormatWOFF, Offset: entry, Err: errTooLarge}
		}

		raw := data[offset : offset+compLength]
		if compLength < origLength {
			inflated, err := inflate(raw, origLength)
			if err != nil {
				return nil, &DecodeError{Format: FormatWOFF, Offset: offset, Err: fmt.Errorf("table %q: %w", tagString(tag), err)}
			}
			raw = inflated
		}
		tables = append(tables, sfntTable{tag: tag, checksum: checksum, data: raw})
	}
	return buildSFNT(flavor, tables), nil
}

// inflate decompresses a zlib stream that must produce exactly size bytes.
func inflate(src []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	if n, _ := zr.Read(make([]byte, 1)); n != 0 {
		return nil, errors.New("decompressed table longer than declared")
	}
	return out, nil
}
