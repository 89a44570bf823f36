// internal/browser/font/sfnt.go
package font

import (
	"cmp"
	"encoding/binary"
	"errors"
	"math/bits"
	"slices"
)

var (
	errShortData = errors.New("unexpected end of data")
	errBadHeader = errors.New("malformed header")
)

// reader is a bounds-checked big-endian cursor. The first failure sticks
// and every later read returns zero values.
type reader struct {
	data   []byte
	off    int
	format Format
	err    error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = &DecodeError{Format: r.format, Offset: r.off, Err: err}
	}
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(errShortData)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) i16() int16 { return int16(r.u16()) }

func (r *reader) u32() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) remaining() int { return len(r.data) - r.off }

type sfntTable struct {
	tag      uint32
	checksum uint32
	data     []byte
}

// buildSFNT writes an OpenType font file from its tables. Tables are sorted
// by tag and 4-byte aligned; a zero checksum is computed.
func buildSFNT(flavor uint32, tables []sfntTable) []byte {
	tables = slices.Clone(tables)
	slices.SortFunc(tables, func(a, b sfntTable) int { return cmp.Compare(a.tag, b.tag) })

	n := len(tables)
	entrySelector := 0
	if n > 0 {
		entrySelector = bits.Len(uint(n)) - 1
	}
	searchRange := (1 << entrySelector) * 16
	size := 12 + 16*n
	for _, t := range tables {
		size += pad4(len(t.data))
	}

	out := make([]byte, 12+16*n, size)
	binary.BigEndian.PutUint32(out[0:], flavor)
	binary.BigEndian.PutUint16(out[4:], uint16(n))
	binary.BigEndian.PutUint16(out[6:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[8:], uint16(entrySelector))
	binary.BigEndian.PutUint16(out[10:], uint16(n*16-searchRange))

	for i, t := range tables {
		checksum := t.checksum
		if checksum == 0 {
			checksum = tableChecksum(t.data)
		}
		rec := out[12+16*i:]
		binary.BigEndian.PutUint32(rec[0:], t.tag)
		binary.BigEndian.PutUint32(rec[4:], checksum)
		binary.BigEndian.PutUint32(rec[8:], uint32(len(out)))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(t.data)))
		out = append(out, t.data...)
		out = append(out, make([]byte, pad4(len(t.data))-len(t.data))...)
	}
	return out
}

func pad4(n int) int { return (n + 3) &^ 3 }

func tableChecksum(b []byte) uint32 {
	var sum uint32
	for len(b) >= 4 {
		sum += binary.BigEndian.Uint32(b)
		b = b[4:]
	}
	if len(b) > 0 {
		var last [4]byte
		copy(last[:], b)
		sum += binary.BigEndian.Uint32(last[:])
	}
	return sum
}

func tagString(tag uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], tag)
	return string(b[:])
}
