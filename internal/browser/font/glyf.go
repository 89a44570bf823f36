// internal/browser/font/glyf.go
package font

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Composite glyph component flags.
const (
	argsAreWords     = 0x0001
	haveScale        = 0x0008
	moreComponents   = 0x0020
	haveXYScale      = 0x0040
	haveTwoByTwo     = 0x0080
	haveInstructions = 0x0100
)

// Simple glyph outline flags as written to the rebuilt glyf table.
const (
	flagOnCurve       = 0x01
	flagOverlapSimple = 0x40
)

// glyfStreams holds the sub-streams of a transformed glyf table.
type glyfStreams struct {
	nContour    *reader
	nPoints     *reader
	flags       *reader
	glyphs      *reader
	composite   *reader
	bbox        *reader
	instruction *reader

	bboxBitmap    []byte
	overlapBitmap []byte
}

// reconstructGlyf rebuilds the glyf and loca tables from the WOFF2
// transformed glyf encoding. locaLength is loca's declared original length.
func reconstructGlyf(data []byte, locaLength int) (glyf, loca []byte, err error) {
	r := &reader{data: data, format: FormatWOFF2}
	r.u16() // reserved
	optionFlags := r.u16()
	numGlyphs := int(r.u16())
	indexFormat := r.u16()
	var sizes [7]int
	for i := range sizes {
		sizes[i] = int(r.u32())
	}
	if r.err != nil {
		return nil, nil, r.err
	}

	streams := make([]*reader, len(sizes))
	for i, n := range sizes {
		b := r.bytes(n)
		if r.err != nil {
			return nil, nil, r.err
		}
		streams[i] = &reader{data: b, format: FormatWOFF2}
	}
	s := glyfStreams{
		nContour:    streams[0],
		nPoints:     streams[1],
		flags:       streams[2],
		glyphs:      streams[3],
		composite:   streams[4],
		bbox:        streams[5],
		instruction: streams[6],
	}
	s.bboxBitmap = s.bbox.bytes(4 * ((numGlyphs + 31) / 32))
	if optionFlags&1 != 0 {
		s.overlapBitmap = r.bytes((numGlyphs + 7) / 8)
	}
	if err := firstErr(r.err, s.bbox.err); err != nil {
		return nil, nil, err
	}

	offsets := make([]int, 0, numGlyphs+1)
	for i := range numGlyphs {
		offsets = append(offsets, len(glyf))
		g, err := s.glyph(i)
		if err != nil {
			return nil, nil, fmt.Errorf("glyph %d: %w", i, err)
		}
		glyf = append(glyf, g...)
		glyf = append(glyf, make([]byte, pad4(len(glyf))-len(glyf))...)
		if len(glyf) > maxFontSize {
			return nil, nil, &DecodeError{Format: FormatWOFF2, Offset: 0, Err: errTooLarge}
		}
	}
	offsets = append(offsets, len(glyf))

	loca, err = buildLoca(offsets, indexFormat)
	if err != nil {
		return nil, nil, err
	}
	if len(loca) != locaLength {
		return nil, nil, &DecodeError{Format: FormatWOFF2, Offset: 0, Err: fmt.Errorf("loca length %d, want %d", len(loca), locaLength)}
	}
	return glyf, loca, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func bitSet(bitmap []byte, i int) bool {
	return i/8 < len(bitmap) && bitmap[i/8]&(0x80>>(i%8)) != 0
}

func (s *glyfStreams) glyph(i int) ([]byte, error) {
	nContours := s.nContour.i16()
	if s.nContour.err != nil {
		return nil, s.nContour.err
	}
	explicitBBox := bitSet(s.bboxBitmap, i)
	switch {
	case nContours == 0:
		if explicitBBox {
			return nil, errors.New("empty glyph with a bounding box")
		}
		return nil, nil
	case nContours == -1:
		if !explicitBBox {
			return nil, errors.New("composite glyph without a bounding box")
		}
		return s.compositeGlyph()
	case nContours > 0:
		return s.simpleGlyph(int(nContours), explicitBBox, bitSet(s.overlapBitmap, i))
	}
	return nil, fmt.Errorf("invalid contour count %d", nContours)
}

func (s *glyfStreams) compositeGlyph() ([]byte, error) {
	out := binary.BigEndian.AppendUint16(nil, 0xFFFF)
	out = append(out, s.bbox.bytes(8)...)

	start := s.composite.off
	instructions := false
	for {
		flags := s.composite.u16()
		s.composite.u16() // glyph index
		n := 2
		if flags&argsAreWords != 0 {
			n = 4
		}
		switch {
		case flags&haveScale != 0:
			n += 2
		case flags&haveXYScale != 0:
			n += 4
		case flags&haveTwoByTwo != 0:
			n += 8
		}
		s.composite.bytes(n)
		if flags&haveInstructions != 0 {
			instructions = true
		}
		if s.composite.err != nil || flags&moreComponents == 0 {
			break
		}
	}
	if err := firstErr(s.bbox.err, s.composite.err); err != nil {
		return nil, err
	}
	out = append(out, s.composite.data[start:s.composite.off]...)

	if instructions {
		return s.appendInstructions(out)
	}
	return out, nil
}

func (s *glyfStreams) simpleGlyph(nContours int, explicitBBox, overlap bool) ([]byte, error) {
	endPts := make([]uint16, nContours)
	total := 0
	for c := range endPts {
		total += int(s.nPoints.u255())
		if total > math.MaxUint16+1 {
			return nil, errors.New("too many points")
		}
		endPts[c] = uint16(total - 1)
	}
	if s.nPoints.err != nil {
		return nil, s.nPoints.err
	}

	flagBytes := s.flags.bytes(total)
	if s.flags.err != nil {
		return nil, s.flags.err
	}
	dx, dy, onCurve, err := decodeTriplets(flagBytes, s.glyphs)
	if err != nil {
		return nil, err
	}

	var bbox []byte
	if explicitBBox {
		bbox = s.bbox.bytes(8)
		if s.bbox.err != nil {
			return nil, s.bbox.err
		}
	} else {
		bbox = computeBBox(dx, dy)
	}

	out := binary.BigEndian.AppendUint16(nil, uint16(nContours))
	out = append(out, bbox...)
	for _, e := range endPts {
		out = binary.BigEndian.AppendUint16(out, e)
	}
	out, err = s.appendInstructions(out)
	if err != nil {
		return nil, err
	}
	for p := range total {
		var f byte
		if onCurve[p] {
			f = flagOnCurve
		}
		if p == 0 && overlap {
			f |= flagOverlapSimple
		}
		out = append(out, f)
	}
	for _, v := range dx {
		out = binary.BigEndian.AppendUint16(out, uint16(v))
	}
	for _, v := range dy {
		out = binary.BigEndian.AppendUint16(out, uint16(v))
	}
	return out, nil
}

// appendInstructions reads the instruction length from the glyph stream and
// the bytes from the instruction stream.
func (s *glyfStreams) appendInstructions(out []byte) ([]byte, error) {
	n := s.glyphs.u255()
	code := s.instruction.bytes(int(n))
	if err := firstErr(s.glyphs.err, s.instruction.err); err != nil {
		return nil, err
	}
	out = binary.BigEndian.AppendUint16(out, n)
	return append(out, code...), nil
}

// decodeTriplets decodes point deltas. The high bit of each flag byte clear
// means on-curve; the low seven bits select how many glyph stream bytes
// encode the delta pair.
func decodeTriplets(flags []byte, in *reader) (dx, dy []int16, onCurve []bool, err error) {
	withSign := func(flag byte, v int) int {
		if flag&1 != 0 {
			return v
		}
		return -v
	}
	dx = make([]int16, len(flags))
	dy = make([]int16, len(flags))
	onCurve = make([]bool, len(flags))
	for i, flag := range flags {
		onCurve[i] = flag>>7 == 0
		flag &= 0x7f
		var n int
		switch {
		case flag < 84:
			n = 1
		case flag < 120:
			n = 2
		case flag < 124:
			n = 3
		default:
			n = 4
		}
		b := in.bytes(n)
		if in.err != nil {
			return nil, nil, nil, in.err
		}

		var x, y int
		switch {
		case flag < 10:
			y = withSign(flag, int(flag&14)<<7+int(b[0]))
		case flag < 20:
			x = withSign(flag, int((flag-10)&14)<<7+int(b[0]))
		case flag < 84:
			b0, b1 := int(flag-20), int(b[0])
			x = withSign(flag, 1+(b0&0x30)+(b1>>4))
			y = withSign(flag>>1, 1+((b0&0x0c)<<2)+(b1&0x0f))
		case flag < 120:
			b0 := int(flag - 84)
			x = withSign(flag, 1+((b0/12)<<8)+int(b[0]))
			y = withSign(flag>>1, 1+(((b0%12)>>2)<<8)+int(b[1]))
		case flag < 124:
			b2 := int(b[1])
			x = withSign(flag, int(b[0])<<4+b2>>4)
			y = withSign(flag>>1, (b2&0x0f)<<8+int(b[2]))
		default:
			x = withSign(flag, int(b[0])<<8+int(b[1]))
			y = withSign(flag>>1, int(b[2])<<8+int(b[3]))
		}
		dx[i], dy[i] = int16(x), int16(y)
	}
	return dx, dy, onCurve, nil
}

func computeBBox(dx, dy []int16) []byte {
	var x, y int
	xMin, yMin := math.MaxInt, math.MaxInt
	xMax, yMax := math.MinInt, math.MinInt
	for i := range dx {
		x += int(dx[i])
		y += int(dy[i])
		xMin, xMax = min(xMin, x), max(xMax, x)
		yMin, yMax = min(yMin, y), max(yMax, y)
	}
	if len(dx) == 0 {
		xMin, yMin, xMax, yMax = 0, 0, 0, 0
	}
	out := make([]byte, 0, 8)
	for _, v := range []int{xMin, yMin, xMax, yMax} {
		out = binary.BigEndian.AppendUint16(out, uint16(int16(v)))
	}
	return out
}

func buildLoca(offsets []int, indexFormat uint16) ([]byte, error) {
	var out []byte
	for _, off := range offsets {
		if indexFormat == 0 {
			if off/2 > math.MaxUint16 {
				return nil, &DecodeError{Format: FormatWOFF2, Offset: 0, Err: errors.New("glyf too large for short loca")}
			}
			out = binary.BigEndian.AppendUint16(out, uint16(off/2))
		} else {
			out = binary.BigEndian.AppendUint32(out, uint32(off))
		}
	}
	return out, nil
}
