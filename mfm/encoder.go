package mfm

import "github.com/sergev/floppyengine/bitbuf"

// Encoder builds an MFM bit-cell stream (clock bit, data bit
// interleaved) one data bit at a time, tracking the previous data bit
// so each new zero's clock bit is chosen correctly. Grounded on the
// teacher's mfm.Writer, generalized to write into a growable cell
// buffer instead of a fixed-length track buffer.
type Encoder struct {
	cells       []byte
	bitPos      int
	lastDataBit bool
}

// NewEncoder creates an empty MFM encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) ensure(n int) {
	need := (e.bitPos + n + 7) / 8
	for len(e.cells) < need {
		e.cells = append(e.cells, 0)
	}
}

func (e *Encoder) writeHalfBit(v bool) {
	e.ensure(1)
	if v {
		byteIdx := e.bitPos / 8
		bitIdx := uint(7 - (e.bitPos & 7))
		e.cells[byteIdx] |= 1 << bitIdx
	}
	e.bitPos++
}

// WriteDataBit MFM-encodes a single data bit: a "1" is clock=0,data=1;
// a "0" is clocked 1 only if neither neighboring data bit is 1.
func (e *Encoder) WriteDataBit(bit bool) {
	if bit {
		e.writeHalfBit(false)
		e.writeHalfBit(true)
	} else {
		e.writeHalfBit(!e.lastDataBit)
		e.writeHalfBit(false)
	}
	e.lastDataBit = bit
}

// WriteByte MFM-encodes a byte, MSB first.
func (e *Encoder) WriteByte(b byte) {
	for i := 7; i >= 0; i-- {
		e.WriteDataBit((b>>uint(i))&1 != 0)
	}
}

// WriteBytes MFM-encodes a byte slice in order.
func (e *Encoder) WriteBytes(data []byte) {
	for _, b := range data {
		e.WriteByte(b)
	}
}

// WriteRawCells writes n raw clock+data cell bits directly from
// pattern (MSB-first over its low n bits), bypassing normal data
// encoding. Used for the A1/C2 sync patterns, whose clock-bit
// violation cannot be produced by WriteDataBit.
func (e *Encoder) WriteRawCells(pattern uint16, n int) {
	for i := 0; i < n; i++ {
		bit := (pattern>>uint(n-1-i))&1 != 0
		e.writeHalfBit(bit)
	}
	e.lastDataBit = pattern&1 != 0
}

// WriteMark writes the three-sync-repeat + tag-byte address mark for
// kind. Returns false if kind has no mark encoding (e.g. MarkNone).
func (e *Encoder) WriteMark(kind MarkKind) bool {
	sync, tag, ok := SyncForMark(kind)
	if !ok {
		return false
	}
	for i := 0; i < 3; i++ {
		e.WriteRawCells(sync, 16)
	}
	e.WriteByte(tag)
	return true
}

// WriteGapBytes writes n repeats of the gap filler byte fill (0x4E is
// the standard MFM filler), matching the teacher's writeGap.
func (e *Encoder) WriteGapBytes(fill byte, n int) {
	for i := 0; i < n; i++ {
		e.WriteByte(fill)
	}
}

// Len returns the number of raw cell bits written so far.
func (e *Encoder) Len() int {
	return e.bitPos
}

// Bits returns the accumulated cell stream as a bitbuf.Buffer of
// exactly Len() bits.
func (e *Encoder) Bits() *bitbuf.Buffer {
	return bitbuf.NewFromBytes(e.cells, e.bitPos)
}

// EncodeMFM MFM-encodes a data-byte sequence into raw clock+data
// cells, per spec.md §4.2. withClockViolations is accepted for
// interface symmetry with the Rust original but has no effect here:
// ordinary data bytes never need a clock-violation cell — only sync
// marks do, and those are written with WriteMark/WriteRawCells.
func EncodeMFM(data []byte, withClockViolations bool) *bitbuf.Buffer {
	_ = withClockViolations
	enc := NewEncoder()
	enc.WriteBytes(data)
	return enc.Bits()
}
