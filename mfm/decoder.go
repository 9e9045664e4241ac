package mfm

import "github.com/sergev/floppyengine/bitbuf"

// Decoder reads MFM-encoded data bits back out of a raw cell stream,
// one data bit (two raw cells) at a time, tracking the previous data
// bit so clock-bit violations can be detected. Grounded on the
// teacher's mfm.Reader, generalized to read from a bitbuf.Buffer
// (which may be a live track, not a standalone byte slice) and to
// surface decode errors instead of silently trusting the clock field.
type Decoder struct {
	stream      *bitbuf.Buffer
	weak        *bitbuf.Buffer // may be nil
	pos         int
	lastDataBit bool
	haveContext bool
}

// NewDecoder creates a Decoder positioned at startBit within stream.
// weak may be nil if the caller has no weak-bit mask for this stream.
func NewDecoder(stream, weak *bitbuf.Buffer, startBit int) *Decoder {
	return &Decoder{stream: stream, weak: weak, pos: startBit}
}

// Pos returns the decoder's current raw bit offset.
func (d *Decoder) Pos() int {
	return d.pos
}

func (d *Decoder) readRawCell() (bit bool, weak bool) {
	bit = d.stream.Get(d.pos)
	if d.weak != nil {
		weak = d.weak.Get(d.pos)
	}
	d.pos++
	return bit, weak
}

// NextBit decodes the next data bit, returning the bit, whether either
// of its two raw cells is flagged weak, and whether the clock cell
// violated the expected MFM clocking rule for the previous data bit
// (a decode error — the bit is still returned).
func (d *Decoder) NextBit() (bit bool, weak bool, decodeErr bool) {
	clockBit, clockWeak := d.readRawCell()
	dataBit, dataWeak := d.readRawCell()

	if d.haveContext {
		expectedClock := !d.lastDataBit && !dataBit
		if clockBit != expectedClock {
			decodeErr = true
		}
	}
	d.lastDataBit = dataBit
	d.haveContext = true

	return dataBit, clockWeak || dataWeak, decodeErr
}

// DecodeMFM decodes nBytes of MFM data starting at startBit in stream,
// per spec.md §4.2. Returns the decoded bytes plus a per-bit weak mask
// and a per-bit error mask (each nBytes*8 bits long, MSB-first,
// matching the data byte layout) recording, for each decoded data
// bit, whether it was flagged weak in the input or its clock cell
// violated MFM's encoding rule.
func DecodeMFM(stream, weak *bitbuf.Buffer, startBit, nBytes int) (data []byte, weakOut, errorOut *bitbuf.Buffer) {
	dec := NewDecoder(stream, weak, startBit)
	n := nBytes * 8
	data = make([]byte, nBytes)
	weakOut = bitbuf.New(n)
	errorOut = bitbuf.New(n)

	for i := 0; i < n; i++ {
		bit, w, e := dec.NextBit()
		if bit {
			data[i/8] |= 1 << uint(7-(i&7))
		}
		if w {
			weakOut.Set(i, true)
		}
		if e {
			errorOut.Set(i, true)
		}
	}
	return data, weakOut, errorOut
}
