package mfm

import "github.com/sergev/floppyengine/bitbuf"

// EncodeFM FM-encodes a data-byte sequence into raw clock+data cells.
// FM's clocking rule is simpler than MFM's: the clock bit before every
// data bit is always 1, regardless of neighboring bits. Grounded on
// spec.md §4.2's FM clocking rule and the teacher's single-density
// write path, which reuses the MFM cell layout with a fixed clock.
func EncodeFM(data []byte) *bitbuf.Buffer {
	buf := bitbuf.New(len(data) * 16)
	pos := 0
	putHalfBit := func(v bool) {
		buf.Set(pos, v)
		pos++
	}
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			putHalfBit(true)
			putHalfBit((b>>uint(i))&1 != 0)
		}
	}
	return buf
}

// DecodeFM decodes nBytes of FM data starting at startBit in stream.
// Every other raw cell is a clock bit and is ignored; a clock cell
// that reads 0 where FM always writes 1 is flagged as a decode error
// for that bit, the FM counterpart of an MFM clock-violation check.
func DecodeFM(stream, weak *bitbuf.Buffer, startBit, nBytes int) (data []byte, weakOut, errorOut *bitbuf.Buffer) {
	n := nBytes * 8
	data = make([]byte, nBytes)
	weakOut = bitbuf.New(n)
	errorOut = bitbuf.New(n)

	pos := startBit
	for i := 0; i < n; i++ {
		clockBit := stream.Get(pos)
		clockWeak := weak != nil && weak.Get(pos)
		pos++
		dataBit := stream.Get(pos)
		dataWeak := weak != nil && weak.Get(pos)
		pos++

		if dataBit {
			data[i/8] |= 1 << uint(7-(i&7))
		}
		if clockWeak || dataWeak {
			weakOut.Set(i, true)
		}
		if !clockBit {
			errorOut.Set(i, true)
		}
	}
	return data, weakOut, errorOut
}

// WriteFMIDAM writes the single-density ID address mark: a raw clock
// pattern of FMIDAMClock beneath data byte FMIDAMTag. FM address marks
// carry their clock violation directly in the tag cell rather than in
// a preceding sync run, unlike MFM's three-sync-repeat marks.
func WriteFMIDAM(buf *bitbuf.Buffer, pos int) int {
	for i := 7; i >= 0; i-- {
		clockBit := (FMIDAMClock>>uint(i))&1 != 0
		dataBit := (FMIDAMTag>>uint(i))&1 != 0
		buf.Set(pos, clockBit)
		pos++
		buf.Set(pos, dataBit)
		pos++
	}
	return pos
}
