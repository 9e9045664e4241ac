package schema

import (
	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
)

const (
	markBits   = 3*16 + 16 // three sync repeats + tag byte, in raw cells
	chrnBits   = 4 * 16    // cylinder, head, record, N, each an MFM-encoded byte
	crcBits    = 2 * 16
	idamTotal  = markBits + chrnBits + crcBits
	damHeadLen = markBits
)

// System34 scans a track encoded per the IBM System 34 floppy-controller
// convention: an optional index mark, followed by one IDAM (CHRN sector
// header with CRC) per sector, each followed within GapMaxBits raw bits
// by its DAM or DDAM (sector payload with CRC).
type System34 struct {
	// GapMaxBits bounds how far past an IDAM's end the matching DAM may
	// start before it is treated as belonging to a different sector
	// (or the track being unformatted past that point).
	GapMaxBits int
}

// NewSystem34 returns a System34 scanner with the given gap bound.
func NewSystem34(gapMaxBits int) System34 {
	return System34{GapMaxBits: gapMaxBits}
}

// Scan walks the entire stream once, in cell order, and returns every
// address mark and sector field it can locate.
func (s System34) Scan(stream, weak *bitbuf.Buffer) []Element {
	n := stream.Len()
	if n == 0 {
		return nil
	}
	var elems []Element
	pos := 0
	cursor := 0

	for cursor < n {
		off, kind, found := mfm.ScanForMark(stream, pos, []mfm.MarkKind{mfm.MarkIAM, mfm.MarkIDAM, mfm.MarkDAM, mfm.MarkDDAM})
		if !found {
			break
		}
		cursor += circularDistance(pos, off, n)
		if cursor >= n {
			break
		}

		switch kind {
		case mfm.MarkIAM:
			elems = append(elems, Element{Kind: ElementIndexMark, BitOffset: off, BitLength: markBits})
			pos = off + markBits
			cursor += markBits

		case mfm.MarkIDAM:
			elem, dataElem, consumed, ok := s.decodeIDAMAndData(stream, weak, off)
			elems = append(elems, elem)
			if ok {
				elems = append(elems, dataElem)
			}
			pos = off + consumed
			cursor += consumed

		case mfm.MarkDAM, mfm.MarkDDAM:
			// A data mark with no preceding IDAM in range; skip past its
			// sync field so the scan makes forward progress.
			pos = off + 1
			cursor++
		}
	}
	return elems
}

func (s System34) decodeIDAMAndData(stream, weak *bitbuf.Buffer, off int) (idam Element, data Element, consumed int, haveData bool) {
	header, _, _ := mfm.DecodeMFM(stream, weak, off+markBits, 4)
	crcField, _, _ := mfm.DecodeMFM(stream, weak, off+markBits+chrnBits, 2)
	headerCRC := uint16(crcField[0])<<8 | uint16(crcField[1])
	computed := mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, mfm.TagIDAM})
	computed = mfm.CRC16CCITTFrom(computed, header)

	id := geometry.Chsn{Cylinder: uint16(header[0]), Head: header[1], Sector: header[2], N: header[3]}
	idam = Element{Kind: ElementIDAM, BitOffset: off, BitLength: idamTotal, ID: id, CRCOK: computed == headerCRC}
	consumed = idamTotal

	damOff, damKind, found := mfm.ScanForMark(stream, off+idamTotal, []mfm.MarkKind{mfm.MarkDAM, mfm.MarkDDAM, mfm.MarkIDAM})
	if !found || (damKind != mfm.MarkDAM && damKind != mfm.MarkDDAM) {
		return idam, Element{}, consumed, false
	}
	gap := circularDistance(off+idamTotal, damOff, stream.Len())
	if gap > s.GapMaxBits {
		return idam, Element{}, consumed, false
	}

	size := geometry.SizeFromN(id.N)
	payload, _, _ := mfm.DecodeMFM(stream, weak, damOff+damHeadLen, size)
	crcOff := damOff + damHeadLen + size*16
	crcField2, _, _ := mfm.DecodeMFM(stream, weak, crcOff, 2)
	dataCRC := uint16(crcField2[0])<<8 | uint16(crcField2[1])

	tag := mfm.TagDAM
	kind := ElementDAM
	if damKind == mfm.MarkDDAM {
		tag = mfm.TagDDAM
		kind = ElementDDAM
	}
	computedData := mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, tag})
	computedData = mfm.CRC16CCITTFrom(computedData, payload)

	dataTotal := damHeadLen + size*16 + crcBits
	data = Element{Kind: kind, BitOffset: damOff, BitLength: dataTotal, ID: id, CRCOK: computedData == dataCRC, Data: payload}
	consumed = (damOff - off) + dataTotal
	return idam, data, consumed, true
}

// FindSector scans forward from fromBit for the first IDAM/DAM pair
// whose sector ID matches q.
func (s System34) FindSector(stream, weak *bitbuf.Buffer, q geometry.Query, fromBit int) (idam, data Element, ok bool) {
	n := stream.Len()
	pos := fromBit
	cursor := 0
	for cursor < n {
		off, kind, found := mfm.ScanForMark(stream, pos, []mfm.MarkKind{mfm.MarkIDAM})
		if !found || kind != mfm.MarkIDAM {
			return Element{}, Element{}, false
		}
		cursor += circularDistance(pos, off, n)
		if cursor >= n {
			return Element{}, Element{}, false
		}
		idamElem, dataElem, consumed, haveData := s.decodeIDAMAndData(stream, weak, off)
		if q.Matches(idamElem.ID) && haveData {
			return idamElem, dataElem, true
		}
		pos = off + consumed
		cursor += consumed
	}
	return Element{}, Element{}, false
}

func circularDistance(from, to, n int) int {
	if n == 0 {
		return 0
	}
	return ((to-from)%n + n) % n
}
