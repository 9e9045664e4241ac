package schema

import (
	"encoding/binary"

	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
)

const (
	amigaSyncBits   = 32 // two 0x4489 raw sync words
	amigaSectorSize = 512
)

// Amiga scans a track encoded per the Commodore Amiga trackdisk
// convention: sync word 0x4489 0x4489 (raw cells), an odd/even
// bit-interleaved header (track/sector/sectors-to-gap plus a 16-byte
// sector label) with its own checksum, a data checksum, and finally
// the odd/even bit-interleaved 512-byte payload.
//
// Grounded on the teacher's mfm.Reader (scanAmiga/readLong/readDataAmiga
// and the unshuffle helper), adapted onto an explicit bitbuf.Buffer
// scan instead of a track-owning linear reader.
type Amiga struct {
	// SectorIDOffset reinterprets the embedded sector number, for the
	// rare track that numbers sectors from something other than 0.
	SectorIDOffset int
}

// NewAmiga returns an Amiga scanner with standard sector numbering.
func NewAmiga() Amiga {
	return Amiga{}
}

func amigaSyncPattern() ([]byte, []byte) {
	return []byte{0x44, 0x89, 0x44, 0x89}, []byte{0xFF, 0xFF, 0xFF, 0xFF}
}

// Shuffle splits a 32-bit word into its odd and even bit-interleaved
// halves, the write-side inverse of unshuffle: word bit (2j+1) becomes
// odd's bit j, word bit (2j) becomes even's bit j.
func Shuffle(word uint32) (odd, even uint16) {
	for i := 15; i >= 0; i-- {
		even = (even << 1) | uint16((word>>uint(2*i))&1)
		odd = (odd << 1) | uint16((word>>uint(2*i+1))&1)
	}
	return odd, even
}

// EncodeSector MFM-encodes one Amiga trackdisk sector (sync, header,
// checksums, interleaved payload) onto enc. label is written as all
// zeros, matching the teacher's reader which never interprets it.
func EncodeSector(enc *mfm.Encoder, trackNum, sector int, payload []byte) {
	enc.WriteRawCells(0x4489, 16)
	enc.WriteRawCells(0x4489, 16)

	ident := uint32(trackNum)<<16 | uint32(sector)<<8 | 0xFF
	oddW, evenW := Shuffle(ident)
	enc.WriteBytes([]byte{byte(oddW >> 8), byte(oddW)})
	enc.WriteBytes([]byte{byte(evenW >> 8), byte(evenW)})
	headerSum := uint32(oddW) ^ uint32(evenW)

	for i := 0; i < 4; i++ {
		oddL, evenL := Shuffle(0)
		enc.WriteBytes([]byte{byte(oddL >> 8), byte(oddL)})
		enc.WriteBytes([]byte{byte(evenL >> 8), byte(evenL)})
		headerSum ^= uint32(oddL) ^ uint32(evenL)
	}

	hdrCRC := make([]byte, 4)
	binary.BigEndian.PutUint32(hdrCRC, headerSum)
	enc.WriteBytes(hdrCRC)

	half := amigaSectorSize / 4
	odds := make([]uint16, half)
	evens := make([]uint16, half)
	var dataSum uint32
	for i := 0; i < half; i++ {
		word := binary.BigEndian.Uint32(payload[4*i : 4*i+4])
		o, e := Shuffle(word)
		odds[i], evens[i] = o, e
		dataSum ^= uint32(o) ^ uint32(e)
	}

	dataCRC := make([]byte, 4)
	binary.BigEndian.PutUint32(dataCRC, dataSum)
	enc.WriteBytes(dataCRC)

	for _, o := range odds {
		enc.WriteBytes([]byte{byte(o >> 8), byte(o)})
	}
	for _, e := range evens {
		enc.WriteBytes([]byte{byte(e >> 8), byte(e)})
	}
}

// unshuffle reconstructs a 32-bit word from its odd and even bit
// streams, the inverse of the Amiga controller's write-side
// interleaving.
func unshuffle(odd, even uint16) uint32 {
	var word uint32
	for i := 0; i < 16; i++ {
		word <<= 2
		word |= uint32((even>>15)&1) | uint32((odd>>14)&2)
		odd <<= 1
		even <<= 1
	}
	return word
}

// Scan walks the stream once looking for Amiga sector sync words.
func (a Amiga) Scan(stream, weak *bitbuf.Buffer) []Element {
	n := stream.Len()
	if n == 0 {
		return nil
	}
	var elems []Element
	pat, mask := amigaSyncPattern()
	pos := 0
	cursor := 0

	for cursor < n {
		off := stream.FindPattern(pos, pat, mask)
		if off < 0 {
			break
		}
		cursor += circularDistance(pos, off, n)
		if cursor >= n {
			break
		}

		elem, nextPos, ok := a.decodeSector(stream, weak, off)
		if ok {
			elems = append(elems, elem)
			consumed := nextPos - off
			pos = nextPos
			cursor += consumed
		} else {
			pos = off + amigaSyncBits
			cursor += amigaSyncBits
		}
	}
	return elems
}

func (a Amiga) decodeSector(stream, weak *bitbuf.Buffer, off int) (elem Element, nextPos int, ok bool) {
	pos := off + amigaSyncBits

	oddHdr, _, _ := mfm.DecodeMFM(stream, weak, pos, 2)
	pos += 2 * 16
	evenHdr, _, _ := mfm.DecodeMFM(stream, weak, pos, 2)
	pos += 2 * 16

	oddW := uint16(oddHdr[0])<<8 | uint16(oddHdr[1])
	evenW := uint16(evenHdr[0])<<8 | uint16(evenHdr[1])
	headerSum := uint32(oddW) ^ uint32(evenW)

	ident := unshuffle(oddW, evenW) & 0xFFFFFF
	trackNum := int(ident >> 16)
	sectorNum := int((ident>>8)&0xFF) + a.SectorIDOffset

	for i := 0; i < 4; i++ {
		oddL, _, _ := mfm.DecodeMFM(stream, weak, pos, 2)
		pos += 2 * 16
		evenL, _, _ := mfm.DecodeMFM(stream, weak, pos, 2)
		pos += 2 * 16
		headerSum ^= uint32(uint16(oddL[0])<<8|uint16(oddL[1])) ^ uint32(uint16(evenL[0])<<8|uint16(evenL[1]))
	}

	hdrCRCBytes, _, _ := mfm.DecodeMFM(stream, weak, pos, 4)
	pos += 4 * 16
	hdrCRC := binary.BigEndian.Uint32(hdrCRCBytes)

	dataCRCBytes, _, _ := mfm.DecodeMFM(stream, weak, pos, 4)
	pos += 4 * 16
	dataCRC := binary.BigEndian.Uint32(dataCRCBytes)

	payload, dataSum, pos := a.decodePayload(stream, weak, pos)

	id := geometry.Chsn{
		Cylinder: uint16(trackNum / 2),
		Head:     uint8(trackNum % 2),
		Sector:   uint8(sectorNum),
		N:        2, // 128<<2 == 512
	}
	ok = hdrCRC == headerSum && dataCRC == dataSum
	elem = Element{Kind: ElementData, BitOffset: off, BitLength: pos - off, ID: id, CRCOK: ok, Data: payload}
	return elem, pos, true
}

func (a Amiga) decodePayload(stream, weak *bitbuf.Buffer, pos int) (data []byte, sum uint32, nextPos int) {
	half := amigaSectorSize / 4
	odd := make([]uint16, half)
	for i := 0; i < half; i++ {
		b, _, _ := mfm.DecodeMFM(stream, weak, pos, 2)
		pos += 2 * 16
		odd[i] = uint16(b[0])<<8 | uint16(b[1])
	}
	even := make([]uint16, half)
	for i := 0; i < half; i++ {
		b, _, _ := mfm.DecodeMFM(stream, weak, pos, 2)
		pos += 2 * 16
		even[i] = uint16(b[0])<<8 | uint16(b[1])
	}

	data = make([]byte, amigaSectorSize)
	for i := 0; i < half; i++ {
		word := unshuffle(odd[i], even[i])
		sum ^= uint32(odd[i]) ^ uint32(even[i])
		data[4*i] = byte(word >> 24)
		data[4*i+1] = byte(word >> 16)
		data[4*i+2] = byte(word >> 8)
		data[4*i+3] = byte(word)
	}
	return data, sum, pos
}

// FindSector scans forward from fromBit for the sector matching q.
func (a Amiga) FindSector(stream, weak *bitbuf.Buffer, q geometry.Query, fromBit int) (idam, data Element, ok bool) {
	n := stream.Len()
	pat, mask := amigaSyncPattern()
	pos := fromBit
	cursor := 0
	for cursor < n {
		off := stream.FindPattern(pos, pat, mask)
		if off < 0 {
			return Element{}, Element{}, false
		}
		cursor += circularDistance(pos, off, n)
		if cursor >= n {
			return Element{}, Element{}, false
		}
		elem, nextPos, decoded := a.decodeSector(stream, weak, off)
		if decoded && q.Matches(elem.ID) {
			return elem, elem, true
		}
		if !decoded {
			nextPos = off + amigaSyncBits
		}
		cursor += nextPos - off
		pos = nextPos
	}
	return Element{}, Element{}, false
}
