package track

import (
	"math/rand"

	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
	"github.com/sergev/floppyengine/schema"
)

// BitStreamTrack holds a track as a circular stream of raw MFM/FM bit
// cells plus parallel weak-bit and error masks, with sector structure
// discovered on demand via a schema.Scanner. Grounded on the teacher's
// mfm.Reader/Writer, which walked a single byte-backed track buffer
// with the same IBM-PC/Amiga scanning logic now split out into
// schema.System34/schema.Amiga.
type BitStreamTrack struct {
	info      geometry.Descriptor
	cells     *bitbuf.Buffer
	weak      *bitbuf.Buffer
	errs      *bitbuf.Buffer
	gapMaxBit int

	elements  []schema.Element
	haveCache bool
}

// NewBitStreamTrack wraps an existing raw cell stream. weak may be nil
// if no weak-bit information is available. gapMaxBits configures the
// System34 scanner's IDAM-to-DAM search window; it is ignored for
// Amiga-schema tracks.
func NewBitStreamTrack(info geometry.Descriptor, cells, weak *bitbuf.Buffer, gapMaxBits int) *BitStreamTrack {
	if weak == nil {
		weak = bitbuf.NewMask(cells.Len())
	}
	return &BitStreamTrack{
		info:      info,
		cells:     cells,
		weak:      weak,
		errs:      bitbuf.NewMask(cells.Len()),
		gapMaxBit: gapMaxBits,
	}
}

func (t *BitStreamTrack) scanner() schema.Scanner {
	switch t.info.Schema {
	case geometry.SchemaAmigaTrackdisk:
		return schema.NewAmiga()
	default:
		return schema.NewSystem34(t.gapMaxBit)
	}
}

func (t *BitStreamTrack) Info() geometry.Descriptor {
	return t.info
}

func (t *BitStreamTrack) Len() int {
	return t.cells.Len()
}

func attrsFromElement(idam, data schema.Element, haveData bool) Attributes {
	a := Attributes{AddressError: !idam.CRCOK}
	if !haveData {
		a.NoDAM = true
		return a
	}
	a.DataError = !data.CRCOK
	a.Deleted = data.Kind == schema.ElementDDAM
	return a
}

// wraps reports whether elem's data field extends past the end of the
// circular cell stream and continues from bit 0.
func (t *BitStreamTrack) wraps(elem schema.Element) bool {
	return elem.BitOffset+elem.BitLength > t.cells.Len()
}

func (t *BitStreamTrack) ReadSector(q geometry.Query, fromBit int) (ReadResult, error) {
	idam, data, ok := t.scanner().FindSector(t.cells, t.weak, q, fromBit)
	if !ok {
		return ReadResult{}, ErrNotFound
	}
	return ReadResult{
		ID:        idam.ID,
		Data:      data.Data,
		Attrs:     attrsFromElement(idam, data, true),
		Integrity: integrityFor(t.info.Schema, data.CRCOK),
		Wrap:      t.wraps(data),
	}, nil
}

func (t *BitStreamTrack) ScanSector(q geometry.Query, fromBit int) (geometry.Chsn, Attributes, error) {
	idam, data, ok := t.scanner().FindSector(t.cells, t.weak, q, fromBit)
	if !ok {
		return geometry.Chsn{}, Attributes{}, ErrNotFound
	}
	return idam.ID, attrsFromElement(idam, data, true), nil
}

// WriteSector locates the sector matching q, re-encodes its payload
// bits (and, if scope is DataAndMark, its data-mark tag byte) in
// place, and recomputes the data CRC over the rewritten field.
func (t *BitStreamTrack) WriteSector(q geometry.Query, fromBit int, scope WriteScope, data []byte, deleted bool) error {
	idam, dataElem, ok := t.scanner().FindSector(t.cells, t.weak, q, fromBit)
	if !ok {
		return ErrNotFound
	}
	if len(data) != idam.ID.Size() {
		return ErrSizeMismatch
	}

	switch t.info.Schema {
	case geometry.SchemaAmigaTrackdisk:
		return t.writeAmigaSector(dataElem, data)
	default:
		return t.writeSystem34Sector(dataElem, scope, data, deleted)
	}
}

func (t *BitStreamTrack) writeSystem34Sector(dataElem schema.Element, scope WriteScope, data []byte, deleted bool) error {
	tag := mfm.TagDAM
	switch {
	case scope == DataAndMark:
		if deleted {
			tag = mfm.TagDDAM
		}
	case dataElem.Kind == schema.ElementDDAM:
		// DataOnly: preserve the sector's existing mark.
		tag = mfm.TagDDAM
	}

	headLen := 3*16 + 16
	payloadBits := mfm.EncodeMFM(data, false)
	t.cells.CopyBitsFrom(dataElem.BitOffset+headLen, payloadBits.Bytes(), payloadBits.Len())
	t.clearMaskRange(dataElem.BitOffset+headLen, payloadBits.Len())

	if scope == DataAndMark {
		markBits := mfm.EncodeMFM([]byte{tag}, false)
		// the sync field (3 repeats of raw A1 cells) is unaffected by
		// which tag follows it; only the trailing tag byte differs.
		tagBitOffset := dataElem.BitOffset + 3*16
		t.cells.CopyBitsFrom(tagBitOffset, markBits.Bytes(), markBits.Len())
	}

	crc := mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, tag})
	crc = mfm.CRC16CCITTFrom(crc, data)
	crcBytes := mfm.EncodeMFM([]byte{byte(crc >> 8), byte(crc)}, false)
	crcOffset := dataElem.BitOffset + headLen + len(data)*16
	t.cells.CopyBitsFrom(crcOffset, crcBytes.Bytes(), crcBytes.Len())
	t.clearMaskRange(crcOffset, crcBytes.Len())

	t.haveCache = false
	return nil
}

func (t *BitStreamTrack) writeAmigaSector(dataElem schema.Element, data []byte) error {
	enc := mfm.NewEncoder()
	trackNum := int(t.info.Geometry.Cylinder)*2 + int(t.info.Geometry.Head)
	schema.EncodeSector(enc, trackNum, int(dataElem.ID.Sector), data)
	encoded := enc.Bits()
	t.cells.CopyBitsFrom(dataElem.BitOffset, encoded.Bytes(), encoded.Len())
	t.clearMaskRange(dataElem.BitOffset, encoded.Len())
	t.haveCache = false
	return nil
}

func (t *BitStreamTrack) clearMaskRange(from, n int) {
	for i := 0; i < n; i++ {
		t.weak.Set(from+i, false)
		t.errs.Set(from+i, false)
	}
}

func (t *BitStreamTrack) ReadRaw(fromBit, nBits int) ([]byte, *bitbuf.Buffer, *bitbuf.Buffer, error) {
	if fromBit < 0 || nBits < 0 || nBits > t.cells.Len() {
		return nil, nil, nil, ErrOutOfRange
	}
	data := bitbuf.ReadThroughWeak(t.cells, nil, fromBit, nBits, bitbuf.WeakZero, rand.New(rand.NewSource(1)))
	weakSlice := bitbuf.NewFromBytes(t.weak.Slice(fromBit, nBits), nBits)
	errSlice := bitbuf.NewFromBytes(t.errs.Slice(fromBit, nBits), nBits)
	return data, weakSlice, errSlice, nil
}

func (t *BitStreamTrack) ElementMap() []schema.Element {
	if !t.haveCache {
		t.elements = t.scanner().Scan(t.cells, t.weak)
		t.haveCache = true
	}
	return t.elements
}

// Format rewrites the entire cell stream according to layout, one
// sector per entry in SectorIDs, each filled with fill.
func (t *BitStreamTrack) Format(layout FormatLayout, fill byte) error {
	enc := mfm.NewEncoder()

	switch t.info.Schema {
	case geometry.SchemaAmigaTrackdisk:
		trackNum := int(t.info.Geometry.Cylinder)*2 + int(t.info.Geometry.Head)
		for _, id := range layout.SectorIDs {
			payload := make([]byte, id.Size())
			for i := range payload {
				payload[i] = fill
			}
			schema.EncodeSector(enc, trackNum, int(id.Sector), payload)
		}

	case geometry.SchemaSystem34:
		enc.WriteGapBytes(0x4E, layout.GapBytes)
		enc.WriteMark(mfm.MarkIAM)
		enc.WriteGapBytes(0x4E, layout.GapBytes)
		for _, id := range layout.SectorIDs {
			enc.WriteMark(mfm.MarkIDAM)
			header := []byte{byte(id.Cylinder), id.Head, id.Sector, id.N}
			enc.WriteBytes(header)
			crc := mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, mfm.TagIDAM})
			crc = mfm.CRC16CCITTFrom(crc, header)
			enc.WriteBytes([]byte{byte(crc >> 8), byte(crc)})
			enc.WriteGapBytes(0x4E, layout.GapBytes)

			enc.WriteMark(mfm.MarkDAM)
			payload := make([]byte, id.Size())
			for i := range payload {
				payload[i] = fill
			}
			enc.WriteBytes(payload)
			dataCRC := mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, mfm.TagDAM})
			dataCRC = mfm.CRC16CCITTFrom(dataCRC, payload)
			enc.WriteBytes([]byte{byte(dataCRC >> 8), byte(dataCRC)})
			enc.WriteGapBytes(0x4E, layout.GapBytes)
		}

	default:
		return ErrIncompatibleSchema
	}

	bits := enc.Bits()
	t.cells = bitbuf.New(bits.Len())
	t.cells.CopyBitsFrom(0, bits.Bytes(), bits.Len())
	t.weak = bitbuf.NewMask(bits.Len())
	t.errs = bitbuf.NewMask(bits.Len())
	t.haveCache = false
	return nil
}
