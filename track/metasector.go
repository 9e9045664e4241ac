package track

import (
	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/schema"
)

// sectorSlot is one entry of a MetaSectorTrack's ordered sector list.
type sectorSlot struct {
	id    geometry.Chsn
	attrs Attributes
	data  []byte
}

// MetaSectorTrack holds sectors as plain byte slices with no
// underlying bitstream, for containers (raw .img dumps, most sector
// based formats) with no bit-cell fidelity to model. Grounded on
// spec.md's MetaSector variant: "No bitstream; read/write operate on
// SectorDescriptors directly."
type MetaSectorTrack struct {
	id       geometry.Ch
	info     geometry.Descriptor
	sectors  []sectorSlot
	headerOK bool
}

// NewMetaSectorTrack constructs a MetaSectorTrack from an ordered list
// of sectors, each already carrying its id and payload.
func NewMetaSectorTrack(info geometry.Descriptor, sectors []geometry.Chsn, payloads [][]byte) *MetaSectorTrack {
	t := &MetaSectorTrack{id: info.Geometry, info: info, headerOK: true}
	for i, id := range sectors {
		t.sectors = append(t.sectors, sectorSlot{id: id, data: payloads[i]})
	}
	return t
}

func (t *MetaSectorTrack) Info() geometry.Descriptor {
	return t.info
}

// Len always returns 0: a MetaSector track has no underlying bitstream.
func (t *MetaSectorTrack) Len() int {
	return 0
}

func (t *MetaSectorTrack) find(q geometry.Query, fromIdx int) int {
	for i := fromIdx; i < len(t.sectors); i++ {
		if q.Matches(t.sectors[i].id) {
			return i
		}
	}
	for i := 0; i < fromIdx && i < len(t.sectors); i++ {
		if q.Matches(t.sectors[i].id) {
			return i
		}
	}
	return -1
}

func (t *MetaSectorTrack) ReadSector(q geometry.Query, fromBit int) (ReadResult, error) {
	idx := t.find(q, fromBit)
	if idx < 0 {
		return ReadResult{}, ErrNotFound
	}
	s := t.sectors[idx]
	return ReadResult{
		ID:        s.id,
		Data:      s.data,
		Attrs:     s.attrs,
		Integrity: integrityFor(t.info.Schema, !s.attrs.DataError),
	}, nil
}

func (t *MetaSectorTrack) ScanSector(q geometry.Query, fromBit int) (geometry.Chsn, Attributes, error) {
	idx := t.find(q, fromBit)
	if idx < 0 {
		return geometry.Chsn{}, Attributes{}, ErrNotFound
	}
	s := t.sectors[idx]
	return s.id, s.attrs, nil
}

func (t *MetaSectorTrack) WriteSector(q geometry.Query, fromBit int, scope WriteScope, data []byte, deleted bool) error {
	idx := t.find(q, fromBit)
	if idx < 0 {
		return ErrNotFound
	}
	s := &t.sectors[idx]
	if len(data) != s.id.Size() {
		return ErrSizeMismatch
	}
	s.data = append([]byte(nil), data...)
	s.attrs.DataError = false
	if scope == DataAndMark {
		s.attrs.Deleted = deleted
	}
	return nil
}

func (t *MetaSectorTrack) ReadRaw(fromBit, nBits int) ([]byte, *bitbuf.Buffer, *bitbuf.Buffer, error) {
	return nil, nil, nil, ErrIncompatibleSchema
}

func (t *MetaSectorTrack) ElementMap() []schema.Element {
	elems := make([]schema.Element, 0, len(t.sectors))
	for _, s := range t.sectors {
		elems = append(elems, schema.Element{Kind: schema.ElementData, ID: s.id, Data: s.data, CRCOK: !s.attrs.DataError})
	}
	return elems
}

// Format replaces the sector list wholesale with layout's ids, each
// filled with fill.
func (t *MetaSectorTrack) Format(layout FormatLayout, fill byte) error {
	sectors := make([]sectorSlot, len(layout.SectorIDs))
	for i, id := range layout.SectorIDs {
		payload := make([]byte, id.Size())
		for j := range payload {
			payload[j] = fill
		}
		sectors[i] = sectorSlot{id: id, data: payload}
	}
	t.sectors = sectors
	t.headerOK = true
	return nil
}
