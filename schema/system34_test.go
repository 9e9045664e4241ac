package schema

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
)

func encodeSystem34Sector(enc *mfm.Encoder, id geometry.Chsn, payload []byte) {
	enc.WriteGapBytes(0x4E, 6)
	enc.WriteMark(mfm.MarkIDAM)
	header := []byte{byte(id.Cylinder), id.Head, id.Sector, id.N}
	enc.WriteBytes(header)
	crc := mfm.CRC16CCITTFrom(mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, mfm.TagIDAM}), header)
	enc.WriteBytes([]byte{byte(crc >> 8), byte(crc)})

	enc.WriteGapBytes(0x4E, 2)
	enc.WriteMark(mfm.MarkDAM)
	enc.WriteBytes(payload)
	dcrc := mfm.CRC16CCITTFrom(mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, mfm.TagDAM}), payload)
	enc.WriteBytes([]byte{byte(dcrc >> 8), byte(dcrc)})
}

func TestSystem34ScanFindsSectorsInOrder(t *testing.T) {
	enc := mfm.NewEncoder()
	enc.WriteMark(mfm.MarkIAM)
	ids := []geometry.Chsn{
		{Cylinder: 5, Head: 0, Sector: 1, N: 2},
		{Cylinder: 5, Head: 0, Sector: 2, N: 2},
	}
	payload := bytes.Repeat([]byte{0xAB}, 512)
	for _, id := range ids {
		encodeSystem34Sector(enc, id, payload)
	}
	stream := enc.Bits()

	s := NewSystem34(200)
	elems := s.Scan(stream, nil)

	var idamCount, damCount int
	for _, e := range elems {
		switch e.Kind {
		case ElementIDAM:
			idamCount++
			if !e.CRCOK {
				t.Errorf("IDAM for sector %v failed CRC check", e.ID)
			}
		case ElementDAM:
			damCount++
			if !e.CRCOK {
				t.Errorf("DAM for sector %v failed CRC check", e.ID)
			}
			if !bytes.Equal(e.Data, payload) {
				t.Errorf("decoded payload mismatch for sector %v", e.ID)
			}
		}
	}
	if idamCount != 2 || damCount != 2 {
		t.Fatalf("found %d IDAMs and %d DAMs, want 2 and 2", idamCount, damCount)
	}
}

func TestSystem34FindSectorMatchesQuery(t *testing.T) {
	enc := mfm.NewEncoder()
	id := geometry.Chsn{Cylinder: 1, Head: 0, Sector: 3, N: 2}
	payload := bytes.Repeat([]byte{0x11}, 512)
	encodeSystem34Sector(enc, id, payload)
	stream := enc.Bits()

	s := NewSystem34(200)
	sector := uint8(3)
	q := geometry.Query{S: &sector}
	idam, data, ok := s.FindSector(stream, nil, q, 0)
	if !ok {
		t.Fatal("FindSector did not find the sector")
	}
	if idam.ID != id {
		t.Errorf("IDAM.ID = %+v, want %+v", idam.ID, id)
	}
	if !bytes.Equal(data.Data, payload) {
		t.Error("FindSector payload mismatch")
	}
}

func TestSystem34GapTooWideRejectsDAM(t *testing.T) {
	enc := mfm.NewEncoder()
	enc.WriteMark(mfm.MarkIDAM)
	header := []byte{1, 0, 1, 2}
	enc.WriteBytes(header)
	crc := mfm.CRC16CCITTFrom(mfm.CRC16CCITTFrom(mfm.CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1, mfm.TagIDAM}), header)
	enc.WriteBytes([]byte{byte(crc >> 8), byte(crc)})
	enc.WriteGapBytes(0x4E, 1000) // far exceeds any reasonable gap bound
	enc.WriteMark(mfm.MarkDAM)
	enc.WriteBytes(bytes.Repeat([]byte{0}, 512))
	stream := enc.Bits()

	s := NewSystem34(50)
	elems := s.Scan(stream, nil)
	for _, e := range elems {
		if e.Kind == ElementDAM {
			t.Fatal("DAM should not be associated with the IDAM across an oversized gap")
		}
	}
}
