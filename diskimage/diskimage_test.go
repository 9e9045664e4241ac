package diskimage

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
	"github.com/sergev/floppyengine/track"
)

func testDescriptor() geometry.Descriptor {
	return geometry.Descriptor{
		Density:  geometry.DoubleDensity,
		Encoding: geometry.MFM,
		Rate:     geometry.Rate250Kbps,
		RPM:      300,
		Platform: geometry.PlatformIBMPC,
		Schema:   geometry.SchemaSystem34,
	}
}

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

func addSystem34Track(img *DiskImage, cyl uint16, head uint8, payload []byte) geometry.Ch {
	ch := geometry.Ch{Cylinder: cyl, Head: head}
	enc := mfm.NewEncoder()
	enc.WriteMark(mfm.MarkIAM)
	id := geometry.Chsn{Cylinder: cyl, Head: head, Sector: 1, N: 2}
	encodeSystem34Sector(enc, id, payload)
	info := testDescriptor()
	info.Geometry = ch
	img.AddTrackBitstream(ch, BitStreamParams{Info: info, Cells: enc.Bits(), GapMaxBits: 200})
	return ch
}

func TestDiskImageReadWriteDispatch(t *testing.T) {
	img := New(testDescriptor())
	payload := bytes.Repeat([]byte{0xAB}, 512)
	addSystem34Track(img, 0, 0, payload)

	sector := uint8(1)
	chs := geometry.Chs{Cylinder: 0, Head: 0, Sector: 1}
	res, err := img.ReadSector(chs, geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(res.Data, payload) {
		t.Error("decoded payload mismatch via DiskImage dispatch")
	}

	newData := bytes.Repeat([]byte{0x55}, 512)
	if err := img.WriteSector(chs, geometry.Query{S: &sector}, 0, track.DataOnly, newData, false); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	res, err = img.ReadSector(chs, geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector after write: %v", err)
	}
	if !bytes.Equal(res.Data, newData) {
		t.Error("write through DiskImage dispatch did not take effect")
	}
}

func TestDiskImageReadSectorUnknownTrack(t *testing.T) {
	img := New(testDescriptor())
	_, err := img.ReadSector(geometry.Chs{Cylinder: 9, Head: 0, Sector: 1}, geometry.MatchAny, 0)
	if err != ErrTrackNotFound {
		t.Fatalf("got %v, want ErrTrackNotFound", err)
	}
}

func TestDiskImageAnalyzeDetectsDuplicateTracks(t *testing.T) {
	img := New(testDescriptor())
	payload := bytes.Repeat([]byte{0xCC}, 512)

	for cyl := uint16(0); cyl < 2; cyl++ {
		addSystem34Track(img, cyl, 0, payload)
	}

	analysis := img.Analyze()
	if len(analysis.DuplicateGroups) != 1 {
		t.Fatalf("got %d duplicate groups, want 1", len(analysis.DuplicateGroups))
	}
	if len(analysis.DuplicateGroups[0]) != 2 {
		t.Fatalf("duplicate group has %d tracks, want 2", len(analysis.DuplicateGroups[0]))
	}
	if !analysis.SchemaUniform {
		t.Error("expected schema-uniform image")
	}
	if analysis.SectorErrorCount != 0 {
		t.Errorf("SectorErrorCount = %d, want 0", analysis.SectorErrorCount)
	}
}

func TestDiskImageAnalyzeCountsSectorErrors(t *testing.T) {
	img := New(testDescriptor())

	enc := mfm.NewEncoder()
	enc.WriteMark(mfm.MarkIDAM)
	header := []byte{0, 0, 1, 2}
	enc.WriteBytes(header)
	// Deliberately wrong CRC bytes to trigger an address error.
	enc.WriteBytes([]byte{0x00, 0x00})

	info := testDescriptor()
	info.Geometry = geometry.Ch{Cylinder: 0, Head: 0}
	img.AddTrackBitstream(info.Geometry, BitStreamParams{Info: info, Cells: enc.Bits(), GapMaxBits: 200})

	analysis := img.Analyze()
	if analysis.SectorErrorCount == 0 {
		t.Error("expected at least one sector error to be counted")
	}
}
