package track

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyengine/geometry"
)

func testMetaSectorInfo() geometry.Descriptor {
	return geometry.Descriptor{
		Geometry: geometry.Ch{Cylinder: 0, Head: 0},
		Density:  geometry.DoubleDensity,
		Encoding: geometry.MFM,
		Rate:     geometry.Rate250Kbps,
		RPM:      300,
		Platform: geometry.PlatformIBMPC,
		Schema:   geometry.SchemaNone,
	}
}

func newTestMetaSectorTrack() *MetaSectorTrack {
	ids := []geometry.Chsn{
		{Cylinder: 0, Head: 0, Sector: 1, N: 2},
		{Cylinder: 0, Head: 0, Sector: 2, N: 2},
	}
	payloads := [][]byte{
		bytes.Repeat([]byte{0xAA}, 512),
		bytes.Repeat([]byte{0xBB}, 512),
	}
	return NewMetaSectorTrack(testMetaSectorInfo(), ids, payloads)
}

func TestMetaSectorReadSector(t *testing.T) {
	tr := newTestMetaSectorTrack()
	sector := uint8(2)
	res, err := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(res.Data, bytes.Repeat([]byte{0xBB}, 512)) {
		t.Error("wrong payload returned")
	}
}

func TestMetaSectorReadSectorNotFound(t *testing.T) {
	tr := newTestMetaSectorTrack()
	sector := uint8(9)
	_, err := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMetaSectorWriteSector(t *testing.T) {
	tr := newTestMetaSectorTrack()
	sector := uint8(1)
	newData := bytes.Repeat([]byte{0x42}, 512)
	if err := tr.WriteSector(geometry.Query{S: &sector}, 0, DataOnly, newData, false); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	res, _ := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if !bytes.Equal(res.Data, newData) {
		t.Error("write did not take effect")
	}
}

func TestMetaSectorWriteSectorSizeMismatch(t *testing.T) {
	tr := newTestMetaSectorTrack()
	sector := uint8(1)
	err := tr.WriteSector(geometry.Query{S: &sector}, 0, DataOnly, []byte{1, 2, 3}, false)
	if err != ErrSizeMismatch {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
}

func TestMetaSectorFormat(t *testing.T) {
	tr := newTestMetaSectorTrack()
	layout := FormatLayout{SectorIDs: []geometry.Chsn{
		{Cylinder: 0, Head: 0, Sector: 1, N: 2},
	}}
	if err := tr.Format(layout, 0xF6); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if len(tr.ElementMap()) != 1 {
		t.Fatalf("got %d elements after format, want 1", len(tr.ElementMap()))
	}
	sector := uint8(1)
	res, err := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector after format: %v", err)
	}
	if !bytes.Equal(res.Data, bytes.Repeat([]byte{0xF6}, 512)) {
		t.Error("formatted sector not filled with fill byte")
	}
}

// TestMetaSectorReadSectorDuplicateCHSN covers a track with a
// duplicate CHSN further along the sector list: an offset after the
// first match must find the later one rather than looping back.
func TestMetaSectorReadSectorDuplicateCHSN(t *testing.T) {
	ids := []geometry.Chsn{
		{Cylinder: 0, Head: 0, Sector: 1, N: 2},
		{Cylinder: 0, Head: 0, Sector: 2, N: 2},
		{Cylinder: 0, Head: 0, Sector: 1, N: 2},
	}
	payloads := [][]byte{
		bytes.Repeat([]byte{0x11}, 512),
		bytes.Repeat([]byte{0x22}, 512),
		bytes.Repeat([]byte{0x33}, 512),
	}
	tr := NewMetaSectorTrack(testMetaSectorInfo(), ids, payloads)

	sector := uint8(1)
	q := geometry.Query{S: &sector}

	first, err := tr.ReadSector(q, 0)
	if err != nil {
		t.Fatalf("ReadSector(offset=0): %v", err)
	}
	if !bytes.Equal(first.Data, bytes.Repeat([]byte{0x11}, 512)) {
		t.Error("offset=0 did not return the first matching slot")
	}

	third, err := tr.ReadSector(q, 1)
	if err != nil {
		t.Fatalf("ReadSector(offset=1): %v", err)
	}
	if !bytes.Equal(third.Data, bytes.Repeat([]byte{0x33}, 512)) {
		t.Error("offset past the first match did not return the third (later) matching slot")
	}
}

func TestMetaSectorReadRawUnsupported(t *testing.T) {
	tr := newTestMetaSectorTrack()
	_, _, _, err := tr.ReadRaw(0, 8)
	if err != ErrIncompatibleSchema {
		t.Fatalf("got %v, want ErrIncompatibleSchema", err)
	}
}
