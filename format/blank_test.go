package format

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyengine/geometry"
)

func TestBlankPCFormatReadsBackFill(t *testing.T) {
	img, err := Blank(PC160K, 0xF6, nil)
	if err != nil {
		t.Fatalf("Blank: %v", err)
	}
	sector := uint8(1)
	chs := geometry.Chs{Cylinder: 0, Head: 0, Sector: 1}
	res, err := img.ReadSector(chs, geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	want := bytes.Repeat([]byte{0xF6}, 128<<2)
	if !bytes.Equal(res.Data, want) {
		t.Error("blank sector not filled with fill byte")
	}
}

func TestBlankPCFormatWritesBootSector(t *testing.T) {
	boot := bytes.Repeat([]byte{0x90}, 512)
	img, err := Blank(PC360K, 0, boot)
	if err != nil {
		t.Fatalf("Blank: %v", err)
	}
	sector := uint8(1)
	chs := geometry.Chs{Cylinder: 0, Head: 0, Sector: 1}
	res, err := img.ReadSector(chs, geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(res.Data, boot) {
		t.Error("boot sector was not written to CHS (0,0,1)")
	}
}

func TestBlankAmigaFormatUsesZeroOffsetSectors(t *testing.T) {
	img, err := Blank(AmigaDD880K, 0, nil)
	if err != nil {
		t.Fatalf("Blank: %v", err)
	}
	sector := uint8(0)
	chs := geometry.Chs{Cylinder: 0, Head: 0, Sector: 0}
	res, err := img.ReadSector(chs, geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if len(res.Data) != 512 {
		t.Fatalf("got %d bytes, want 512", len(res.Data))
	}
	if res.Attrs.DataError {
		t.Error("freshly formatted Amiga sector should validate its checksum")
	}
}

func TestBlankUnknownFormat(t *testing.T) {
	if _, err := Blank(StandardFormat(999), 0, nil); err != ErrUnknownFormat {
		t.Fatalf("got %v, want ErrUnknownFormat", err)
	}
}
