package schema

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
)

func TestAmigaScanDecodesSector(t *testing.T) {
	enc := mfm.NewEncoder()
	payload := bytes.Repeat([]byte{0x5A}, amigaSectorSize)
	EncodeSector(enc, 10, 3, payload)
	stream := enc.Bits()

	a := NewAmiga()
	elems := a.Scan(stream, nil)
	if len(elems) != 1 {
		t.Fatalf("got %d elements, want 1", len(elems))
	}
	e := elems[0]
	if !e.CRCOK {
		t.Error("Amiga sector failed checksum verification")
	}
	if e.ID.Cylinder != 5 || e.ID.Head != 0 || e.ID.Sector != 3 {
		t.Errorf("decoded ID = %+v, want cylinder 5 head 0 sector 3", e.ID)
	}
	if !bytes.Equal(e.Data, payload) {
		t.Error("decoded Amiga payload mismatch")
	}
}

func TestUnshuffleShuffleRoundTrip(t *testing.T) {
	words := []uint32{0, 0xFFFFFFFF, 0x12345678, 0xA5A5A5A5}
	for _, w := range words {
		odd, even := Shuffle(w)
		if got := unshuffle(odd, even); got != w {
			t.Errorf("unshuffle(Shuffle(%#x)) = %#x", w, got)
		}
	}
}

func TestAmigaFindSectorMatchesQuery(t *testing.T) {
	enc := mfm.NewEncoder()
	payload := bytes.Repeat([]byte{0x11}, amigaSectorSize)
	EncodeSector(enc, 4, 7, payload)
	stream := enc.Bits()

	a := NewAmiga()
	sector := uint8(7)
	idam, data, ok := a.FindSector(stream, nil, geometry.Query{S: &sector}, 0)
	if !ok {
		t.Fatal("FindSector did not find the sector")
	}
	if idam.ID.Sector != 7 || data.ID.Sector != 7 {
		t.Errorf("found sector %d, want 7", idam.ID.Sector)
	}
}
