package track

import (
	"bytes"
	"testing"

	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/mfm"
	"github.com/sergev/floppyengine/pll"
)

// buildFluxRevolution MFM-encodes a single-sector System34 track and
// converts it into one revolution of flux-transition deltas at the
// given raw-cell rate, the same round trip a real capture undergoes.
func buildFluxRevolution(t *testing.T, id geometry.Chsn, payload []byte, cellRateKhz uint16) []uint32 {
	t.Helper()
	enc := mfm.NewEncoder()
	enc.WriteMark(mfm.MarkIAM)
	encodeSystem34Sector(enc, id, payload)
	bits := enc.Bits()

	transitions, err := pll.GenerateFluxTransitions(bits.Bytes(), bits.Len(), cellRateKhz)
	if err != nil {
		t.Fatalf("GenerateFluxTransitions: %v", err)
	}
	transitions = pll.CoverFullRotation(transitions, cellRateKhz, 300)
	return pll.DeltasFromTransitions(transitions)
}

func TestFluxStreamResolvesAndReadsSector(t *testing.T) {
	id := geometry.Chsn{Cylinder: 5, Head: 0, Sector: 1, N: 2}
	payload := bytes.Repeat([]byte{0x5A}, 512)
	const cellRateKhz = 250
	nominalCellNs := uint32(1e9 / (float64(cellRateKhz) * 1000.0))

	deltas := buildFluxRevolution(t, id, payload, cellRateKhz)
	info := testSystem34Info()
	tr := NewFluxStreamTrack(info, [][]uint32{deltas}, nominalCellNs, 200, pll.DefaultParams())

	sector := uint8(1)
	res, err := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(res.Data, payload) {
		t.Error("resolved flux track decoded wrong payload")
	}
}

func TestFluxStreamWriteBeforeResolveStillResolves(t *testing.T) {
	id := geometry.Chsn{Cylinder: 5, Head: 0, Sector: 1, N: 2}
	payload := bytes.Repeat([]byte{0x5A}, 512)
	const cellRateKhz = 250
	nominalCellNs := uint32(1e9 / (float64(cellRateKhz) * 1000.0))

	deltas := buildFluxRevolution(t, id, payload, cellRateKhz)
	info := testSystem34Info()
	tr := NewFluxStreamTrack(info, [][]uint32{deltas}, nominalCellNs, 200, pll.DefaultParams())

	sector := uint8(1)
	newData := bytes.Repeat([]byte{0x3C}, 512)
	if err := tr.WriteSector(geometry.Query{S: &sector}, 0, DataOnly, newData, false); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	res, err := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if err != nil {
		t.Fatalf("ReadSector after write: %v", err)
	}
	if !bytes.Equal(res.Data, newData) {
		t.Error("write against an unresolved flux track did not take effect")
	}
}

func TestFluxStreamReadOnlyWhenRateDisagrees(t *testing.T) {
	id := geometry.Chsn{Cylinder: 5, Head: 0, Sector: 1, N: 2}
	payload := bytes.Repeat([]byte{0x5A}, 512)
	const actualRateKhz = 250
	deltas := buildFluxRevolution(t, id, payload, actualRateKhz)

	// Declare a nominal cell time wildly different from the actual
	// capture rate so the histogram check rejects it outright.
	wrongNominalNs := uint32(1e9 / (float64(actualRateKhz) * 1000.0) * 4)

	info := testSystem34Info()
	tr := NewFluxStreamTrack(info, [][]uint32{deltas}, wrongNominalNs, 200, pll.DefaultParams())

	sector := uint8(1)
	_, err := tr.ReadSector(geometry.Query{S: &sector}, 0)
	if err == nil {
		t.Fatal("expected an error resolving a track with a disagreeing declared rate")
	}

	err = tr.WriteSector(geometry.Query{S: &sector}, 0, DataOnly, payload, false)
	if err != ErrReadOnly {
		t.Fatalf("got %v, want ErrReadOnly", err)
	}
}

func TestFluxStreamElementMapEmptyWhenUnresolvable(t *testing.T) {
	info := testSystem34Info()
	// An empty revolution resolves to a zero-length bitstream, which
	// scans to no elements at all rather than panicking.
	tr := NewFluxStreamTrack(info, [][]uint32{{}}, 4000, 200, pll.DefaultParams())
	if got := tr.ElementMap(); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
