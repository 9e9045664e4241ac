package mfm

import "testing"

func TestScanForMarkFindsIDAM(t *testing.T) {
	enc := NewEncoder()
	enc.WriteGapBytes(0x4E, 10)
	enc.WriteMark(MarkIDAM)
	enc.WriteBytes([]byte{0, 0, 1, 0})
	stream := enc.Bits()

	off, kind, found := ScanForMark(stream, 0, []MarkKind{MarkIDAM, MarkDAM})
	if !found {
		t.Fatal("expected to find IDAM")
	}
	if kind != MarkIDAM {
		t.Fatalf("kind = %v, want MarkIDAM", kind)
	}
	if off < 10*16 {
		t.Fatalf("mark offset %d falls inside the gap", off)
	}
}

func TestScanForMarkNotAllowed(t *testing.T) {
	enc := NewEncoder()
	enc.WriteMark(MarkDAM)
	stream := enc.Bits()

	_, _, found := ScanForMark(stream, 0, []MarkKind{MarkIDAM})
	if found {
		t.Fatal("DAM mark should not match an IDAM-only search")
	}
}

func TestScanForMarkEmptyAllowedList(t *testing.T) {
	enc := NewEncoder()
	enc.WriteMark(MarkIAM)
	stream := enc.Bits()

	_, _, found := ScanForMark(stream, 0, nil)
	if found {
		t.Fatal("empty allowed list should never match")
	}
}

func TestScanForMarkFindsSecondOfTwo(t *testing.T) {
	enc := NewEncoder()
	enc.WriteMark(MarkIDAM)
	enc.WriteBytes([]byte{0, 0, 1, 0})
	firstDAMOff := enc.Len()
	enc.WriteMark(MarkDAM)
	stream := enc.Bits()

	off, kind, found := ScanForMark(stream, firstDAMOff, []MarkKind{MarkDAM})
	if !found || kind != MarkDAM || off != firstDAMOff {
		t.Fatalf("off=%d kind=%v found=%v, want off=%d kind=MarkDAM found=true", off, kind, found, firstDAMOff)
	}
}
