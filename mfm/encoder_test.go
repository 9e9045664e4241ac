package mfm

import (
	"bytes"
	"testing"
)

func TestEncodeMFMRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x00},
		{0xFF},
		{0xAA, 0x55, 0x01, 0x80},
		bytes.Repeat([]byte{0x4E}, 64),
	}
	for _, data := range cases {
		stream := EncodeMFM(data, false)
		got, weak, errs := DecodeMFM(stream, nil, 0, len(data))
		if !bytes.Equal(got, data) {
			t.Errorf("round trip mismatch: want % x got % x", data, got)
		}
		if weak.Len() != len(data)*8 || errs.Len() != len(data)*8 {
			t.Errorf("mask length mismatch")
		}
		for i := 0; i < errs.Len(); i++ {
			if errs.Get(i) {
				t.Errorf("unexpected decode error at bit %d for ordinary data", i)
			}
		}
	}
}

func TestEncoderWriteMarkThenData(t *testing.T) {
	enc := NewEncoder()
	if !enc.WriteMark(MarkIDAM) {
		t.Fatal("WriteMark(MarkIDAM) = false")
	}
	payload := []byte{0, 0, 1, 2}
	enc.WriteBytes(payload)
	stream := enc.Bits()

	off, kind, found := ScanForMark(stream, 0, []MarkKind{MarkIDAM})
	if !found || kind != MarkIDAM {
		t.Fatalf("ScanForMark: found=%v kind=%v", found, kind)
	}

	// Mark occupies three 16-cell sync repeats plus a tag byte, which
	// MFM-encodes to 16 raw cells.
	afterMark := off + 3*16 + 16
	got, _, _ := DecodeMFM(stream, nil, afterMark, len(payload))
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload after mark = % x, want % x", got, payload)
	}
}

func TestWriteMarkUnknownKind(t *testing.T) {
	enc := NewEncoder()
	if enc.WriteMark(MarkNone) {
		t.Fatal("WriteMark(MarkNone) = true, want false")
	}
}
