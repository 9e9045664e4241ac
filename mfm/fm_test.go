package mfm

import (
	"bytes"
	"testing"
)

func TestFMRoundTrip(t *testing.T) {
	data := []byte{0x00, 0xFF, 0xA5, 0x5A}
	stream := EncodeFM(data)
	got, _, errs := DecodeFM(stream, nil, 0, len(data))
	if !bytes.Equal(got, data) {
		t.Fatalf("FM round trip mismatch: want % x got % x", data, got)
	}
	for i := 0; i < errs.Len(); i++ {
		if errs.Get(i) {
			t.Errorf("unexpected FM decode error at bit %d", i)
		}
	}
}

func TestFMDetectsMissingClockBit(t *testing.T) {
	stream := EncodeFM([]byte{0xAA})
	// Every clock cell in FM is always 1; zero one out to simulate a
	// dropped clock pulse.
	stream.Set(0, false)

	_, _, errs := DecodeFM(stream, nil, 0, 1)
	if !errs.Get(0) {
		t.Fatal("expected decode error for the corrupted clock cell")
	}
}
