package mfm

import (
	"testing"

	"github.com/sergev/floppyengine/bitbuf"
)

func TestDecoderClockViolationDetection(t *testing.T) {
	stream := EncodeMFM([]byte{0xAA, 0x00}, false)
	dec := NewDecoder(stream, nil, 0)
	for i := 0; i < 16; i++ {
		_, _, decodeErr := dec.NextBit()
		if decodeErr {
			t.Fatalf("bit %d: unexpected decode error on clean MFM data", i)
		}
	}
}

func TestDecoderFlagsClockViolation(t *testing.T) {
	enc := NewEncoder()
	enc.WriteByte(0x00)
	stream := enc.Bits()
	// Force an invalid clock cell: flip the clock bit of the second data bit,
	// which a correctly encoded all-zero byte always sets to 1.
	stream.Set(2, false)

	dec := NewDecoder(stream, nil, 0)
	sawErr := false
	for i := 0; i < 8; i++ {
		_, _, decodeErr := dec.NextBit()
		if decodeErr {
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatal("expected a decode error after corrupting a clock cell")
	}
}

func TestDecoderPropagatesWeakMask(t *testing.T) {
	stream := EncodeMFM([]byte{0x55}, false)
	weak := bitbuf.New(stream.Len())
	weak.Set(3, true)

	_, weakOut, _ := DecodeMFM(stream, weak, 0, 1)
	if !weakOut.Get(1) {
		t.Fatal("weak cell at raw bit 3 should mark data bit 1 as weak")
	}
	for i := 0; i < weakOut.Len(); i++ {
		if i != 1 && weakOut.Get(i) {
			t.Errorf("unexpected weak flag at data bit %d", i)
		}
	}
}

func TestDecoderPosAdvances(t *testing.T) {
	stream := EncodeMFM([]byte{0xFF, 0xFF}, false)
	dec := NewDecoder(stream, nil, 0)
	if dec.Pos() != 0 {
		t.Fatalf("initial Pos() = %d, want 0", dec.Pos())
	}
	dec.NextBit()
	if dec.Pos() != 2 {
		t.Fatalf("Pos() after one NextBit = %d, want 2", dec.Pos())
	}
}
