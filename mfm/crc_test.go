package mfm

import "testing"

func TestCRC16CCITTKnownValue(t *testing.T) {
	// CRC-16/CCITT (poly 0x1021, init 0xFFFF) of the empty message is
	// the unmodified init value.
	if got := CRC16CCITT(nil); got != CRC16CCITTInit {
		t.Fatalf("CRC16CCITT(nil) = %#x, want %#x", got, CRC16CCITTInit)
	}
}

func TestCRC16CCITTFromIsIncremental(t *testing.T) {
	data := []byte{0xA1, 0xA1, 0xA1, 0xFE, 0, 1, 2, 3}
	whole := CRC16CCITT(data)

	split := CRC16CCITTFrom(CRC16CCITTFrom(CRC16CCITTInit, data[:4]), data[4:])
	if whole != split {
		t.Fatalf("split CRC = %#x, whole CRC = %#x", split, whole)
	}
}

func TestCRC16CCITTDetectsCorruption(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	crc := CRC16CCITT(data)

	corrupt := append([]byte(nil), data...)
	corrupt[2] ^= 0x01
	if CRC16CCITT(corrupt) == crc {
		t.Fatal("CRC unchanged after single-bit corruption")
	}
}
