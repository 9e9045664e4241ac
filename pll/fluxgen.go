package pll

import "fmt"

// GenerateFluxTransitions converts an MFM/FM bit-cell stream into flux
// transition times: one transition per cell carrying a 1, none for a
// clocked zero. Used to build synthetic flux captures for tests and
// for any writer that must re-derive flux from an already-encoded
// bitstream. Grounded on the teacher's mfm.GenerateFluxTransitions,
// moved here since it is the flux resolver's mirror operation rather
// than part of the bit codec.
func GenerateFluxTransitions(cellBits []byte, bitCount int, bitRateKhz uint16) ([]uint64, error) {
	if bitCount == 0 {
		return nil, fmt.Errorf("pll: empty cell stream")
	}

	bitcellPeriodNs := uint64(1e9 / (float64(bitRateKhz) * 1000.0))

	var transitions []uint64
	currentTime := uint64(0)
	for i := 0; i < bitCount; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - (i % 8))
		currentBit := (cellBits[byteIdx] & (1 << bitIdx)) != 0

		currentTime += bitcellPeriodNs
		if currentBit {
			transitions = append(transitions, currentTime)
		}
	}
	return transitions, nil
}

// CoverFullRotation extends transitions to span a full rotation period
// at floppyRPM, appending synthetic transitions at two-bitcell
// intervals past the last real one. Used when a synthetic flux
// capture must reach the end of a revolution for resolver tests.
func CoverFullRotation(transitions []uint64, bitRateKhz uint16, floppyRPM uint16) []uint64 {
	rotationDurationNs := uint64(60e9 / float64(floppyRPM))
	bitcellPeriodNs := uint64(1e9 / (float64(bitRateKhz) * 1000.0))
	twoBitcellPeriodNs := 2 * bitcellPeriodNs

	lastTime := uint64(0)
	if len(transitions) > 0 {
		lastTime = transitions[len(transitions)-1]
	}

	currentTime := lastTime
	for currentTime+twoBitcellPeriodNs <= rotationDurationNs {
		currentTime += twoBitcellPeriodNs
		transitions = append(transitions, currentTime)
	}
	return transitions
}

// DeltasFromTransitions converts a sequence of absolute transition
// times into the monotonic nanosecond deltas Resolve expects.
func DeltasFromTransitions(transitions []uint64) []uint32 {
	deltas := make([]uint32, len(transitions))
	prev := uint64(0)
	for i, t := range transitions {
		deltas[i] = uint32(t - prev)
		prev = t
	}
	return deltas
}
