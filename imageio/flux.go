package imageio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sergev/floppyengine/diskimage"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/pll"
)

// Block tags for the flux delta stream, grounded on the value ranges
// kryoflux's decodeFlux assigns to Flux1/Flux2/Flux3/Ovl16/Nop/OOB
// blocks. Unlike the teacher's stream, which records one cumulative
// tick counter per capture and is tied to a live USB transfer, this
// format records one self-contained delta per block (the accumulator
// implied by Ovl16 resets after each emitted value) and is meant to be
// read whole from a file.
const (
	fluxNop1 = 0x08
	fluxNop2 = 0x09
	fluxNop3 = 0x0a
	fluxOvl16 = 0x0b
	fluxFlux3 = 0x0c
	fluxOOB   = 0x0d
	// fluxFlux1Min is the lowest byte value read back as a direct 1-byte
	// delta (0x0e..0xff); Flux2 blocks (prefix 0x00..0x07) are decoded
	// but never emitted by encodeFluxDelta, which always prefers Ovl16+Flux3.
	fluxFlux1Min = 0x0e
)

var fluxMagic = [4]byte{'F', 'L', 'X', '1'}

// ErrBadFluxMagic is returned when a file does not open with the flux
// capture container's magic number.
var ErrBadFluxMagic = errors.New("imageio: not a flux capture file")

// ErrTruncatedFlux is returned when a block stream ends mid-block.
var ErrTruncatedFlux = errors.New("imageio: truncated flux block stream")

type fluxHeader struct {
	Cylinders     uint8
	Heads         uint8
	SampleClockHz uint32
	NominalCellNs uint32
	Density       uint8
	Encoding      uint8
	Platform      uint8
	Schema        uint8
	RPM           uint16
}

// encodeFluxDelta appends one delta, in sample-clock ticks, to out
// as Ovl16 overflow blocks followed by a single Flux3 block, the
// simplest encoding that always round-trips through decodeFluxDeltas.
func encodeFluxDelta(out []byte, ticks uint32) []byte {
	for ticks > 0xFFFF {
		out = append(out, fluxOvl16)
		ticks -= 0x10000
	}
	return append(out, fluxFlux3, byte(ticks>>8), byte(ticks))
}

func encodeFluxDeltas(deltas []uint32) []byte {
	out := make([]byte, 0, len(deltas)*2)
	for _, d := range deltas {
		out = encodeFluxDelta(out, d)
	}
	return out
}

// decodeFluxDeltas walks the block grammar and returns one accumulated
// delta value per Flux1/Flux2/Flux3 block, after folding in any
// preceding Ovl16 blocks. OOB and Nop blocks are skipped, matching
// kryoflux's decodeFlux/decodePulses handling of the same tags.
func decodeFluxDeltas(data []byte) ([]uint32, error) {
	var out []uint32
	acc := uint32(0)
	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b <= 0x07:
			if i+1 >= len(data) {
				return nil, ErrTruncatedFlux
			}
			out = append(out, acc+(uint32(b)<<8)+uint32(data[i+1]))
			acc = 0
			i += 2
		case b == fluxNop1:
			i++
		case b == fluxNop2:
			i += 2
		case b == fluxNop3:
			i += 3
		case b == fluxOvl16:
			acc += 0x10000
			i++
		case b == fluxFlux3:
			if i+2 >= len(data) {
				return nil, ErrTruncatedFlux
			}
			v := uint32(data[i+1])<<8 | uint32(data[i+2])
			out = append(out, acc+v)
			acc = 0
			i += 3
		case b == fluxOOB:
			if i+4 > len(data) {
				return nil, ErrTruncatedFlux
			}
			size := int(data[i+2]) | int(data[i+3])<<8
			if i+4+size > len(data) {
				return nil, ErrTruncatedFlux
			}
			i += 4 + size
		default: // fluxFlux1Min..0xff
			out = append(out, acc+uint32(b))
			acc = 0
			i++
		}
	}
	return out, nil
}

// ReadFluxCapture reads a flux-delta container and rebuilds each
// (cylinder, head) as a FluxStreamTrack, resolving it eagerly through
// the software PLL with pll.DefaultParams.
func ReadFluxCapture(filename string) (*diskimage.DiskImage, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("imageio: open %s: %w", filename, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("imageio: %s: %w", filename, err)
	}
	if magic != fluxMagic {
		return nil, ErrBadFluxMagic
	}

	var h fluxHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("imageio: %s: header: %w", filename, err)
	}

	descriptor := geometry.Descriptor{
		Density:  geometry.Density(h.Density),
		Encoding: geometry.Encoding(h.Encoding),
		Rate:     geometry.RateForDensity(geometry.Density(h.Density)),
		RPM:      h.RPM,
		Platform: geometry.Platform(h.Platform),
		Schema:   geometry.TrackSchema(h.Schema),
	}

	img := diskimage.New(descriptor)
	for cyl := 0; cyl < int(h.Cylinders); cyl++ {
		for head := 0; head < int(h.Heads); head++ {
			revs, err := readFluxTrack(r, h.SampleClockHz)
			if err != nil {
				return nil, fmt.Errorf("imageio: %s: track c%d.h%d: %w", filename, cyl, head, err)
			}
			if len(revs) == 0 {
				continue
			}
			ch := geometry.Ch{Cylinder: uint16(cyl), Head: uint8(head)}
			info := descriptor
			info.Geometry = ch
			if _, err := img.AddTrackFluxStream(ch, diskimage.FluxStreamParams{
				Info:          info,
				Revolutions:   revs,
				NominalCellNs: h.NominalCellNs,
				GapMaxBits:    defaultGapMaxBits,
				PLLParams:     pll.DefaultParams(),
			}); err != nil {
				return nil, fmt.Errorf("imageio: %s: resolve c%d.h%d: %w", filename, cyl, head, err)
			}
		}
	}
	return img, nil
}

func readFluxTrack(r io.Reader, sampleClockHz uint32) ([][]uint32, error) {
	var revCount uint16
	if err := binary.Read(r, binary.LittleEndian, &revCount); err != nil {
		return nil, err
	}
	revs := make([][]uint32, revCount)
	for i := range revs {
		var blockLen uint32
		if err := binary.Read(r, binary.LittleEndian, &blockLen); err != nil {
			return nil, err
		}
		block := make([]byte, blockLen)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, err
		}
		ticks, err := decodeFluxDeltas(block)
		if err != nil {
			return nil, err
		}
		revs[i] = ticksToNanoseconds(ticks, sampleClockHz)
	}
	return revs, nil
}

func ticksToNanoseconds(ticks []uint32, sampleClockHz uint32) []uint32 {
	out := make([]uint32, len(ticks))
	for i, t := range ticks {
		out[i] = uint32(uint64(t) * 1_000_000_000 / uint64(sampleClockHz))
	}
	return out
}

func nanosecondsToTicks(ns []uint32, sampleClockHz uint32) []uint32 {
	out := make([]uint32, len(ns))
	for i, v := range ns {
		out[i] = uint32(uint64(v) * uint64(sampleClockHz) / 1_000_000_000)
	}
	return out
}

// WriteFluxCapture writes img as a synthetic flux-delta container,
// regenerating one revolution of flux transitions per track from its
// raw cell content via pll.GenerateFluxTransitions/CoverFullRotation —
// the resolver's mirror operation, used here as a writer rather than a
// test fixture generator. Tracks with no raw bitstream (MetaSector, or
// a FluxStream track that failed to resolve) are written with zero
// revolutions.
func WriteFluxCapture(filename string, img *diskimage.DiskImage, sampleClockHz uint32) error {
	out, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", filename, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	maxCyl, maxHead := 0, 0
	for _, ch := range img.Tracks() {
		if int(ch.Cylinder) > maxCyl {
			maxCyl = int(ch.Cylinder)
		}
		if int(ch.Head) > maxHead {
			maxHead = int(ch.Head)
		}
	}

	descriptor := img.Descriptor()
	h := fluxHeader{
		Cylinders:     uint8(maxCyl + 1),
		Heads:         uint8(maxHead + 1),
		SampleClockHz: sampleClockHz,
		NominalCellNs: nominalCellNsFor(descriptor),
		Density:       uint8(descriptor.Density),
		Encoding:      uint8(descriptor.Encoding),
		Platform:      uint8(descriptor.Platform),
		Schema:        uint8(descriptor.Schema),
		RPM:           descriptor.RPM,
	}

	if _, err := w.Write(fluxMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}

	for cyl := 0; cyl < int(h.Cylinders); cyl++ {
		for head := 0; head < int(h.Heads); head++ {
			ch := geometry.Ch{Cylinder: uint16(cyl), Head: uint8(head)}
			t, ok := img.Track(ch)
			if !ok || t.Len() == 0 {
				if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
					return err
				}
				continue
			}

			nBits := t.Len()
			cells, _, _, err := t.ReadRaw(0, nBits)
			if err != nil {
				return fmt.Errorf("imageio: read raw cells c%d.h%d: %w", cyl, head, err)
			}

			info := t.Info()
			bitRateKhz := uint16(info.Rate)
			transitions, err := pll.GenerateFluxTransitions(cells, nBits, bitRateKhz)
			if err != nil {
				return fmt.Errorf("imageio: generate flux c%d.h%d: %w", cyl, head, err)
			}
			rpm := info.RPM
			if rpm == 0 {
				rpm = geometry.DefaultRPM(info.Platform)
			}
			transitions = pll.CoverFullRotation(transitions, bitRateKhz, rpm)
			deltasNs := pll.DeltasFromTransitions(transitions)
			ticks := nanosecondsToTicks(deltasNs, sampleClockHz)
			block := encodeFluxDeltas(ticks)

			if err := binary.Write(w, binary.LittleEndian, uint16(1)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, uint32(len(block))); err != nil {
				return err
			}
			if _, err := w.Write(block); err != nil {
				return err
			}
		}
	}

	return w.Flush()
}

func nominalCellNsFor(d geometry.Descriptor) uint32 {
	if d.Rate == 0 {
		return 4000
	}
	return uint32(1_000_000 / uint32(d.Rate))
}
