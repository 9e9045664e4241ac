// Package format catalogues canonical floppy disk geometries and
// builds blank standard-format disk images, generalizing the
// teacher's mfm.DetectFormatFromSize size-to-geometry table into a
// named StandardFormat enum carrying a full SectorLayout, per
// spec.md §3/§4.7.
package format

import (
	"errors"

	"github.com/sergev/floppyengine/geometry"
)

// StandardFormat names one canonical disk geometry.
type StandardFormat int

const (
	PC160K StandardFormat = iota
	PC180K
	PC320K
	PC360K
	PC720K
	PC800K
	PC1200K
	PC1440K
	PC1600K
	PC2880K
	AmigaDD880K
)

func (f StandardFormat) String() string {
	switch f {
	case PC160K:
		return "PC 160K"
	case PC180K:
		return "PC 180K"
	case PC320K:
		return "PC 320K"
	case PC360K:
		return "PC 360K"
	case PC720K:
		return "PC 720K"
	case PC800K:
		return "PC 800K"
	case PC1200K:
		return "PC 1.2M"
	case PC1440K:
		return "PC 1.44M"
	case PC1600K:
		return "PC 1.6M"
	case PC2880K:
		return "PC 2.88M"
	case AmigaDD880K:
		return "Amiga DD 880K"
	default:
		return "unknown"
	}
}

// SectorLayout is the (cylinders, heads, sectors_per_track, n,
// sector_id_offset) tuple a StandardFormat expands to. The invariant
// cylinders*heads*sectorsPerTrack*(128<<n) == image size in bytes
// always holds for a catalogued format.
type SectorLayout struct {
	Cylinders       int
	Heads           int
	SectorsPerTrack int
	N               uint8
	// SectorIDOffset is the first sector number on a track: 1 for PC
	// (sectors numbered 1..SectorsPerTrack), 0 for Amiga.
	SectorIDOffset int
	Density        geometry.Density
	Encoding       geometry.Encoding
	Platform       geometry.Platform
	Schema         geometry.TrackSchema
}

// Bytes returns the total image size in bytes implied by the layout.
func (l SectorLayout) Bytes() int {
	return l.Cylinders * l.Heads * l.SectorsPerTrack * geometry.SizeFromN(l.N)
}

var catalogue = map[StandardFormat]SectorLayout{
	PC160K:  {Cylinders: 40, Heads: 1, SectorsPerTrack: 8, N: 2, SectorIDOffset: 1, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC180K:  {Cylinders: 40, Heads: 1, SectorsPerTrack: 9, N: 2, SectorIDOffset: 1, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC320K:  {Cylinders: 40, Heads: 2, SectorsPerTrack: 8, N: 2, SectorIDOffset: 1, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC360K:  {Cylinders: 40, Heads: 2, SectorsPerTrack: 9, N: 2, SectorIDOffset: 1, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC720K:  {Cylinders: 80, Heads: 2, SectorsPerTrack: 9, N: 2, SectorIDOffset: 1, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC800K:  {Cylinders: 80, Heads: 2, SectorsPerTrack: 10, N: 2, SectorIDOffset: 1, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC1200K: {Cylinders: 80, Heads: 2, SectorsPerTrack: 15, N: 2, SectorIDOffset: 1, Density: geometry.HighDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC1440K: {Cylinders: 80, Heads: 2, SectorsPerTrack: 18, N: 2, SectorIDOffset: 1, Density: geometry.HighDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC1600K: {Cylinders: 80, Heads: 2, SectorsPerTrack: 20, N: 2, SectorIDOffset: 1, Density: geometry.HighDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},
	PC2880K: {Cylinders: 80, Heads: 2, SectorsPerTrack: 36, N: 2, SectorIDOffset: 1, Density: geometry.ExtendedDensity, Encoding: geometry.MFM, Platform: geometry.PlatformIBMPC, Schema: geometry.SchemaSystem34},

	AmigaDD880K: {Cylinders: 80, Heads: 2, SectorsPerTrack: 11, N: 2, SectorIDOffset: 0, Density: geometry.DoubleDensity, Encoding: geometry.MFM, Platform: geometry.PlatformAmiga, Schema: geometry.SchemaAmigaTrackdisk},
}

// ErrUnknownFormat is returned when a size or enum value has no
// catalogue entry.
var ErrUnknownFormat = errors.New("format: unknown standard format")

// Layout returns the SectorLayout for a catalogued format.
func Layout(f StandardFormat) (SectorLayout, error) {
	l, ok := catalogue[f]
	if !ok {
		return SectorLayout{}, ErrUnknownFormat
	}
	return l, nil
}

// DetectBySize returns the StandardFormat whose layout's byte size
// matches sizeBytes exactly, preferring the earliest-declared match
// when more than one format shares a size (mirroring the teacher's
// detection table, which tries entries in a fixed preference order).
func DetectBySize(sizeBytes int) (StandardFormat, SectorLayout, error) {
	order := []StandardFormat{
		PC1440K, PC1600K, PC720K, PC800K, PC360K, PC2880K, PC1200K,
		PC320K, PC160K, PC180K, AmigaDD880K,
	}
	for _, f := range order {
		l := catalogue[f]
		if l.Bytes() == sizeBytes {
			return f, l, nil
		}
	}
	return 0, SectorLayout{}, ErrUnknownFormat
}
