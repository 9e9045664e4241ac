package format

import (
	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/diskimage"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/track"
)

// defaultGapMaxBits bounds the IDAM-to-DAM search window for a freshly
// formatted System34 track; comfortably wider than the handful of gap
// bytes Blank itself writes, so the normal read path never rejects its
// own formatting as an oversized gap.
const defaultGapMaxBits = 400

// Blank builds a DiskImage of the given standard format with every
// track pre-formatted as a BitStream track per its layout's schema,
// each sector filled with fill, per spec.md §4.7. If bootSector is
// non-nil, it is written to CHS (0, 0, layout.SectorIDOffset) via the
// normal write path (the same path any other sector write uses).
func Blank(f StandardFormat, fill byte, bootSector []byte) (*diskimage.DiskImage, error) {
	layout, err := Layout(f)
	if err != nil {
		return nil, err
	}

	descriptor := geometry.Descriptor{
		Density:  layout.Density,
		Encoding: layout.Encoding,
		Rate:     geometry.RateForDensity(layout.Density),
		RPM:      geometry.DefaultRPM(layout.Platform),
		Platform: layout.Platform,
		Schema:   layout.Schema,
	}

	img := diskimage.New(descriptor)

	for cyl := 0; cyl < layout.Cylinders; cyl++ {
		for head := 0; head < layout.Heads; head++ {
			ch := geometry.Ch{Cylinder: uint16(cyl), Head: uint8(head)}
			info := descriptor
			info.Geometry = ch

			ids := make([]geometry.Chsn, layout.SectorsPerTrack)
			for s := 0; s < layout.SectorsPerTrack; s++ {
				ids[s] = geometry.Chsn{
					Cylinder: uint16(cyl),
					Head:     uint8(head),
					Sector:   uint8(s + layout.SectorIDOffset),
					N:        layout.N,
				}
			}

			t := img.AddTrackBitstream(ch, diskimage.BitStreamParams{
				Info:       info,
				Cells:      bitbuf.New(0),
				GapMaxBits: defaultGapMaxBits,
			})
			if err := t.Format(track.FormatLayout{SectorIDs: ids, GapBytes: 6}, fill); err != nil {
				return nil, err
			}
		}
	}

	if bootSector != nil {
		bootCh := geometry.Chs{Cylinder: 0, Head: 0, Sector: uint8(layout.SectorIDOffset)}
		sector := uint8(layout.SectorIDOffset)
		q := geometry.Query{S: &sector}
		if err := img.WriteSector(bootCh, q, 0, track.DataOnly, bootSector, false); err != nil {
			return nil, err
		}
	}

	return img, nil
}
