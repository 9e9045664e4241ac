package imageio

import (
	"errors"
	"fmt"

	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/diskimage"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/hfe"
)

// ErrUnsupportedEncoding is returned for an HFE track encoding this
// engine has no schema for (only ISO/IBM MFM and Amiga MFM are wired).
var ErrUnsupportedEncoding = errors.New("imageio: unsupported HFE track encoding")

// defaultGapMaxBits bounds the IDAM-to-DAM search window when scanning
// a track pulled out of an HFE capture; HFE tracks carry no declared
// gap length of their own, so this uses the same generous bound
// format.Blank uses for freshly-formatted tracks.
const defaultGapMaxBits = 400

// ReadHFE reads an HFE v1 or v3 capture via the container codec
// (header, track-offset table, side demux, v3 opcode stream) and
// rebuilds each (cylinder, head) as a BitStreamTrack, since an HFE
// capture already stores resolved bit cells rather than raw flux.
func ReadHFE(filename string) (*diskimage.DiskImage, error) {
	disk, err := hfe.ReadHFE(filename)
	if err != nil {
		return nil, err
	}

	descriptor, err := descriptorFromHeader(disk.Header)
	if err != nil {
		return nil, err
	}

	img := diskimage.New(descriptor)
	for cyl, td := range disk.Tracks {
		if err := addHFESide(img, descriptor, uint16(cyl), 0, td.Side0); err != nil {
			return nil, err
		}
		if disk.Header.NumberOfSide > 1 {
			if err := addHFESide(img, descriptor, uint16(cyl), 1, td.Side1); err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}

func addHFESide(img *diskimage.DiskImage, descriptor geometry.Descriptor, cyl uint16, head uint8, side []byte) error {
	if len(side) == 0 {
		return nil
	}
	ch := geometry.Ch{Cylinder: cyl, Head: head}
	info := descriptor
	info.Geometry = ch
	cells := bitbuf.NewFromBytes(side, len(side)*8)
	img.AddTrackBitstream(ch, diskimage.BitStreamParams{
		Info:       info,
		Cells:      cells,
		GapMaxBits: defaultGapMaxBits,
	})
	return nil
}

func descriptorFromHeader(h hfe.Header) (geometry.Descriptor, error) {
	var encoding geometry.Encoding
	var platform geometry.Platform
	var schemaKind geometry.TrackSchema

	switch h.TrackEncoding {
	case hfe.ENC_ISOIBM_MFM:
		encoding, platform, schemaKind = geometry.MFM, geometry.PlatformIBMPC, geometry.SchemaSystem34
	case hfe.ENC_Amiga_MFM:
		encoding, platform, schemaKind = geometry.MFM, geometry.PlatformAmiga, geometry.SchemaAmigaTrackdisk
	case hfe.ENC_ISOIBM_FM, hfe.ENC_Emu_FM:
		encoding, platform, schemaKind = geometry.FM, geometry.PlatformIBMPC, geometry.SchemaSystem34
	default:
		return geometry.Descriptor{}, ErrUnsupportedEncoding
	}

	density := geometry.DoubleDensity
	switch {
	case h.BitRate >= 1000:
		density = geometry.ExtendedDensity
	case h.BitRate >= 500:
		density = geometry.HighDensity
	}

	rate := geometry.DataRate(h.BitRate)
	if rate == 0 {
		rate = geometry.RateForDensity(density)
	}

	rpm := h.FloppyRPM
	if rpm == 0 {
		rpm = geometry.DefaultRPM(platform)
	}

	return geometry.Descriptor{
		Density:  density,
		Encoding: encoding,
		Rate:     rate,
		RPM:      rpm,
		Platform: platform,
		Schema:   schemaKind,
	}, nil
}

func encodingToHFE(d geometry.Descriptor) uint8 {
	if d.Platform == geometry.PlatformAmiga {
		return hfe.ENC_Amiga_MFM
	}
	if d.Encoding == geometry.FM {
		return hfe.ENC_ISOIBM_FM
	}
	return hfe.ENC_ISOIBM_MFM
}

func interfaceModeFor(d geometry.Descriptor) uint8 {
	switch {
	case d.Platform == geometry.PlatformAmiga && d.Density == geometry.HighDensity:
		return hfe.IFM_Amiga_HD
	case d.Platform == geometry.PlatformAmiga:
		return hfe.IFM_Amiga_DD
	case d.Platform == geometry.PlatformAtariST && d.Density == geometry.HighDensity:
		return hfe.IFM_AtariST_HD
	case d.Platform == geometry.PlatformAtariST:
		return hfe.IFM_AtariST_DD
	case d.Density == geometry.HighDensity:
		return hfe.IFM_IBMPC_HD
	case d.Density == geometry.ExtendedDensity:
		return hfe.IFM_IBMPC_ED
	default:
		return hfe.IFM_IBMPC_DD
	}
}

// WriteHFE writes img as an HFE v3 capture, reading each track's raw
// cell content back through ReadRaw and handing the resulting byte
// slices to the container codec's opcode encoder.
func WriteHFE(filename string, img *diskimage.DiskImage) error {
	descriptor := img.Descriptor()

	maxCyl := 0
	maxHead := 0
	for _, ch := range img.Tracks() {
		if int(ch.Cylinder) > maxCyl {
			maxCyl = int(ch.Cylinder)
		}
		if int(ch.Head) > maxHead {
			maxHead = int(ch.Head)
		}
	}
	numTracks := maxCyl + 1
	numSides := uint8(maxHead + 1)

	disk := &hfe.Disk{
		Header: hfe.Header{
			NumberOfTrack:       uint8(numTracks),
			NumberOfSide:        numSides,
			TrackEncoding:       encodingToHFE(descriptor),
			BitRate:             uint16(descriptor.Rate),
			FloppyRPM:           descriptor.RPM,
			FloppyInterfaceMode: interfaceModeFor(descriptor),
			WriteAllowed:        0xFF,
			Track0S0Encoding:    encodingToHFE(descriptor),
			Track0S1Encoding:    encodingToHFE(descriptor),
			Track0S0AltEncoding: 0xFF,
			Track0S1AltEncoding: 0xFF,
		},
		Tracks: make([]hfe.TrackData, numTracks),
	}

	for cyl := 0; cyl < numTracks; cyl++ {
		for head := uint8(0); head < numSides; head++ {
			ch := geometry.Ch{Cylinder: uint16(cyl), Head: head}
			t, ok := img.Track(ch)
			if !ok {
				continue
			}
			nBits := t.Len()
			if nBits == 0 {
				continue
			}
			data, _, _, err := t.ReadRaw(0, nBits)
			if err != nil {
				return fmt.Errorf("imageio: read raw cells c%d.h%d: %w", cyl, head, err)
			}
			if head == 0 {
				disk.Tracks[cyl].Side0 = data
			} else {
				disk.Tracks[cyl].Side1 = data
			}
		}
	}

	return hfe.WriteHFE(filename, disk, hfe.HFEVersion3)
}
