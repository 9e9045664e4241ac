// Package diskimage owns an ordered collection of tracks indexed by
// cylinder/head and dispatches sector-level read/write/format
// operations to the matching track, generalizing the teacher's
// hfe.Disk (a flat []TrackData indexed by track number) into a
// map[geometry.Ch]track.Track builder, per spec.md §4.6.
package diskimage

import (
	"errors"

	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/pll"
	"github.com/sergev/floppyengine/track"
)

// ErrTrackNotFound is returned when an operation addresses a cylinder/head
// pair that was never added to the image.
var ErrTrackNotFound = errors.New("diskimage: track not found")

// DiskImage holds one Track per physical cylinder/head, built up via
// the AddTrack* methods and then used for sector dispatch and
// whole-image analysis. Reads may be shared across goroutines; a
// write to a given track requires the caller hold it exclusively,
// matching spec.md §5's per-track ownership model — this package
// itself never spawns goroutines or takes a lock.
type DiskImage struct {
	descriptor geometry.Descriptor
	tracks     map[geometry.Ch]track.Track
	order      []geometry.Ch
}

// New creates an empty image carrying descriptor as the nominal
// image-wide recording profile; individual tracks may still specify
// their own geometry/density/schema.
func New(descriptor geometry.Descriptor) *DiskImage {
	return &DiskImage{descriptor: descriptor, tracks: make(map[geometry.Ch]track.Track)}
}

// Descriptor returns the image's nominal recording profile.
func (d *DiskImage) Descriptor() geometry.Descriptor {
	return d.descriptor
}

func (d *DiskImage) insert(ch geometry.Ch, t track.Track) track.Track {
	if _, exists := d.tracks[ch]; !exists {
		d.order = append(d.order, ch)
	}
	d.tracks[ch] = t
	return t
}

// BitStreamParams configures a track built directly from raw cell data.
type BitStreamParams struct {
	Info       geometry.Descriptor
	Cells      *bitbuf.Buffer
	Weak       *bitbuf.Buffer
	GapMaxBits int
}

// AddTrackBitstream adds a BitStreamTrack at ch.
func (d *DiskImage) AddTrackBitstream(ch geometry.Ch, p BitStreamParams) track.Track {
	return d.insert(ch, track.NewBitStreamTrack(p.Info, p.Cells, p.Weak, p.GapMaxBits))
}

// MetaSectorParams configures a track built from a plain sector list.
type MetaSectorParams struct {
	Info     geometry.Descriptor
	Sectors  []geometry.Chsn
	Payloads [][]byte
}

// AddTrackMetaSector adds a MetaSectorTrack at ch.
func (d *DiskImage) AddTrackMetaSector(ch geometry.Ch, p MetaSectorParams) track.Track {
	return d.insert(ch, track.NewMetaSectorTrack(p.Info, p.Sectors, p.Payloads))
}

// FluxStreamParams configures a track built from unresolved flux deltas.
type FluxStreamParams struct {
	Info          geometry.Descriptor
	Revolutions   [][]uint32
	NominalCellNs uint32
	GapMaxBits    int
	PLLParams     pll.Params
}

// AddTrackFluxStream adds a FluxStreamTrack at ch and resolves it
// immediately, per spec.md §4.6 ("resolves eagerly; caches resolved
// BitStream"). The track is still added to the image even when
// resolution fails, left in its unresolved (read-only) state, so the
// caller can inspect the image and retry with different parameters.
func (d *DiskImage) AddTrackFluxStream(ch geometry.Ch, p FluxStreamParams) (track.Track, error) {
	ft := track.NewFluxStreamTrack(p.Info, p.Revolutions, p.NominalCellNs, p.GapMaxBits, p.PLLParams)
	d.insert(ch, ft)
	return ft, ft.Resolve()
}

// Track returns the track at ch, if any.
func (d *DiskImage) Track(ch geometry.Ch) (track.Track, bool) {
	t, ok := d.tracks[ch]
	return t, ok
}

// ReadSector dispatches to the track at chs.Ch() and reads the first
// sector matching q at or after fromBit.
func (d *DiskImage) ReadSector(chs geometry.Chs, q geometry.Query, fromBit int) (track.ReadResult, error) {
	t, ok := d.tracks[chs.Ch()]
	if !ok {
		return track.ReadResult{}, ErrTrackNotFound
	}
	return t.ReadSector(q, fromBit)
}

// WriteSector dispatches to the track at chs.Ch().
func (d *DiskImage) WriteSector(chs geometry.Chs, q geometry.Query, fromBit int, scope track.WriteScope, data []byte, deleted bool) error {
	t, ok := d.tracks[chs.Ch()]
	if !ok {
		return ErrTrackNotFound
	}
	return t.WriteSector(q, fromBit, scope, data, deleted)
}

// FormatTrack rewrites the track at ch according to layout.
func (d *DiskImage) FormatTrack(ch geometry.Ch, layout track.FormatLayout, fill byte) error {
	t, ok := d.tracks[ch]
	if !ok {
		return ErrTrackNotFound
	}
	return t.Format(layout, fill)
}

// Tracks returns the Ch of every track in the order they were added;
// Track(ch) returns the track itself.
func (d *DiskImage) Tracks() []geometry.Ch {
	out := make([]geometry.Ch, len(d.order))
	copy(out, d.order)
	return out
}
