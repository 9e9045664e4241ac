package track

import (
	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/pll"
	"github.com/sergev/floppyengine/schema"
)

// FluxStreamTrack holds one or more revolutions of raw flux-transition
// deltas, unresolved until first accessed. Every Track operation
// resolves the canonical revolution on demand (and caches it) before
// delegating to a BitStreamTrack; a track whose flux never settles to
// a believable rate remains read-only, per ErrReadOnly.
type FluxStreamTrack struct {
	info          geometry.Descriptor
	revolutions   [][]uint32
	nominalCellNs uint32
	gapMaxBits    int
	params        pll.Params

	resolved      *BitStreamTrack
	resolveErr    error
	haveResolved  bool
	canonicalRevs int
}

// NewFluxStreamTrack holds a track as unresolved per-revolution flux
// deltas. nominalCellNs is the declared bit-cell time for info's data
// rate; params configures the resolver (pll.DefaultParams() if zero).
func NewFluxStreamTrack(info geometry.Descriptor, revolutions [][]uint32, nominalCellNs uint32, gapMaxBits int, params pll.Params) *FluxStreamTrack {
	if params == (pll.Params{}) {
		params = pll.DefaultParams()
	}
	return &FluxStreamTrack{
		info:          info,
		revolutions:   revolutions,
		nominalCellNs: nominalCellNs,
		gapMaxBits:    gapMaxBits,
		params:        params,
	}
}

// resolve runs the PLL over every revolution and picks the canonical
// one, caching the result (success or failure) for subsequent calls.
func (t *FluxStreamTrack) resolve() (*BitStreamTrack, error) {
	if t.haveResolved {
		return t.resolved, t.resolveErr
	}
	t.haveResolved = true

	result, idx, err := pll.ResolveRevolutions(t.revolutions, t.nominalCellNs, t.params)
	if err != nil {
		t.resolveErr = err
		return nil, err
	}
	t.canonicalRevs = idx
	t.resolved = NewBitStreamTrack(t.info, result.Bits, result.Weak, t.gapMaxBits)
	return t.resolved, nil
}

// Resolve forces canonical-revolution resolution now, returning any
// error immediately instead of deferring it to the first read. Used by
// callers (e.g. a disk-image builder) that want flux tracks resolved
// eagerly at add time rather than lazily at first access.
func (t *FluxStreamTrack) Resolve() error {
	_, err := t.resolve()
	return err
}

func (t *FluxStreamTrack) Info() geometry.Descriptor {
	return t.info
}

// Len returns the resolved bitstream's length, or 0 if resolution has
// not yet succeeded.
func (t *FluxStreamTrack) Len() int {
	bs, err := t.resolve()
	if err != nil {
		return 0
	}
	return bs.Len()
}

func (t *FluxStreamTrack) ReadSector(q geometry.Query, fromBit int) (ReadResult, error) {
	bs, err := t.resolve()
	if err != nil {
		return ReadResult{}, err
	}
	return bs.ReadSector(q, fromBit)
}

func (t *FluxStreamTrack) ScanSector(q geometry.Query, fromBit int) (geometry.Chsn, Attributes, error) {
	bs, err := t.resolve()
	if err != nil {
		return geometry.Chsn{}, Attributes{}, err
	}
	return bs.ScanSector(q, fromBit)
}

// WriteSector resolves the canonical revolution first if that has not
// happened yet, then writes to the resolved bitstream. It returns
// ErrReadOnly when resolution fails: there is no single bitstream to
// rewrite then.
func (t *FluxStreamTrack) WriteSector(q geometry.Query, fromBit int, scope WriteScope, data []byte, deleted bool) error {
	bs, err := t.resolve()
	if err != nil {
		return ErrReadOnly
	}
	return bs.WriteSector(q, fromBit, scope, data, deleted)
}

func (t *FluxStreamTrack) ReadRaw(fromBit, nBits int) ([]byte, *bitbuf.Buffer, *bitbuf.Buffer, error) {
	bs, err := t.resolve()
	if err != nil {
		return nil, nil, nil, err
	}
	return bs.ReadRaw(fromBit, nBits)
}

func (t *FluxStreamTrack) ElementMap() []schema.Element {
	bs, err := t.resolve()
	if err != nil {
		return nil
	}
	return bs.ElementMap()
}

// Format resolves the track (if not already resolved) and formats the
// resulting bitstream; flux tracks have no format of their own to
// rewrite until reduced to bit cells.
func (t *FluxStreamTrack) Format(layout FormatLayout, fill byte) error {
	bs, err := t.resolve()
	if err != nil {
		return ErrReadOnly
	}
	return bs.Format(layout, fill)
}
