// Package track implements the three track variants — MetaSector,
// BitStream, FluxStream — behind one polymorphic contract, matching
// the layering a real floppy-disk controller sees: it never knows
// whether the medium underneath is a raw sector dump, a bit-cell
// capture, or a still-unresolved flux trace.
package track

import (
	"errors"

	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/schema"
)

// Errors returned by Track operations.
var (
	ErrNotFound            = errors.New("track: sector not found")
	ErrSizeMismatch        = errors.New("track: write data size does not match sector size")
	ErrReadOnly            = errors.New("track: track is read-only (unresolved flux or no matching slot)")
	ErrIncompatibleSchema  = errors.New("track: format layout incompatible with this track's schema")
	ErrOutOfRange          = bitbuf.ErrOutOfRange
)

// WriteScope controls how much of a sector WriteSector is permitted
// to change.
type WriteScope int

const (
	// DataOnly rewrites only the payload bits and recomputes the data CRC.
	DataOnly WriteScope = iota
	// DataAndMark additionally permits toggling the data mark between
	// DAM (normal) and DDAM (deleted-data).
	DataAndMark
)

// Attributes records a sector's read-time health, independent of its
// decoded payload bytes — an emulated controller reports these
// alongside the data rather than treating them as exceptions.
type Attributes struct {
	AddressError bool // IDAM CRC did not match
	DataError    bool // DAM/DDAM CRC did not match
	Deleted      bool // sector's data mark was DDAM, not DAM
	NoDAM        bool // IDAM was found but no data mark within the search window
}

// IntegrityKind names which checksum convention produced a
// DataIntegrity value: System 34 tracks carry a CRC-CCITT, Amiga
// trackdisk tracks carry an XOR checksum.
type IntegrityKind int

const (
	IntegrityCRC IntegrityKind = iota
	IntegrityChecksum
)

func (k IntegrityKind) String() string {
	if k == IntegrityChecksum {
		return "checksum"
	}
	return "crc"
}

// DataIntegrity reports whether a sector's data field matched its
// stored checksum, tagged with which convention computed it so a
// caller never has to guess from the track's schema.
type DataIntegrity struct {
	Kind IntegrityKind
	OK   bool
}

// integrityFor derives a DataIntegrity from a track's schema and a
// decoded element's CRCOK flag. MetaSector tracks have no schema
// scanner of their own, so SchemaNone and SchemaSystem34 both report
// IntegrityCRC; only SchemaAmigaTrackdisk reports IntegrityChecksum.
func integrityFor(s geometry.TrackSchema, ok bool) DataIntegrity {
	kind := IntegrityCRC
	if s == geometry.SchemaAmigaTrackdisk {
		kind = IntegrityChecksum
	}
	return DataIntegrity{Kind: kind, OK: ok}
}

// ReadResult is the outcome of a successful ReadSector.
type ReadResult struct {
	ID        geometry.Chsn
	Data      []byte
	Attrs     Attributes
	Integrity DataIntegrity
	// Wrap reports whether the sector's data field crossed the track's
	// end-of-bitstream boundary and continued from bit 0, i.e. the read
	// wrapped across the index.
	Wrap bool
}

// Track is the contract shared by MetaSectorTrack, BitStreamTrack, and
// FluxStreamTrack.
type Track interface {
	// Info reports the track's density, encoding, and declared geometry.
	Info() geometry.Descriptor

	// Len reports the track's raw cell length in bits, or 0 for a
	// track variant with no underlying bitstream (MetaSector) or one
	// that has not yet resolved (FluxStream, before a successful
	// Resolve).
	Len() int

	// ReadSector locates the first sector matching q at or after
	// fromBit (bit order for BitStream/FluxStream, list order for
	// MetaSector) and returns its payload and attributes.
	ReadSector(q geometry.Query, fromBit int) (ReadResult, error)

	// ScanSector behaves like ReadSector but never copies payload
	// bytes, for callers that only need the sector's header.
	ScanSector(q geometry.Query, fromBit int) (geometry.Chsn, Attributes, error)

	// WriteSector rewrites the sector matching q. deleted is only
	// consulted when scope is DataAndMark.
	WriteSector(q geometry.Query, fromBit int, scope WriteScope, data []byte, deleted bool) error

	// ReadRaw returns n_bits of raw cell data starting at fromBit,
	// plus the corresponding slice of the weak and error masks.
	ReadRaw(fromBit, nBits int) (data []byte, weak, errMask *bitbuf.Buffer, err error)

	// ElementMap returns the track's cached, bit-ordered element list.
	ElementMap() []schema.Element

	// Format rewrites the entire track according to layout, writing
	// fill as the payload of every sector.
	Format(layout FormatLayout, fill byte) error
}
