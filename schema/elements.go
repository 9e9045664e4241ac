// Package schema decodes a track's raw bit-cell stream into a list of
// located elements (address marks, sector headers and data fields)
// using the IBM System 34 and Commodore Amiga trackdisk conventions.
//
// Grounded on the teacher's mfm.Reader (scanIBMPC/ReadSectorIBMPC and
// scanAmiga/ReadSectorAmiga), regrouped here as a pure scanner over a
// bitbuf.Buffer rather than a track-owning reader, so a Track
// implementation can cache the resulting element map instead of
// re-scanning on every sector access.
package schema

import (
	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
)

// ElementKind identifies what a located bit range represents.
type ElementKind int

const (
	ElementGap ElementKind = iota
	ElementIndexMark
	ElementIDAM
	ElementDAM
	ElementDDAM
	ElementData
)

func (k ElementKind) String() string {
	switch k {
	case ElementIndexMark:
		return "index-mark"
	case ElementIDAM:
		return "IDAM"
	case ElementDAM:
		return "DAM"
	case ElementDDAM:
		return "DDAM"
	case ElementData:
		return "data"
	default:
		return "gap"
	}
}

// Element is one located region of a track's bit-cell stream.
type Element struct {
	Kind      ElementKind
	BitOffset int
	BitLength int
	ID        geometry.Chsn // valid for IDAM/DAM/DDAM/Data elements
	CRCOK     bool          // valid for IDAM/DAM/DDAM elements
	Data      []byte        // decoded payload, valid for DAM/DDAM/Data elements
}

// Scanner decodes a track's raw stream into an element map and locates
// individual sectors within it. Implemented by System34 and Amiga.
type Scanner interface {
	Scan(stream, weak *bitbuf.Buffer) []Element
	FindSector(stream, weak *bitbuf.Buffer, q geometry.Query, fromBit int) (idam, data Element, ok bool)
}
