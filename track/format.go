package track

import "github.com/sergev/floppyengine/geometry"

// FormatLayout describes the sector geometry a Format call should lay
// down: one CHSN id per sector, in the physical order they should
// appear on the track.
type FormatLayout struct {
	SectorIDs []geometry.Chsn
	// GapBytes is the 0x4E filler gap written before each IDAM and
	// between an IDAM and its DAM, for System34-schema tracks. Amiga
	// tracks ignore it (their sectors are sync-delimited, not gap-delimited).
	GapBytes int
}
