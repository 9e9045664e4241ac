package mfm

// MarkKind identifies an address-mark pattern recognized by the bit
// codec's mark scanner.
type MarkKind int

const (
	MarkNone MarkKind = iota
	MarkA1Sync
	MarkC2Sync
	MarkIAM
	MarkIDAM
	MarkDAM
	MarkDDAM
)

func (k MarkKind) String() string {
	switch k {
	case MarkA1Sync:
		return "A1"
	case MarkC2Sync:
		return "C2"
	case MarkIAM:
		return "IAM"
	case MarkIDAM:
		return "IDAM"
	case MarkDAM:
		return "DAM"
	case MarkDDAM:
		return "DDAM"
	default:
		return "none"
	}
}

// Raw 16-bit clock+data cell patterns for the two MFM sync marks, read
// MSB-first. These encode a clock-bit violation that cannot arise from
// ordinary data encoding, which is exactly what makes them useful as
// synchronization markers.
const (
	A1SyncCells uint16 = 0x4489
	C2SyncCells uint16 = 0x5224
)

// Tag bytes that follow the sync field of each address mark.
//
// The C2 sync is conventionally the index-mark sync (spec.md calls it
// "IAM sync"); A1 sync precedes ID and data marks. IAM is therefore
// three C2 syncs followed by 0xFC, while IDAM/DAM/DDAM are three A1
// syncs followed by their respective tag byte. This resolves an
// apparent inconsistency in spec.md (which also lists "IAM: three A1
// then 0xFC") in favor of the real System 34 convention, matching the
// teacher's writeIndexMarker/writeMarker split.
const (
	TagIAM  byte = 0xFC
	TagIDAM byte = 0xFE
	TagDAM  byte = 0xFB
	TagDDAM byte = 0xF8
)

// SyncForMark returns the 16-bit sync cell pattern preceding kind, and
// the tag byte that follows the three sync repeats.
func SyncForMark(kind MarkKind) (sync uint16, tag byte, ok bool) {
	switch kind {
	case MarkIAM:
		return C2SyncCells, TagIAM, true
	case MarkIDAM:
		return A1SyncCells, TagIDAM, true
	case MarkDAM:
		return A1SyncCells, TagDAM, true
	case MarkDDAM:
		return A1SyncCells, TagDDAM, true
	default:
		return 0, 0, false
	}
}

// MarkForTag returns the MarkKind whose tag byte matches b, given the
// sync pattern that preceded it (A1 vs C2), or MarkNone if the tag is
// unrecognized for that sync family.
func MarkForTag(sync uint16, b byte) MarkKind {
	if sync == C2SyncCells && b == TagIAM {
		return MarkIAM
	}
	if sync == A1SyncCells {
		switch b {
		case TagIDAM:
			return MarkIDAM
		case TagDAM:
			return MarkDAM
		case TagDDAM:
			return MarkDDAM
		}
	}
	return MarkNone
}

// FMIDAMTag/FMIDAMClock are the FM-encoding equivalent of an IDAM tag
// byte: data 0xFE clocked with 0xC7, per spec.md §4.2.
const (
	FMIDAMTag   byte = 0xFE
	FMIDAMClock byte = 0xC7
)
