package mfm

import "github.com/sergev/floppyengine/bitbuf"

// ScanForMark performs a bit-exact pattern search over raw cells for
// the first address mark in allowed, starting at fromBit and wrapping
// once around the stream. It returns the bit offset of the mark's
// first sync cell, the MarkKind found, and whether a match was found.
//
// Grounded on the teacher's scanIBMPC/scanAmiga history-shift-register
// scan, adapted to match the raw 16-bit sync cell pattern directly
// (spec.md §4.2: "bit-exact pattern search over raw cells") instead of
// the teacher's decoded-byte-history approach.
func ScanForMark(stream *bitbuf.Buffer, fromBit int, allowed []MarkKind) (bitOffset int, kind MarkKind, found bool) {
	n := stream.Len()
	if n == 0 || len(allowed) == 0 {
		return 0, MarkNone, false
	}

	var wantA1, wantC2 bool
	for _, k := range allowed {
		switch k {
		case MarkIDAM, MarkDAM, MarkDDAM, MarkA1Sync:
			wantA1 = true
		case MarkIAM, MarkC2Sync:
			wantC2 = true
		}
	}
	if !wantA1 && !wantC2 {
		return 0, MarkNone, false
	}

	var window uint32
	pos := ((fromBit % n) + n) % n
	matchCount := 0
	var matchedSync uint16
	startPos := 0
	lastMatch := 0 // scanned index of the previous sync match

	for scanned := 0; scanned < n; scanned++ {
		if stream.Get(pos) {
			window = (window << 1) | 1
		} else {
			window <<= 1
		}
		pos = (pos + 1) % n

		cur := uint16(window & 0xFFFF)
		isA1 := wantA1 && cur == A1SyncCells
		isC2 := wantC2 && cur == C2SyncCells

		switch {
		case isA1 || isC2:
			sync := A1SyncCells
			if isC2 {
				sync = C2SyncCells
			}
			// Repeats of one sync count only when they follow each
			// other back to back, 16 cells apart.
			if matchCount == 0 || sync != matchedSync || scanned-lastMatch != 16 {
				matchCount = 0
				matchedSync = sync
				startPos = (pos - 16 + n) % n
			}
			matchCount++
			lastMatch = scanned
			if matchCount == 3 {
				if k, ok := tryReadTag(stream, matchedSync, pos, allowed); ok {
					return startPos, k, true
				}
				matchCount = 0
			}
		}
	}
	return 0, MarkNone, false
}

func tryReadTag(stream *bitbuf.Buffer, sync uint16, afterSyncPos int, allowed []MarkKind) (MarkKind, bool) {
	dec := NewDecoder(stream, nil, afterSyncPos)
	var tag byte
	for i := 0; i < 8; i++ {
		bit, _, _ := dec.NextBit()
		if bit {
			tag |= 1 << uint(7-i)
		}
	}
	kind := MarkForTag(sync, tag)
	if kind == MarkNone {
		return MarkNone, false
	}
	for _, k := range allowed {
		if k == kind {
			return kind, true
		}
	}
	return MarkNone, false
}
