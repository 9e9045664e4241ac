package diskimage

import (
	"crypto/sha1"
	"sort"

	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/schema"
)

// Analysis is the deterministic, pure-over-current-state report
// produced by Analyze, per spec.md §4.6.
type Analysis struct {
	// DuplicateGroups lists sets of two or more tracks whose canonical
	// sector content hashes identically (same SHA-1 over concatenated,
	// bit-offset-ordered sector payloads).
	DuplicateGroups [][]geometry.Ch
	// SectorErrorCount is the total number of CRC failures across the
	// image: each IDAM whose header CRC fails and each data field whose
	// CRC fails counts once, so a sector with both counts twice.
	SectorErrorCount int
	// SchemaUniform reports whether every track that carries a schema
	// (System34 or Amiga trackdisk) agrees on which one.
	SchemaUniform bool
}

// Analyze walks every track once, per spec.md §4.6: SHA-1 duplicate
// detection grounded on the pervasiveness of CRC-16 checking
// throughout the bit codec (content hashing is the natural
// generalization of a per-sector CRC to whole-track identity), plus a
// sector error tally and schema-uniformity check.
func (d *DiskImage) Analyze() Analysis {
	hashes := make(map[geometry.Ch][20]byte, len(d.order))
	errCount := 0

	for _, ch := range d.order {
		t := d.tracks[ch]
		elems := t.ElementMap()

		h := sha1.New()
		for _, e := range elems {
			if e.Kind == schema.ElementDAM || e.Kind == schema.ElementDDAM || e.Kind == schema.ElementData {
				h.Write(e.Data)
				if !e.CRCOK {
					errCount++
				}
			} else if e.Kind == schema.ElementIDAM && !e.CRCOK {
				errCount++
			}
		}
		var sum [20]byte
		copy(sum[:], h.Sum(nil))
		hashes[ch] = sum
	}

	schemaUniform := true
	var first *geometry.TrackSchema
	for _, ch := range d.order {
		info := d.tracks[ch].Info()
		if info.Schema == geometry.SchemaNone {
			continue
		}
		if first == nil {
			s := info.Schema
			first = &s
			continue
		}
		if *first != info.Schema {
			schemaUniform = false
			break
		}
	}

	groups := make(map[[20]byte][]geometry.Ch)
	for _, ch := range d.order {
		sum := hashes[ch]
		groups[sum] = append(groups[sum], ch)
	}
	var dupGroups [][]geometry.Ch
	for _, chs := range groups {
		if len(chs) > 1 {
			sort.Slice(chs, func(i, j int) bool {
				if chs[i].Cylinder != chs[j].Cylinder {
					return chs[i].Cylinder < chs[j].Cylinder
				}
				return chs[i].Head < chs[j].Head
			})
			dupGroups = append(dupGroups, chs)
		}
	}
	sort.Slice(dupGroups, func(i, j int) bool {
		a, b := dupGroups[i][0], dupGroups[j][0]
		if a.Cylinder != b.Cylinder {
			return a.Cylinder < b.Cylinder
		}
		return a.Head < b.Head
	})

	return Analysis{
		DuplicateGroups:  dupGroups,
		SectorErrorCount: errCount,
		SchemaUniform:    schemaUniform,
	}
}
