// Package pll resolves a flux-transition delta stream into a bit
// sequence using a software phase-locked loop, the same shape of
// algorithm as a physical floppy controller's read channel.
//
// Grounded on the teacher's pll.Decoder (an SCP-style PLL with period
// adjustment, out-of-sync centering, and phase snap), generalized from
// the teacher's fixed CLOCK_MAX_ADJ/PERIOD_ADJ_PCT/PHASE_ADJ_PCT
// constants to configurable alpha/clamp/weak-threshold parameters,
// histogram-based initial rate detection, and explicit weak/error
// mask output alongside the decoded bits.
package pll

import (
	"errors"
	"math"
	"sort"

	"github.com/sergev/floppyengine/bitbuf"
)

// ErrBadRate is returned when the cell time estimated from the initial
// histogram peak disagrees with the declared nominal cell time by more
// than the configured tolerance.
var ErrBadRate = errors.New("pll: flux histogram disagrees with declared rate")

// Params configures the adaptive resolver.
type Params struct {
	Alpha         float64 // period adaptation rate, spec default 0.10
	ClampFraction float64 // max fractional deviation of the current cell time from nominal, default 0.15
	WeakFraction  float64 // deviation fraction beyond which a cell is weak, default 0.35
	WeakMaxK      int     // k above which a cell is always weak (abnormally long), default 4
	RateTolerance float64 // histogram-vs-nominal disagreement tolerance, default 0.30
}

// DefaultParams returns the resolver parameters named in spec.md §4.3.
func DefaultParams() Params {
	return Params{
		Alpha:         0.10,
		ClampFraction: 0.15,
		WeakFraction:  0.35,
		WeakMaxK:      4,
		RateTolerance: 0.30,
	}
}

// Result is the output of resolving one revolution's worth of flux
// deltas: a bitstream of clocked cells plus parallel weak and error
// masks of identical length.
type Result struct {
	Bits  *bitbuf.Buffer
	Weak  *bitbuf.Buffer
	Error *bitbuf.Buffer
}

// histogramPeak buckets deltas into 1us-wide bins and returns the
// lowest-valued bin that holds at least 5% of the samples: the first
// significant peak in the delta histogram, the shortest common
// transition spacing. For a valid MFM/FM signal this lies at a small
// whole number of bit cells (an MFM stream has no one-cell spacing, so
// its first peak is at two cells). Falls back to the tallest bin if no
// bin clears the threshold.
func histogramPeak(deltas []uint32) uint32 {
	if len(deltas) == 0 {
		return 0
	}
	const binWidth = 1000 // ns
	bins := make(map[uint32]int)
	for _, d := range deltas {
		bins[d/binWidth]++
	}

	keys := make([]uint32, 0, len(bins))
	for k := range bins {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	threshold := len(deltas) / 20
	if threshold < 1 {
		threshold = 1
	}
	for _, k := range keys {
		if bins[k] >= threshold {
			return k*binWidth + binWidth/2
		}
	}

	best, bestCount := keys[0], 0
	for _, k := range keys {
		if bins[k] > bestCount {
			bestCount = bins[k]
			best = k
		}
	}
	return best*binWidth + binWidth/2
}

// Resolve converts one revolution of flux-transition deltas (ns,
// monotonic intervals between transitions) into a bit sequence, per
// spec.md §4.3. nominalCellNs is T_c, the expected bit-cell time
// derived from the track's data rate.
func Resolve(deltas []uint32, nominalCellNs uint32, p Params) (Result, error) {
	if len(deltas) == 0 {
		return Result{Bits: bitbuf.New(0), Weak: bitbuf.New(0), Error: bitbuf.New(0)}, nil
	}

	peak := histogramPeak(deltas)
	nominal := float64(nominalCellNs)
	// The peak spans a whole number of cells; divide by the nearest
	// such count to get the initial cell-time estimate.
	peakCells := math.Round(float64(peak) / nominal)
	if peakCells < 1 {
		peakCells = 1
	}
	if math.Abs(float64(peak)/peakCells-nominal) > p.RateTolerance*nominal {
		return Result{}, ErrBadRate
	}

	cellCur := nominal
	cMin := nominal * (1 - p.ClampFraction)
	cMax := nominal * (1 + p.ClampFraction)

	var bits, weakBits []bool
	for _, d := range deltas {
		delta := float64(d)
		k := int(math.Round(delta / cellCur))
		if k < 1 {
			k = 1
		}
		cellObserved := delta / float64(k)
		weak := math.Abs(cellObserved-cellCur) > p.WeakFraction*cellCur || k > p.WeakMaxK

		for i := 0; i < k-1; i++ {
			bits = append(bits, false)
			weakBits = append(weakBits, weak)
		}
		bits = append(bits, true)
		weakBits = append(weakBits, weak)

		cellCur += p.Alpha * (cellObserved - cellCur)
		if cellCur < cMin {
			cellCur = cMin
		}
		if cellCur > cMax {
			cellCur = cMax
		}
	}

	n := len(bits)
	out := bitbuf.New(n)
	weakOut := bitbuf.New(n)
	errOut := bitbuf.New(n)
	for i, b := range bits {
		out.Set(i, b)
		if weakBits[i] {
			weakOut.Set(i, true)
			errOut.Set(i, true)
		}
	}
	return Result{Bits: out, Weak: weakOut, Error: errOut}, nil
}

// ResolveRevolutions resolves each revolution's deltas independently
// and picks the canonical one via PickCanonical.
func ResolveRevolutions(revolutions [][]uint32, nominalCellNs uint32, p Params) (Result, int, error) {
	if len(revolutions) == 0 {
		return Result{}, -1, errors.New("pll: no revolutions to resolve")
	}
	results := make([]Result, len(revolutions))
	for i, deltas := range revolutions {
		r, err := Resolve(deltas, nominalCellNs, p)
		if err != nil {
			return Result{}, -1, err
		}
		results[i] = r
	}
	return PickCanonical(results)
}

// PickCanonical selects the stablest resolved revolution: fewest weak
// bits, first index on tie, per spec.md §4.3's "longest stable, first
// on tie" rule. Kept as a standalone function so format-specific
// canonical-selection heuristics (e.g. trusting a capture's declared
// preferred revolution) can be swapped in its place.
func PickCanonical(results []Result) (Result, int, error) {
	if len(results) == 0 {
		return Result{}, -1, errors.New("pll: no resolved revolutions")
	}
	best := 0
	bestWeak := countSet(results[0].Weak)
	for i := 1; i < len(results); i++ {
		w := countSet(results[i].Weak)
		if w < bestWeak {
			bestWeak = w
			best = i
		}
	}
	return results[best], best, nil
}

func countSet(b *bitbuf.Buffer) int {
	n := 0
	for i := 0; i < b.Len(); i++ {
		if b.Get(i) {
			n++
		}
	}
	return n
}
