package annotate

import (
	"slices"
	"sort"
)

// Render splits content into an ordered sequence of fragments such that
// every fragment's rune range is covered by a constant set of codes.
//
// The algorithm is a boundary sweep: collect the distinct Start/End
// offsets of all spans plus the two content edges, then walk adjacent
// boundary pairs emitting one fragment per pair. A span covers a fragment
// [a,b) iff span.Start <= a && span.End >= b; by construction no span
// boundary falls strictly inside a fragment, so coverage is constant
// across it.
//
// Concatenating the fragment texts in order reproduces content exactly.
// Overlapping, nested, and identical spans all reduce to multi-code
// fragments; the code set is never collapsed to a single winner.
//
// Spans whose offsets fall outside the content are clamped rather than
// rejected: rendering is a pure read path and stored spans were validated
// at create time against the same content.
func Render(content string, spans []Span) []Fragment {
	runes := []rune(content)
	n := len(runes)
	if n == 0 {
		return nil
	}

	// Distinct, sorted boundary offsets, clamped to [0, n].
	boundaries := make([]int, 0, 2*len(spans)+2)
	boundaries = append(boundaries, 0, n)
	for _, s := range spans {
		boundaries = append(boundaries, clamp(s.Start, 0, n), clamp(s.End, 0, n))
	}
	sort.Ints(boundaries)
	boundaries = slices.Compact(boundaries)

	fragments := make([]Fragment, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		a, b := boundaries[i], boundaries[i+1]

		var codes []int64
		for _, s := range spans {
			if s.Start <= a && s.End >= b {
				codes = append(codes, s.CodeID)
			}
		}
		slices.Sort(codes)
		codes = slices.Compact(codes)

		fragments = append(fragments, Fragment{
			Text:    string(runes[a:b]),
			CodeIDs: codes,
		})
	}
	return fragments
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
