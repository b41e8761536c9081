package reader

import (
	"math"
	"sort"
)

// lineGroup is a contiguous run over the vertically sorted sequence whose
// members share one visual line. Indexes are [start, end).
type lineGroup struct {
	start, end int
}

// sortReadingOrder returns the objects in page reading order: globally
// top-to-bottom, and left-to-right inside each line band. The input slice
// is not modified.
//
// A single global (top, left) sort is not enough: left values of unrelated
// lines would interleave. Objects are therefore sorted by descending top
// first, clustered into line bands, and only then sorted by ascending left
// within each band.
func sortReadingOrder(objs []Object) []Object {
	sorted := make([]Object, len(objs))
	copy(sorted, objs)

	// Primary sort: larger top (higher on page) first. When either bounds
	// accessor fails the pair compares equal, so the stable sort keeps
	// their original relative order.
	sort.SliceStable(sorted, func(i, j int) bool {
		bi, erri := sorted[i].Bounds()
		bj, errj := sorted[j].Bounds()
		if erri != nil || errj != nil {
			return false
		}
		return bi.Top > bj.Top
	})

	// Secondary sort, constrained to each line band.
	for _, g := range lineGroups(sorted) {
		band := sorted[g.start:g.end]
		sort.SliceStable(band, func(i, j int) bool {
			bi, erri := band[i].Bounds()
			bj, errj := band[j].Bounds()
			if erri != nil || errj != nil {
				return false
			}
			return bi.Left < bj.Left
		})
	}

	return sorted
}

// lineGroups scans the vertically sorted sequence once and splits it into
// line bands. A new band starts whenever the object's top drifts at least
// SameLineTolerance from the band's reference top, which is the top of
// the band's first object. An object without obtainable bounds closes the
// current band and forms a singleton band, leaving it untouched by the
// within-line sort.
func lineGroups(sorted []Object) []lineGroup {
	var groups []lineGroup
	start := -1
	var refTop float64

	for i, o := range sorted {
		b, err := o.Bounds()
		if err != nil {
			if start >= 0 {
				groups = append(groups, lineGroup{start, i})
			}
			groups = append(groups, lineGroup{i, i + 1})
			start = -1
			continue
		}
		if start < 0 {
			start = i
			refTop = b.Top
			continue
		}
		if math.Abs(b.Top-refTop) >= SameLineTolerance {
			groups = append(groups, lineGroup{start, i})
			start = i
			refTop = b.Top
		}
	}
	if start >= 0 {
		groups = append(groups, lineGroup{start, len(sorted)})
	}
	return groups
}
