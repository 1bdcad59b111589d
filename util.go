package spacemaker

import (
	"fmt"
)

// Range is an inclusive [Start, End] byte range on a disk.
type Range struct {
	Start, End uint64
}

// Size returns the number of bytes covered by the range.
func (r Range) Size() uint64 {
	return r.End - r.Start + 1
}

// FindRangeGaps returns a set of Range to represent the un-used
// uint64 between min and max that are not included in ranges.
//  FindRangeGaps({{10, 40}, {50, 100}}, 0, 110}) ==
//      {{0, 9}, {41, 49}, {101, 110}}
func FindRangeGaps(ranges []Range, min, max uint64) []Range {
	// start 'ret' off with full range of min to max, then start cutting it up.
	ret := []Range{{min, max}}

	for _, i := range ranges {
		for r := 0; r < len(ret); r++ {
			// 5 cases:
			if i.Start > ret[r].End || i.End < ret[r].Start {
				// a. i has no overlap
			} else if i.Start <= ret[r].Start && i.End >= ret[r].End {
				// b.) i is complete superset, so remove ret[r]
				ret = append(ret[:r], ret[r+1:]...)
				r--
			} else if i.Start > ret[r].Start && i.End < ret[r].End {
				// c.) i is strict subset: split ret[r]
				tail := append([]Range{{i.End + 1, ret[r].End}}, ret[r+1:]...)
				ret = append(ret[:r+1], tail...)
				ret[r].End = i.Start - 1
				r++ // added entry is guaranteed to be 'a', so skip it.
			} else if i.Start <= ret[r].Start {
				// d.) overlap left edge to middle
				ret[r].Start = i.End + 1
			} else if i.Start <= ret[r].End {
				// e.) middle to right edge (possibly past).
				ret[r].End = i.Start - 1
			} else {
				panic(fmt.Sprintf("Error in FindRangeGaps: %v, r=%d, ret=%v",
					i, r, ret))
			}
		}
	}

	return ret
}

// UsableGaps returns the gaps between used ranges of a disk of the given
// size that are at least minSize bytes. The first Mebibyte is never usable.
func UsableGaps(used []Range, diskSize, minSize uint64) []Range {
	if diskSize <= Mebibyte {
		return []Range{}
	}

	used = append([]Range{{0, Mebibyte - 1}}, used...)
	gaps := []Range{}

	for _, g := range FindRangeGaps(used, 0, diskSize-1) {
		if g.Size() < minSize {
			continue
		}

		gaps = append(gaps, g)
	}

	return gaps
}
