package profiler

import (
	"sort"

	"github.com/nao1215/seoaudit/internal/model"
)

// Range is a byte range of a script or stylesheet reported by the browser.
type Range struct {
	Start int64
	End   int64
	Used  bool
}

// JSCoverage sums coverage over scripts.
//
// Block coverage reports nested ranges: the outermost range spans the
// whole function and inner ranges override it. Ranges are painted outer
// to inner so the innermost count decides whether a byte was executed.
// The size of a script is the largest end offset among its ranges.
func JSCoverage(scripts [][]Range) model.CoverageStats {
	var total, used int64
	for _, ranges := range scripts {
		t, u := scriptUsage(ranges)
		total += t
		used += u
	}
	return model.NewCoverageStats(total, total-used)
}

func scriptUsage(ranges []Range) (total, used int64) {
	for _, r := range ranges {
		if r.End > total {
			total = r.End
		}
	}
	if total == 0 {
		return 0, 0
	}

	ordered := make([]Range, len(ranges))
	copy(ordered, ranges)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].End > ordered[j].End
	})

	painted := make([]bool, total)
	for _, r := range ordered {
		start, end := clampRange(r, total)
		for i := start; i < end; i++ {
			painted[i] = r.Used
		}
	}
	for _, p := range painted {
		if p {
			used++
		}
	}
	return total, used
}

// CSSCoverage sums coverage over stylesheets. sizes maps stylesheet IDs
// to their length in bytes; usage holds the rule ranges per stylesheet.
// Rules of stylesheets with unknown size are ignored.
func CSSCoverage(usage map[string][]Range, sizes map[string]int64) model.CoverageStats {
	var total, used int64
	for id, size := range sizes {
		if size <= 0 {
			continue
		}
		total += size

		painted := make([]bool, size)
		for _, r := range usage[id] {
			if !r.Used {
				continue
			}
			start, end := clampRange(r, size)
			for i := start; i < end; i++ {
				painted[i] = true
			}
		}
		for _, p := range painted {
			if p {
				used++
			}
		}
	}
	return model.NewCoverageStats(total, total-used)
}

func clampRange(r Range, size int64) (int64, int64) {
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	if start > end {
		start = end
	}
	return start, end
}
