package variantmerge

import (
	"sort"

	"github.com/grailbio/genomics/genomicspb"
)

// Window is the batch of records passed to one Strategy.Merge call.
type Window struct {
	ReferenceName string
	// Start and End delimit the window, [Start, End).
	Start, End int64
	// Records holds every record overlapping the window, including those
	// starting before it.
	Records []*genomicspb.Variant
}

// Windows partitions variants into windows of size bases, aligned on
// multiples of size, per reference. A record is placed in every window its
// span overlaps. Windows in which no record starts are omitted, since they
// would emit nothing. The result is sorted by reference name and start.
//
// REQUIRES: size > 0.
func Windows(variants []*genomicspb.Variant, size int64) []Window {
	// Window starts per reference, sorted.
	starts := map[string][]int64{}
	seen := map[string]map[int64]bool{}
	for _, v := range variants {
		s := windowStart(v.Start, size)
		m := seen[v.ReferenceName]
		if m == nil {
			m = map[int64]bool{}
			seen[v.ReferenceName] = m
		}
		if !m[s] {
			m[s] = true
			starts[v.ReferenceName] = append(starts[v.ReferenceName], s)
		}
	}
	refs := make([]string, 0, len(starts))
	for ref, ss := range starts {
		sort.Slice(ss, func(i, j int) bool { return ss[i] < ss[j] })
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	// offset[ref] is the index in windows of ref's first window.
	var windows []Window
	offset := map[string]int{}
	for _, ref := range refs {
		offset[ref] = len(windows)
		for _, s := range starts[ref] {
			windows = append(windows, Window{ReferenceName: ref, Start: s, End: s + size})
		}
	}
	for _, v := range variants {
		end := v.End
		if end <= v.Start {
			end = v.Start + 1
		}
		ss := starts[v.ReferenceName]
		first := windowStart(v.Start, size)
		i := sort.Search(len(ss), func(i int) bool { return ss[i] >= first })
		for ; i < len(ss) && ss[i] < end; i++ {
			w := &windows[offset[v.ReferenceName]+i]
			w.Records = append(w.Records, v)
		}
	}
	return windows
}

func windowStart(pos, size int64) int64 {
	s := pos - pos%size
	if pos < 0 && pos%size != 0 {
		s -= size
	}
	return s
}

// MergeWindows runs strategy over each window in order.
func MergeWindows(strategy Strategy, windows []Window, emit func(*genomicspb.Variant)) {
	for _, w := range windows {
		strategy.Merge(w.Start, w.Records, emit)
	}
}
