package variantmerge

import "github.com/grailbio/genomics/genomicspb"

// MergeNonVariantSegments folds the calls of non-variant segments into the
// variants they cover. Each variant starting in the window is emitted once,
// with the calls of every block whose span contains the variant's start
// appended to its own. Variants starting before the window are dropped.
type MergeNonVariantSegments struct{}

// Merge implements Strategy.
func (MergeNonVariantSegments) Merge(windowStart int64, records []*genomicspb.Variant, emit func(*genomicspb.Variant)) {
	var blocks []*genomicspb.Variant
	for _, v := range sorted(records) {
		if IsNonVariantSegment(v) {
			blocks = append(blocks, v)
			continue
		}
		if v.Start < windowStart {
			continue
		}
		merged := v.Clone()
		// Records are coordinate sorted, so a block that ends before this
		// variant cannot cover any later one.
		live := blocks[:0]
		for _, b := range blocks {
			if b.Range().Before(v.Start) {
				continue
			}
			live = append(live, b)
			if b.Range().Contains(v.Start) {
				for _, c := range b.Calls {
					merged.Calls = append(merged.Calls, c.Clone())
				}
			}
		}
		blocks = live
		emit(merged)
	}
}
