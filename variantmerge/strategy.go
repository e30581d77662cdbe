package variantmerge

import (
	"fmt"

	"github.com/grailbio/genomics/genomicspb"
)

// OverlappingCallSetsKey is the Variant.Info key under which
// MergeAllVariantsAtSameSite lists the call-set names of the other variants
// overlapping an emitted variant.
const OverlappingCallSetsKey = "overlappingCallsets"

// Strategy combines the records of one coordinate window.
type Strategy interface {
	// Merge emits the reconciled variants of the window starting at
	// windowStart. records must hold every record overlapping the window, in
	// any order; they are not modified. emit is called synchronously, in a
	// deterministic order, once per output variant. The emitted variants do
	// not share memory with records.
	Merge(windowStart int64, records []*genomicspb.Variant, emit func(*genomicspb.Variant))
}

// Names accepted by ParseStrategy.
const (
	MergeNonVariantSegmentsName    = "MERGE_NON_VARIANT_SEGMENTS"
	MergeAllVariantsAtSameSiteName = "MERGE_ALL_VARIANTS_AT_SAME_SITE"
)

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case MergeNonVariantSegmentsName:
		return MergeNonVariantSegments{}, nil
	case MergeAllVariantsAtSameSiteName:
		return MergeAllVariantsAtSameSite{}, nil
	}
	return nil, fmt.Errorf("variantmerge: unknown strategy %q, must be %s or %s",
		name, MergeNonVariantSegmentsName, MergeAllVariantsAtSameSiteName)
}
