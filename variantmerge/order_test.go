package variantmerge_test

import (
	"testing"

	"github.com/grailbio/genomics/genomicspb"
	"github.com/grailbio/genomics/variantmerge"
	"github.com/grailbio/testutil/expect"
)

func TestIsNonVariantSegment(t *testing.T) {
	for _, test := range []struct {
		v    *genomicspb.Variant
		want bool
	}{
		{block("b", 0, 10), true},
		{variant("nonref", 0, 10, "A", []string{variantmerge.NonRefAllele}), true},
		{variant("nonref2", 0, 10, "AC", []string{"A", variantmerge.NonRefAllele}), true},
		{variant("snp", 0, 1, "A", []string{"C"}), false},
		{variant("multibase", 0, 2, "AC", nil), false},
	} {
		expect.EQ(t, variantmerge.IsNonVariantSegment(test.v), test.want, test.v.ID)
		expect.EQ(t, variantmerge.IsVariant(test.v), !test.want, test.v.ID)
	}
}

func TestIsSNP(t *testing.T) {
	expect.True(t, variantmerge.IsSNP(variant("a", 0, 1, "A", []string{"C", "G"})))
	expect.True(t, !variantmerge.IsSNP(variant("b", 0, 1, "A", []string{"CT"})))
	expect.True(t, !variantmerge.IsSNP(variant("c", 0, 2, "AT", []string{"C"})))
	expect.True(t, !variantmerge.IsSNP(block("d", 0, 10)))
}

func TestIsSameSite(t *testing.T) {
	a := variant("a", 10, 11, "C", []string{"A"})
	expect.True(t, variantmerge.IsSameSite(a, variant("b", 10, 11, "C", []string{"G"})))
	expect.True(t, !variantmerge.IsSameSite(a, variant("c", 10, 12, "CT", []string{"C"})))
	expect.True(t, !variantmerge.IsSameSite(a, variant("d", 11, 12, "C", []string{"A"})))
	other := variant("e", 10, 11, "C", []string{"A"})
	other.ReferenceName = "chr2"
	expect.True(t, !variantmerge.IsSameSite(a, other))
}

func TestCompare(t *testing.T) {
	// Each record sorts strictly before the next.
	ordered := []*genomicspb.Variant{
		variant("v0", 5, 6, "T", []string{"A"}),
		block("b0", 10, 20),
		variant("v1", 10, 11, "", []string{"A"}),
		variant("v2", 10, 11, "C", []string{"A"}),
		variant("v3", 10, 11, "C", []string{"A", "G"}),
		variant("v4", 10, 11, "C", []string{"G"}),
		variant("v5", 10, 12, "CT", []string{"C"}),
		variant("v6", 11, 12, "A", []string{"C"}),
	}
	for i := range ordered {
		expect.EQ(t, variantmerge.Compare(ordered[i], ordered[i]), 0)
		for j := i + 1; j < len(ordered); j++ {
			expect.True(t, variantmerge.Compare(ordered[i], ordered[j]) < 0, "%s < %s", ordered[i].ID, ordered[j].ID)
			expect.True(t, variantmerge.Compare(ordered[j], ordered[i]) > 0, "%s > %s", ordered[j].ID, ordered[i].ID)
		}
	}
	shuffled := []*genomicspb.Variant{ordered[5], ordered[7], ordered[0], ordered[2], ordered[6], ordered[1], ordered[4], ordered[3]}
	variantmerge.Sort(shuffled)
	expect.EQ(t, shuffled, ordered)
}

func TestWindows(t *testing.T) {
	b := block("b", 5, 25)
	v1 := variant("v1", 12, 13, "A", []string{"C"})
	v2 := variant("v2", 31, 32, "A", []string{"C"})
	v3 := variant("v3", 3, 4, "A", []string{"C"})
	v3.ReferenceName = "chr2"
	windows := variantmerge.Windows([]*genomicspb.Variant{v2, b, v1, v3}, 10)
	expect.EQ(t, len(windows), 4)

	expect.EQ(t, windows[0].ReferenceName, "chr1")
	expect.EQ(t, windows[0].Start, int64(0))
	expect.EQ(t, windows[0].Records, []*genomicspb.Variant{b})
	expect.EQ(t, windows[1].Start, int64(10))
	expect.EQ(t, windows[1].Records, []*genomicspb.Variant{b, v1})
	// [20,30) has a record overlapping it but none starting in it: skipped.
	expect.EQ(t, windows[2].Start, int64(30))
	expect.EQ(t, windows[2].Records, []*genomicspb.Variant{v2})
	expect.EQ(t, windows[3].ReferenceName, "chr2")
	expect.EQ(t, windows[3].Records, []*genomicspb.Variant{v3})
}

func TestWindowsUnboundedRecord(t *testing.T) {
	b := block("b", 5, genomicspb.InfinityPos)
	v := variant("v", 1000000005, 1000000006, "A", []string{"C"})
	windows := variantmerge.Windows([]*genomicspb.Variant{b, v}, 10)
	expect.EQ(t, len(windows), 2)
	expect.EQ(t, windows[0].Start, int64(0))
	expect.EQ(t, windows[0].Records, []*genomicspb.Variant{b})
	expect.EQ(t, windows[1].Start, int64(1000000000))
	expect.EQ(t, windows[1].Records, []*genomicspb.Variant{b, v})
}

func TestMergeWindowsEmitsOnce(t *testing.T) {
	records := testRecords()
	windows := variantmerge.Windows(records, 4)
	seen := map[string]int{}
	variantmerge.MergeWindows(variantmerge.MergeNonVariantSegments{}, windows, func(v *genomicspb.Variant) {
		seen[v.ID]++
	})
	for _, v := range records {
		if variantmerge.IsVariant(v) {
			expect.EQ(t, seen[v.ID], 1, v.ID)
		} else {
			expect.EQ(t, seen[v.ID], 0, v.ID)
		}
	}
}
