package variantmerge

import (
	"sort"
	"strings"

	"github.com/grailbio/genomics/genomicspb"
)

// NonRefAllele is the alternate allele that marks a record as a non-variant
// segment in gVCF data.
const NonRefAllele = "<NON_REF>"

// IsNonVariantSegment returns true iff v describes a reference block rather
// than a variant: it has no alternate bases and a single reference base, or
// one of its alternates is NonRefAllele.
func IsNonVariantSegment(v *genomicspb.Variant) bool {
	if len(v.AlternateBases) == 0 && len(v.ReferenceBases) == 1 {
		return true
	}
	for _, alt := range v.AlternateBases {
		if alt == NonRefAllele {
			return true
		}
	}
	return false
}

// IsVariant is the complement of IsNonVariantSegment.
func IsVariant(v *genomicspb.Variant) bool {
	return !IsNonVariantSegment(v)
}

// IsSNP returns true iff v is a variant whose reference and alternates are
// all single bases.
func IsSNP(v *genomicspb.Variant) bool {
	if IsNonVariantSegment(v) || len(v.ReferenceBases) != 1 || len(v.AlternateBases) == 0 {
		return false
	}
	for _, alt := range v.AlternateBases {
		if len(alt) != 1 {
			return false
		}
	}
	return true
}

// IsSameSite returns true iff a and b share reference name, reference bases
// and start. Overlapping is not enough.
func IsSameSite(a, b *genomicspb.Variant) bool {
	return a.ReferenceName == b.ReferenceName &&
		a.ReferenceBases == b.ReferenceBases &&
		a.Start == b.Start
}

// Compare returns (negative int, 0, positive int) if (a<b, a=b, a>b)
// respectively. Records are ordered by start, then non-variant segments before
// variants, then reference bases, then alternate bases compared element by
// element (a prefix sorts first). The remaining keys only make the order total
// so that sorting does not depend on the input order.
func Compare(a, b *genomicspb.Variant) int {
	if a.Start != b.Start {
		return cmpInt64(a.Start, b.Start)
	}
	if na, nb := IsNonVariantSegment(a), IsNonVariantSegment(b); na != nb {
		if na {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.ReferenceBases, b.ReferenceBases); c != 0 {
		return c
	}
	if c := compareStrings(a.AlternateBases, b.AlternateBases); c != 0 {
		return c
	}
	if c := strings.Compare(a.ReferenceName, b.ReferenceName); c != 0 {
		return c
	}
	if a.End != b.End {
		return cmpInt64(a.End, b.End)
	}
	if c := compareStrings(callSetNames(a), callSetNames(b)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort sorts vs in place by Compare.
func Sort(vs []*genomicspb.Variant) {
	sort.Slice(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
}

// sorted returns a sorted copy of vs. vs is not modified.
func sorted(vs []*genomicspb.Variant) []*genomicspb.Variant {
	c := append([]*genomicspb.Variant(nil), vs...)
	Sort(c)
	return c
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareStrings(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func callSetNames(v *genomicspb.Variant) []string {
	names := make([]string, len(v.Calls))
	for i, c := range v.Calls {
		names[i] = c.CallSetName
	}
	return names
}
