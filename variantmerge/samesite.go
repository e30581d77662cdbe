package variantmerge

import "github.com/grailbio/genomics/genomicspb"

// MergeAllVariantsAtSameSite combines the variants found at the same site
// (see IsSameSite) into one record and folds overlapping non-variant segments
// into every variant.
//
// The alternate lists of same-site variants are unioned in first-seen order,
// and the genotypes of each merged-in call are renumbered to index the union.
// Every emitted variant lists, under OverlappingCallSetsKey, the call-set names
// of the earlier variants overlapping it and of the other variants starting at
// the same position.
//
// REQUIRES: all records are on the same reference.
type MergeAllVariantsAtSameSite struct{}

// Merge implements Strategy.
func (MergeAllVariantsAtSameSite) Merge(windowStart int64, records []*genomicspb.Variant, emit func(*genomicspb.Variant)) {
	m := sameSiteMerger{windowStart: windowStart, emit: emit}
	for _, v := range sorted(records) {
		if IsNonVariantSegment(v) {
			m.blocks = append(m.blocks, v)
			continue
		}
		if len(m.group) > 0 && m.group[0].Start != v.Start {
			m.flush()
		}
		m.add(v)
	}
	m.flush()
}

// sameSiteMerger holds the scratch state of one Merge call.
type sameSiteMerger struct {
	windowStart int64
	emit        func(*genomicspb.Variant)

	// blocks are the non-variant segments that may still overlap a variant.
	blocks []*genomicspb.Variant
	// priors are variants at earlier positions, kept to detect overlaps.
	priors []*genomicspb.Variant
	// group are the variants at the current position, one per site.
	group []*genomicspb.Variant
}

func (m *sameSiteMerger) add(v *genomicspb.Variant) {
	for i, g := range m.group {
		if IsSameSite(g, v) {
			m.group[i] = mergeSite(g, v)
			return
		}
	}
	m.group = append(m.group, v.Clone())
}

// flush emits the current group and makes it the newest set of priors.
func (m *sameSiteMerger) flush() {
	if len(m.group) == 0 {
		return
	}
	start := m.group[0].Start
	m.blocks = dropBefore(m.blocks, start)
	m.priors = dropBefore(m.priors, start)

	var blockCalls []*genomicspb.Call
	for _, b := range m.blocks {
		for _, v := range m.group {
			if b.Range().Overlaps(v.Range()) {
				blockCalls = append(blockCalls, b.Calls...)
				break
			}
		}
	}

	for i, v := range m.group {
		if v.Start < m.windowStart {
			continue
		}
		out := v.Clone()
		for _, c := range blockCalls {
			out.Calls = append(out.Calls, c.Clone())
		}
		var names []string
		for _, p := range m.priors {
			if p.Range().Overlaps(v.Range()) {
				names = appendCallSetNames(names, p)
			}
		}
		for j, o := range m.group {
			if j != i {
				names = appendCallSetNames(names, o)
			}
		}
		if len(names) > 0 {
			if out.Info == nil {
				out.Info = map[string][]string{}
			}
			out.Info[OverlappingCallSetsKey] = names
		}
		m.emit(out)
	}
	m.priors = append(m.priors, m.group...)
	m.group = nil
}

// mergeSite returns a new variant combining acc with v, which is at the same
// site. The alternates of v missing from acc are appended, and the calls of v
// are renumbered to the combined alternate list.
func mergeSite(acc, v *genomicspb.Variant) *genomicspb.Variant {
	out := acc.Clone()
	// index[i] is the new allele number of v's allele i.
	index := make([]int32, len(v.AlternateBases)+1)
	for i, alt := range v.AlternateBases {
		j := indexOf(out.AlternateBases, alt)
		if j < 0 {
			out.AlternateBases = append(out.AlternateBases, alt)
			j = len(out.AlternateBases) - 1
		}
		index[i+1] = int32(j + 1)
	}
	for _, c := range v.Calls {
		nc := c.Clone()
		for k, g := range nc.Genotype {
			if g > 0 && int(g) < len(index) {
				nc.Genotype[k] = index[g]
			}
		}
		out.Calls = append(out.Calls, nc)
	}
	return out
}

// dropBefore removes the records that end at or before pos.
func dropBefore(vs []*genomicspb.Variant, pos int64) []*genomicspb.Variant {
	live := vs[:0]
	for _, v := range vs {
		if !v.Range().Before(pos) {
			live = append(live, v)
		}
	}
	return live
}

func appendCallSetNames(names []string, v *genomicspb.Variant) []string {
	for _, c := range v.Calls {
		if indexOf(names, c.CallSetName) < 0 {
			names = append(names, c.CallSetName)
		}
	}
	return names
}

func indexOf(list []string, s string) int {
	for i, e := range list {
		if e == s {
			return i
		}
	}
	return -1
}
