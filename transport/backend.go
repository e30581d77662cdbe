package transport

import (
	"context"
	"strings"
	"sync"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomics/genomicspb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultEnvelopeSize is the number of records MemBackend puts in one
// response envelope when EnvelopeSize is unset.
const DefaultEnvelopeSize = 64

// entry is one record in an index, ordered by (ref, start, id).
type entry struct {
	ref        string
	start, end int64
	id         string
	rec        interface{}
}

// Compare implements llrb.Comparable.
func (e entry) Compare(c llrb.Comparable) int {
	e2 := c.(entry)
	if d := strings.Compare(e.ref, e2.ref); d != 0 {
		return d
	}
	if e.start != e2.start {
		if e.start < e2.start {
			return -1
		}
		return 1
	}
	return strings.Compare(e.id, e2.id)
}

// index holds the records of one variant set or read group set.
type index struct {
	tree llrb.Tree
	// maxSpan is the longest end-start of any record in the tree. Records
	// overlapping position p start after p-maxSpan.
	maxSpan int64
}

func (x *index) insert(e entry) {
	if e.end <= e.start {
		e.end = e.start + 1
	}
	if span := e.end - e.start; span > x.maxSpan {
		x.maxSpan = span
	}
	x.tree.Insert(e)
}

// overlapping returns the records on ref that overlap r, sorted by (start, id).
func (x *index) overlapping(ref string, r genomicspb.Range) []interface{} {
	var recs []interface{}
	from := entry{ref: ref, start: r.Start - x.maxSpan}
	to := entry{ref: ref, start: r.End}
	x.tree.DoRange(func(c llrb.Comparable) bool {
		e := c.(entry)
		if r.Overlaps(genomicspb.Range{Start: e.start, End: e.end}) {
			recs = append(recs, e.rec)
		}
		return false
	}, from, to)
	return recs
}

// MemBackend is a StreamingServer that answers from records held in memory.
// Records are served sorted by (start, ID); a record added twice under the same
// reference, start and ID replaces the earlier one. It is safe for concurrent
// use.
type MemBackend struct {
	// EnvelopeSize is the maximum number of records per envelope.
	EnvelopeSize int

	mu       sync.RWMutex
	variants map[string]*index // keyed by variant set ID
	reads    map[string]*index // keyed by read group set ID
}

// NewMemBackend creates an empty backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{
		variants: map[string]*index{},
		reads:    map[string]*index{},
	}
}

// AddVariants adds vs to the variant sets named by their VariantSetID.
func (b *MemBackend) AddVariants(vs ...*genomicspb.Variant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range vs {
		x := b.variants[v.VariantSetID]
		if x == nil {
			x = &index{}
			b.variants[v.VariantSetID] = x
		}
		x.insert(entry{ref: v.ReferenceName, start: v.Start, end: v.End, id: v.ID, rec: v})
	}
}

// AddReads adds rs to read group set readGroupSetID. Unmapped reads are
// dropped.
func (b *MemBackend) AddReads(readGroupSetID string, rs ...*genomicspb.Read) {
	b.mu.Lock()
	defer b.mu.Unlock()
	x := b.reads[readGroupSetID]
	if x == nil {
		x = &index{}
		b.reads[readGroupSetID] = x
	}
	for _, r := range rs {
		if r.Alignment == nil {
			continue
		}
		start := r.Start()
		x.insert(entry{
			ref:   r.Alignment.Position.ReferenceName,
			start: start,
			end:   start + int64(len(r.AlignedSequence)),
			id:    r.ID,
			rec:   r,
		})
	}
}

func (b *MemBackend) envelopeSize() int {
	if b.EnvelopeSize > 0 {
		return b.EnvelopeSize
	}
	return DefaultEnvelopeSize
}

// queryRange returns the range [start, end) of a request; end <= 0 means
// unbounded.
func queryRange(start, end int64) genomicspb.Range {
	if end <= 0 {
		end = genomicspb.InfinityPos
	}
	return genomicspb.Range{Start: start, End: end}
}

// lookup returns the records of set id overlapping the request.
func (b *MemBackend) lookup(sets map[string]*index, id, ref string, start, end int64) ([]interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	x, ok := sets[id]
	if !ok {
		return nil, false
	}
	r := queryRange(start, end)
	if r.Empty() {
		return nil, true
	}
	recs := x.overlapping(ref, r)
	if log.At(log.Debug) {
		log.Debug.Printf("set %s: %d records overlap %s:%v", id, len(recs), ref, r)
	}
	return recs, true
}

// StreamVariants implements StreamingServer. It serves the variants of
// req.VariantSetID on req.ReferenceName that overlap [req.Start, req.End).
// If req.CallSetIDs is set, only calls of those call sets are returned.
func (b *MemBackend) StreamVariants(ctx context.Context, req *genomicspb.StreamVariantsRequest, send func(*genomicspb.StreamVariantsResponse) error) error {
	if req.VariantSetID == "" {
		return status.Error(codes.InvalidArgument, "variant set ID is required")
	}
	recs, ok := b.lookup(b.variants, req.VariantSetID, req.ReferenceName, req.Start, req.End)
	if !ok {
		return status.Errorf(codes.NotFound, "variant set %q not found", req.VariantSetID)
	}
	var callSets map[string]bool
	if len(req.CallSetIDs) > 0 {
		callSets = map[string]bool{}
		for _, id := range req.CallSetIDs {
			callSets[id] = true
		}
	}
	n := b.envelopeSize()
	for len(recs) > 0 {
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		chunk := recs
		if len(chunk) > n {
			chunk = chunk[:n]
		}
		recs = recs[len(chunk):]
		resp := &genomicspb.StreamVariantsResponse{Variants: make([]*genomicspb.Variant, len(chunk))}
		for i, rec := range chunk {
			v := rec.(*genomicspb.Variant)
			if callSets != nil {
				v = v.Clone()
				calls := v.Calls[:0]
				for _, c := range v.Calls {
					if callSets[c.CallSetID] {
						calls = append(calls, c)
					}
				}
				v.Calls = calls
			}
			resp.Variants[i] = v
		}
		if err := send(resp); err != nil {
			return err
		}
	}
	return nil
}

// StreamReads implements StreamingServer. It serves the mapped reads of
// req.ReadGroupSetID on req.ReferenceName whose aligned sequence overlaps
// [req.Start, req.End).
func (b *MemBackend) StreamReads(ctx context.Context, req *genomicspb.StreamReadsRequest, send func(*genomicspb.StreamReadsResponse) error) error {
	if req.ReadGroupSetID == "" {
		return status.Error(codes.InvalidArgument, "read group set ID is required")
	}
	recs, ok := b.lookup(b.reads, req.ReadGroupSetID, req.ReferenceName, req.Start, req.End)
	if !ok {
		return status.Errorf(codes.NotFound, "read group set %q not found", req.ReadGroupSetID)
	}
	n := b.envelopeSize()
	for len(recs) > 0 {
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		chunk := recs
		if len(chunk) > n {
			chunk = chunk[:n]
		}
		recs = recs[len(chunk):]
		resp := &genomicspb.StreamReadsResponse{Alignments: make([]*genomicspb.Read, len(chunk))}
		for i, rec := range chunk {
			resp.Alignments[i] = rec.(*genomicspb.Read)
		}
		if err := send(resp); err != nil {
			return err
		}
	}
	return nil
}
