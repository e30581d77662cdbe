package genomicspb

// Position is a 0-based location on a reference.
type Position struct {
	ReferenceName string `msgpack:"reference_name"`
	Position      int64  `msgpack:"position"`
	ReverseStrand bool   `msgpack:"reverse_strand"`
}

// LinearAlignment places a read on the reference.
type LinearAlignment struct {
	Position       Position `msgpack:"position"`
	MappingQuality int32    `msgpack:"mapping_quality"`
}

// Read is one aligned read of a read group set. Alignment is nil for
// unmapped reads.
type Read struct {
	ID              string           `msgpack:"id"`
	ReadGroupID     string           `msgpack:"read_group_id"`
	FragmentName    string           `msgpack:"fragment_name"`
	Alignment       *LinearAlignment `msgpack:"alignment"`
	AlignedSequence string           `msgpack:"aligned_sequence"`
}

// Start returns the alignment start of r, or InvalidPos if r is unmapped.
func (r *Read) Start() int64 {
	if r.Alignment == nil {
		return InvalidPos
	}
	return r.Alignment.Position.Position
}

// StreamReadsRequest asks the server for the reads of one read group set
// that overlap [Start, End) on ReferenceName.
type StreamReadsRequest struct {
	ReadGroupSetID string `msgpack:"read_group_set_id"`
	ReferenceName  string `msgpack:"reference_name"`
	Start          int64  `msgpack:"start"`
	End            int64  `msgpack:"end"`
}

// WithStart returns a copy of r whose Start is replaced by start.
func (r *StreamReadsRequest) WithStart(start int64) *StreamReadsRequest {
	n := *r
	n.Start = start
	return &n
}

// StreamReadsResponse is one envelope of the read stream.
type StreamReadsResponse struct {
	Alignments []*Read `msgpack:"alignments"`
}
