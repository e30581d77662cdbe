package genomicspb

// Call is a per-sample genotype assignment attached to a variant.
type Call struct {
	CallSetID   string `msgpack:"call_set_id" json:"callSetId,omitempty"`
	CallSetName string `msgpack:"call_set_name" json:"callSetName,omitempty"`
	// Genotype lists allele indexes: 0 is the reference, i>0 is
	// Variant.AlternateBases[i-1], and a negative value is a no-call.
	Genotype []int32 `msgpack:"genotype" json:"genotype,omitempty"`
	Phaseset string  `msgpack:"phaseset" json:"phaseset,omitempty"`
	// Info is a free-form key/value annotation map.
	Info map[string][]string `msgpack:"info" json:"info,omitempty"`
}

// Clone returns a deep copy of c.
func (c *Call) Clone() *Call {
	n := *c
	n.Genotype = append([]int32(nil), c.Genotype...)
	n.Info = cloneInfo(c.Info)
	return &n
}

// Variant is one record of a variant set: either a true variant or a
// non-variant segment (a reference-matching block, gVCF style).
type Variant struct {
	ID             string   `msgpack:"id" json:"id"`
	VariantSetID   string   `msgpack:"variant_set_id" json:"variantSetId,omitempty"`
	ReferenceName  string   `msgpack:"reference_name" json:"referenceName"`
	Start          int64    `msgpack:"start" json:"start"`
	End            int64    `msgpack:"end" json:"end"`
	ReferenceBases string   `msgpack:"reference_bases" json:"referenceBases"`
	AlternateBases []string `msgpack:"alternate_bases" json:"alternateBases,omitempty"`
	Names          []string `msgpack:"names" json:"names,omitempty"`
	Quality        float64  `msgpack:"quality" json:"quality,omitempty"`
	Filter         []string `msgpack:"filter" json:"filter,omitempty"`
	// Info is a free-form key/value annotation map.
	Info  map[string][]string `msgpack:"info" json:"info,omitempty"`
	Calls []*Call             `msgpack:"calls" json:"calls,omitempty"`
}

// Range returns the [Start, End) span of v.
func (v *Variant) Range() Range {
	return Range{Start: v.Start, End: v.End}
}

// Clone returns a deep copy of v. The calls are copied too, so the result can
// be modified without affecting v.
func (v *Variant) Clone() *Variant {
	n := *v
	n.AlternateBases = append([]string(nil), v.AlternateBases...)
	n.Names = append([]string(nil), v.Names...)
	n.Filter = append([]string(nil), v.Filter...)
	n.Info = cloneInfo(v.Info)
	n.Calls = make([]*Call, len(v.Calls))
	for i, c := range v.Calls {
		n.Calls[i] = c.Clone()
	}
	return &n
}

func cloneInfo(info map[string][]string) map[string][]string {
	if info == nil {
		return nil
	}
	n := make(map[string][]string, len(info))
	for k, v := range info {
		n[k] = append([]string(nil), v...)
	}
	return n
}

// StreamVariantsRequest asks the server for the variants of one variant set
// that overlap [Start, End) on ReferenceName.
type StreamVariantsRequest struct {
	VariantSetID  string   `msgpack:"variant_set_id"`
	ReferenceName string   `msgpack:"reference_name"`
	Start         int64    `msgpack:"start"`
	End           int64    `msgpack:"end"`
	CallSetIDs    []string `msgpack:"call_set_ids"`
}

// WithStart returns a copy of r whose Start is replaced by start. r itself is
// not modified.
func (r *StreamVariantsRequest) WithStart(start int64) *StreamVariantsRequest {
	n := *r
	n.CallSetIDs = append([]string(nil), r.CallSetIDs...)
	n.Start = start
	return &n
}

// StreamVariantsResponse is one envelope of the variant stream.
type StreamVariantsResponse struct {
	Variants []*Variant `msgpack:"variants"`
}
