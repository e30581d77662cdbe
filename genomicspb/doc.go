// Package genomicspb defines the records exchanged with a streaming genomics
// server: variants with their per-sample calls, aligned reads, and the
// request/response envelopes of the streaming RPCs.
//
// The struct tags name the fields on the wire (msgpack). Coordinates are
// 0-based; ranges are half-open.
package genomicspb
