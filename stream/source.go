package stream

import "context"

// Stream is one open streaming call. Thread compatible.
type Stream[Resp any] interface {
	// Recv returns the next response envelope. It returns io.EOF when the
	// server has ended the stream normally.
	Recv() (Resp, error)

	// Close releases the call. It may be called more than once.
	Close() error
}

// Source describes how to open a streaming call and how to access the
// request, the envelopes and the records flowing through it.
//
// Req is the request type, Resp the response envelope type and Rec the record
// type carried by the envelopes.
type Source[Req, Resp, Rec any] interface {
	// Open starts one call for req. It may be invoked many times for the same
	// logical stream.
	Open(ctx context.Context, req Req) (Stream[Resp], error)

	// Records returns the records of resp, in server order.
	Records(resp Resp) []Rec
	// WithRecords returns a copy of resp whose record list is recs.
	WithRecords(resp Resp, recs []Rec) Resp
	// RecordID returns an ID that is unique within the dataset and stable
	// across calls.
	RecordID(rec Rec) string
	// RecordStart returns the start coordinate of rec.
	RecordStart(rec Rec) int64

	// RequestStart returns the inclusive start coordinate of req.
	RequestStart(req Req) int64
	// WithRequestStart returns a copy of req with the start coordinate
	// replaced. req is not modified.
	WithRequestStart(req Req, start int64) Req
}
