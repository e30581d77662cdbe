// Package stream reads a server-driven stream of ordered records and survives
// mid-stream transport failures.
//
// Iterator wraps one streaming call. When the call fails it backs off, reopens
// the call with a request revised to resume at the last record it returned,
// and skips the records the caller has already seen. Each record is delivered
// exactly once, or the iterator stops with an error.
//
// The records, requests and the call itself are described by a Source, so the
// same engine drives variant streams, read streams and test fakes.
package stream
