// Package transport connects the stream package to a genomics server over
// gRPC.
//
// The service "genomics.v1.StreamingService" has two bidirectional methods,
// StreamVariants and StreamReads. The client sends a single request and
// half-closes; the server answers with a sequence of response envelopes.
// Messages are encoded with msgpack (content subtype "msgpack").
//
// VariantSource and ReadSource implement stream.Source on top of a client
// connection. MemBackend is an in-memory StreamingServer used by tests and by
// the serve subcommand of bio-genomics-stream.
package transport
