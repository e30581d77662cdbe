package transport

import (
	"context"
	"io"
	"sync"

	"github.com/grailbio/genomics/genomicspb"
	"github.com/grailbio/genomics/stream"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// VariantIterator is a resumable iterator over a variant stream.
type VariantIterator = stream.Iterator[*genomicspb.StreamVariantsRequest, *genomicspb.StreamVariantsResponse, *genomicspb.Variant]

// ReadIterator is a resumable iterator over a read stream.
type ReadIterator = stream.Iterator[*genomicspb.StreamReadsRequest, *genomicspb.StreamReadsResponse, *genomicspb.Read]

// Dial creates a client connection to target. Connections use plaintext
// unless opts supply transport credentials.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", target)
	}
	return conn, nil
}

// IsRetryable reports whether err, returned by a streaming call, is worth
// retrying. Errors that would recur on every attempt, such as a malformed
// request or a permission failure, are not.
func IsRetryable(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition,
		codes.OutOfRange, codes.Unimplemented:
		return false
	}
	return true
}

// clientStream adapts a grpc.ClientStream to stream.Stream.
type clientStream[Resp any] struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
	once   sync.Once
}

// openStream starts a call of method, sends req and half-closes the client
// side.
func openStream[Resp any](ctx context.Context, conn grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, req interface{}) (stream.Stream[*Resp], error) {
	ctx, cancel := context.WithCancel(ctx)
	cs, err := conn.NewStream(ctx, desc, method, grpc.CallContentSubtype(CodecName))
	if err != nil {
		cancel()
		return nil, err
	}
	// On io.EOF the server has already ended the call; RecvMsg reports why.
	if err := cs.SendMsg(req); err != nil && err != io.EOF {
		cancel()
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, err
	}
	return &clientStream[Resp]{cs: cs, cancel: cancel}, nil
}

func (s *clientStream[Resp]) Recv() (*Resp, error) {
	resp := new(Resp)
	if err := s.cs.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close cancels the call. It is idempotent.
func (s *clientStream[Resp]) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// VariantSource streams variants through Conn. It implements stream.Source.
type VariantSource struct {
	Conn grpc.ClientConnInterface
}

// Open implements stream.Source.
func (s VariantSource) Open(ctx context.Context, req *genomicspb.StreamVariantsRequest) (stream.Stream[*genomicspb.StreamVariantsResponse], error) {
	return openStream[genomicspb.StreamVariantsResponse](ctx, s.Conn, &serviceDesc.Streams[0], streamVariantsMethod, req)
}

// Records implements stream.Source.
func (VariantSource) Records(resp *genomicspb.StreamVariantsResponse) []*genomicspb.Variant {
	return resp.Variants
}

// WithRecords implements stream.Source.
func (VariantSource) WithRecords(resp *genomicspb.StreamVariantsResponse, recs []*genomicspb.Variant) *genomicspb.StreamVariantsResponse {
	return &genomicspb.StreamVariantsResponse{Variants: recs}
}

// RecordID implements stream.Source.
func (VariantSource) RecordID(v *genomicspb.Variant) string { return v.ID }

// RecordStart implements stream.Source.
func (VariantSource) RecordStart(v *genomicspb.Variant) int64 { return v.Start }

// RequestStart implements stream.Source.
func (VariantSource) RequestStart(req *genomicspb.StreamVariantsRequest) int64 { return req.Start }

// WithRequestStart implements stream.Source.
func (VariantSource) WithRequestStart(req *genomicspb.StreamVariantsRequest, start int64) *genomicspb.StreamVariantsRequest {
	return req.WithStart(start)
}

// ReadSource streams aligned reads through Conn. It implements stream.Source.
type ReadSource struct {
	Conn grpc.ClientConnInterface
}

// Open implements stream.Source.
func (s ReadSource) Open(ctx context.Context, req *genomicspb.StreamReadsRequest) (stream.Stream[*genomicspb.StreamReadsResponse], error) {
	return openStream[genomicspb.StreamReadsResponse](ctx, s.Conn, &serviceDesc.Streams[1], streamReadsMethod, req)
}

// Records implements stream.Source.
func (ReadSource) Records(resp *genomicspb.StreamReadsResponse) []*genomicspb.Read {
	return resp.Alignments
}

// WithRecords implements stream.Source.
func (ReadSource) WithRecords(resp *genomicspb.StreamReadsResponse, recs []*genomicspb.Read) *genomicspb.StreamReadsResponse {
	return &genomicspb.StreamReadsResponse{Alignments: recs}
}

// RecordID implements stream.Source.
func (ReadSource) RecordID(r *genomicspb.Read) string { return r.ID }

// RecordStart implements stream.Source.
func (ReadSource) RecordStart(r *genomicspb.Read) int64 { return r.Start() }

// RequestStart implements stream.Source.
func (ReadSource) RequestStart(req *genomicspb.StreamReadsRequest) int64 { return req.Start }

// WithRequestStart implements stream.Source.
func (ReadSource) WithRequestStart(req *genomicspb.StreamReadsRequest, start int64) *genomicspb.StreamReadsRequest {
	return req.WithStart(start)
}

func defaultOpts(opts stream.Opts, kind string) stream.Opts {
	if opts.Kind == "" {
		opts.Kind = kind
	}
	if opts.IsRetryable == nil {
		opts.IsRetryable = IsRetryable
	}
	return opts
}

// NewVariantIterator opens a resumable variant stream for req. Unless set in
// opts, the iterator uses kind "variants" and IsRetryable.
func NewVariantIterator(ctx context.Context, conn grpc.ClientConnInterface, req *genomicspb.StreamVariantsRequest, opts stream.Opts) (*VariantIterator, error) {
	return stream.NewIterator[*genomicspb.StreamVariantsRequest, *genomicspb.StreamVariantsResponse, *genomicspb.Variant](
		ctx, VariantSource{Conn: conn}, req, defaultOpts(opts, "variants"))
}

// NewReadIterator opens a resumable read stream for req. Unless set in opts,
// the iterator uses kind "reads" and IsRetryable.
func NewReadIterator(ctx context.Context, conn grpc.ClientConnInterface, req *genomicspb.StreamReadsRequest, opts stream.Opts) (*ReadIterator, error) {
	return stream.NewIterator[*genomicspb.StreamReadsRequest, *genomicspb.StreamReadsResponse, *genomicspb.Read](
		ctx, ReadSource{Conn: conn}, req, defaultOpts(opts, "reads"))
}
