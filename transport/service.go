package transport

import (
	"context"

	"github.com/grailbio/genomics/genomicspb"
	"google.golang.org/grpc"
)

const (
	serviceName          = "genomics.v1.StreamingService"
	streamVariantsMethod = "/" + serviceName + "/StreamVariants"
	streamReadsMethod    = "/" + serviceName + "/StreamReads"
)

// StreamingServer is the server side of the streaming service. Each method
// sends the envelopes answering req through send, in order, and returns when
// the stream is complete. A non-nil error ends the stream with that error; use
// google.golang.org/grpc/status to pick its code.
type StreamingServer interface {
	StreamVariants(ctx context.Context, req *genomicspb.StreamVariantsRequest, send func(*genomicspb.StreamVariantsResponse) error) error
	StreamReads(ctx context.Context, req *genomicspb.StreamReadsRequest, send func(*genomicspb.StreamReadsResponse) error) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StreamingServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamVariants",
			Handler:       streamVariantsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "StreamReads",
			Handler:       streamReadsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "genomics/v1/streaming.proto",
}

// RegisterStreamingServer registers impl with s.
func RegisterStreamingServer(s *grpc.Server, impl StreamingServer) {
	s.RegisterService(&serviceDesc, impl)
}

func streamVariantsHandler(srv interface{}, ss grpc.ServerStream) error {
	req := new(genomicspb.StreamVariantsRequest)
	if err := ss.RecvMsg(req); err != nil {
		return err
	}
	return srv.(StreamingServer).StreamVariants(ss.Context(), req, func(resp *genomicspb.StreamVariantsResponse) error {
		return ss.SendMsg(resp)
	})
}

func streamReadsHandler(srv interface{}, ss grpc.ServerStream) error {
	req := new(genomicspb.StreamReadsRequest)
	if err := ss.RecvMsg(req); err != nil {
		return err
	}
	return srv.(StreamingServer).StreamReads(ss.Context(), req, func(resp *genomicspb.StreamReadsResponse) error {
		return ss.SendMsg(resp)
	})
}
