package transport_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/grailbio/genomics/genomicspb"
	"github.com/grailbio/genomics/stream"
	"github.com/grailbio/genomics/transport"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testVariantSet = "vs1"

// flakyServer fails the first len(failAfter) calls after sending failAfter[i]
// envelopes.
type flakyServer struct {
	transport.StreamingServer

	mu        sync.Mutex
	failAfter []int
	calls     int
	starts    []int64
}

func (s *flakyServer) next(start int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, start)
	n := -1
	if s.calls < len(s.failAfter) {
		n = s.failAfter[s.calls]
	}
	s.calls++
	return n
}

func (s *flakyServer) StreamVariants(ctx context.Context, req *genomicspb.StreamVariantsRequest, send func(*genomicspb.StreamVariantsResponse) error) error {
	n := s.next(req.Start)
	if n < 0 {
		return s.StreamingServer.StreamVariants(ctx, req, send)
	}
	sent := 0
	err := s.StreamingServer.StreamVariants(ctx, req, func(resp *genomicspb.StreamVariantsResponse) error {
		if sent == n {
			return status.Error(codes.Unavailable, "connection reset")
		}
		sent++
		return send(resp)
	})
	if err == nil {
		err = status.Error(codes.Unavailable, "connection reset")
	}
	return err
}

func (s *flakyServer) StreamReads(ctx context.Context, req *genomicspb.StreamReadsRequest, send func(*genomicspb.StreamReadsResponse) error) error {
	n := s.next(req.Start)
	if n < 0 {
		return s.StreamingServer.StreamReads(ctx, req, send)
	}
	sent := 0
	err := s.StreamingServer.StreamReads(ctx, req, func(resp *genomicspb.StreamReadsResponse) error {
		if sent == n {
			return status.Error(codes.Unavailable, "connection reset")
		}
		sent++
		return send(resp)
	})
	if err == nil {
		err = status.Error(codes.Unavailable, "connection reset")
	}
	return err
}

func newTestConn(t *testing.T, srv transport.StreamingServer, opts ...grpc.DialOption) *grpc.ClientConn {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	transport.RegisterStreamingServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	opts = append(opts, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	conn, err := transport.Dial("passthrough:///bufnet", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testOpts(kind string) stream.Opts {
	return stream.Opts{
		Kind: kind,
		Backoff: stream.BackoffOpts{
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			MaxElapsedTime:  10 * time.Second,
		},
	}
}

func testBackend(n int) (*transport.MemBackend, []string) {
	b := transport.NewMemBackend()
	b.EnvelopeSize = 7
	var ids []string
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("v%03d", i)
		ids = append(ids, id)
		b.AddVariants(&genomicspb.Variant{
			ID:             id,
			VariantSetID:   testVariantSet,
			ReferenceName:  "chr1",
			Start:          int64(i * 10),
			End:            int64(i*10 + 1),
			ReferenceBases: "A",
			AlternateBases: []string{"C"},
			Calls: []*genomicspb.Call{
				{CallSetID: "cs1", CallSetName: "s1", Genotype: []int32{0, 1}},
				{CallSetID: "cs2", CallSetName: "s2", Genotype: []int32{1, 1}},
			},
		})
	}
	return b, ids
}

func drainVariants(t *testing.T, it *transport.VariantIterator) []*genomicspb.Variant {
	var out []*genomicspb.Variant
	for it.Scan() {
		out = append(out, it.Response().Variants...)
	}
	return out
}

func variantIDs(vs []*genomicspb.Variant) []string {
	var ids []string
	for _, v := range vs {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestStreamVariants(t *testing.T) {
	b, ids := testBackend(50)
	conn := newTestConn(t, b)
	ctx := context.Background()
	it, err := transport.NewVariantIterator(ctx, conn,
		&genomicspb.StreamVariantsRequest{VariantSetID: testVariantSet, ReferenceName: "chr1"},
		testOpts("variants-plain"))
	require.NoError(t, err)
	got := drainVariants(t, it)
	expect.NoError(t, it.Close())
	expect.EQ(t, variantIDs(got), ids)
	expect.EQ(t, got[3].Calls[1].Genotype, []int32{1, 1})
}

func TestStreamVariantsResumesAfterFailures(t *testing.T) {
	b, ids := testBackend(100)
	srv := &flakyServer{StreamingServer: b, failAfter: []int{2, 0, 3, 1}}
	conn := newTestConn(t, srv)
	ctx := context.Background()
	it, err := transport.NewVariantIterator(ctx, conn,
		&genomicspb.StreamVariantsRequest{VariantSetID: testVariantSet, ReferenceName: "chr1", Start: 0, End: 10000},
		testOpts("variants-flaky"))
	require.NoError(t, err)
	got := drainVariants(t, it)
	expect.NoError(t, it.Close())
	expect.EQ(t, variantIDs(got), ids)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	expect.EQ(t, srv.calls, 5)
	// After the first failure 14 records were delivered; the last one starts
	// at 130.
	expect.EQ(t, srv.starts[:3], []int64{0, 130, 130})
}

func TestStreamVariantsShard(t *testing.T) {
	b, _ := testBackend(10)
	b.AddVariants(&genomicspb.Variant{
		ID: "long", VariantSetID: testVariantSet, ReferenceName: "chr1",
		Start: 15, End: 45, ReferenceBases: "A",
	})
	conn := newTestConn(t, b)
	ctx := context.Background()
	req := &genomicspb.StreamVariantsRequest{VariantSetID: testVariantSet, ReferenceName: "chr1", Start: 30, End: 60}

	it, err := transport.NewVariantIterator(ctx, conn, req, testOpts("variants-strict"))
	require.NoError(t, err)
	expect.EQ(t, variantIDs(drainVariants(t, it)), []string{"v003", "v004", "v005"})
	expect.NoError(t, it.Close())

	opts := testOpts("variants-overlaps")
	opts.Boundary = stream.Overlaps
	it, err = transport.NewVariantIterator(ctx, conn, req, opts)
	require.NoError(t, err)
	expect.EQ(t, variantIDs(drainVariants(t, it)), []string{"long", "v003", "v004", "v005"})
	expect.NoError(t, it.Close())

	// An empty range matches nothing, even records spanning it.
	req = &genomicspb.StreamVariantsRequest{VariantSetID: testVariantSet, ReferenceName: "chr1", Start: 40, End: 40}
	it, err = transport.NewVariantIterator(ctx, conn, req, opts)
	require.NoError(t, err)
	expect.EQ(t, len(drainVariants(t, it)), 0)
	expect.NoError(t, it.Close())
}

func TestStreamVariantsCallSets(t *testing.T) {
	b, _ := testBackend(3)
	conn := newTestConn(t, b)
	it, err := transport.NewVariantIterator(context.Background(), conn,
		&genomicspb.StreamVariantsRequest{VariantSetID: testVariantSet, ReferenceName: "chr1", CallSetIDs: []string{"cs2"}},
		testOpts("variants-callsets"))
	require.NoError(t, err)
	got := drainVariants(t, it)
	expect.NoError(t, it.Close())
	require.Len(t, got, 3)
	for _, v := range got {
		require.Len(t, v.Calls, 1)
		expect.EQ(t, v.Calls[0].CallSetName, "s2")
	}
}

func TestStreamVariantsNotFound(t *testing.T) {
	b, _ := testBackend(3)
	conn := newTestConn(t, b)
	it, err := transport.NewVariantIterator(context.Background(), conn,
		&genomicspb.StreamVariantsRequest{VariantSetID: "missing", ReferenceName: "chr1"},
		testOpts("variants-notfound"))
	// The server reports the error on the first receive.
	require.NoError(t, err)
	expect.True(t, !it.Scan())
	err = it.Close()
	require.Error(t, err)
	require.Contains(t, err.Error(), "code = NotFound")
}

func TestStreamReads(t *testing.T) {
	b := transport.NewMemBackend()
	b.EnvelopeSize = 2
	var want []string
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("r%d", i)
		want = append(want, id)
		b.AddReads("rgs1", &genomicspb.Read{
			ID:              id,
			FragmentName:    id,
			Alignment:       &genomicspb.LinearAlignment{Position: genomicspb.Position{ReferenceName: "chr1", Position: int64(100 + i*5)}},
			AlignedSequence: "ACGTACGTAC",
		})
	}
	b.AddReads("rgs1", &genomicspb.Read{ID: "unmapped", AlignedSequence: "ACGT"})
	srv := &flakyServer{StreamingServer: b, failAfter: []int{1, 2}}
	conn := newTestConn(t, srv, grpc.WithDefaultCallOptions(grpc.UseCompressor(transport.SnappyCompressor)))
	it, err := transport.NewReadIterator(context.Background(), conn,
		&genomicspb.StreamReadsRequest{ReadGroupSetID: "rgs1", ReferenceName: "chr1", Start: 100},
		testOpts("reads-flaky"))
	require.NoError(t, err)
	var got []string
	for it.Scan() {
		for _, r := range it.Response().Alignments {
			got = append(got, r.ID)
		}
	}
	expect.NoError(t, it.Close())
	expect.EQ(t, got, want)
}

func TestIsRetryable(t *testing.T) {
	for _, test := range []struct {
		err  error
		want bool
	}{
		{status.Error(codes.Unavailable, "x"), true},
		{status.Error(codes.DeadlineExceeded, "x"), true},
		{status.Error(codes.Internal, "x"), true},
		{fmt.Errorf("plain"), true},
		{status.Error(codes.InvalidArgument, "x"), false},
		{status.Error(codes.NotFound, "x"), false},
		{status.Error(codes.PermissionDenied, "x"), false},
		{status.Error(codes.Unimplemented, "x"), false},
	} {
		expect.EQ(t, transport.IsRetryable(test.err), test.want, test.err.Error())
	}
}
