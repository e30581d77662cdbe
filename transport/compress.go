package transport

import (
	"io"

	"github.com/golang/snappy"
	"google.golang.org/grpc/encoding"
)

// SnappyCompressor is the name of the snappy gRPC compressor registered by
// this package. Clients enable it with grpc.UseCompressor(SnappyCompressor);
// servers accept it automatically.
const SnappyCompressor = "snappy"

func init() {
	encoding.RegisterCompressor(snappyCompressor{})
}

// snappyCompressor frames messages in the snappy stream format.
type snappyCompressor struct{}

func (snappyCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func (snappyCompressor) Decompress(r io.Reader) (io.Reader, error) {
	return snappy.NewReader(r), nil
}

func (snappyCompressor) Name() string {
	return SnappyCompressor
}
