package transport

import (
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype used by this package.
const CodecName = "msgpack"

func init() {
	encoding.RegisterCodec(codec{})
}

// codec encodes gRPC messages with msgpack, using the "msgpack" struct tags of
// the genomicspb types.
type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (codec) Name() string {
	return CodecName
}
