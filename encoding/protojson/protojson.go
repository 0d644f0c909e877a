package protojson

import (
	"fmt"

	"github.com/opensraph/grpcweb/encoding"
	"google.golang.org/protobuf/encoding/protojson"
)

const CodecNameJSON = encoding.CodecNameJSON
const CodecNameJSONCharsetUTF8 = encoding.CodecNameJSONCharsetUTF8

func init() {
	encoding.RegisterCodec(&protoJson{name: CodecNameJSON})
	encoding.RegisterCodec(&protoJson{name: CodecNameJSONCharsetUTF8})
}

var _ encoding.Codec = (*protoJson)(nil)

type protoJson struct {
	name string
}

// Marshal implements encoding.Codec.
func (c *protoJson) Marshal(v any) ([]byte, error) {
	vv := encoding.MessageV2Of(v)
	if vv == nil {
		return nil, fmt.Errorf("protojson: failed to marshal, message is %T, want proto.Message", v)
	}
	return protojson.Marshal(vv)
}

// Unmarshal implements encoding.Codec.
func (c *protoJson) Unmarshal(data []byte, v any) error {
	vv := encoding.MessageV2Of(v)
	if vv == nil {
		return fmt.Errorf("protojson: failed to unmarshal, message is %T, want proto.Message", v)
	}
	return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, vv)
}

func (c *protoJson) Name() string {
	return c.name
}
