package protocol

import (
	"github.com/opensraph/grpcweb/encoding"
)

// MethodDesc describes one RPC. Generated code (or the CLI, from parsed
// .proto files) supplies one per method; the engine never mutates it.
type MethodDesc struct {
	ServiceName    string // for example, "examplecom.library.BookService"
	MethodName     string // for example, "GetBook"
	RequestStream  bool
	ResponseStream bool

	// NewResponse allocates an empty response message for the codec to
	// deserialize into.
	NewResponse func() any

	// Codec overrides the client's default codec for this method.
	Codec encoding.Codec
}

// Procedure returns the path of the method, "/Service/Method".
func (m *MethodDesc) Procedure() string {
	return "/" + m.ServiceName + "/" + m.MethodName
}

func (m *MethodDesc) StreamType() StreamType {
	var s StreamType
	if m.RequestStream {
		s |= StreamTypeClient
	}
	if m.ResponseStream {
		s |= StreamTypeServer
	}
	return s
}
