package protocol

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	// ProtocolGRPCWeb is the name of the wire protocol spoken by this module.
	ProtocolGRPCWeb = "grpcweb"

	ContentTypeDefault = "application/grpc-web"
	ContentTypePrefix  = ContentTypeDefault + "+"
)

// TransportRequest is a fully framed request, ready for the network.
type TransportRequest struct {
	URL    string
	Header metadata.MD
	Body   []byte
	// Debug asks the transport to log what it does.
	Debug bool
}

// TransportHandler receives the events of one exchange. For a single request
// a transport calls OnHeaders at most once, then OnChunk any number of times,
// then OnEnd exactly once. A transport that could not reach the server either
// calls OnHeaders with status 0 or skips it and reports the cause to OnEnd.
//
// Handlers supplied by the engine may be called from any goroutine, and the
// chunk slice may be reused once OnChunk returns.
type TransportHandler interface {
	OnHeaders(header metadata.MD, status int)
	OnChunk(chunk []byte)
	// OnEnd reports the end of the exchange. A non-nil error means the
	// exchange failed (or was canceled through its context).
	OnEnd(err error)
}

// A Transport issues the HTTP exchange for one invocation. Send must not
// block on the network: events are delivered to the handler later, from
// whatever goroutine the transport likes. Cancelling ctx must end the
// exchange with OnEnd.
type Transport interface {
	Send(ctx context.Context, request *TransportRequest, handler TransportHandler)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, request *TransportRequest, handler TransportHandler)

func (f TransportFunc) Send(ctx context.Context, request *TransportRequest, handler TransportHandler) {
	f(ctx, request, handler)
}

// ContentTypeFromCodecName returns the request content-type for a codec.
func ContentTypeFromCodecName(name string) string {
	return ContentTypePrefix + name
}
