// Package debug fans the lifecycle events of a call out to debuggers.
//
// Every call asks each registered Provider for one Debugger. A Debugger must
// implement the three required hooks; the remaining hooks are optional and
// detected by type assertion, once per Debugger. All hooks run as separate
// tasks on the client's event loop, after the engine code that raised them
// has returned, and a panicking hook never affects the call or the other
// debuggers.
package debug

import (
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
	"google.golang.org/grpc/metadata"
)

// Debugger observes one call.
type Debugger interface {
	OnRequestStart(host string, method *protocol.MethodDesc)
	// OnResponseEnd is raised when the call resolves with a status taken
	// from the response.
	OnResponseEnd(code errors.Code, message string)
	// OnError is raised when the call fails without a usable status from
	// the response (transport failure, parse failure, missing status).
	OnError(code errors.Code, err error)
}

type RequestHeadersObserver interface {
	OnRequestHeaders(header metadata.MD)
}

type RequestMessageObserver interface {
	OnRequestMessage(message any)
}

type ResponseHeadersObserver interface {
	OnResponseHeaders(header metadata.MD, httpStatus int)
}

// ResponseChunkObserver receives every chunk of the response body together
// with the frames it completed.
type ResponseChunkObserver interface {
	OnResponseChunk(frames []protocol.Frame, raw []byte)
}

type ResponseMessageObserver interface {
	OnResponseMessage(message any)
}

type ResponseTrailersObserver interface {
	OnResponseTrailers(trailers metadata.MD)
}

// Provider yields the Debugger for one call. Returning nil opts out of that
// call.
type Provider interface {
	DebuggerFor(callID uint64) Debugger
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(callID uint64) Debugger

func (f ProviderFunc) DebuggerFor(callID uint64) Debugger {
	return f(callID)
}
