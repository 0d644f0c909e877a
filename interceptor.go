package grpcweb

import (
	"context"

	"github.com/opensraph/grpcweb/protocol"
)

// InvokeFunc is the signature of Client.Invoke. Interceptors wrap
// InvokeFuncs.
type InvokeFunc func(ctx context.Context, method *protocol.MethodDesc, opts InvokeOptions) (*Call, error)

// An Interceptor adds logic to every call of a client: it may rewrite the
// options (metadata, host, transport), wrap the callbacks, or refuse the
// call by returning an error.
//
// Wrapped callbacks run on the client's event loop.
type Interceptor interface {
	WrapInvoke(next InvokeFunc) InvokeFunc
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(next InvokeFunc) InvokeFunc

func (f InterceptorFunc) WrapInvoke(next InvokeFunc) InvokeFunc {
	return f(next)
}

// Chain composes interceptors so that the first one runs first.
func Chain(interceptors ...Interceptor) Interceptor {
	// We usually wrap in reverse order to have the first interceptor from
	// the slice act first. Rather than doing this dance repeatedly, reverse the
	// interceptor order now.
	var chain chain
	for i := len(interceptors) - 1; i >= 0; i-- {
		if interceptor := interceptors[i]; interceptor != nil {
			chain.interceptors = append(chain.interceptors, interceptor)
		}
	}
	return &chain
}

// A chain composes multiple interceptors into one.
type chain struct {
	interceptors []Interceptor
}

func (c *chain) WrapInvoke(next InvokeFunc) InvokeFunc {
	for _, interceptor := range c.interceptors {
		next = interceptor.WrapInvoke(next)
	}
	return next
}
