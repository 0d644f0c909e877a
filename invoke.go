package grpcweb

import (
	"context"
	"time"

	"github.com/opensraph/grpcweb/debug"
	"github.com/opensraph/grpcweb/encoding"
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/internal/envelope"
	"github.com/opensraph/grpcweb/internal/headers"
	"github.com/opensraph/grpcweb/protocol"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

// InvokeOptions describe one streaming call.
type InvokeOptions struct {
	// Host is the base URL of the server, for example "https://example.com".
	Host    string
	Request any
	// Metadata is sent as request headers. It is copied.
	Metadata metadata.MD

	// OnHeaders receives the response headers of a successful HTTP response.
	OnHeaders func(header metadata.MD)
	// OnMessage receives every response message, in order.
	OnMessage func(message any)
	// OnEnd is called exactly once with the final status of the call. It is
	// required.
	OnEnd func(code errors.Code, message string, trailers metadata.MD)

	// Transport overrides the client's transport for this call.
	Transport protocol.Transport
	// Debug sets the debug flag of the transport request.
	Debug bool
}

// Invoke starts a call of method and returns once the request has been
// handed to the transport. Results arrive through the callbacks in opts, on
// the client's event loop.
//
// Invoke only returns an error for requests it cannot send; every failure
// after that is reported to OnEnd. Cancelling ctx (or the returned Call)
// ends the call with code Canceled.
func (c *Client) Invoke(ctx context.Context, method *protocol.MethodDesc, opts InvokeOptions) (*Call, error) {
	return c.invoke(ctx, method, opts)
}

func (c *Client) start(ctx context.Context, method *protocol.MethodDesc, opts InvokeOptions) (*Call, error) {
	if method == nil {
		return nil, errors.New("grpcweb: nil method").WithCode(errors.InvalidArgument)
	}
	if opts.OnEnd == nil {
		return nil, errors.Newf("grpcweb: %s: OnEnd is required", method.Procedure()).WithCode(errors.InvalidArgument)
	}
	if method.NewResponse == nil {
		return nil, errors.Newf("grpcweb: %s: method has no response type", method.Procedure()).WithCode(errors.InvalidArgument)
	}
	codec := method.Codec
	if codec == nil {
		codec = c.opts.codec
	}

	body, err := c.frameRequest(codec, opts.Request)
	if err != nil {
		return nil, err
	}
	header := c.requestHeader(ctx, codec, opts.Metadata)

	id := c.nextCallID()
	logger := c.logger.With(zap.Uint64("call", id), zap.String("method", method.Procedure()))
	dispatch := debug.NewDispatch(c.loop, c.registry.DebuggersFor(id), c.logger)

	ctx, cancel := context.WithCancel(ctx)
	call := &Call{
		id:       id,
		client:   c,
		method:   method,
		codec:    codec,
		opts:     opts,
		logger:   logger,
		dispatch: dispatch,
		decoder:  &envelope.Decoder{ReadMaxBytes: c.opts.readMaxBytes},
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    stateSent,
	}

	transport := opts.Transport
	if transport == nil {
		transport = c.transport
	}
	request := &protocol.TransportRequest{
		URL:    opts.Host + "/" + method.ServiceName + "/" + method.MethodName,
		Header: header,
		Body:   body,
		Debug:  opts.Debug || c.opts.debug,
	}

	dispatch.OnRequestStart(opts.Host, method)
	dispatch.OnRequestHeaders(header)
	dispatch.OnRequestMessage(opts.Request)

	logger.Debug("sending request", zap.String("url", request.URL), zap.Int("body", len(body)))
	call.state = stateAwaitingHeaders
	transport.Send(ctx, request, callHandler{call: call})
	return call, nil
}

func (c *Client) frameRequest(codec encoding.Codec, request any) ([]byte, error) {
	data, err := codec.Marshal(request)
	if err != nil {
		return nil, errors.Newf("marshal message: %w", err).WithCode(errors.Internal)
	}
	if name := c.opts.sendCompression; name != "" {
		pool := c.compressors.Get(name)
		if pool == nil {
			return nil, errors.Newf("unknown send compression %q", name).WithCode(errors.Internal)
		}
		compressed, err := pool.Compress(data)
		if err != nil {
			return nil, err
		}
		return envelope.EncodeFlags(envelope.FlagCompressed, compressed)
	}
	return envelope.Encode(data)
}

func (c *Client) requestHeader(ctx context.Context, codec encoding.Codec, md metadata.MD) metadata.MD {
	header := metadata.MD{}
	headers.Merge(header, md)
	headers.Set(header, headers.HeaderContentType, protocol.ContentTypeFromCodecName(codec.Name()))
	headers.Set(header, headers.HeaderXGRPCWeb, "1")
	if c.opts.userAgent != "" {
		headers.Set(header, headers.HeaderXUserAgent, c.opts.userAgent)
	}
	if names := c.compressors.CommaSeparatedNames(); names != "" {
		headers.Set(header, headers.GRPCHeaderAcceptCompression, names)
	}
	if c.opts.sendCompression != "" {
		headers.Set(header, headers.GRPCHeaderCompression, c.opts.sendCompression)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if timeout := headers.EncodeTimeout(time.Until(deadline)); timeout != "" {
			headers.Set(header, headers.GRPCHeaderTimeout, timeout)
		}
	}
	return header
}
