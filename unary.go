package grpcweb

import (
	"context"

	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
	"google.golang.org/grpc/metadata"
)

// UnaryOptions describe one unary call.
type UnaryOptions struct {
	Host     string
	Request  any
	Metadata metadata.MD
	// OnEnd receives the result. It is required.
	OnEnd     func(output *UnaryOutput)
	Transport protocol.Transport
	Debug     bool
}

// UnaryOutput is the result of a unary call.
type UnaryOutput struct {
	Status        errors.Code
	StatusMessage string
	// Headers is empty, never nil, when no headers were received.
	Headers metadata.MD
	// Message is nil when the server sent no message.
	Message  any
	Trailers metadata.MD
}

// Err returns nil for OK, otherwise an *errors.Error carrying the status,
// the trailers and any details from grpc-status-details-bin.
func (o *UnaryOutput) Err() error {
	return errors.FromTrailers(o.Status, o.StatusMessage, o.Trailers)
}

// Unary starts a call of a method whose response is not streamed.
func (c *Client) Unary(ctx context.Context, method *protocol.MethodDesc, opts UnaryOptions) (*Call, error) {
	if method == nil {
		return nil, errors.New("grpcweb: nil method").WithCode(errors.InvalidArgument)
	}
	if method.ResponseStream {
		return nil, errors.Newf(
			"grpcweb: %s is a server streaming method, use Invoke", method.Procedure(),
		).WithCode(errors.InvalidArgument)
	}
	if opts.OnEnd == nil {
		return nil, errors.Newf("grpcweb: %s: OnEnd is required", method.Procedure()).WithCode(errors.InvalidArgument)
	}

	var (
		responseHeaders metadata.MD
		responseMessage any
	)
	return c.Invoke(ctx, method, InvokeOptions{
		Host:     opts.Host,
		Request:  opts.Request,
		Metadata: opts.Metadata,
		OnHeaders: func(header metadata.MD) {
			responseHeaders = header
		},
		OnMessage: func(message any) {
			responseMessage = message
		},
		OnEnd: func(code errors.Code, message string, trailers metadata.MD) {
			if responseHeaders == nil {
				responseHeaders = metadata.MD{}
			}
			opts.OnEnd(&UnaryOutput{
				Status:        code,
				StatusMessage: message,
				Headers:       responseHeaders,
				Message:       responseMessage,
				Trailers:      trailers,
			})
		},
		Transport: opts.Transport,
		Debug:     opts.Debug,
	})
}

// Do performs a unary call and waits for its result. Some goroutine other
// than the caller must be running the client's loop.
func (c *Client) Do(ctx context.Context, method *protocol.MethodDesc, host string, request any, md metadata.MD) (*UnaryOutput, error) {
	result := make(chan *UnaryOutput, 1)
	call, err := c.Unary(ctx, method, UnaryOptions{
		Host:     host,
		Request:  request,
		Metadata: md,
		OnEnd: func(output *UnaryOutput) {
			result <- output
		},
	})
	if err != nil {
		return nil, err
	}
	select {
	case output := <-result:
		return output, nil
	case <-ctx.Done():
		call.Cancel()
		return nil, errors.FromContextError(ctx.Err())
	}
}
