package grpcweb

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/opensraph/grpcweb/compress"
	"github.com/opensraph/grpcweb/debug"
	"github.com/opensraph/grpcweb/encoding"
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/internal/envelope"
	"github.com/opensraph/grpcweb/internal/headers"
	"github.com/opensraph/grpcweb/protocol"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

/* Call lifecycle

   Idle ──Invoke──▶ Sent ──Send──▶ AwaitingHeaders ──headers(OK)──▶ Streaming
                                        │                              │
                                        │ headers(!OK), end, error     │ end, parse error
                                        ▼                              ▼
                                    Completed ◀────────────────────────┘

   Nothing leaves Completed; events that arrive afterwards are dropped.
*/

type callState uint8

const (
	stateIdle callState = iota
	stateSent
	stateAwaitingHeaders
	stateStreaming
	stateCompleted
)

func (s callState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSent:
		return "sent"
	case stateAwaitingHeaders:
		return "awaiting_headers"
	case stateStreaming:
		return "streaming"
	case stateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state_%d", s)
}

const (
	msgClosedWithoutHeaders     = "Response closed without headers"
	msgHeadersOnlyWithoutStatus = "Response closed without grpc-status (Headers only)"
	msgTrailersWithoutStatus    = "Response closed without grpc-status (Trailers provided)"
)

// Call is one in-flight invocation. Its fields are only touched on the
// client's event loop once the request has been handed to the transport.
type Call struct {
	id       uint64
	client   *Client
	method   *protocol.MethodDesc
	codec    encoding.Codec
	opts     InvokeOptions
	logger   *zap.Logger
	dispatch *debug.Dispatch
	cancel   context.CancelFunc
	done     chan struct{}

	state               callState
	decoder             *envelope.Decoder
	responseHeaders     metadata.MD
	responseTrailers    metadata.MD
	responseCompression *compress.CompressionPool
}

// ID returns the call id, unique for the life of the client.
func (c *Call) ID() uint64 {
	return c.id
}

// Done is closed once OnEnd has returned.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Cancel aborts the exchange. The call ends with Canceled unless it already
// resolved.
func (c *Call) Cancel() {
	c.cancel()
}

// callHandler moves transport events onto the event loop.
type callHandler struct {
	call *Call
}

var _ protocol.TransportHandler = callHandler{}

func (h callHandler) OnHeaders(header metadata.MD, status int) {
	h.call.client.loop.Post(func() { h.call.onHeaders(header, status) })
}

func (h callHandler) OnChunk(chunk []byte) {
	chunk = bytes.Clone(chunk)
	h.call.client.loop.Post(func() { h.call.onChunk(chunk) })
}

func (h callHandler) OnEnd(err error) {
	h.call.client.loop.Post(func() { h.call.onEnd(err) })
}

func (c *Call) onHeaders(header metadata.MD, status int) {
	if c.state == stateCompleted {
		return
	}
	c.dispatch.OnResponseHeaders(header, status)

	if status != 0 {
		c.responseHeaders = header
	}
	if code := errors.HttpToCode(status); code != errors.OK {
		// A grpc-status header sent by the server wins over the HTTP status.
		if grpcCode, ok, err := statusFrom(header); ok && err == nil && grpcCode != errors.OK {
			code = grpcCode
		}
		c.fail(code, grpcMessage(header), metadata.MD{},
			errors.Newf("HTTP status %d", status).WithCode(code))
		return
	}

	c.state = stateStreaming
	if name := headers.Get(header, headers.GRPCHeaderCompression); name != "" {
		c.responseCompression = c.client.compressors.Get(name)
	}
	if onHeaders := c.opts.OnHeaders; onHeaders != nil {
		c.client.loop.Post(func() { onHeaders(header) })
	}
}

func (c *Call) onChunk(chunk []byte) {
	if c.state == stateCompleted {
		return
	}
	frames, err := c.decoder.Decode(chunk)
	if err != nil {
		c.fail(errors.Internal, "parsing error: "+errorMessage(err), metadata.MD{}, err)
		return
	}
	c.dispatch.OnResponseChunk(frames, chunk)

	for _, frame := range frames {
		switch frame := frame.(type) {
		case *protocol.MessageFrame:
			message, err := c.unmarshal(frame)
			if err != nil {
				c.fail(errors.Internal, errorMessage(err), metadata.MD{}, err)
				return
			}
			c.dispatch.OnResponseMessage(message)
			if onMessage := c.opts.OnMessage; onMessage != nil {
				c.client.loop.Post(func() { onMessage(message) })
			}
		case *protocol.TrailersFrame:
			c.responseTrailers = frame.Trailers
			c.dispatch.OnResponseTrailers(frame.Trailers)
		}
	}
}

func (c *Call) unmarshal(frame *protocol.MessageFrame) (any, error) {
	payload := frame.Payload
	if frame.Compressed {
		if c.responseCompression == nil {
			return nil, errors.New(
				"protocol error: received compressed message without a supported grpc-encoding",
			).WithCode(errors.Internal)
		}
		decompressed, err := c.responseCompression.Decompress(payload, int64(c.client.opts.readMaxBytes))
		if err != nil {
			return nil, err
		}
		payload = decompressed
	}
	message := c.method.NewResponse()
	if err := c.codec.Unmarshal(payload, message); err != nil {
		return nil, errors.Newf("unmarshal message: %w", err).WithCode(errors.Internal)
	}
	return message, nil
}

func (c *Call) onEnd(err error) {
	if c.state == stateCompleted {
		return
	}
	if err != nil {
		c.fail(transportErrorCode(err), errorMessage(err), metadata.MD{}, err)
		return
	}
	if err := c.decoder.Close(); err != nil {
		c.fail(errors.Internal, "parsing error: "+errorMessage(err), metadata.MD{}, err)
		return
	}

	if c.responseTrailers == nil {
		if c.responseHeaders == nil {
			c.fail(errors.Internal, msgClosedWithoutHeaders, metadata.MD{}, nil)
			return
		}
		// A trailers-only response: the status travels in the headers.
		c.resolveFrom(c.responseHeaders, msgHeadersOnlyWithoutStatus, c.responseHeaders)
		return
	}
	c.resolveFrom(c.responseTrailers, msgTrailersWithoutStatus, metadata.MD{})
}

// resolveFrom ends the call with the status carried by md. missingTrailers
// are reported to OnEnd when md has no status.
func (c *Call) resolveFrom(md metadata.MD, missing string, missingTrailers metadata.MD) {
	code, ok, err := statusFrom(md)
	switch {
	case !ok:
		c.fail(errors.Internal, missing, missingTrailers, nil)
	case err != nil:
		c.fail(errors.Unknown, errorMessage(err), missingTrailers, err)
	default:
		c.succeed(code, grpcMessage(md), md)
	}
}

// succeed ends the call with a status sent by the server.
func (c *Call) succeed(code errors.Code, message string, trailers metadata.MD) {
	if !c.complete() {
		return
	}
	c.logger.Debug("call finished", zap.Stringer("code", code))
	c.dispatch.OnResponseEnd(code, message)
	c.end(code, message, trailers)
}

// fail ends the call with a status of its own making. cause defaults to an
// error built from code and message.
func (c *Call) fail(code errors.Code, message string, trailers metadata.MD, cause error) {
	if !c.complete() {
		return
	}
	if cause == nil {
		cause = errors.New(message).WithCode(code)
	}
	c.logger.Debug("call failed", zap.Stringer("code", code), zap.Error(cause))
	c.dispatch.OnError(code, cause)
	c.end(code, message, trailers)
}

// complete flips the call to Completed, reporting whether this was the
// first time.
func (c *Call) complete() bool {
	if c.state == stateCompleted {
		return false
	}
	c.state = stateCompleted
	c.decoder = nil
	c.cancel()
	return true
}

func (c *Call) end(code errors.Code, message string, trailers metadata.MD) {
	onEnd := c.opts.OnEnd
	c.client.loop.Post(func() {
		defer close(c.done)
		onEnd(code, message, trailers)
	})
}

// statusFrom reads grpc-status from md. ok is false when it is absent.
func statusFrom(md metadata.MD) (code errors.Code, ok bool, err error) {
	raw, ok := headers.Lookup(md, headers.GRPCHeaderStatus)
	if !ok {
		return 0, false, nil
	}
	n, parseErr := strconv.ParseUint(raw, 10 /* base */, 32 /* bitsize */)
	if parseErr != nil {
		return 0, true, errors.Newf("protocol error: invalid grpc-status %q", raw).WithCode(errors.Unknown)
	}
	return errors.Code(n), true, nil
}

func grpcMessage(md metadata.MD) string {
	raw := headers.Get(md, headers.GRPCHeaderMessage)
	if decoded, err := headers.PercentDecode(raw); err == nil {
		return decoded
	}
	return raw
}

// transportErrorCode classifies an error that ended the exchange.
func transportErrorCode(err error) errors.Code {
	if coded, ok := errors.AsError(err); ok {
		return coded.Code()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return errors.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return errors.DeadlineExceeded
	}
	return errors.Internal
}

func errorMessage(err error) string {
	if coded, ok := errors.AsError(err); ok {
		return coded.Message()
	}
	return err.Error()
}
