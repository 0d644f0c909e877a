package grpcweb_test

import (
	"context"
	"sync"
	"testing"

	"github.com/opensraph/grpcweb"
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/eventloop"
	"github.com/opensraph/grpcweb/internal/envelope"
	"github.com/opensraph/grpcweb/protocol"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	sayMethod = &protocol.MethodDesc{
		ServiceName: "test.Echo",
		MethodName:  "Say",
		NewResponse: func() any { return &wrapperspb.StringValue{} },
	}
	sayManyMethod = &protocol.MethodDesc{
		ServiceName:    "test.Echo",
		MethodName:     "SayMany",
		ResponseStream: true,
		NewResponse:    func() any { return &wrapperspb.StringValue{} },
	}
)

// fakeTransport records requests. Tests play the server by calling the
// recorded handlers.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []*protocol.TransportRequest
	handlers []protocol.TransportHandler
	ctxs     []context.Context
	onSend   func(ctx context.Context, req *protocol.TransportRequest, h protocol.TransportHandler)
}

func (f *fakeTransport) Send(ctx context.Context, req *protocol.TransportRequest, h protocol.TransportHandler) {
	f.mu.Lock()
	f.sent = append(f.sent, req)
	f.handlers = append(f.handlers, h)
	f.ctxs = append(f.ctxs, ctx)
	onSend := f.onSend
	f.mu.Unlock()
	if onSend != nil {
		onSend(ctx, req, h)
	}
}

func (f *fakeTransport) last(t *testing.T) (*protocol.TransportRequest, protocol.TransportHandler, context.Context) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "nothing was sent")
	n := len(f.sent) - 1
	return f.sent[n], f.handlers[n], f.ctxs[n]
}

type ending struct {
	code     errors.Code
	message  string
	trailers metadata.MD
}

// recording collects the callbacks of one call.
type recording struct {
	headers  []metadata.MD
	messages []string
	ends     []ending
}

func (r *recording) options() grpcweb.InvokeOptions {
	return grpcweb.InvokeOptions{
		Host:    "https://example.com",
		Request: wrapperspb.String("hi"),
		OnHeaders: func(md metadata.MD) {
			r.headers = append(r.headers, md)
		},
		OnMessage: func(message any) {
			r.messages = append(r.messages, message.(*wrapperspb.StringValue).GetValue())
		},
		OnEnd: func(code errors.Code, message string, trailers metadata.MD) {
			r.ends = append(r.ends, ending{code, message, trailers})
		},
	}
}

func (r *recording) only(t *testing.T) ending {
	t.Helper()
	require.Len(t, r.ends, 1, "OnEnd must fire exactly once")
	return r.ends[0]
}

type harness struct {
	loop      *eventloop.Loop
	transport *fakeTransport
	client    *grpcweb.Client
}

func newHarness(opts ...grpcweb.ClientOption) *harness {
	h := &harness{
		loop:      eventloop.New(),
		transport: &fakeTransport{},
	}
	h.client = grpcweb.NewClient(append([]grpcweb.ClientOption{
		grpcweb.WithLoop(h.loop),
		grpcweb.WithTransport(h.transport),
	}, opts...)...)
	return h
}

// invoke starts a call of method and returns its recording and the handler
// that feeds it.
func (h *harness) invoke(t *testing.T, method *protocol.MethodDesc) (*grpcweb.Call, *recording, protocol.TransportHandler) {
	t.Helper()
	rec := &recording{}
	call, err := h.client.Invoke(context.Background(), method, rec.options())
	require.NoError(t, err)
	_, handler, _ := h.transport.last(t)
	return call, rec, handler
}

func messageFrame(t *testing.T, value string) []byte {
	t.Helper()
	data, err := proto.Marshal(wrapperspb.String(value))
	require.NoError(t, err)
	frame, err := envelope.Encode(data)
	require.NoError(t, err)
	return frame
}

func trailerFrame(t *testing.T, kv ...string) []byte {
	t.Helper()
	frame, err := envelope.EncodeTrailers(metadata.Pairs(kv...))
	require.NoError(t, err)
	return frame
}

func okHeaders() metadata.MD {
	return metadata.Pairs("content-type", protocol.ContentTypeDefault)
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
