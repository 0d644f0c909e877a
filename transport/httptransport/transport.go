// Package httptransport is the default transport: one HTTP POST per call,
// over HTTP/1.1 or, with WithH2C, cleartext HTTP/2.
package httptransport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/internal/envelope"
	"github.com/opensraph/grpcweb/internal/headers"
	"github.com/opensraph/grpcweb/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	defaultReadBufferSize = 32 << 10
	discardLimit          = 4 << 20
)

// Transport delivers the response of every request as it is read.
type Transport struct {
	client         *http.Client
	logger         *zap.Logger
	readBufferSize int
}

var _ protocol.Transport = (*Transport)(nil)

type Option func(*Transport)

// WithHTTPClient sends requests with client instead of a fresh http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithH2C speaks HTTP/2 without TLS ("h2c", prior knowledge), as gRPC-Web
// servers behind an h2c listener expect.
func WithH2C() Option {
	return func(t *Transport) {
		t.client = &http.Client{
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				},
			},
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithReadBufferSize sets the largest chunk handed to OnChunk.
func WithReadBufferSize(size int) Option {
	return func(t *Transport) {
		if size > 0 {
			t.readBufferSize = size
		}
	}
}

func New(opts ...Option) *Transport {
	t := &Transport{
		client:         &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		logger:         zap.NewNop(),
		readBufferSize: defaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("http")
	return t
}

// Send starts the exchange on its own goroutine and returns immediately.
func (t *Transport) Send(ctx context.Context, request *protocol.TransportRequest, handler protocol.TransportHandler) {
	go t.roundTrip(ctx, request, handler)
}

// CloseIdleConnections closes connections left open by earlier requests.
func (t *Transport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func (t *Transport) roundTrip(ctx context.Context, request *protocol.TransportRequest, handler protocol.TransportHandler) {
	logger := t.logger
	if !request.Debug {
		logger = zap.NewNop()
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, request.URL, bytes.NewReader(request.Body))
	if err != nil {
		handler.OnEnd(errors.Newf("build request: %w", err).WithCode(errors.Internal))
		return
	}
	httpRequest.Header = headers.ToHTTP(request.Header)

	logger.Debug("request", zap.String("url", request.URL), zap.Int("body", len(request.Body)))
	response, err := t.client.Do(httpRequest)
	if err != nil {
		logger.Debug("request failed", zap.Error(err))
		handler.OnEnd(wrapError(ctx, err, "send request"))
		return
	}
	logger.Debug("response", zap.Int("status", response.StatusCode), zap.String("proto", response.Proto))
	handler.OnHeaders(headers.FromHTTP(response.Header), response.StatusCode)

	if response.StatusCode != http.StatusOK {
		// The status alone decides the call; the body is an error page at best.
		n, _ := discard(response.Body)
		_ = response.Body.Close()
		logger.Debug("discarded response body", zap.Int64("bytes", n))
		handler.OnEnd(nil)
		return
	}

	n, readErr := t.readBody(response.Body, handler)
	closeErr := response.Body.Close()
	if readErr != nil {
		logger.Debug("read failed", zap.Int64("bytes", n), zap.Error(readErr))
		handler.OnEnd(wrapError(ctx, multierr.Append(readErr, closeErr), "read response"))
		return
	}
	// A proxy may forward native HTTP/2 trailers instead of a trailer frame.
	if trailers := headers.FromHTTP(response.Trailer); trailers.Len() > 0 {
		if frame, err := envelope.EncodeTrailers(trailers); err == nil {
			handler.OnChunk(frame)
		}
	}
	logger.Debug("response done", zap.Int64("bytes", n))
	handler.OnEnd(nil)
}

func (t *Transport) readBody(body io.Reader, handler protocol.TransportHandler) (int64, error) {
	buf := make([]byte, t.readBufferSize)
	var total int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			total += int64(n)
			handler.OnChunk(buf[:n])
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// discard drains r so the connection can be reused, giving up after
// discardLimit bytes.
func discard(r io.Reader) (int64, error) {
	if lr, ok := r.(*io.LimitedReader); ok {
		return io.Copy(io.Discard, lr)
	}
	return io.Copy(io.Discard, &io.LimitedReader{R: r, N: discardLimit})
}

func wrapError(ctx context.Context, err error, what string) error {
	err = fmt.Errorf("%s: %w", what, err)
	if ctx.Err() != nil {
		return errors.WrapIfContextDone(ctx, err)
	}
	return errors.FromError(err).WithCode(errors.Unavailable)
}
