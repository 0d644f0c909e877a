package debug

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

// LogProvider keeps a record of every call and logs it when the call ends.
type LogProvider struct {
	logger *zap.Logger
}

// NewLogProvider logs to logger, which may be nil.
func NewLogProvider(logger *zap.Logger) *LogProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogProvider{logger: logger.Named("debug")}
}

func (p *LogProvider) DebuggerFor(callID uint64) Debugger {
	return &logDebugger{
		logger: p.logger.With(zap.Uint64("call", callID)),
	}
}

type logDebugger struct {
	logger *zap.Logger

	start           time.Time
	host            string
	procedure       string
	requestHeaders  metadata.MD
	responseHeaders metadata.MD
	httpStatus      int
	trailers        metadata.MD
	messages        int
	chunks          int
	received        uint64
}

var (
	_ RequestHeadersObserver   = (*logDebugger)(nil)
	_ ResponseHeadersObserver  = (*logDebugger)(nil)
	_ ResponseChunkObserver    = (*logDebugger)(nil)
	_ ResponseMessageObserver  = (*logDebugger)(nil)
	_ ResponseTrailersObserver = (*logDebugger)(nil)
)

func (d *logDebugger) OnRequestStart(host string, method *protocol.MethodDesc) {
	d.start = time.Now()
	d.host = host
	d.procedure = method.Procedure()
	d.logger.Debug("request start",
		zap.String("host", host),
		zap.String("method", d.procedure),
		zap.Stringer("stream", method.StreamType()),
	)
}

func (d *logDebugger) OnRequestHeaders(header metadata.MD) {
	d.requestHeaders = header
	d.logger.Debug("request headers", zap.Any("headers", header))
}

func (d *logDebugger) OnResponseHeaders(header metadata.MD, httpStatus int) {
	d.responseHeaders = header
	d.httpStatus = httpStatus
	d.logger.Debug("response headers", zap.Int("http_status", httpStatus), zap.Any("headers", header))
}

func (d *logDebugger) OnResponseChunk(frames []protocol.Frame, raw []byte) {
	d.chunks++
	d.received += uint64(len(raw))
	d.logger.Debug("response chunk",
		zap.String("size", humanize.Bytes(uint64(len(raw)))),
		zap.Int("frames", len(frames)),
	)
}

func (d *logDebugger) OnResponseMessage(message any) {
	d.messages++
	d.logger.Debug("response message", zap.Int("index", d.messages))
}

func (d *logDebugger) OnResponseTrailers(trailers metadata.MD) {
	d.trailers = trailers
	d.logger.Debug("response trailers", zap.Any("trailers", trailers))
}

func (d *logDebugger) OnResponseEnd(code errors.Code, message string) {
	d.logger.Info("call finished", d.summary(code, message)...)
}

func (d *logDebugger) OnError(code errors.Code, err error) {
	d.logger.Warn("call failed", append(d.summary(code, ""), zap.Error(err))...)
}

func (d *logDebugger) summary(code errors.Code, message string) []zap.Field {
	fields := []zap.Field{
		zap.String("host", d.host),
		zap.String("method", d.procedure),
		zap.Stringer("code", code),
		zap.Int("http_status", d.httpStatus),
		zap.Int("messages", d.messages),
		zap.Int("chunks", d.chunks),
		zap.String("received", humanize.Bytes(d.received)),
	}
	if message != "" {
		fields = append(fields, zap.String("message", message))
	}
	if d.trailers != nil {
		fields = append(fields, zap.Any("trailers", d.trailers))
	}
	if !d.start.IsZero() {
		fields = append(fields, zap.Duration("elapsed", time.Since(d.start)))
	}
	return fields
}
