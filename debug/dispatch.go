package debug

import (
	"fmt"

	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

// Scheduler runs tasks later, one at a time, in the order they were posted.
// *eventloop.Loop implements it.
type Scheduler interface {
	Post(task func())
}

// hooks caches the capabilities of one debugger.
type hooks struct {
	Debugger
	requestHeaders   RequestHeadersObserver
	requestMessage   RequestMessageObserver
	responseHeaders  ResponseHeadersObserver
	responseChunk    ResponseChunkObserver
	responseMessage  ResponseMessageObserver
	responseTrailers ResponseTrailersObserver
}

func newHooks(d Debugger) hooks {
	h := hooks{Debugger: d}
	h.requestHeaders, _ = d.(RequestHeadersObserver)
	h.requestMessage, _ = d.(RequestMessageObserver)
	h.responseHeaders, _ = d.(ResponseHeadersObserver)
	h.responseChunk, _ = d.(ResponseChunkObserver)
	h.responseMessage, _ = d.(ResponseMessageObserver)
	h.responseTrailers, _ = d.(ResponseTrailersObserver)
	return h
}

// Dispatch broadcasts the events of one call to its debuggers.
type Dispatch struct {
	scheduler Scheduler
	logger    *zap.Logger
	hooks     []hooks
}

// NewDispatch returns a Dispatch for debuggers, in order. A nil logger
// discards panic reports.
func NewDispatch(scheduler Scheduler, debuggers []Debugger, logger *zap.Logger) *Dispatch {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatch{
		scheduler: scheduler,
		logger:    logger,
		hooks:     make([]hooks, 0, len(debuggers)),
	}
	for _, dbg := range debuggers {
		if dbg != nil {
			d.hooks = append(d.hooks, newHooks(dbg))
		}
	}
	return d
}

// Len returns the number of debuggers.
func (d *Dispatch) Len() int {
	return len(d.hooks)
}

func (d *Dispatch) OnRequestStart(host string, method *protocol.MethodDesc) {
	for i, h := range d.hooks {
		d.post("request-start", i, func() { h.OnRequestStart(host, method) })
	}
}

func (d *Dispatch) OnRequestHeaders(header metadata.MD) {
	for i, h := range d.hooks {
		if h.requestHeaders != nil {
			d.post("request-headers", i, func() { h.requestHeaders.OnRequestHeaders(header) })
		}
	}
}

func (d *Dispatch) OnRequestMessage(message any) {
	for i, h := range d.hooks {
		if h.requestMessage != nil {
			d.post("request-message", i, func() { h.requestMessage.OnRequestMessage(message) })
		}
	}
}

func (d *Dispatch) OnResponseHeaders(header metadata.MD, httpStatus int) {
	for i, h := range d.hooks {
		if h.responseHeaders != nil {
			d.post("response-headers", i, func() { h.responseHeaders.OnResponseHeaders(header, httpStatus) })
		}
	}
}

func (d *Dispatch) OnResponseChunk(frames []protocol.Frame, raw []byte) {
	for i, h := range d.hooks {
		if h.responseChunk != nil {
			d.post("response-chunk", i, func() { h.responseChunk.OnResponseChunk(frames, raw) })
		}
	}
}

func (d *Dispatch) OnResponseMessage(message any) {
	for i, h := range d.hooks {
		if h.responseMessage != nil {
			d.post("response-message", i, func() { h.responseMessage.OnResponseMessage(message) })
		}
	}
}

func (d *Dispatch) OnResponseTrailers(trailers metadata.MD) {
	for i, h := range d.hooks {
		if h.responseTrailers != nil {
			d.post("response-trailers", i, func() { h.responseTrailers.OnResponseTrailers(trailers) })
		}
	}
}

func (d *Dispatch) OnResponseEnd(code errors.Code, message string) {
	for i, h := range d.hooks {
		d.post("response-end", i, func() { h.OnResponseEnd(code, message) })
	}
}

func (d *Dispatch) OnError(code errors.Code, err error) {
	for i, h := range d.hooks {
		d.post("error", i, func() { h.OnError(code, err) })
	}
}

func (d *Dispatch) post(event string, index int, fn func()) {
	d.scheduler.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("debugger panicked",
					zap.String("event", event),
					zap.Int("debugger", index),
					zap.String("panic", fmt.Sprint(r)),
				)
			}
		}()
		fn()
	})
}
