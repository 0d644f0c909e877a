package debug

import (
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
	"golang.org/x/net/trace"
	"google.golang.org/grpc/metadata"
)

// TraceProvider records every call as a golang.org/x/net/trace Trace, shown
// on /debug/requests.
type TraceProvider struct {
	family   string
	newTrace func(family, title string) trace.Trace
}

// NewTraceProvider groups traces under family ("grpcweb.client" if empty).
func NewTraceProvider(family string) *TraceProvider {
	if family == "" {
		family = "grpcweb.client"
	}
	return &TraceProvider{family: family, newTrace: trace.New}
}

func (p *TraceProvider) DebuggerFor(uint64) Debugger {
	return &traceDebugger{family: p.family, newTrace: p.newTrace}
}

type traceDebugger struct {
	family   string
	newTrace func(family, title string) trace.Trace
	tr       trace.Trace
}

func (d *traceDebugger) OnRequestStart(host string, method *protocol.MethodDesc) {
	d.tr = d.newTrace(d.family, method.Procedure())
	d.tr.LazyPrintf("Request: %s%s", host, method.Procedure())
}

func (d *traceDebugger) OnResponseHeaders(header metadata.MD, httpStatus int) {
	if d.tr != nil {
		d.tr.LazyPrintf("Headers: HTTP %d, %d keys", httpStatus, header.Len())
	}
}

func (d *traceDebugger) OnResponseMessage(message any) {
	if d.tr != nil {
		d.tr.LazyPrintf("Message: %T", message)
	}
}

func (d *traceDebugger) OnResponseEnd(code errors.Code, message string) {
	if d.tr == nil {
		return
	}
	d.tr.LazyPrintf("Status: %s %s", code, message)
	if code != errors.OK {
		d.tr.SetError()
	}
	d.tr.Finish()
	d.tr = nil
}

func (d *traceDebugger) OnError(code errors.Code, err error) {
	if d.tr == nil {
		return
	}
	d.tr.LazyPrintf("%s: %s", code, err)
	d.tr.SetError()
	d.tr.Finish()
	d.tr = nil
}
