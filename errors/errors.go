package errors

import (
	"context"
	"fmt"
	"os"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

const errorFormat = "code = %d desc = %s"

var _ (interface{ Unwrap() error }) = (*Error)(nil)
var _ error = (*Error)(nil)

// Error is the error type used throughout the module. It pairs a Code with
// an underlying error and, for errors that came off the wire, the metadata
// that accompanied them.
type Error struct {
	code    Code
	err     error
	status  *status.Status
	wireErr bool
	meta    metadata.MD
}

func New(text string) *Error {
	return &Error{
		code:   Unknown,
		status: status.New(codes.Unknown, text),
		meta:   metadata.MD{},
	}
}

func Newf(format string, a ...any) *Error {
	err := fmt.Errorf(format, a...)
	return FromError(err)
}

// FromError wraps err with code Unknown. An *Error is returned as is.
func FromError(err error) *Error {
	if e, ok := err.(*Error); ok { //nolint:errorlint // wrapped errors get a new code
		return e
	}
	s, _ := status.FromError(err)
	return &Error{
		code:   Unknown,
		err:    err,
		status: s,
		meta:   metadata.MD{},
	}
}

func AsError(err error) (*Error, bool) {
	var grpcwebErr *Error
	ok := As(err, &grpcwebErr)
	return grpcwebErr, ok
}

func FromProto(s *spb.Status) *Error {
	st := status.FromProto(s)
	return &Error{
		code:   st.Code(),
		err:    st.Err(),
		status: st,
		meta:   metadata.MD{},
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf(errorFormat, e.Code(), e.Message())
}

// Message returns the description without the code prefix.
func (e *Error) Message() string {
	if e.status != nil {
		return e.status.Message()
	}
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

// Unwrap allows [ge.Is] and [ge.As] access to the underlying error.
func (e *Error) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return e.status.Err()
}

func (e *Error) Code() Code {
	if e.code != 0 {
		return e.code
	}
	return e.status.Code()
}

func (e *Error) Details() []any {
	return e.status.Details()
}

// Proto returns the error as a google.rpc.Status message.
func (e *Error) Proto() *spb.Status {
	p := e.status.Proto()
	p.Code = int32(e.Code()) //nolint:gosec // codes fit in int32
	return p
}

func (e *Error) WithCode(code Code) *Error {
	e.code = code
	return e
}

// WithDetails appends the provided details messages to the status. If any
// errors are encountered, it returns the error unchanged and the first error
// encountered.
func (e *Error) WithDetails(details ...protoadapt.MessageV1) (*Error, error) {
	s, err := e.status.WithDetails(details...)
	if err != nil {
		return e, err
	}
	e.status = s
	return e, nil
}

// FromContextError converts a context error or wrapped context error into an
// *Error. Non-context errors are returned with code Unknown.
func FromContextError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if ok := As(err, &e); ok {
		return e
	}
	if Is(err, context.Canceled) {
		return FromError(err).WithCode(Canceled)
	}
	if Is(err, context.DeadlineExceeded) {
		return FromError(err).WithCode(DeadlineExceeded)
	}
	// Ick, some dial errors can be returned as os.ErrDeadlineExceeded
	// instead of context.DeadlineExceeded :(
	// https://github.com/golang/go/issues/64449
	if Is(err, os.ErrDeadlineExceeded) {
		return FromError(err).WithCode(DeadlineExceeded)
	}
	return FromError(err).WithCode(Unknown)
}
