package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a protocol-level status code. It shares its numbering with gRPC.
type Code = codes.Code

const (
	OK                 Code = codes.OK
	Canceled           Code = codes.Canceled
	Unknown            Code = codes.Unknown
	InvalidArgument    Code = codes.InvalidArgument
	DeadlineExceeded   Code = codes.DeadlineExceeded
	NotFound           Code = codes.NotFound
	AlreadyExists      Code = codes.AlreadyExists
	PermissionDenied   Code = codes.PermissionDenied
	ResourceExhausted  Code = codes.ResourceExhausted
	FailedPrecondition Code = codes.FailedPrecondition
	Aborted            Code = codes.Aborted
	OutOfRange         Code = codes.OutOfRange
	Unimplemented      Code = codes.Unimplemented
	Internal           Code = codes.Internal
	Unavailable        Code = codes.Unavailable
	DataLoss           Code = codes.DataLoss
	Unauthenticated    Code = codes.Unauthenticated
)

// statusClientClosedRequest is the nginx convention for a request the
// client gave up on.
const statusClientClosedRequest = 499

// HttpToCode maps the HTTP status of a response to a protocol code. It is
// only consulted when the response itself carries no grpc-status. A status
// of 0 means the request never reached a server.
func HttpToCode(httpStatus int) Code {
	switch httpStatus {
	case 0:
		return Internal
	case http.StatusOK:
		return OK
	case http.StatusBadRequest:
		return InvalidArgument
	case http.StatusUnauthorized:
		return Unauthenticated
	case http.StatusForbidden:
		return PermissionDenied
	case http.StatusNotFound:
		return NotFound
	case http.StatusConflict:
		return Aborted
	case http.StatusPreconditionFailed:
		return FailedPrecondition
	case http.StatusTooManyRequests:
		return ResourceExhausted
	case statusClientClosedRequest:
		return Canceled
	case http.StatusInternalServerError:
		return Unknown
	case http.StatusNotImplemented:
		return Unimplemented
	case http.StatusServiceUnavailable:
		return Unavailable
	case http.StatusGatewayTimeout:
		return DeadlineExceeded
	default:
		return Unknown
	}
}
