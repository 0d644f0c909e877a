package errors

import (
	"fmt"

	"github.com/opensraph/grpcweb/internal/headers"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// NewWireError is similar to [Newf], but the resulting *Error returns true
// when tested with IsWireError.
//
// Clients should use it to make clear that the code, message and details (if
// any) were explicitly sent by the server rather than inferred from a
// lower-level networking error.
func NewWireError(c Code, message string) *Error {
	err := FromError(fmt.Errorf("%s", message)).WithCode(c)
	err.status = status.New(c, message)
	err.wireErr = true
	return err
}

func (e *Error) IsWireError() bool {
	return e.wireErr
}

// Meta returns the headers or trailers that accompanied the error.
func (e *Error) Meta() metadata.MD {
	return e.meta
}

func (e *Error) WithMeta(meta metadata.MD) *Error {
	if e.meta == nil {
		e.meta = metadata.MD{}
	}
	for key, vals := range meta {
		if len(vals) == 0 {
			continue
		}
		e.meta[key] = append(e.meta[key], vals...)
	}
	return e
}

// FromTrailers builds the error described by a final (code, message,
// trailers) triple. It returns nil for OK. Details carried in
// grpc-status-details-bin replace the message and are attached to the error.
func FromTrailers(code Code, message string, trailers metadata.MD) error {
	if code == OK {
		return nil
	}
	retErr := NewWireError(code, message).WithMeta(trailers)
	encoded := headers.Get(trailers, headers.GRPCHeaderDetails)
	if encoded == "" {
		return retErr
	}
	raw, err := headers.DecodeBinaryHeader(encoded)
	if err != nil {
		return Newf("server returned invalid grpc-status-details-bin trailer: %w", err).WithCode(Internal)
	}
	var st spb.Status
	if err := proto.Unmarshal(raw, &st); err != nil {
		return Newf("server returned invalid protobuf for error details: %w", err).WithCode(Internal)
	}
	if st.GetCode() != 0 {
		retErr.code = Code(st.GetCode()) //nolint:gosec // no information loss
	}
	if st.GetCode() == 0 {
		st.Code = int32(code) //nolint:gosec // codes fit in int32
	}
	retErr.status = status.FromProto(&st)
	return retErr
}
