package protocol

import (
	"fmt"

	"google.golang.org/grpc/metadata"
)

// Frame is one decoded unit of a gRPC-Web response body: either a
// *MessageFrame or a *TrailersFrame.
type Frame interface {
	fmt.Stringer
	isFrame()
}

// MessageFrame carries one serialized response message.
type MessageFrame struct {
	Payload []byte
	// Compressed is set when the frame's compression flag was on; Payload is
	// then encoded with the response's grpc-encoding.
	Compressed bool
}

func (*MessageFrame) isFrame() {}

func (f *MessageFrame) String() string {
	return fmt.Sprintf("message(%d bytes, compressed=%t)", len(f.Payload), f.Compressed)
}

// TrailersFrame carries the trailing metadata of a response.
type TrailersFrame struct {
	Trailers metadata.MD
}

func (*TrailersFrame) isFrame() {}

func (f *TrailersFrame) String() string {
	return fmt.Sprintf("trailers(%d keys)", f.Trailers.Len())
}
