package protocol

import "fmt"

/* Streaming Mode
 ---------------  [Unary]  ---------------
 ---------- (Req) returns (Res) ----------
 client.Invoke(req)  === frame(req) ==>  server
 onHeaders(h)        <== headers ======  server
 onMessage(res)      <== frame(res) ===  server
 onEnd(code)         <== trailers =====  server


 ------------------- [Server Streaming] -------------------
 ---------- (Request) returns (stream Response) ----------
 client.Invoke(req)  === frame(req) ==>  server
 onHeaders(h)        <== headers ======  server
 onMessage(res)      <== frame(res) ===  server
                         ...
 onMessage(res)      <== frame(res) ===  server
 onEnd(code)         <== trailers =====  server handler return

 gRPC-Web sends the whole request body at once, so client and
 bidirectional streams can be described but not invoked.
*/

// StreamType describes whether the client, server, neither, or both is
// streaming.
type StreamType uint8

const (
	// StreamTypeUnary indicates a non-streaming RPC.
	StreamTypeUnary StreamType = 0b00
	// StreamTypeClient indicates client-side streaming.
	StreamTypeClient StreamType = 0b01
	// StreamTypeServer indicates server-side streaming.
	StreamTypeServer StreamType = 0b10
	// StreamTypeBidi indicates bidirectional streaming.
	StreamTypeBidi = StreamTypeClient | StreamTypeServer
)

func (s StreamType) IsClient() bool {
	return s&StreamTypeClient != 0
}

func (s StreamType) IsServer() bool {
	return s&StreamTypeServer != 0
}

func (s StreamType) String() string {
	switch s {
	case StreamTypeUnary:
		return "unary"
	case StreamTypeClient:
		return "client"
	case StreamTypeServer:
		return "server"
	case StreamTypeBidi:
		return "bidi"
	}
	return fmt.Sprintf("stream_%d", s)
}
