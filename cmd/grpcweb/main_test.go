package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensraph/grpcweb/compress"
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/internal/envelope"
	"github.com/opensraph/grpcweb/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const echoProto = `syntax = "proto3";
package test;

import "google/protobuf/wrappers.proto";

service Echo {
  rpc Say(google.protobuf.StringValue) returns (google.protobuf.StringValue);
  rpc SayMany(google.protobuf.StringValue) returns (stream google.protobuf.StringValue);
  rpc Collect(stream google.protobuf.StringValue) returns (google.protobuf.StringValue);
}
`

func writeProto(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.proto"), []byte(echoProto), 0o600))
	return dir
}

func TestLoadMethod(t *testing.T) {
	dir := writeProto(t)

	md, err := loadMethod([]string{"echo.proto"}, []string{dir}, "test.Echo/SayMany")
	require.NoError(t, err)
	method := methodDesc(md)
	assert.Equal(t, "/test.Echo/SayMany", method.Procedure())
	assert.True(t, method.ResponseStream)
	assert.False(t, method.RequestStream)
	assert.Implements(t, (*proto.Message)(nil), method.NewResponse())

	_, err = loadMethod([]string{"echo.proto"}, []string{dir}, "test.Echo/Nope")
	assert.ErrorContains(t, err, "not found")
	_, err = loadMethod([]string{"echo.proto"}, []string{dir}, "Say")
	assert.ErrorContains(t, err, "pkg.Service/Method")
}

// echoServer answers every call with the request message repeated twice.
func echoServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		frames, err := (&envelope.Decoder{}).Decode(body)
		require.NoError(t, err)
		require.Len(t, frames, 1)

		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		payload, err := envelope.Encode(framePayload(t, frames[0]))
		require.NoError(t, err)
		_, _ = w.Write(payload)
		_, _ = w.Write(payload)
		trailers, err := envelope.EncodeTrailers(metadata.Pairs("grpc-status", r.Header.Get("x-want-status")))
		require.NoError(t, err)
		_, _ = w.Write(trailers)
	}))
}

func framePayload(t *testing.T, frame protocol.Frame) []byte {
	t.Helper()
	message, ok := frame.(*protocol.MessageFrame)
	require.True(t, ok)
	if !message.Compressed {
		return message.Payload
	}
	data, err := compress.NewGzipPool().Decompress(message.Payload, 0)
	require.NoError(t, err)
	return data
}

func TestCallCommand(t *testing.T) {
	dir := writeProto(t)
	srv := echoServer(t)
	defer srv.Close()

	tests := []struct {
		method string
		status string
		want   string
		code   errors.Code
	}{
		{method: "test.Echo/Say", status: "0", want: "\"hello\"\n"},
		{method: "test.Echo/SayMany", status: "0", want: "\"hello\"\n\"hello\"\n"},
		{method: "test.Echo/Say", status: "9", want: "\"hello\"\n", code: errors.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.method+"/"+tt.status, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &CallCommand{
				Host:       srv.URL,
				Proto:      []string{"echo.proto"},
				ImportPath: []string{dir},
				Method:     tt.method,
				Data:       `"hello"`,
				Header:     map[string]string{"x-want-status": tt.status},
				Codec:      "proto",
				Gzip:       true,
				stdout:     &out,
			}
			err := cmd.Run(context.Background())
			if tt.code == errors.OK {
				require.NoError(t, err)
			} else {
				coded, ok := errors.AsError(err)
				require.True(t, ok, "%v", err)
				assert.Equal(t, tt.code, coded.Code())
			}
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestCallCommandRejectsClientStreaming(t *testing.T) {
	cmd := &CallCommand{
		Host:       "http://localhost",
		Proto:      []string{"echo.proto"},
		ImportPath: []string{writeProto(t)},
		Method:     "test.Echo/Collect",
		Data:       "{}",
		Codec:      "proto",
	}
	assert.ErrorContains(t, cmd.Run(context.Background()), "client streaming")
}

func TestDecodeFrames(t *testing.T) {
	data, err := proto.Marshal(wrapperspb.String("hi"))
	require.NoError(t, err)
	message, err := envelope.Encode(data)
	require.NoError(t, err)
	compressed, err := envelope.EncodeFlags(envelope.FlagCompressed, []byte{1, 2, 3})
	require.NoError(t, err)
	trailers, err := envelope.EncodeTrailers(metadata.Pairs("grpc-status", "0", "grpc-message", "ok"))
	require.NoError(t, err)

	body := append(append(append([]byte{}, message...), compressed...), trailers...)
	var out bytes.Buffer
	require.NoError(t, decodeFrames(bytes.NewReader(body), &out, 0))
	assert.Equal(t, "#1 message 4 B\n"+
		"#2 message 3 B (compressed)\n"+
		"#3 trailers\n"+
		"  grpc-message: ok\n"+
		"  grpc-status: 0\n"+
		"3 frames, 56 B\n", out.String())

	out.Reset()
	err = decodeFrames(bytes.NewReader(message[:len(message)-1]), &out, 0)
	assert.ErrorContains(t, err, "promised 4 bytes, got 3 bytes")
}
