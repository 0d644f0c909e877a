package envelope

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/opensraph/grpcweb/errors"
	"google.golang.org/grpc/metadata"
)

// ParseTrailers parses the payload of a trailer frame: "key: value" lines
// separated by CRLF. Keys of the result are lower case.
func ParseTrailers(payload []byte) (metadata.MD, error) {
	// Trailers are encoded as an HTTP/1 headers block _without_ the
	// terminating blank line, which net/textproto needs.
	data := make([]byte, 0, len(payload)+4)
	data = append(data, payload...)
	data = append(data, "\r\n\r\n"...)

	mimeReader := textproto.NewReader(bufio.NewReader(bytes.NewReader(data)))
	mimeHeader, err := mimeReader.ReadMIMEHeader()
	if err != nil {
		return nil, errors.Newf("unmarshal web trailers: %w", err).WithCode(errors.Internal)
	}
	// A blank line inside the payload ends the block early.
	if rest, _ := io.ReadAll(mimeReader.R); len(bytes.TrimSpace(rest)) > 0 {
		return nil, errors.New("unmarshal web trailers: data after blank line").WithCode(errors.Internal)
	}
	md := make(metadata.MD, len(mimeHeader))
	for key, values := range mimeHeader {
		lower := strings.ToLower(key)
		md[lower] = append(md[lower], values...)
	}
	return md, nil
}

// EncodeTrailers frames trailers the way a gRPC-Web server ends a response.
func EncodeTrailers(trailers metadata.MD) ([]byte, error) {
	h := make(http.Header, len(trailers))
	for key, values := range trailers {
		lower := strings.ToLower(key)
		h[lower] = append(h[lower], values...)
	}
	var buf bytes.Buffer
	if err := h.Write(&buf); err != nil {
		return nil, errors.Newf("marshal web trailers: %w", err).WithCode(errors.Internal)
	}
	return EncodeFlags(FlagTrailer, buf.Bytes())
}
