package headers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Header names as they appear in a metadata.MD: always lower case.
const (
	HeaderContentType    = "content-type"
	HeaderUserAgent      = "user-agent"
	HeaderXUserAgent     = "x-user-agent"
	HeaderXGRPCWeb       = "x-grpc-web"
	HeaderAcceptEncoding = "accept-encoding"
)

const (
	GRPCHeaderCompression       = "grpc-encoding"
	GRPCHeaderAcceptCompression = "grpc-accept-encoding"
	GRPCHeaderTimeout           = "grpc-timeout"
	GRPCHeaderStatus            = "grpc-status"
	GRPCHeaderMessage           = "grpc-message"
	GRPCHeaderDetails           = "grpc-status-details-bin"
)

// EncodeBinaryHeader base64-encodes the data. It always emits unpadded values.
//
// In the gRPC and gRPC-Web protocols, binary headers must have keys
// ending in "-bin".
func EncodeBinaryHeader(data []byte) string {
	// gRPC specification says that implementations should emit unpadded values.
	return base64.RawStdEncoding.EncodeToString(data)
}

// DecodeBinaryHeader base64-decodes the data. It can decode padded or unpadded
// values. Following usual HTTP semantics, multiple base64-encoded values may
// be joined with a comma. When receiving such comma-separated values, split
// them with [strings.Split] before calling DecodeBinaryHeader.
func DecodeBinaryHeader(data string) ([]byte, error) {
	if len(data)%4 != 0 {
		// Data definitely isn't padded.
		return base64.RawStdEncoding.DecodeString(data)
	}
	// Either the data was padded, or padding wasn't necessary. In both cases,
	// the padding-aware decoder works.
	return base64.StdEncoding.DecodeString(data)
}

// Get returns the first value stored under key, or "". The key must already
// be lower case.
func Get(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	v := md[key]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Lookup is like Get but reports whether any value was present.
func Lookup(md metadata.MD, key string) (string, bool) {
	if md == nil {
		return "", false
	}
	v := md[key]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Set replaces the values stored under key with value. The key must already
// be lower case.
func Set(md metadata.MD, key, value string) {
	md[key] = []string{value}
}

func Merge(into, from metadata.MD) {
	for key, vals := range from {
		if len(vals) == 0 {
			// For response trailers, net/http will pre-populate entries
			// with nil values based on the "Trailer" header. But if there
			// are no actual values for those keys, we skip them.
			continue
		}
		into[key] = append(into[key], vals...)
	}
}

// FromHTTP converts an http.Header into metadata, lower casing every key.
func FromHTTP(h http.Header) metadata.MD {
	md := make(metadata.MD, len(h))
	for key, vals := range h {
		if len(vals) == 0 {
			continue
		}
		lower := strings.ToLower(key)
		md[lower] = append(md[lower], vals...)
	}
	return md
}

// ToHTTP converts metadata into an http.Header with canonical keys.
func ToHTTP(md metadata.MD) http.Header {
	h := make(http.Header, len(md))
	for key, vals := range md {
		for _, v := range vals {
			h.Add(key, v)
		}
	}
	return h
}
