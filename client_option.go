package grpcweb

import (
	"github.com/opensraph/grpcweb/compress"
	"github.com/opensraph/grpcweb/debug"
	"github.com/opensraph/grpcweb/encoding"
	"github.com/opensraph/grpcweb/eventloop"
	"github.com/opensraph/grpcweb/protocol"
	"go.uber.org/zap"

	_ "github.com/opensraph/grpcweb/encoding/protobinary" // register protobuf codec
	_ "github.com/opensraph/grpcweb/encoding/protojson"   // register json codec
)

// defaultReadMaxBytes limits a single response message.
const defaultReadMaxBytes = 4 << 20

type ClientOption func(o *clientOptions)

type clientOptions struct {
	transport        protocol.Transport
	loop             *eventloop.Loop
	logger           *zap.Logger
	codec            encoding.Codec
	readMaxBytes     int
	compressionPools map[string]*compress.CompressionPool
	compressionNames []string
	sendCompression  string
	interceptor      Interceptor
	providers        []debug.Provider
	userAgent        string
	debug            bool
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		logger:       zap.NewNop(),
		codec:        encoding.Registered().Protobuf(),
		readMaxBytes: defaultReadMaxBytes,
		compressionPools: map[string]*compress.CompressionPool{
			compress.CompressionGzip: compress.NewGzipPool(),
		},
		compressionNames: []string{compress.CompressionGzip},
		userAgent:        defaultUserAgent,
	}
}

// WithTransport replaces the default net/http transport.
func WithTransport(transport protocol.Transport) ClientOption {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

// WithLoop runs the client's calls on loop. Whoever supplies the loop is
// responsible for draining it.
func WithLoop(loop *eventloop.Loop) ClientOption {
	return func(o *clientOptions) {
		o.loop = loop
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodec sets the codec used for methods that don't name their own.
func WithCodec(codec encoding.Codec) ClientOption {
	return func(o *clientOptions) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithCodecName is like WithCodec for a registered codec. Unknown names are
// ignored.
func WithCodecName(name string) ClientOption {
	return WithCodec(encoding.GetCodec(name))
}

// WithReadMaxBytes limits the size of a single response message, before and
// after decompression. Zero or less disables the limit.
func WithReadMaxBytes(limit int) ClientOption {
	return func(o *clientOptions) {
		o.readMaxBytes = limit
	}
}

// WithAcceptCompression makes a compression algorithm available for
// responses and for WithSendCompression. A nil pool removes the algorithm.
func WithAcceptCompression(name string, pool *compress.CompressionPool) ClientOption {
	return func(o *clientOptions) {
		if pool == nil {
			delete(o.compressionPools, name)
			names := o.compressionNames[:0]
			for _, n := range o.compressionNames {
				if n != name {
					names = append(names, n)
				}
			}
			o.compressionNames = names
			return
		}
		if _, ok := o.compressionPools[name]; !ok {
			o.compressionNames = append(o.compressionNames, name)
		}
		o.compressionPools[name] = pool
	}
}

// WithSendCompression compresses request messages with a registered
// algorithm.
func WithSendCompression(name string) ClientOption {
	return func(o *clientOptions) {
		if name == compress.CompressionIdentity {
			name = ""
		}
		o.sendCompression = name
	}
}

func WithInterceptors(interceptors ...Interceptor) ClientOption {
	return func(o *clientOptions) {
		o.interceptor = Chain(append([]Interceptor{o.interceptor}, interceptors...)...)
	}
}

// WithDebuggers registers providers for the lifetime of the client.
func WithDebuggers(providers ...debug.Provider) ClientOption {
	return func(o *clientOptions) {
		o.providers = append(o.providers, providers...)
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithDebug sets the debug flag of every transport request.
func WithDebug(debug bool) ClientOption {
	return func(o *clientOptions) {
		o.debug = debug
	}
}
