// Package grpcweb is a client for the gRPC-Web protocol.
//
// A Client frames requests, hands them to a pluggable Transport and turns
// the response events back into callbacks. All state of all calls, and every
// callback, runs on one event loop owned by the Client, so callbacks don't
// need locking. Drive the loop with Client.Run.
package grpcweb

import (
	"context"
	"sync/atomic"

	"github.com/opensraph/grpcweb/compress"
	"github.com/opensraph/grpcweb/debug"
	"github.com/opensraph/grpcweb/eventloop"
	"github.com/opensraph/grpcweb/protocol"
	"github.com/opensraph/grpcweb/transport/httptransport"
	"go.uber.org/zap"
)

// Version is the semantic version of the module.
const Version = "0.1.0"

const defaultUserAgent = "grpc-web-go/" + Version

// Client is the context shared by calls: the call-id counter, the debugger
// registry, the event loop and the defaults applied to every call.
type Client struct {
	opts        clientOptions
	logger      *zap.Logger
	loop        *eventloop.Loop
	transport   protocol.Transport
	registry    *debug.Registry
	compressors compress.ReadOnlyCompressionPools
	invoke      InvokeFunc

	lastID atomic.Uint64
}

func NewClient(opt ...ClientOption) *Client {
	opts := defaultClientOptions()
	for _, o := range opt {
		o(&opts)
	}

	c := &Client{
		opts:   opts,
		logger: opts.logger.Named("grpcweb"),
		compressors: compress.NewReadOnlyCompressionPools(
			opts.compressionPools,
			opts.compressionNames,
		),
	}
	c.registry = debug.NewRegistry(c.logger)
	c.loop = opts.loop
	if c.loop == nil {
		c.loop = eventloop.New(eventloop.WithLogger(opts.logger))
	}
	c.transport = opts.transport
	if c.transport == nil {
		c.transport = httptransport.New(httptransport.WithLogger(opts.logger))
	}
	for _, p := range opts.providers {
		c.registry.Register(p)
	}

	c.invoke = c.start
	if opts.interceptor != nil {
		c.invoke = opts.interceptor.WrapInvoke(c.start)
	}
	return c
}

// Run drives the client's event loop until ctx is done. Callbacks only run
// while some goroutine is running (or draining) the loop.
func (c *Client) Run(ctx context.Context) error {
	return c.loop.Run(ctx)
}

// Loop returns the event loop the client's calls run on.
func (c *Client) Loop() *eventloop.Loop {
	return c.loop
}

// Debuggers returns the registry consulted at the start of every call.
func (c *Client) Debuggers() *debug.Registry {
	return c.registry
}

// nextCallID returns ids 1, 2, 3... for the life of the client.
func (c *Client) nextCallID() uint64 {
	return c.lastID.Add(1)
}
