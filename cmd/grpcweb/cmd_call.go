package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/opensraph/grpcweb"
	"github.com/opensraph/grpcweb/debug"
	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
	"github.com/opensraph/grpcweb/transport/httptransport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

type CallCommand struct {
	Host       string   `required:"" placeholder:"https://example.com" help:"Base URL of the server."`
	Proto      []string `group:"proto" required:"" placeholder:"service.proto" help:"Proto files describing the service."`
	ImportPath []string `group:"proto" type:"existingdir" placeholder:"./api/,./vendor/" help:"Proto import paths."`
	Method     string   `required:"" placeholder:"pkg.Service/Method" help:"Method to call."`

	Data    string            `default:"{}" help:"Request message as JSON."`
	Header  map[string]string `short:"H" placeholder:"KEY=VALUE" help:"Request metadata."`
	Codec   string            `default:"proto" enum:"proto,json" help:"Message encoding on the wire. Available types: ${enum}"`
	Gzip    bool              `help:"Compress the request message."`
	H2C     bool              `name:"h2c" help:"Use HTTP/2 without TLS."`
	Timeout time.Duration     `help:"Call timeout (10s, 2m...)."`

	Verbose bool `help:"Verbose output"`

	stdout io.Writer
}

func (c *CallCommand) Run(ctx context.Context) error {
	log := zap.NewNop()
	if c.Verbose {
		log = zap.Must(zap.NewDevelopment())
	}
	defer log.Sync() //nolint:errcheck

	stdout := c.stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	md, err := loadMethod(c.Proto, c.ImportPath, c.Method)
	if err != nil {
		return err
	}
	if md.IsStreamingClient() {
		return fmt.Errorf("%s: client streaming is not supported by gRPC-Web", c.Method)
	}
	request := dynamicpb.NewMessage(md.Input())
	if err := protojson.Unmarshal([]byte(c.Data), request); err != nil {
		return fmt.Errorf("parsing --data: %w", err)
	}
	method := methodDesc(md)

	transportOpts := []httptransport.Option{httptransport.WithLogger(log)}
	if c.H2C {
		transportOpts = append(transportOpts, httptransport.WithH2C())
	}
	clientOpts := []grpcweb.ClientOption{
		grpcweb.WithLogger(log),
		grpcweb.WithTransport(httptransport.New(transportOpts...)),
		grpcweb.WithCodecName(c.Codec),
	}
	if c.Gzip {
		clientOpts = append(clientOpts, grpcweb.WithSendCompression("gzip"))
	}
	if c.Verbose {
		clientOpts = append(clientOpts,
			grpcweb.WithDebug(true),
			grpcweb.WithDebuggers(debug.NewLogProvider(log)),
		)
	}
	client := grpcweb.NewClient(clientOpts...)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	header := metadata.MD{}
	for k, v := range c.Header {
		header.Append(k, v)
	}

	g, ctx := errgroup.WithContext(ctx)
	loopCtx, stopLoop := context.WithCancel(ctx)
	g.Go(func() error {
		_ = client.Run(loopCtx)
		return nil
	})
	g.Go(func() error {
		defer stopLoop()
		if method.ResponseStream {
			return c.stream(ctx, client, method, request, header, stdout)
		}
		return c.unary(ctx, client, method, request, header, stdout)
	})
	return g.Wait()
}

func (c *CallCommand) unary(
	ctx context.Context,
	client *grpcweb.Client,
	method *protocol.MethodDesc,
	request proto.Message,
	header metadata.MD,
	w io.Writer,
) error {
	out, err := client.Do(ctx, method, c.Host, request, header)
	if err != nil {
		return err
	}
	if out.Message != nil {
		if err := printMessage(w, out.Message); err != nil {
			return err
		}
	}
	return out.Err()
}

func (c *CallCommand) stream(
	ctx context.Context,
	client *grpcweb.Client,
	method *protocol.MethodDesc,
	request proto.Message,
	header metadata.MD,
	w io.Writer,
) error {
	done := make(chan error, 1)
	var printErr error
	call, err := client.Invoke(ctx, method, grpcweb.InvokeOptions{
		Host:     c.Host,
		Request:  request,
		Metadata: header,
		OnMessage: func(message any) {
			if printErr == nil {
				printErr = printMessage(w, message)
			}
		},
		OnEnd: func(code errors.Code, message string, trailers metadata.MD) {
			if printErr != nil {
				done <- printErr
				return
			}
			done <- errors.FromTrailers(code, message, trailers)
		},
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		call.Cancel()
		return errors.FromContextError(ctx.Err())
	}
}

// loadMethod parses files and finds name, given as "pkg.Service/Method".
func loadMethod(files, importPaths []string, name string) (protoreflect.MethodDescriptor, error) {
	service, method, ok := strings.Cut(strings.TrimPrefix(name, "/"), "/")
	if !ok || service == "" || method == "" {
		return nil, fmt.Errorf("method %q must look like pkg.Service/Method", name)
	}
	fds, err := protoparse.Parser{
		LookupImport: desc.LoadFileDescriptor,
		ImportPaths:  importPaths,
	}.ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("can't parse proto files: %w", err)
	}
	for _, fd := range fds {
		sd := fd.FindService(service)
		if sd == nil {
			continue
		}
		if md := sd.FindMethodByName(method); md != nil {
			return md.UnwrapMethod(), nil
		}
	}
	return nil, fmt.Errorf("method %s not found in %s", name, strings.Join(files, ", "))
}

func methodDesc(md protoreflect.MethodDescriptor) *protocol.MethodDesc {
	output := md.Output()
	return &protocol.MethodDesc{
		ServiceName:    string(md.Parent().FullName()),
		MethodName:     string(md.Name()),
		RequestStream:  md.IsStreamingClient(),
		ResponseStream: md.IsStreamingServer(),
		NewResponse:    func() any { return dynamicpb.NewMessage(output) },
	}
}

func printMessage(w io.Writer, message any) error {
	m, ok := message.(proto.Message)
	if !ok {
		return fmt.Errorf("unexpected message type %T", message)
	}
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
