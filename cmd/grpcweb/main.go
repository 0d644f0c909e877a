package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	mangokong "github.com/alecthomas/mango-kong"
	"github.com/opensraph/grpcweb"
)

var CLI struct {
	Call    CallCommand       `cmd:"" help:"Call a method of a gRPC-Web server."`
	Decode  DecodeCommand     `cmd:"" help:"Print the frames of a captured gRPC-Web response body."`
	Man     mangokong.ManFlag `help:"Write man page." hidden:""`
	Version kong.VersionFlag  `help:"Print version."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(
		&CLI,
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Vars{"version": grpcweb.Version},
		kong.Groups(map[string]string{
			"proto": `Proto flags:`,
		}),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
		kong.Description(`a gRPC-Web client

Calls methods described by .proto files over gRPC-Web and decodes captured response bodies.
		`),
	)
	err := kongCtx.Run()
	kongCtx.FatalIfErrorf(err)
}
