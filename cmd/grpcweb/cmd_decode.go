package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/opensraph/grpcweb/internal/envelope"
	"github.com/opensraph/grpcweb/protocol"
)

type DecodeCommand struct {
	In       *os.File `arg:"" required:"" default:"-" help:"Response body file (default is stdin)"`
	MaxBytes int      `default:"0" help:"Largest frame payload accepted, 0 for no limit."`
}

func (c *DecodeCommand) Run() error {
	defer c.In.Close()
	return decodeFrames(c.In, os.Stdout, c.MaxBytes)
}

func decodeFrames(r io.Reader, w io.Writer, maxBytes int) error {
	dec := &envelope.Decoder{ReadMaxBytes: maxBytes}
	buf := make([]byte, 32<<10)
	count := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			frames, decodeErr := dec.Decode(buf[:n])
			for _, frame := range frames {
				count++
				printFrame(w, count, frame)
			}
			if decodeErr != nil {
				return decodeErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := dec.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d frames, %s\n", count, humanize.Bytes(uint64(dec.BytesRead())))
	return nil
}

func printFrame(w io.Writer, index int, frame protocol.Frame) {
	switch frame := frame.(type) {
	case *protocol.MessageFrame:
		compressed := ""
		if frame.Compressed {
			compressed = " (compressed)"
		}
		fmt.Fprintf(w, "#%d message %s%s\n", index, humanize.Bytes(uint64(len(frame.Payload))), compressed)
	case *protocol.TrailersFrame:
		fmt.Fprintf(w, "#%d trailers\n", index)
		keys := make([]string, 0, len(frame.Trailers))
		for k := range frame.Trailers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, strings.Join(frame.Trailers[k], ", "))
		}
	}
}
