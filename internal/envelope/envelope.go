package envelope

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/opensraph/grpcweb/errors"
	"github.com/opensraph/grpcweb/protocol"
)

// Constants for envelope prefix length and flags
const (
	PrefixLength = 5

	FlagCompressed = 0b00000001
	FlagTrailer    = 0b10000000
)

// Encode frames a serialized message as an uncompressed data frame.
func Encode(payload []byte) ([]byte, error) {
	return EncodeFlags(0, payload)
}

// EncodeFlags frames payload behind a prefix carrying flags.
func EncodeFlags(flags uint8, payload []byte) ([]byte, error) {
	prefix, err := makeEnvelopePrefix(flags, len(payload))
	if err != nil {
		return nil, errors.Newf("create envelope prefix: %w", err).WithCode(errors.Internal)
	}
	out := make([]byte, 0, PrefixLength+len(payload))
	out = append(out, prefix[:]...)
	return append(out, payload...), nil
}

// Decoder turns the chunks of a response body into frames. It keeps the
// bytes of at most one incomplete frame between calls. The zero value is
// ready to use.
type Decoder struct {
	// ReadMaxBytes limits the payload length of a single frame; zero means
	// no limit.
	ReadMaxBytes int

	buf       []byte
	bytesRead int64
}

// Decode appends chunk to the retained bytes and returns every frame that is
// now complete, in order. A malformed frame yields the frames decoded before
// it together with a non-nil error; the Decoder must not be used afterwards.
func (d *Decoder) Decode(chunk []byte) ([]protocol.Frame, error) {
	d.bytesRead += int64(len(chunk))
	d.buf = append(d.buf, chunk...)

	var (
		frames []protocol.Frame
		offset int
	)
	for len(d.buf)-offset >= PrefixLength {
		flags := d.buf[offset]
		size := int64(binary.BigEndian.Uint32(d.buf[offset+1 : offset+PrefixLength]))
		if d.ReadMaxBytes > 0 && size > int64(d.ReadMaxBytes) {
			d.buf = nil
			return frames, errors.Newf("message size %d exceeds max %d", size, d.ReadMaxBytes).WithCode(errors.ResourceExhausted)
		}
		end := int64(offset) + PrefixLength + size
		if end > int64(len(d.buf)) {
			break
		}
		payload := d.buf[offset+PrefixLength : end]
		offset = int(end)

		if flags&FlagTrailer != 0 {
			trailers, err := ParseTrailers(payload)
			if err != nil {
				d.buf = nil
				return frames, err
			}
			frames = append(frames, &protocol.TrailersFrame{Trailers: trailers})
			continue
		}
		frames = append(frames, &protocol.MessageFrame{
			Payload:    payload,
			Compressed: flags&FlagCompressed != 0,
		})
	}

	switch {
	case offset == 0:
		// Nothing was emitted; keep growing the partial frame in place.
	case offset == len(d.buf):
		d.buf = nil
	default:
		// Emitted payloads alias d.buf, so the remainder moves to fresh storage.
		d.buf = append([]byte(nil), d.buf[offset:]...)
	}
	return frames, nil
}

// Buffered returns the number of bytes held for an incomplete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// BytesRead returns the number of bytes passed to Decode so far.
func (d *Decoder) BytesRead() int64 {
	return d.bytesRead
}

// Close reports an error if the body ended in the middle of a frame.
func (d *Decoder) Close() error {
	rest := d.buf
	d.buf = nil
	switch {
	case len(rest) == 0:
		return nil
	case len(rest) < PrefixLength:
		return errors.Newf(
			"protocol error: incomplete envelope: %d of %d prefix bytes", len(rest), PrefixLength,
		).WithCode(errors.Internal)
	default:
		return errors.Newf(
			"protocol error: promised %d bytes, got %d bytes",
			binary.BigEndian.Uint32(rest[1:PrefixLength]), len(rest)-PrefixLength,
		).WithCode(errors.Internal)
	}
}

// Helper to generate envelope prefix
func makeEnvelopePrefix(flags uint8, size int) ([5]byte, error) {
	if size < 0 || size > math.MaxUint32 {
		return [5]byte{}, fmt.Errorf("size %d out of bounds", size)
	}
	return [5]byte{
		flags,
		byte(size >> 24),
		byte(size >> 16),
		byte(size >> 8),
		byte(size),
	}, nil
}
