package compress

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/opensraph/grpcweb/errors"
)

const (
	CompressionGzip     = "gzip"
	CompressionIdentity = "identity"
)

// A Decompressor is a reusable wrapper that decompresses an underlying data
// source. The standard library's [*gzip.Reader] implements Decompressor.
type Decompressor interface {
	io.Reader

	// Close closes the Decompressor, but not the underlying data source. It may
	// return an error if the Decompressor wasn't read to EOF.
	Close() error

	// Reset discards the Decompressor's internal state, if any, and prepares it
	// to read from a new source of compressed data.
	Reset(io.Reader) error
}

// A Compressor is a reusable wrapper that compresses data written to an
// underlying sink. The standard library's [*gzip.Writer] implements Compressor.
type Compressor interface {
	io.Writer

	// Close flushes any buffered data to the underlying sink, then closes the
	// Compressor. It must not close the underlying sink.
	Close() error

	// Reset discards the Compressor's internal state, if any, and prepares it to
	// write compressed data to a new sink.
	Reset(io.Writer)
}

// CompressionPool reuses compressors and decompressors of one algorithm.
type CompressionPool struct {
	poolCompressor   sync.Pool
	poolDecompressor sync.Pool
}

// NewCompressionPool returns nil unless both constructors are provided.
func NewCompressionPool(newCompressor func() Compressor, newDecompressor func() Decompressor) *CompressionPool {
	if newCompressor == nil || newDecompressor == nil {
		return nil
	}
	return &CompressionPool{
		poolCompressor: sync.Pool{
			New: func() any {
				return newCompressor()
			},
		},
		poolDecompressor: sync.Pool{
			New: func() any {
				return newDecompressor()
			},
		},
	}
}

// NewGzipPool returns a pool backed by compress/gzip.
func NewGzipPool() *CompressionPool {
	return NewCompressionPool(
		func() Compressor { return gzip.NewWriter(io.Discard) },
		func() Decompressor { return &gzip.Reader{} },
	)
}

// Compress returns the compressed form of data.
func (c *CompressionPool) Compress(data []byte) ([]byte, error) {
	z, inPool := c.poolCompressor.Get().(Compressor)
	if !inPool {
		return nil, errors.New("failed to get compressor from pool").WithCode(errors.Internal)
	}
	defer c.poolCompressor.Put(z)

	var out bytes.Buffer
	z.Reset(&out)
	if _, err := z.Write(data); err != nil {
		return nil, errors.Newf("compress: %w", err).WithCode(errors.Internal)
	}
	if err := z.Close(); err != nil {
		return nil, errors.Newf("compress: %w", err).WithCode(errors.Internal)
	}
	return out.Bytes(), nil
}

// Decompress returns the decompressed form of data. A positive readMaxBytes
// bounds the size of the result.
func (c *CompressionPool) Decompress(data []byte, readMaxBytes int64) ([]byte, error) {
	z, inPool := c.poolDecompressor.Get().(Decompressor)
	if !inPool {
		return nil, errors.New("failed to get decompressor from pool").WithCode(errors.Internal)
	}
	if err := z.Reset(bytes.NewReader(data)); err != nil {
		c.poolDecompressor.Put(z)
		return nil, errors.Newf("decompress: %w", err).WithCode(errors.Internal)
	}
	defer func() {
		_ = z.Close()
		c.poolDecompressor.Put(z)
	}()

	var r io.Reader = z
	if readMaxBytes > 0 {
		// Read at most one byte more than the limit.
		r = io.LimitReader(z, readMaxBytes+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Newf("decompress: %w", err).WithCode(errors.Internal)
	}
	if readMaxBytes > 0 && int64(len(out)) > readMaxBytes {
		return nil, errors.Newf(
			"message after decompression larger than max %d", readMaxBytes,
		).WithCode(errors.ResourceExhausted)
	}
	return out, nil
}

// ReadOnlyCompressionPools is a read-only interface to a map of named
// CompressionPools.
type ReadOnlyCompressionPools interface {
	Get(string) *CompressionPool
	Contains(string) bool
	// Wordy, but clarifies how this is different from ReadOnlyCodecs.Names().
	CommaSeparatedNames() string
}

func NewReadOnlyCompressionPools(
	nameToPool map[string]*CompressionPool,
	reversedNames []string,
) ReadOnlyCompressionPools {
	// Options keep compression names in registration order, but we want the
	// last registered to be the most preferred.
	names := make([]string, 0, len(reversedNames))
	seen := make(map[string]struct{}, len(reversedNames))
	for i := len(reversedNames) - 1; i >= 0; i-- {
		name := reversedNames[i]
		if _, ok := seen[name]; ok {
			continue
		}
		if _, ok := nameToPool[name]; !ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return &namedCompressionPools{
		nameToPool:          nameToPool,
		commaSeparatedNames: strings.Join(names, ","),
	}
}

var _ ReadOnlyCompressionPools = (*namedCompressionPools)(nil)

type namedCompressionPools struct {
	nameToPool          map[string]*CompressionPool
	commaSeparatedNames string
}

func (m *namedCompressionPools) Get(name string) *CompressionPool {
	if name == "" || name == CompressionIdentity {
		return nil
	}
	return m.nameToPool[name]
}

func (m *namedCompressionPools) Contains(name string) bool {
	_, ok := m.nameToPool[name]
	return ok
}

func (m *namedCompressionPools) CommaSeparatedNames() string {
	return m.commaSeparatedNames
}
