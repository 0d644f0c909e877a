package compress_test

import (
	"compress/gzip"
	"strings"
	"sync"
	"testing"

	"github.com/opensraph/grpcweb/compress"
	"github.com/opensraph/grpcweb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 验证gzip实现是否符合Compressor和Decompressor接口
var _ compress.Compressor = (*gzip.Writer)(nil)
var _ compress.Decompressor = (*gzip.Reader)(nil)

func TestNewCompressionPool(t *testing.T) {
	t.Parallel()
	newCompressor := func() compress.Compressor { return gzip.NewWriter(nil) }
	newDecompressor := func() compress.Decompressor { return &gzip.Reader{} }
	tests := []struct {
		name            string
		newCompressor   func() compress.Compressor
		newDecompressor func() compress.Decompressor
		expectNil       bool
	}{
		{name: "complete", newCompressor: newCompressor, newDecompressor: newDecompressor},
		{name: "decompressor only", newDecompressor: newDecompressor, expectNil: true},
		{name: "compressor only", newCompressor: newCompressor, expectNil: true},
		{name: "neither", expectNil: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := compress.NewCompressionPool(tc.newCompressor, tc.newDecompressor)
			if tc.expectNil {
				assert.Nil(t, pool)
			} else {
				assert.NotNil(t, pool)
			}
		})
	}
}

// 测试使用gzip进行压缩
func TestCompressionPool_Gzip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "short", input: "Hello, World!"},
		{name: "repetitive", input: strings.Repeat("ABCDEFG", 100)},
		{name: "large", input: strings.Repeat("The quick brown fox jumps over the lazy dog. ", 1000)},
	}
	pool := compress.NewGzipPool()
	require.NotNil(t, pool)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			compressed, err := pool.Compress([]byte(tc.input))
			require.NoError(t, err)
			assert.NotEmpty(t, compressed)
			if len(tc.input) > 100 {
				assert.Less(t, len(compressed), len(tc.input))
			}

			result, err := pool.Decompress(compressed, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.input, string(result))
		})
	}
}

// 测试解压缩大小限制功能
func TestCompressionPool_DecompressSizeLimit(t *testing.T) {
	t.Parallel()
	pool := compress.NewGzipPool()
	largeInput := strings.Repeat("Large amount of data that will be compressed. ", 1000)
	compressed, err := pool.Compress([]byte(largeInput))
	require.NoError(t, err)

	tests := []struct {
		name        string
		maxBytes    int64
		expectError bool
	}{
		{name: "unlimited", maxBytes: 0},
		{name: "exact", maxBytes: int64(len(largeInput))},
		{name: "roomy", maxBytes: int64(len(largeInput) + 1000)},
		{name: "too small", maxBytes: 100, expectError: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := pool.Decompress(compressed, tc.maxBytes)
			if tc.expectError {
				require.Error(t, err)
				coded, ok := errors.AsError(err)
				require.True(t, ok)
				assert.Equal(t, errors.ResourceExhausted, coded.Code())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, largeInput, string(result))
		})
	}
}

func TestCompressionPool_Corrupt(t *testing.T) {
	t.Parallel()
	_, err := compress.NewGzipPool().Decompress([]byte("definitely not gzip"), 0)
	require.Error(t, err)
	coded, ok := errors.AsError(err)
	require.True(t, ok)
	assert.Equal(t, errors.Internal, coded.Code())
}

func TestCompressionPool_Concurrent(t *testing.T) {
	t.Parallel()
	pool := compress.NewGzipPool()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := strings.Repeat("concurrent ", 50+i)
			compressed, err := pool.Compress([]byte(input))
			assert.NoError(t, err)
			out, err := pool.Decompress(compressed, 0)
			assert.NoError(t, err)
			assert.Equal(t, input, string(out))
		}()
	}
	wg.Wait()
}

// 测试ReadOnlyCompressionPools接口
func TestReadOnlyCompressionPools(t *testing.T) {
	t.Parallel()
	gzipPool := compress.NewGzipPool()
	pools := compress.NewReadOnlyCompressionPools(
		map[string]*compress.CompressionPool{
			"gzip": gzipPool,
		},
		[]string{"gzip", "br", "gzip"},
	)

	assert.Nil(t, pools.Get(""))
	assert.Nil(t, pools.Get(compress.CompressionIdentity))
	assert.Same(t, gzipPool, pools.Get("gzip"))
	assert.Nil(t, pools.Get("br"))

	assert.True(t, pools.Contains("gzip"))
	assert.False(t, pools.Contains("br"))
	assert.False(t, pools.Contains(""))

	assert.Equal(t, "gzip", pools.CommaSeparatedNames())
}
