package headers

import (
	"math"
	"net/http"
	"testing"
	"testing/quick"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestEncodeTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{
			name:     "hour and second",
			input:    time.Hour + time.Second,
			expected: "3601000m", // NB, m is milliseconds
		},
		{
			name:     "overflow max int64",
			input:    time.Duration(math.MaxInt64),
			expected: "2562047H",
		},
		{
			name:     "negative value",
			input:    -1,
			expected: "0n",
		},
		{
			name:     "eight digits nanoseconds",
			input:    99999999 * time.Nanosecond, // shouldn't need unit conversion
			expected: "99999999n",
		},
		{
			name:     "nine digits nanoseconds with conversion",
			input:    99999999*time.Nanosecond + 1, // 9 digits, convert to micros
			expected: "100000u",
		},
		{
			name:     "seconds with nanosecond rounding",
			input:    10*time.Second + 1, // should round down
			expected: "10000000u",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, EncodeTimeout(tt.input), "input: %v", tt.input)
		})
	}
}

func TestPercentEncodingQuick(t *testing.T) {
	t.Parallel()

	roundtrip := func(input string) bool {
		if !utf8.ValidString(input) {
			return true
		}
		encoded := PercentEncode(input)
		decoded, err := PercentDecode(encoded)
		return err == nil && decoded == input
	}

	if err := quick.Check(roundtrip, nil /* config */); err != nil {
		t.Error(err)
	}
}

func TestPercentDecode(t *testing.T) {
	t.Parallel()

	decoded, err := PercentDecode("fianc%C3%A9e%25")
	assert.NoError(t, err)
	assert.Equal(t, "fiancée%", decoded)

	_, err = PercentDecode("broken%zz")
	assert.Error(t, err)

	_, err = PercentDecode("short%4")
	assert.Error(t, err)
}

func TestHTTPConversion(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Add("Grpc-Status", "0")
	h.Add("X-Multi", "a")
	h.Add("X-Multi", "b")
	h["Empty"] = nil

	md := FromHTTP(h)
	want := metadata.MD{"grpc-status": {"0"}, "x-multi": {"a", "b"}}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("FromHTTP mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "b"}, ToHTTP(md).Values("X-Multi"))
}

func TestGetAndMerge(t *testing.T) {
	t.Parallel()

	md := metadata.MD{}
	Set(md, GRPCHeaderStatus, "5")
	assert.Equal(t, "5", Get(md, GRPCHeaderStatus))
	assert.Equal(t, "", Get(nil, GRPCHeaderStatus))

	_, ok := Lookup(md, GRPCHeaderMessage)
	assert.False(t, ok)

	Merge(md, metadata.MD{GRPCHeaderMessage: {"gone"}, "skipped": nil})
	msg, ok := Lookup(md, GRPCHeaderMessage)
	assert.True(t, ok)
	assert.Equal(t, "gone", msg)
	_, ok = md["skipped"]
	assert.False(t, ok)
}

func TestBinaryHeader(t *testing.T) {
	t.Parallel()

	for _, input := range [][]byte{{}, {0x00}, {0xff, 0x01}, []byte("hello world")} {
		decoded, err := DecodeBinaryHeader(EncodeBinaryHeader(input))
		assert.NoError(t, err)
		assert.Equal(t, input, decoded)
	}
	padded, err := DecodeBinaryHeader("aGk=")
	assert.NoError(t, err)
	assert.Equal(t, []byte("hi"), padded)
}
