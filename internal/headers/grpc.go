package headers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// grpc-timeout values carry at most eight digits.
const maxTimeoutValue = 100_000_000

var timeoutUnits = []struct {
	size time.Duration
	unit byte
}{
	{time.Nanosecond, 'n'},
	{time.Microsecond, 'u'},
	{time.Millisecond, 'm'},
	{time.Second, 'S'},
	{time.Minute, 'M'},
	{time.Hour, 'H'},
}

// EncodeTimeout renders a duration in the grpc-timeout format, using the
// finest unit that fits. Durations of zero or less encode as "0n".
func EncodeTimeout(timeout time.Duration) string {
	if timeout <= 0 {
		return "0n"
	}
	for _, u := range timeoutUnits {
		if n := timeout / u.size; n < maxTimeoutValue || u.unit == 'H' {
			return strconv.FormatInt(int64(n), 10) + string(u.unit)
		}
	}
	return ""
}

// PercentEncode escapes the bytes of msg that may not appear in a
// grpc-message header: controls, non-ASCII and '%'.
func PercentEncode(msg string) string {
	var out strings.Builder
	for i := range len(msg) {
		c := msg[i]
		if c >= ' ' && c <= '~' && c != '%' {
			if out.Len() > 0 {
				out.WriteByte(c)
			}
			continue
		}
		if out.Len() == 0 {
			out.Grow(len(msg) + 8)
			out.WriteString(msg[:i])
		}
		fmt.Fprintf(&out, "%%%02X", c)
	}
	if out.Len() == 0 {
		return msg
	}
	return out.String()
}

// PercentDecode reverses PercentEncode. Any '%' not followed by two hex
// digits is an error.
func PercentDecode(input string) (string, error) {
	if !strings.Contains(input, "%") {
		return input, nil
	}
	var out strings.Builder
	out.Grow(len(input))
	for i := 0; i < len(input); i++ {
		if input[i] != '%' {
			out.WriteByte(input[i])
			continue
		}
		if i+2 >= len(input) {
			return "", fmt.Errorf("invalid percent-encoded string %q", input[i:])
		}
		b, err := strconv.ParseUint(input[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid percent-encoded string %q", input[i:i+3])
		}
		out.WriteByte(byte(b))
		i += 2
	}
	return out.String(), nil
}
