package fileinfo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// escape renders b reversibly as a single line-safe token: space and any
// byte outside the printable-ASCII range (including newline, tab, and the
// high half) are hex-escaped as "\xHH"; a literal backslash is "\\".
func escape(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))

	for _, c := range b {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == ' ':
			sb.WriteString(`\x20`)
		case c < 0x20 || c == 0x7f || c >= 0x80:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

// unescape reverses escape. It returns an error on a dangling backslash or
// an invalid hex escape so the caller (Load) can skip just that line.
func unescape(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}

		if i+1 >= len(s) {
			return nil, errors.New("dangling escape")
		}

		switch s[i+1] {
		case '\\':
			out = append(out, '\\')
			i++
		case 'x':
			if i+3 >= len(s) {
				return nil, errors.New("truncated hex escape")
			}

			var v int

			if _, err := fmt.Sscanf(s[i+2:i+4], "%02x", &v); err != nil {
				return nil, errors.Wrap(err, "invalid hex escape")
			}

			out = append(out, byte(v))
			i += 3
		default:
			return nil, errors.Errorf("unknown escape %q", s[i+1])
		}
	}

	return out, nil
}
