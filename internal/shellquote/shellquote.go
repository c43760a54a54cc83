// Package shellquote renders arbitrary path bytes as a string a POSIX shell
// would accept and expand back to the exact original bytes. Manifest files
// store paths in this form so non-UTF-8 names survive the JSON encoding.
package shellquote

import (
	"fmt"
	"strings"
)

// Escape quotes an arbitrary byte string for a shell. Printable ASCII sits
// inside single-quoted literals; control and high bytes are emitted as
// \NNN octal escapes inside $'...' runs; a single quote becomes \' between
// quoted regions. The result is a concatenation of quoted pieces, e.g.
// "fo\x80o" -> 'fo'$'\200''o'.
func Escape(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 2)
	b.WriteByte('\'')
	octal := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c < 0x20 || c >= 0x7f:
			if !octal {
				b.WriteString("'$'")
				octal = true
			}
			fmt.Fprintf(&b, `\%03o`, c)
		case c == '\'':
			b.WriteString(`'\''`)
			octal = false
		default:
			if octal {
				b.WriteString("''")
				octal = false
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
