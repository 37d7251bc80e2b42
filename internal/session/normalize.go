package session

import "strings"

// Normalize returns text terminated by a line feed with every bare line feed
// expanded to CRLF. Pairs that are already CRLF are left alone, so applying
// Normalize to its own output returns it unchanged.
func Normalize(text string) string {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	var b strings.Builder
	b.Grow(len(text) + strings.Count(text, "\n"))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' && (i == 0 || text[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(c)
	}

	return b.String()
}
