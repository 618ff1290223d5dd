package pathexp

import "strings"

const (
	// unreserved characters kept by every encoder
	componentSafe = "-_.!~*'()"

	// reserved characters additionally kept by EncodeURI
	uriReserved = ";,/?:@&=+$#"
)

const upperhex = "0123456789ABCDEF"

// EncodeComponent escapes s like encodeURIComponent.
func EncodeComponent(s string) string {
	return escape(s, "")
}

// EncodeURI escapes s like encodeURI.
func EncodeURI(s string) string {
	return escape(s, uriReserved)
}

// EncodePretty escapes s like encodeURI, additionally escaping "/", "?"
// and "#" so the value stays within one segment.
func EncodePretty(s string) string {
	return escape(s, ";,:@&=+$")
}

// EncodeAsterisk escapes a wildcard value: like encodeURI, but "?" and "#"
// are escaped so the value cannot leak into the query or fragment.
func EncodeAsterisk(s string) string {
	return escape(s, ";,/:@&=+$")
}

func escape(s, keep string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isSafe(s[i], keep) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafe(c, keep) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isSafe(c byte, keep string) bool {
	if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return strings.IndexByte(componentSafe, c) >= 0 || strings.IndexByte(keep, c) >= 0
}
