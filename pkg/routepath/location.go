package routepath

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// ParsePath splits "pathname?search#hash" into its parts. The search keeps
// its leading "?" and the hash its leading "#"; a bare "?" or "#" is
// dropped. The pathname may be empty.
func ParsePath(path string) (pathname, search, hash string) {
	pathname = path
	if i := strings.IndexByte(pathname, '#'); i >= 0 {
		hash = pathname[i:]
		pathname = pathname[:i]
	}
	if i := strings.IndexByte(pathname, '?'); i >= 0 {
		search = pathname[i:]
		pathname = pathname[:i]
	}
	if search == "?" {
		search = ""
	}
	if hash == "#" {
		hash = ""
	}
	return pathname, search, hash
}

// CreatePath joins pathname, search and hash. Missing "?" and "#"
// markers are added; an empty pathname becomes "/".
func CreatePath(pathname, search, hash string) string {
	if pathname == "" {
		pathname = "/"
	}
	var b strings.Builder
	b.WriteString(pathname)
	if search != "" && search != "?" {
		if search[0] != '?' {
			b.WriteByte('?')
		}
		b.WriteString(search)
	}
	if hash != "" && hash != "#" {
		if hash[0] != '#' {
			b.WriteByte('#')
		}
		b.WriteString(hash)
	}
	return b.String()
}

// ResolvePathname resolves to against the absolute pathname from, the way
// a browser resolves a relative link. Empty segments are kept, "." and ".."
// are applied, and a trailing slash on to (or a final "." or "..") is
// preserved. The result is always absolute.
func ResolvePathname(to, from string) string {
	if to == "" {
		if from == "" {
			return "/"
		}
		return from
	}

	var parts []string
	if strings.HasPrefix(to, "/") {
		parts = strings.Split(to, "/")
	} else {
		base := strings.Split(from, "/")
		base = base[:len(base)-1]
		parts = append(base, strings.Split(to, "/")...)
	}

	last := parts[len(parts)-1]
	trailing := last == "" || last == "." || last == ".."

	out := make([]string, 0, len(parts)+1)
	for i, p := range parts {
		switch {
		case p == ".":
		case p == "..":
			if len(out) > 1 {
				out = out[:len(out)-1]
			}
		case p == "" && i == 0:
			out = append(out, p)
		default:
			if len(out) == 0 {
				out = append(out, "")
			}
			out = append(out, p)
		}
	}
	if len(out) == 0 || out[0] != "" {
		out = append([]string{""}, out...)
	}

	result := strings.Join(out, "/")
	if trailing && !strings.HasSuffix(result, "/") {
		result += "/"
	}
	if result == "" {
		return "/"
	}
	return result
}

// DecodeParam percent-decodes a captured route parameter. Malformed
// escapes, and escapes that decode to invalid UTF-8, leave the raw value
// in place.
func DecodeParam(raw string) string {
	if strings.IndexByte(raw, '%') < 0 {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil || !utf8.ValidString(decoded) {
		return raw
	}
	return decoded
}
