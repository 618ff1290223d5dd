// Package routepath normalizes, splits and resolves URL paths for routing.
package routepath

import (
	"errors"
	"strings"
)

// CanonicalizeResult contains the result of path canonicalization.
type CanonicalizeResult struct {
	// Path is the canonicalized path (without query string).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// CanonicalizePath normalizes a URL path.
//
// The following transformations are applied:
//   - Remove trailing slash (except for root "/")
//   - Collapse multiple slashes (/blog//post → /blog/post)
//   - Remove "." segments and resolve ".." segments
//
// Backslashes, NUL bytes, invalid percent-escapes and ".." above the root
// are rejected. A query string is preserved as-is; a fragment is dropped.
func CanonicalizePath(input string) (CanonicalizeResult, error) {
	if input == "" {
		return CanonicalizeResult{Path: "/", Changed: true}, nil
	}

	input, _, _ = strings.Cut(input, "#")
	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return CanonicalizeResult{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return CanonicalizeResult{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") && !validPercentEscapes(path) {
		return CanonicalizeResult{}, ErrInvalidPercentEscape
	}

	original := path

	segments, err := normalizeSegments(strings.Split(path, "/"), true)
	if err != nil {
		return CanonicalizeResult{}, err
	}
	path = "/" + strings.Join(segments, "/")

	return CanonicalizeResult{
		Path:    path,
		Query:   query,
		Changed: path != original,
	}, nil
}

// ValidateNavTarget rejects navigation targets that leave the site or
// carry bytes no router should see: absolute and protocol-relative URLs,
// backslashes and NUL bytes. The target is not modified, so a trailing
// slash or a malformed escape reaches the matcher as written. Relative
// targets and bare "?query" or "#hash" targets are valid.
func ValidateNavTarget(target string) error {
	pathname, _, _ := ParsePath(target)

	if strings.HasPrefix(pathname, "//") || hasScheme(pathname) {
		return ErrInvalidPath
	}
	if strings.Contains(pathname, "\\") {
		return ErrBackslashInPath
	}
	if strings.Contains(pathname, "\x00") || strings.Contains(strings.ToUpper(pathname), "%00") {
		return ErrNullByteInPath
	}
	return nil
}

// hasScheme reports whether path starts with "scheme:", that is a colon
// before the first slash.
func hasScheme(path string) bool {
	i := strings.IndexAny(path, ":/")
	return i > 0 && path[i] == ':'
}

// normalizeSegments drops empty and "." segments and applies "..".
// With strict set, ".." above the root is an error; otherwise it is
// ignored the way browsers do.
func normalizeSegments(in []string, strict bool) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, seg := range in {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				if strict {
					return nil, ErrPathEscapesRoot
				}
				continue
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return out, nil
}

// validPercentEscapes reports whether every "%" starts a %XX escape.
func validPercentEscapes(path string) bool {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
