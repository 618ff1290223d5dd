package history

import (
	"fmt"
	"strings"
)

// HashType selects how a path is written into a URL fragment.
type HashType string

// Hash encodings.
const (
	// HashSlash writes "#/path".
	HashSlash HashType = "slash"

	// HashNoSlash writes "#path".
	HashNoSlash HashType = "noslash"

	// HashBang writes "#!/path".
	HashBang HashType = "hashbang"
)

// ParseHashType parses a hash type name. An empty name is HashSlash.
func ParseHashType(s string) (HashType, error) {
	switch HashType(strings.ToLower(strings.TrimSpace(s))) {
	case "", HashSlash:
		return HashSlash, nil
	case HashNoSlash:
		return HashNoSlash, nil
	case HashBang:
		return HashBang, nil
	default:
		return "", fmt.Errorf("unknown hash type %q", s)
	}
}

// EncodeHashPath writes path in the form ht stores in the fragment.
func EncodeHashPath(path string, ht HashType) string {
	switch ht {
	case HashNoSlash:
		return strings.TrimPrefix(path, "/")
	case HashBang:
		if strings.HasPrefix(path, "!") {
			return path
		}
		return "!/" + strings.TrimPrefix(path, "/")
	default:
		return addLeadingSlash(path)
	}
}

// DecodeHashPath reverses EncodeHashPath. The result always starts with "/".
func DecodeHashPath(fragment string, ht HashType) string {
	fragment = strings.TrimPrefix(fragment, "#")
	if ht == HashBang {
		fragment = strings.TrimPrefix(fragment, "!")
	}
	return addLeadingSlash(fragment)
}

// CreateHashHref renders loc as a fragment-only href under basename.
func CreateHashHref(basename string, loc Location, ht HashType) string {
	return "#" + EncodeHashPath(NormalizeBasename(basename)+loc.Path(), ht)
}

func addLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
