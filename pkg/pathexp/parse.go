package pathexp

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter separates path segments.
const DefaultDelimiter = "/"

// Token is one element of a parsed pattern.
// Literal tokens only carry Literal; parameter tokens carry everything else.
type Token struct {
	// Literal is the unescaped text of a literal token.
	Literal string

	// Name is the parameter name. Unnamed groups and wildcards are
	// numbered "0", "1", ... in declaration order.
	Name string

	// Prefix is the "/" or "." that introduced the parameter, if any.
	Prefix string

	// Delimiter separates repeated values (the prefix, or "/").
	Delimiter string

	// Optional is set by the "?" and "*" modifiers.
	Optional bool

	// Repeat is set by the "+" and "*" modifiers.
	Repeat bool

	// Partial is set when the parameter is followed by something other
	// than its own prefix, e.g. "/:from-:to".
	Partial bool

	// Asterisk marks a bare "*" wildcard.
	Asterisk bool

	// Pattern is the regular expression a single value must match.
	Pattern string
}

// IsParam reports whether t is a parameter token.
func (t Token) IsParam() bool {
	return t.Name != ""
}

// Parse scans a pattern into tokens.
func Parse(pattern string) ([]Token, error) {
	var (
		tokens []Token
		lit    strings.Builder
		key    int
		seen   map[string]struct{}
	)

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, Token{Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(pattern) {
		c := pattern[i]

		if c == '\\' {
			if i+1 >= len(pattern) {
				return nil, syntaxErr(pattern, i, "trailing escape character")
			}
			_, size := utf8.DecodeRuneInString(pattern[i+1:])
			lit.WriteString(pattern[i+1 : i+1+size])
			i += 1 + size
			continue
		}

		if c == ')' {
			return nil, syntaxErr(pattern, i, "unbalanced ')'")
		}

		j := i
		prefix := ""
		if (c == '/' || c == '.') && i+1 < len(pattern) && startsParam(pattern[i+1]) {
			prefix = string(c)
			j = i + 1
		}
		if !startsParam(pattern[j]) {
			lit.WriteByte(c)
			i++
			continue
		}

		var (
			name     string
			group    string
			asterisk bool
			err      error
		)
		switch pattern[j] {
		case '*':
			asterisk = true
			j++
		case ':':
			k := j + 1
			for k < len(pattern) && isWordChar(pattern[k]) {
				k++
			}
			if k == j+1 {
				return nil, syntaxErr(pattern, j, "missing parameter name after ':'")
			}
			name = pattern[j+1 : k]
			j = k
			if j < len(pattern) && pattern[j] == '(' {
				if group, j, err = scanGroup(pattern, j); err != nil {
					return nil, err
				}
			}
		case '(':
			if group, j, err = scanGroup(pattern, j); err != nil {
				return nil, err
			}
		}

		var modifier byte
		if !asterisk && j < len(pattern) {
			switch pattern[j] {
			case '?', '*', '+':
				modifier = pattern[j]
				j++
			}
		}

		flush()

		delimiter := prefix
		if delimiter == "" {
			delimiter = DefaultDelimiter
		}

		var valuePattern string
		switch {
		case group != "":
			valuePattern = escapeGroup(group)
		case asterisk:
			valuePattern = ".*"
		default:
			valuePattern = "[^" + regexp.QuoteMeta(delimiter) + "]+?"
		}

		if name == "" {
			name = strconv.Itoa(key)
			key++
		}
		if _, dup := seen[name]; dup {
			return nil, syntaxErr(pattern, i, "duplicate parameter name "+strconv.Quote(name))
		}
		if seen == nil {
			seen = make(map[string]struct{})
		}
		seen[name] = struct{}{}

		tokens = append(tokens, Token{
			Name:      name,
			Prefix:    prefix,
			Delimiter: delimiter,
			Optional:  modifier == '?' || modifier == '*',
			Repeat:    modifier == '+' || modifier == '*',
			Partial:   prefix != "" && j < len(pattern) && pattern[j] != prefix[0],
			Asterisk:  asterisk,
			Pattern:   valuePattern,
		})
		i = j
	}
	flush()

	return tokens, nil
}

// ParamNames returns the parameter names of tokens in order.
func ParamNames(tokens []Token) []string {
	var names []string
	for _, t := range tokens {
		if t.IsParam() {
			names = append(names, t.Name)
		}
	}
	return names
}

// scanGroup reads a parenthesised group starting at pattern[start] == '('.
// It returns the group body and the offset just past the closing paren.
func scanGroup(pattern string, start int) (string, int, error) {
	k := start + 1
	for k < len(pattern) {
		switch pattern[k] {
		case '\\':
			k += 2
			continue
		case '(':
			return "", 0, syntaxErr(pattern, k, "nested '(' in parameter group")
		case ')':
			body := pattern[start+1 : k]
			if body == "" {
				return "", 0, syntaxErr(pattern, start, "empty parameter group")
			}
			return body, k + 1, nil
		}
		k++
	}
	return "", 0, syntaxErr(pattern, start, "unterminated parameter group")
}

// escapeGroup escapes characters that would change the meaning of a
// custom group once it is embedded in the recognizer.
func escapeGroup(group string) string {
	var b strings.Builder
	for i := 0; i < len(group); i++ {
		c := group[i]
		if c == '\\' && i+1 < len(group) {
			b.WriteByte(c)
			b.WriteByte(group[i+1])
			i++
			continue
		}
		switch c {
		case '=', '!', ':', '$', '/', '(', ')':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapePattern escapes every pattern syntax character in path so that it
// compiles to a purely literal recognizer.
func EscapePattern(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if strings.IndexByte(`.+*?=^!:${}()[]|/\`, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func startsParam(c byte) bool {
	return c == ':' || c == '(' || c == '*'
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
