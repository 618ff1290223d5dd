package pathexp

import (
	"regexp"
	"strings"
)

// PathFunc renders a pattern with parameter values.
type PathFunc struct {
	pattern string
	tokens  []Token
	matches []*regexp.Regexp // per token; nil for literals
}

// ToPath parses pattern and prepares it for rendering.
func ToPath(pattern string) (*PathFunc, error) {
	tokens, err := Parse(pattern)
	if err != nil {
		return nil, err
	}

	matches := make([]*regexp.Regexp, len(tokens))
	for i, t := range tokens {
		if !t.IsParam() {
			continue
		}
		re, err := regexp.Compile("(?i)^(?:" + t.Pattern + ")$")
		if err != nil {
			return nil, &SyntaxError{Pattern: pattern, Offset: -1, Reason: "parameter group rejected", Err: err}
		}
		matches[i] = re
	}

	return &PathFunc{pattern: pattern, tokens: tokens, matches: matches}, nil
}

// Pattern returns the source pattern.
func (f *PathFunc) Pattern() string {
	return f.pattern
}

// Render substitutes params into the pattern.
//
// With pretty set, values are escaped like encodeURI plus "/", "?" and "#";
// otherwise like encodeURIComponent. Wildcard values keep their slashes.
// Repeat parameters take a delimiter-joined value and render each part.
// A missing or empty value omits an optional parameter and fails for a
// required one.
func (f *PathFunc) Render(params map[string]string, pretty bool) (string, error) {
	encode := EncodeComponent
	if pretty {
		encode = EncodePretty
	}

	var b strings.Builder
	for i, t := range f.tokens {
		if !t.IsParam() {
			b.WriteString(t.Literal)
			continue
		}

		value, ok := params[t.Name]
		if !ok || (value == "" && t.Optional) {
			if t.Optional {
				if t.Partial {
					b.WriteString(t.Prefix)
				}
				continue
			}
			return "", &ParamError{Pattern: f.pattern, Name: t.Name, Err: ErrMissingParam}
		}

		if t.Repeat {
			for j, part := range strings.Split(value, t.Delimiter) {
				segment := encode(part)
				if !f.matches[i].MatchString(segment) {
					return "", &ParamError{Pattern: f.pattern, Name: t.Name, Value: segment, Err: ErrParamMismatch}
				}
				if j == 0 {
					b.WriteString(t.Prefix)
				} else {
					b.WriteString(t.Delimiter)
				}
				b.WriteString(segment)
			}
			continue
		}

		var segment string
		if t.Asterisk {
			segment = EncodeAsterisk(value)
		} else {
			segment = encode(value)
		}
		if !f.matches[i].MatchString(segment) {
			return "", &ParamError{Pattern: f.pattern, Name: t.Name, Value: segment, Err: ErrParamMismatch}
		}
		b.WriteString(t.Prefix)
		b.WriteString(segment)
	}

	return b.String(), nil
}
