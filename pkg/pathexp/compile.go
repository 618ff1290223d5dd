package pathexp

import (
	"regexp"
	"strings"
)

// Options control how a pattern is turned into a recognizer.
type Options struct {
	// End requires the recognizer to consume the whole path.
	End bool

	// Strict makes a trailing delimiter significant.
	Strict bool

	// Sensitive makes matching case-sensitive.
	Sensitive bool

	// Delimiter overrides DefaultDelimiter.
	Delimiter string
}

// Regexp is a compiled pattern.
type Regexp struct {
	// Pattern is the source pattern.
	Pattern string

	// Keys are the parameter tokens, one per capture, in order.
	Keys []Token

	re       *regexp.Regexp
	boundary int // index of the trailing boundary group, 0 if none
}

// Value is one captured parameter.
type Value struct {
	// Raw is the captured text, sliced from the input path.
	Raw string

	// Matched is false when an optional parameter did not participate.
	Matched bool
}

// Compile parses pattern and builds its recognizer.
func Compile(pattern string, opts Options) (*Regexp, error) {
	tokens, err := Parse(pattern)
	if err != nil {
		return nil, err
	}
	return FromTokens(pattern, tokens, opts)
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string, opts Options) *Regexp {
	r, err := Compile(pattern, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// FromTokens builds a recognizer from already parsed tokens.
func FromTokens(pattern string, tokens []Token, opts Options) (*Regexp, error) {
	delimiter := opts.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	quotedDelim := regexp.QuoteMeta(delimiter)

	var (
		route strings.Builder
		keys  []Token
	)
	for _, t := range tokens {
		if !t.IsParam() {
			route.WriteString(regexp.QuoteMeta(t.Literal))
			continue
		}

		prefix := regexp.QuoteMeta(t.Prefix)
		capture := "(?:" + t.Pattern + ")"
		keys = append(keys, t)

		if t.Repeat {
			capture += "(?:" + prefix + capture + ")*"
		}
		switch {
		case t.Optional && !t.Partial:
			capture = "(?:" + prefix + "(" + capture + "))?"
		case t.Optional:
			capture = prefix + "(" + capture + ")?"
		default:
			capture = prefix + "(" + capture + ")"
		}
		route.WriteString(capture)
	}

	endsWithDelimiter := false
	if n := len(tokens); n > 0 && !tokens[n-1].IsParam() {
		endsWithDelimiter = strings.HasSuffix(tokens[n-1].Literal, delimiter)
	}

	src := route.String()
	if !opts.Strict {
		if endsWithDelimiter {
			src = strings.TrimSuffix(src, quotedDelim)
		}
		// A trailing delimiter is tolerated only as the last character.
		src += "(?:" + quotedDelim + "$)?"
	}

	boundary := 0
	switch {
	case opts.End:
		src += "$"
	case opts.Strict && endsWithDelimiter:
	default:
		src += "(" + quotedDelim + "|$)"
		boundary = len(keys) + 1
	}

	flags := ""
	if !opts.Sensitive {
		flags = "(?i)"
	}

	re, err := regexp.Compile(flags + "^" + src)
	if err != nil {
		return nil, &SyntaxError{Pattern: pattern, Offset: -1, Reason: "parameter group rejected", Err: err}
	}

	return &Regexp{
		Pattern:  pattern,
		Keys:     keys,
		re:       re,
		boundary: boundary,
	}, nil
}

// Exec runs the recognizer against path. It returns the consumed prefix of
// path and one Value per key.
func (r *Regexp) Exec(path string) (consumed string, values []Value, ok bool) {
	loc := r.re.FindStringSubmatchIndex(path)
	if loc == nil {
		return "", nil, false
	}

	end := loc[1]
	if r.boundary > 0 {
		end = loc[2*r.boundary]
	}

	values = make([]Value, len(r.Keys))
	for i := range r.Keys {
		start, stop := loc[2*(i+1)], loc[2*(i+1)+1]
		if start < 0 {
			continue
		}
		values[i] = Value{Raw: path[start:stop], Matched: true}
	}

	return path[:end], values, true
}

// ParamNames returns the key names in capture order.
func (r *Regexp) ParamNames() []string {
	return ParamNames(r.Keys)
}

// String returns the source of the underlying regular expression.
func (r *Regexp) String() string {
	return r.re.String()
}
