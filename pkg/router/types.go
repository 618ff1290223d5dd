package router

import "github.com/vango-dev/vroute/pkg/pathexp"

// Options are the per-declaration match modifiers. The zero value matches
// prefixes, tolerates a trailing slash and ignores case.
type Options struct {
	// Exact rejects matches that do not consume the whole pathname.
	Exact bool `json:"exact,omitempty" yaml:"exact,omitempty"`

	// Strict makes a trailing slash significant.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`

	// Sensitive makes matching case-sensitive.
	Sensitive bool `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
}

// compileOptions maps match options onto recognizer options. Exactness is
// decided after matching, so the recognizer only anchors the end when
// Exact is set.
func (o Options) compileOptions() pathexp.Options {
	return pathexp.Options{
		End:       o.Exact,
		Strict:    o.Strict,
		Sensitive: o.Sensitive,
	}
}

// Params maps parameter names to decoded values.
type Params map[string]string

// Match is the result of matching a pathname against a pattern.
type Match struct {
	// Path is the pattern that matched.
	Path string `json:"path"`

	// URL is the part of the pathname the pattern consumed.
	URL string `json:"url"`

	// IsExact reports whether URL is the whole pathname.
	IsExact bool `json:"isExact"`

	// Params holds the captured parameters.
	Params Params `json:"params"`
}

// Route is one entry of an ordered route table.
type Route struct {
	// Name identifies the route in logs and APIs.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Paths are alternative patterns. A route without patterns takes the
	// fallback match during selection.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty"`

	Options `yaml:",inline"`

	// Redirect, when set, makes the route a redirect.
	Redirect *Redirect `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

// HasPattern reports whether the route declares at least one pattern.
func (r Route) HasPattern() bool {
	return len(r.Paths) > 0
}

// Redirect sends the router to another location.
type Redirect struct {
	// To is the target. It may contain parameters of the matching route,
	// a search and a hash.
	To string `json:"to" yaml:"to"`

	// Push adds a history entry instead of replacing the current one.
	Push bool `json:"push,omitempty" yaml:"push,omitempty"`
}

// Selection is the outcome of SelectFirst.
type Selection struct {
	// Index is the position of Route in the table.
	Index int `json:"index"`

	// Route is the winning declaration.
	Route Route `json:"route"`

	// Match is its match.
	Match *Match `json:"match"`
}

// RootMatch is the implicit match used when nothing more specific applies.
func RootMatch(pathname string) *Match {
	return &Match{
		Path:    "/",
		URL:     "/",
		Params:  Params{},
		IsExact: pathname == "/",
	}
}
