// Package pathexp turns path patterns into RE2 recognizers and back into
// concrete paths.
//
// # Pattern syntax
//
//	/users/:id            named segment, one or more non-delimiter characters
//	/users/:id?           optional segment (the preceding "/" is optional too)
//	/files/:path*         zero or more segments, captured as "a/b/c"
//	/files/:path+         one or more segments
//	/users/:id(\d+)       named segment with a custom pattern
//	/(foo|bar)            unnamed group, captured under "0", "1", ...
//	/static/*             wildcard, matches the remainder including slashes
//	/a\:b                 backslash escapes a syntax character
//
// A parameter token may be preceded by "/" or "."; that character becomes
// the token's prefix and is consumed only when the parameter is present.
//
// # Matching
//
// Compile builds a recognizer anchored at the start of the path. With
// Options.End the whole path must be consumed; otherwise the recognizer
// matches a prefix that ends on a delimiter boundary and Exec reports how
// much of the path was consumed.
//
// Go's regexp package has no lookahead, so the boundary is a trailing
// capture group whose start offset marks the end of the consumed prefix.
//
// # Generation
//
// ToPath returns a PathFunc that renders a pattern with parameter values,
// escaping each value for use in a URL path:
//
//	fn, _ := pathexp.ToPath("/users/:id/posts/:post?")
//	p, _ := fn.Render(map[string]string{"id": "42"}, true) // "/users/42/posts"
//
// Invalid patterns fail with an error wrapping ErrInvalidPattern; they never
// degrade into recognizers that silently match nothing.
package pathexp
