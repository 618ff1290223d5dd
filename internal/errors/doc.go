// Package errors provides coded, actionable error messages for the vroute
// command line and server.
//
// Library packages report sentinel and typed errors (pathexp.ErrInvalidPattern,
// pathexp.ErrMissingParam, router.ErrRedirectLoop). At the edges those are
// turned into a CodedError carrying a registered code, an explanation, an
// optional route table location and a documentation link.
//
// # Error Codes
//
//   - E12x: route table parsing and validation
//   - E14x: command line usage
//   - E150: remote route table fetch
//   - E20x: pattern compilation, path generation and redirects
//
// # Usage
//
//	err := errors.FromError(cause, "E120").
//	    WithLocation("routes.json", 12, 5).
//	    WithSuggestion("Remove the trailing comma")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E120: Invalid route table
//	//
//	//   routes.json:12:5
//	//
//	//     10 │     { "name": "user", "path": "/users/:id" },
//	//     11 │     { "name": "about", "path": "/about" },
//	//   → 12 │   ],
//	//        │     ^
//	//
//	//   Hint: Remove the trailing comma
//	//
//	//   Learn more: https://vango.dev/docs/vroute/errors/E120
package errors
