// Package router matches pathnames against route patterns and keeps a route
// selection in sync with a navigation history.
//
// # Patterns
//
// Patterns use the pkg/pathexp syntax:
//
//	/users/:id          → one segment, captured as "id"
//	/users/:id?         → optional segment
//	/files/*            → rest of the path, captured as "0"
//	/:lang(en|de)/docs  → constrained segment
//
// # Matching
//
// A Matcher compiles patterns on first use and caches them for its
// lifetime. Matching is prefix-based unless Options.Exact is set:
//
//	m := router.NewMatcher()
//	match, _ := m.Match("/users/5/edit", "/users/:id", router.Options{})
//	// match.URL == "/users/5", match.IsExact == false, match.Params["id"] == "5"
//
// SelectFirst walks an ordered route table and returns the first
// declaration that matches; later declarations are not evaluated.
// Conflicts lists the declarations that order makes unreachable.
//
// # Generating paths
//
//	path, err := m.GeneratePath("/users/:id", router.Params{"id": "5"})
//	// path == "/users/5"
//
// # Navigation
//
// Router binds a Matcher and a route table to a history.History. Every
// history change re-selects the route; routes with a Redirect move the
// history on to the generated target. Subscribers receive each settled
// State.
//
//	h := history.NewMemory()
//	r := router.NewRouter(h, m, routes)
//	r.Start()
//	r.Navigate("/users/5")
package router
