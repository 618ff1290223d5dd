// Package server exposes a router over HTTP.
//
// The server wraps a started router.Router, its history and its matcher:
//
//	GET  /api/match?path=/users/5                 select from the route table
//	GET  /api/match?path=/users/5&pattern=/users/:id&exact=true
//	                                              match a single pattern
//	POST /api/generate   {"pattern": "/users/:id", "params": {"id": "5"}}
//	GET  /api/routes                              the route table
//	GET  /api/location                            the current router state
//	POST /api/navigate   {"to": "/users/5", "replace": false}
//	POST /api/navigate   {"href": "#/app/users/5"}   navigate to an href the history rendered
//	POST /api/go         {"delta": -1}
//	GET  /ws                                      state stream (WebSocket)
//	GET  /metrics                                 Prometheus metrics
//	GET  /healthz
//
// Errors are JSON objects carrying the registered error code:
//
//	{"code": "E202", "message": "Missing path parameter", "detail": "..."}
//
// # State Stream
//
// A /ws client first receives the current state, then one message for
// every settled state the router publishes. A slow client skips
// intermediate states rather than blocking navigation.
//
//	{"type": "state", "state": {"location": {...}, "selection": {...}}, "href": "/app/users/5"}
//
// # Example Usage
//
//	r := router.NewRouter(history.NewMemory(), nil, routes)
//	if err := r.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := server.New(r, &server.Config{Address: ":8080"})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
