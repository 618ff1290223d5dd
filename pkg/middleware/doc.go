// Package middleware provides observability middleware for the vroute API
// server. Both middlewares have the chi/net/http shape
// func(http.Handler) http.Handler.
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware starts a server span for every request. The
// span continues the caller's trace when the request carries trace headers
// and is renamed after the chi route pattern once routing is done.
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("routes-api"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// Handlers reach the span through the request context:
//
//	span := trace.SpanFromContext(r.Context())
//	span.SetAttributes(attribute.String("vroute.route", sel.Route.Name))
//
// # Prometheus Metrics
//
// The Prometheus middleware collects request metrics labelled by chi route
// pattern, so parameterized paths do not create new series:
//   - vroute_http_requests_total
//   - vroute_http_request_duration_seconds
//   - vroute_http_requests_in_flight
//
// A Metrics value also records state stream connections for the server's
// WebSocket endpoint.
//
//	reg := prometheus.NewRegistry()
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
