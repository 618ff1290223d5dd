package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vroute/pkg/history"
	"github.com/vango-dev/vroute/pkg/router"
)

var testRoutes = []router.Route{
	{Name: "home", Paths: []string{"/"}, Options: router.Options{Exact: true}},
	{Name: "old-user", Paths: []string{"/u/:id"}, Redirect: &router.Redirect{To: "/users/:id"}},
	{Name: "user", Paths: []string{"/users/:id"}},
	{Name: "about", Paths: []string{"/about", "/info"}},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, routes []router.Route, hopts ...history.Option) (*Server, *httptest.Server) {
	t.Helper()

	h := history.NewMemory(hopts...)
	r := router.NewRouter(h, nil, routes, router.WithRouterLogger(discardLogger()))
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)

	srv := New(r, nil, WithRegistry(prometheus.NewRegistry()), WithLogger(discardLogger()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body string, dst any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	return resp.StatusCode
}

func TestMatchSelectsRoute(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	var resp matchResponse
	status := getJSON(t, ts.URL+"/api/match?path="+url.QueryEscape("/users/5"), &resp)

	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Selection)
	assert.Equal(t, 2, resp.Selection.Index)
	assert.Equal(t, "user", resp.Selection.Route.Name)
	assert.Equal(t, "/users/5", resp.Selection.Match.URL)
	assert.Equal(t, router.Params{"id": "5"}, resp.Selection.Match.Params)
}

func TestMatchNoRoute(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	var resp errorResponse
	status := getJSON(t, ts.URL+"/api/match?path=/nowhere", &resp)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "E205", resp.Code)
}

func TestMatchSinglePattern(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	tests := []struct {
		name      string
		query     string
		wantMatch bool
		wantURL   string
	}{
		{name: "prefix", query: "path=/users/5/edit&pattern=/users/:id", wantMatch: true, wantURL: "/users/5"},
		{name: "exact", query: "path=/users/5/edit&pattern=/users/:id&exact=true", wantMatch: false},
		{name: "sensitive", query: "path=/USERS/5&pattern=/users/:id&sensitive=1", wantMatch: false},
		{name: "strict", query: "path=/users/5/&pattern=/users/:id&strict=true&exact=true", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp matchResponse
			status := getJSON(t, ts.URL+"/api/match?"+tt.query, &resp)
			require.Equal(t, http.StatusOK, status)
			if !tt.wantMatch {
				assert.Nil(t, resp.Match)
				return
			}
			require.NotNil(t, resp.Match)
			assert.Equal(t, tt.wantURL, resp.Match.URL)
			assert.False(t, resp.Match.IsExact)
		})
	}
}

func TestMatchErrors(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	tests := []struct {
		query      string
		wantStatus int
		wantCode   string
	}{
		{query: "", wantStatus: http.StatusBadRequest, wantCode: "E140"},
		{query: "path=/a&pattern=/a&exact=maybe", wantStatus: http.StatusBadRequest, wantCode: "E140"},
		{query: "path=/a&pattern=" + url.QueryEscape("/users/:"), wantStatus: http.StatusUnprocessableEntity, wantCode: "E201"},
	}

	for _, tt := range tests {
		var resp errorResponse
		status := getJSON(t, ts.URL+"/api/match?"+tt.query, &resp)
		assert.Equal(t, tt.wantStatus, status, tt.query)
		assert.Equal(t, tt.wantCode, resp.Code, tt.query)
	}
}

func TestGenerate(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	var ok generateResponse
	status := postJSON(t, ts.URL+"/api/generate", `{"pattern": "/users/:id/:tab?", "params": {"id": "a b"}}`, &ok)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/users/a%20b", ok.Path)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing param", `{"pattern": "/users/:id"}`, http.StatusUnprocessableEntity, "E202"},
		{"param mismatch", `{"pattern": "/n/:n(\\d+)", "params": {"n": "x"}}`, http.StatusUnprocessableEntity, "E203"},
		{"invalid pattern", `{"pattern": "/a/(b"}`, http.StatusUnprocessableEntity, "E201"},
		{"no pattern", `{}`, http.StatusBadRequest, "E140"},
		{"bad json", `{"pattern":`, http.StatusBadRequest, "E140"},
		{"unknown field", `{"patern": "/"}`, http.StatusBadRequest, "E140"},
		{"trailing data", `{"pattern": "/"} {}`, http.StatusBadRequest, "E140"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			status := postJSON(t, ts.URL+"/api/generate", tt.body, &resp)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestRoutes(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	var resp routesResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/routes", &resp))
	require.Len(t, resp.Routes, len(testRoutes))
	assert.Equal(t, "home", resp.Routes[0].Name)
	assert.True(t, resp.Routes[0].Exact)
	assert.Equal(t, "/users/:id", resp.Routes[1].Redirect.To)
	assert.Equal(t, []string{"/about", "/info"}, resp.Routes[3].Paths)
}

func TestNavigateAndGo(t *testing.T) {
	srv, ts := newTestServer(t, testRoutes, history.WithBasename("/app"))

	var loc locationResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/location", &loc))
	assert.Equal(t, "/", loc.Location.Pathname)
	assert.Equal(t, "/app/", loc.Href)
	require.NotNil(t, loc.Selection)
	assert.Equal(t, "home", loc.Selection.Route.Name)

	status := postJSON(t, ts.URL+"/api/navigate", `{"to": "/u/7", "state": {"from": "test"}}`, &loc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/users/7", loc.Location.Pathname, "redirect should be followed")
	assert.Equal(t, "/app/users/7", loc.Href)
	assert.Equal(t, history.Replace, loc.Action)
	assert.Empty(t, loc.Code)

	status = postJSON(t, ts.URL+"/api/navigate", `{"to": "/about", "params": {"q": "x"}}`, &loc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/about", loc.Location.Pathname)
	assert.Equal(t, "?q=x", loc.Location.Search)
	assert.Equal(t, 3, srv.Router().History().Len())

	status = postJSON(t, ts.URL+"/api/go", `{"delta": -1}`, &loc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/users/7", loc.Location.Pathname)
	assert.Equal(t, history.Pop, loc.Action)

	var errResp errorResponse
	status = postJSON(t, ts.URL+"/api/navigate", `{"to": "https://evil.example/"}`, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "E140", errResp.Code)
}

func TestNavigateReportsRoutingError(t *testing.T) {
	routes := []router.Route{
		{Name: "a", Paths: []string{"/a"}, Redirect: &router.Redirect{To: "/b"}},
		{Name: "b", Paths: []string{"/b"}, Redirect: &router.Redirect{To: "/a"}},
		{Name: "rest"},
	}
	_, ts := newTestServer(t, routes)

	var loc locationResponse
	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/navigate", `{"to": "/a"}`, &loc))
	assert.Equal(t, "E204", loc.Code)
	assert.NotEmpty(t, loc.Error)
}

func TestStateStream(t *testing.T) {
	srv, ts := newTestServer(t, testRoutes)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, "/", msg.State.Location.Pathname)

	require.NoError(t, srv.Router().Navigate("/u/9"))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "/users/9", msg.State.Location.Pathname, "only the settled state is streamed")
	assert.Equal(t, "user", msg.State.Selection.Route.Name)
	assert.Equal(t, "/users/9", msg.Href)

	assert.Eventually(t, func() bool {
		var body bytes.Buffer
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			return false
		}
		_, _ = io.Copy(&body, resp.Body)
		resp.Body.Close()
		return strings.Contains(body.String(), "vroute_http_websocket_connections 1") &&
			strings.Contains(body.String(), "vroute_http_websocket_messages_sent_total 2")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStateStreamClosedOnShutdown(t *testing.T) {
	srv, ts := newTestServer(t, testRoutes)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))

	require.NoError(t, srv.Shutdown(context.Background()))

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestMetricsAndHealth(t *testing.T) {
	_, ts := newTestServer(t, testRoutes)

	var sink matchResponse
	getJSON(t, ts.URL+"/api/match?path=/about", &sink)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `vroute_http_requests_total{method="GET",route="/api/match",status="200"} 1`)
}

func TestServeAndShutdown(t *testing.T) {
	h := history.NewMemory()
	r := router.NewRouter(h, nil, testRoutes, router.WithRouterLogger(discardLogger()))
	require.NoError(t, r.Start())
	defer r.Stop()

	srv := New(r, &Config{ShutdownTimeout: time.Second}, WithRegistry(prometheus.NewRegistry()), WithLogger(discardLogger()))
	assert.Equal(t, "/metrics", srv.Config().MetricsPath)
	assert.Equal(t, DefaultConfig().Address, srv.Config().Address)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewRegistry(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

func TestNavigateKeepsTrailingSlash(t *testing.T) {
	routes := []router.Route{
		{Name: "about-slash", Paths: []string{"/about/"}, Options: router.Options{Exact: true, Strict: true}},
		{Name: "about", Paths: []string{"/about"}},
	}
	_, ts := newTestServer(t, routes)

	var loc locationResponse
	status := postJSON(t, ts.URL+"/api/navigate", `{"to": "/about/"}`, &loc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/about/", loc.Location.Pathname)
	require.NotNil(t, loc.Selection)
	assert.Equal(t, "about-slash", loc.Selection.Route.Name)

	status = postJSON(t, ts.URL+"/api/navigate", `{"to": "/about/", "canonical": true}`, &loc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/about", loc.Location.Pathname)
	require.NotNil(t, loc.Selection)
	assert.Equal(t, "about", loc.Selection.Route.Name)
}

func TestNavigateByHashHref(t *testing.T) {
	_, ts := newTestServer(t, testRoutes,
		history.WithBasename("/app"), history.WithHashType(history.HashBang))

	var loc locationResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/location", &loc))
	assert.Equal(t, "#!/app/", loc.Href)

	status := postJSON(t, ts.URL+"/api/navigate", `{"href": "https://example.com/index.html#!/app/users/4?tab=2"}`, &loc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/users/4", loc.Location.Pathname)
	assert.Equal(t, "?tab=2", loc.Location.Search)
	assert.Equal(t, "#!/app/users/4?tab=2", loc.Href)

	var errResp errorResponse
	status = postJSON(t, ts.URL+"/api/navigate", `{"to": "/about", "href": "#!/app/about"}`, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "E140", errResp.Code)
}
