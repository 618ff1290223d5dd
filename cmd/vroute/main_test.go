package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/router"
)

const testTable = `{
  "name": "test",
  "routes": [
    {"name": "home", "path": "/", "exact": true},
    {"name": "user", "path": "/users/:id"},
    {"name": "old", "path": "/u/:id", "redirect": {"to": "/users/:id"}}
  ]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var ce *errors.CodedError
	require.True(t, stderrors.As(err, &ce), "error %v is not a CodedError", err)
	assert.Equal(t, code, ce.Code)
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    "+version)
	assert.Contains(t, out, "Commit:     "+commit)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"required", []string{"/users/:id", "id=5"}, "/users/5\n"},
		{"escaped", []string{"/users/:id", "id=a b"}, "/users/a%20b\n"},
		{"optional omitted", []string{"/posts/:slug?"}, "/posts\n"},
		{"root", []string{"/"}, "/\n"},
		{"last value wins", []string{"/users/:id", "id=1", "id=2"}, "/users/2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"generate"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := run(t, "generate", "/users/:id")
	requireCode(t, err, "E202")

	_, err = run(t, "generate", "/users/:id", "id")
	requireCode(t, err, "E140")

	_, err = run(t, "generate", "/users/:id", "=5")
	requireCode(t, err, "E140")

	_, err = run(t, "generate")
	assert.Error(t, err)
}

func TestMatchPattern(t *testing.T) {
	out, err := run(t, "match", "/users/5/posts", "--pattern", "/users/:id")
	require.NoError(t, err)
	assert.Contains(t, out, "url:      /users/5")
	assert.Contains(t, out, "exact:    false")
	assert.Contains(t, out, "param:    id=5")

	out, err = run(t, "match", "/users/5/posts", "--pattern", "/users/:id", "--exact")
	require.NoError(t, err)
	assert.Equal(t, "no match for /users/5/posts\n", out)

	out, err = run(t, "match", "/Users/5", "--pattern", "/users/:id", "--sensitive")
	require.NoError(t, err)
	assert.Contains(t, out, "no match")
}

func TestMatchPatternJSON(t *testing.T) {
	out, err := run(t, "match", "/users/5", "--pattern", "/users/:id", "--json")
	require.NoError(t, err)

	var m router.Match
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "/users/:id", m.Path)
	assert.Equal(t, "/users/5", m.URL)
	assert.True(t, m.IsExact)
	assert.Equal(t, router.Params{"id": "5"}, m.Params)

	out, err = run(t, "match", "/other", "--pattern", "/users/:id", "--json")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestMatchInvalidPattern(t *testing.T) {
	_, err := run(t, "match", "/users/5", "--pattern", "/users/:")
	requireCode(t, err, "E201")
}

func TestMatchRouteTable(t *testing.T) {
	path := writeTable(t, testTable)

	out, err := run(t, "match", "/users/7", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "route 1 user")
	assert.Contains(t, out, "param:    id=7")

	out, err = run(t, "match", "/u/7", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "route 2 old")
	assert.Contains(t, out, "redirect: /users/:id")

	out, err = run(t, "match", "/users/7", "--config", path, "--json")
	require.NoError(t, err)
	var sel router.Selection
	require.NoError(t, json.Unmarshal([]byte(out), &sel))
	assert.Equal(t, 1, sel.Index)
	assert.Equal(t, "user", sel.Route.Name)

	_, err = run(t, "match", "/nowhere", "--config", path)
	requireCode(t, err, "E205")
}

func TestMatchMissingTable(t *testing.T) {
	_, err := run(t, "match", "/", "--config", filepath.Join(t.TempDir(), "routes.json"))
	requireCode(t, err, "E141")
}

func TestCheck(t *testing.T) {
	path := writeTable(t, testTable)

	out, err := run(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 routes valid")
	assert.Contains(t, out, "/users/:id")
	assert.Contains(t, out, "/u/:id -> /users/:id")
	assert.NotContains(t, out, "SHADOWED_ROUTE")
	assert.NotContains(t, out, "DUPLICATE_ROUTE")

	out, err = run(t, "check", "--config", path, "--quiet")
	require.NoError(t, err)
	assert.NotContains(t, out, "/users/:id")
}

func TestCheckWarnsAboutShadowedRoutes(t *testing.T) {
	path := writeTable(t, `{"routes": [
		{"name": "home", "path": "/", "exact": true},
		{"name": "fallback"},
		{"name": "late", "path": "/late"}
	]}`)

	out, err := run(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(any)")
	assert.Contains(t, out, "SHADOWED_ROUTE: route 2 (late) follows route 1 (fallback)")
}

func TestCheckWarnsAboutConflicts(t *testing.T) {
	path := writeTable(t, `{"routes": [
		{"name": "root", "path": "/"},
		{"name": "about", "path": "/about"},
		{"name": "user", "path": "/users/:id", "exact": true},
		{"name": "again", "path": "/users/:id", "exact": true}
	]}`)

	out, err := run(t, "check", "--config", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "4 routes valid")
	assert.Contains(t, out, "SHADOWED_ROUTE: route 1 (about) always loses to route 0 (root) (/)")
	assert.Contains(t, out, "route 3 (again) declares the same patterns and options as route 2 (user)")

	out, err = run(t, "check", "--config", path, "--json")
	require.NoError(t, err)

	var res struct {
		Conflicts []router.Conflict `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Conflicts, 2)
	assert.Equal(t, router.ConflictShadowed, res.Conflicts[0].Type)
	assert.Equal(t, 1, res.Conflicts[0].Index)
	assert.Equal(t, 0, res.Conflicts[0].By)
}

func TestCheckInvalid(t *testing.T) {
	path := writeTable(t, `{"routes": [{"name": "bad", "path": "/users/:"}]}`)
	_, err := run(t, "check", "--config", path)
	requireCode(t, err, "E201")

	path = writeTable(t, `{"routes": [`)
	_, err = run(t, "check", "--config", path)
	requireCode(t, err, "E120")
}

func TestServeS3FlagsGoTogether(t *testing.T) {
	_, err := run(t, "serve", "--s3-bucket", "routes")
	requireCode(t, err, "E140")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseLogLevel("loud")
	requireCode(t, err, "E140")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	opts := &globalOptions{logFormat: "json"}
	logger, err := opts.newLogger(&buf, "warn")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])

	buf.Reset()
	opts = &globalOptions{logLevel: "debug", logFormat: "text"}
	logger, err = opts.newLogger(&buf, "error")
	require.NoError(t, err)
	logger.Debug("flag wins")
	assert.Contains(t, buf.String(), "flag wins")

	_, err = (&globalOptions{logFormat: "xml"}).newLogger(&buf, "")
	requireCode(t, err, "E140")
}

func TestNewServer(t *testing.T) {
	cfg, err := config.Parse([]byte(testTable), config.FormatJSON)
	require.NoError(t, err)
	cfg.Server.Basename = "/app"
	cfg.History.InitialEntries = []string{"/u/3"}
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := newServer(cfg, "127.0.0.1:0", logger)
	t.Cleanup(srv.Router().Stop)

	assert.Equal(t, "127.0.0.1:0", srv.Config().Address)
	assert.Equal(t, "/users/3", srv.Router().State().Location.Pathname)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/location", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var loc struct {
		Href string `json:"href"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.Equal(t, "/app/users/3", loc.Href)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vroute_router_redirects_total 1")
	assert.Contains(t, rec.Body.String(), `vroute_router_selections_total{outcome="matched"}`)
}

func TestCheckJSON(t *testing.T) {
	path := writeTable(t, testTable)
	out, err := run(t, "check", "--config", path, "--json")
	require.NoError(t, err)

	var res struct {
		Source    string            `json:"source"`
		Routes    int               `json:"routes"`
		Conflicts []router.Conflict `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, path, res.Source)
	assert.Equal(t, 3, res.Routes)
	assert.NotNil(t, res.Conflicts)
	assert.Empty(t, res.Conflicts)

	path = writeTable(t, `{"routes": [{"name": "bad", "path": "/users/:"}]}`)
	out, err = run(t, "check", "--config", path, "--json")
	requireCode(t, err, "E201")

	var failure struct {
		Code     string `json:"code"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &failure))
	assert.Equal(t, "E201", failure.Code)
	assert.Equal(t, "routing", failure.Category)
}

func TestExplain(t *testing.T) {
	out, err := run(t, "explain")
	require.NoError(t, err)
	assert.Contains(t, out, "E201")
	assert.Contains(t, out, "E205")
	assert.Less(t, strings.Index(out, "E120"), strings.Index(out, "E205"))

	out, err = run(t, "explain", "e204")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "E204: "))
	assert.Contains(t, out, "Docs:     https://")

	_, err = run(t, "explain", "E999")
	requireCode(t, err, "E140")
}
