package router

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vroute/pkg/pathexp"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pathname string
		pattern  string
		opts     Options
		want     *Match
	}{
		{
			name:     "param exact pathname",
			pathname: "/users/5",
			pattern:  "/users/:id",
			want:     &Match{Path: "/users/:id", URL: "/users/5", IsExact: true, Params: Params{"id": "5"}},
		},
		{
			name:     "exact rejects partial prefix",
			pathname: "/users/5/edit",
			pattern:  "/users/:id",
			opts:     Options{Exact: true},
			want:     nil,
		},
		{
			name:     "prefix match",
			pathname: "/users/5/edit",
			pattern:  "/users/:id",
			want:     &Match{Path: "/users/:id", URL: "/users/5", IsExact: false, Params: Params{"id": "5"}},
		},
		{
			name:     "case insensitive keeps original case",
			pathname: "/Users",
			pattern:  "/users",
			want:     &Match{Path: "/users", URL: "/Users", IsExact: true, Params: Params{}},
		},
		{
			name:     "case sensitive",
			pathname: "/Users",
			pattern:  "/users",
			opts:     Options{Sensitive: true},
			want:     nil,
		},
		{
			name:     "trailing slash tolerated",
			pathname: "/about/",
			pattern:  "/about",
			want:     &Match{Path: "/about", URL: "/about/", IsExact: true, Params: Params{}},
		},
		{
			name:     "trailing slash significant when strict",
			pathname: "/about/",
			pattern:  "/about",
			opts:     Options{Strict: true},
			want:     &Match{Path: "/about", URL: "/about", IsExact: false, Params: Params{}},
		},
		{
			name:     "strict exact rejects trailing slash",
			pathname: "/about/",
			pattern:  "/about",
			opts:     Options{Strict: true, Exact: true},
			want:     nil,
		},
		{
			name:     "segment boundary",
			pathname: "/aboutus",
			pattern:  "/about",
			want:     nil,
		},
		{
			name:     "root prefix",
			pathname: "/about",
			pattern:  "/",
			want:     &Match{Path: "/", URL: "/", IsExact: false, Params: Params{}},
		},
		{
			name:     "root exact",
			pathname: "/",
			pattern:  "/",
			opts:     Options{Exact: true},
			want:     &Match{Path: "/", URL: "/", IsExact: true, Params: Params{}},
		},
		{
			name:     "root strict keeps slash tolerance",
			pathname: "/",
			pattern:  "/",
			opts:     Options{Strict: true, Exact: true},
			want:     &Match{Path: "/", URL: "/", IsExact: true, Params: Params{}},
		},
		{
			name:     "optional param absent",
			pathname: "/users",
			pattern:  "/users/:id?",
			want:     &Match{Path: "/users/:id?", URL: "/users", IsExact: true, Params: Params{}},
		},
		{
			name:     "optional param present",
			pathname: "/users/9",
			pattern:  "/users/:id?",
			want:     &Match{Path: "/users/:id?", URL: "/users/9", IsExact: true, Params: Params{"id": "9"}},
		},
		{
			name:     "wildcard",
			pathname: "/files/a/b",
			pattern:  "/files/*",
			want:     &Match{Path: "/files/*", URL: "/files/a/b", IsExact: true, Params: Params{"0": "a/b"}},
		},
		{
			name:     "decoded param",
			pathname: "/users/caf%C3%A9",
			pattern:  "/users/:id",
			want:     &Match{Path: "/users/:id", URL: "/users/caf%C3%A9", IsExact: true, Params: Params{"id": "café"}},
		},
		{
			name:     "malformed escape keeps raw value",
			pathname: "/users/%E0%A4%A",
			pattern:  "/users/:id",
			want:     &Match{Path: "/users/:id", URL: "/users/%E0%A4%A", IsExact: true, Params: Params{"id": "%E0%A4%A"}},
		},
		{
			name:     "custom group",
			pathname: "/en/docs",
			pattern:  "/:lang(en|de)/docs",
			want:     &Match{Path: "/:lang(en|de)/docs", URL: "/en/docs", IsExact: true, Params: Params{"lang": "en"}},
		},
		{
			name:     "custom group rejects",
			pathname: "/fr/docs",
			pattern:  "/:lang(en|de)/docs",
			want:     nil,
		},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(tt.pathname, tt.pattern, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchInvalidPattern(t *testing.T) {
	patterns := []string{
		"/users/:",
		"/a/(b",
		"/a/()",
		"/:id/:id",
		"/a)",
		"/:id([)",
	}

	m := NewMatcher()
	for _, p := range patterns {
		t.Run(p, func(t *testing.T) {
			got, err := m.Match("/a", p, Options{})
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, pathexp.ErrInvalidPattern), "error %v", err)

			var syntaxErr *pathexp.SyntaxError
			assert.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, p, syntaxErr.Pattern)
		})
	}

	assert.Panics(t, func() {
		m.MustCompile([]string{"/users/:"}, Options{})
	})
}

func TestMatchPath(t *testing.T) {
	m := NewMatcher()

	got, err := m.MatchPath("/b/3", []string{"/a", "/b/:id"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/b/:id", got.Path)
	assert.Equal(t, Params{"id": "3"}, got.Params)

	got, err = m.MatchPath("/c", []string{"/a", "/b/:id"}, Options{})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.MatchPath("/anything", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, RootMatch("/anything"), got)

	// Later alternatives are not compiled once one matches.
	got, err = m.MatchPath("/a", []string{"/a", "/:"}, Options{})
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCompile(t *testing.T) {
	m := NewMatcher()

	root, err := m.Compile(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, &Match{Path: "/", URL: "/", IsExact: false, Params: Params{}}, root.Match("/x"))
	assert.True(t, root.Match("/").IsExact)
	assert.Empty(t, root.ParamNames())

	single, err := m.Compile([]string{"/u/:id"}, Options{Exact: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, single.ParamNames())
	assert.Nil(t, single.Match("/u/1/x"))

	multi, err := m.Compile([]string{"/u/:id", "/g/:gid/u/:id"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "gid"}, multi.ParamNames())
	assert.Equal(t, "/g/:gid/u/:id", multi.Match("/g/2/u/3").Path)

	_, err = m.Compile([]string{"/ok", "/:"}, Options{})
	assert.ErrorIs(t, err, pathexp.ErrInvalidPattern)
}

func TestRootMatch(t *testing.T) {
	assert.Equal(t, &Match{Path: "/", URL: "/", IsExact: true, Params: Params{}}, RootMatch("/"))
	assert.False(t, RootMatch("/about").IsExact)
}

func TestSelectFirst(t *testing.T) {
	m := NewMatcher()

	t.Run("declared order with exact root", func(t *testing.T) {
		routes := []Route{
			{Name: "home", Paths: []string{"/"}, Options: Options{Exact: true}},
			{Name: "about", Paths: []string{"/about"}},
		}
		sel, err := m.SelectFirst("/about", routes, RootMatch("/about"))
		require.NoError(t, err)
		require.NotNil(t, sel)
		assert.Equal(t, 1, sel.Index)
		assert.Equal(t, "about", sel.Route.Name)
		assert.Equal(t, "/about", sel.Match.URL)
	})

	t.Run("declared order with prefix root", func(t *testing.T) {
		routes := []Route{
			{Name: "home", Paths: []string{"/"}},
			{Name: "about", Paths: []string{"/about"}},
		}
		// First match wins: the prefix root is declared first and matches
		// every pathname, so it is selected even though /about is exact.
		sel, err := m.SelectFirst("/about", routes, RootMatch("/about"))
		require.NoError(t, err)
		require.NotNil(t, sel)
		assert.Equal(t, 0, sel.Index)
		assert.Equal(t, "home", sel.Route.Name)
		assert.Equal(t, "/", sel.Match.URL)
		assert.False(t, sel.Match.IsExact)
	})

	t.Run("non-matching earlier route is skipped", func(t *testing.T) {
		routes := []Route{
			{Name: "list", Paths: []string{"/a"}, Options: Options{Exact: true}},
			{Name: "item", Paths: []string{"/a/:id"}},
		}
		sel, err := m.SelectFirst("/a/1", routes, nil)
		require.NoError(t, err)
		require.NotNil(t, sel)
		assert.Equal(t, "item", sel.Route.Name)
		assert.Equal(t, Params{"id": "1"}, sel.Match.Params)
	})

	t.Run("first prefix match wins", func(t *testing.T) {
		routes := []Route{
			{Name: "list", Paths: []string{"/a"}},
			{Name: "item", Paths: []string{"/a/:id"}},
		}
		sel, err := m.SelectFirst("/a/1", routes, nil)
		require.NoError(t, err)
		require.NotNil(t, sel)
		assert.Equal(t, "list", sel.Route.Name)
		assert.False(t, sel.Match.IsExact)
	})

	t.Run("pathless route takes fallback", func(t *testing.T) {
		routes := []Route{
			{Name: "x", Paths: []string{"/x"}},
			{Name: "fallback"},
		}
		fallback := RootMatch("/y")
		sel, err := m.SelectFirst("/y", routes, fallback)
		require.NoError(t, err)
		require.NotNil(t, sel)
		assert.Equal(t, "fallback", sel.Route.Name)
		assert.Same(t, fallback, sel.Match)

		sel, err = m.SelectFirst("/y", routes, nil)
		require.NoError(t, err)
		assert.Nil(t, sel)
	})

	t.Run("short circuit", func(t *testing.T) {
		routes := []Route{
			{Name: "a", Paths: []string{"/sc"}},
			{Name: "broken", Paths: []string{"/sc/:"}},
		}
		sel, err := m.SelectFirst("/sc", routes, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, sel.Index)

		_, err = m.SelectFirst("/other", routes, nil)
		assert.ErrorIs(t, err, pathexp.ErrInvalidPattern)
	})

	t.Run("no match", func(t *testing.T) {
		sel, err := m.SelectFirst("/nothing", []Route{{Paths: []string{"/x"}}}, nil)
		require.NoError(t, err)
		assert.Nil(t, sel)
	})
}

func TestRouteMatch(t *testing.T) {
	m := NewMatcher()
	parent := &Match{Path: "/p", URL: "/p", Params: Params{"k": "v"}}

	got, err := m.RouteMatch("/p/q", Route{}, parent)
	require.NoError(t, err)
	assert.Same(t, parent, got)

	got, err = m.RouteMatch("/p/q", Route{Paths: []string{"/p/:x"}, Options: Options{Exact: true}}, parent)
	require.NoError(t, err)
	assert.Equal(t, Params{"x": "q"}, got.Params)
}

func TestGeneratePath(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		params  Params
		want    string
		wantErr error
	}{
		{name: "root", pattern: "/", want: "/"},
		{name: "param", pattern: "/users/:id", params: Params{"id": "5"}, want: "/users/5"},
		{name: "optional omitted", pattern: "/users/:id?", params: Params{}, want: "/users"},
		{name: "optional empty", pattern: "/users/:id?", params: Params{"id": ""}, want: "/users"},
		{name: "missing required", pattern: "/users/:id", params: Params{}, wantErr: pathexp.ErrMissingParam},
		{name: "escaped", pattern: "/q/:term", params: Params{"term": "a b/c?d#e"}, want: "/q/a%20b%2Fc%3Fd%23e"},
		{name: "pretty keeps reserved", pattern: "/q/:term", params: Params{"term": "a:b@c"}, want: "/q/a:b@c"},
		{name: "wildcard keeps slashes", pattern: "/files/*", params: Params{"0": "a/b c"}, want: "/files/a/b%20c"},
		{name: "repeat", pattern: "/tags/:tag+", params: Params{"tag": "x/y"}, want: "/tags/x/y"},
		{name: "mismatch", pattern: "/:n(\\d+)", params: Params{"n": "abc"}, wantErr: pathexp.ErrParamMismatch},
		{name: "invalid pattern", pattern: "/:", wantErr: pathexp.ErrInvalidPattern},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.GeneratePath(tt.pattern, tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeneratePathMissingParamNamesPattern(t *testing.T) {
	_, err := NewMatcher().GeneratePath("/users/:id", Params{})

	var pe *pathexp.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "id", pe.Name)
	assert.Equal(t, "/users/:id", pe.Pattern)
}

func TestGenerateMatchRoundTrip(t *testing.T) {
	tests := []struct {
		pattern string
		params  Params
	}{
		{"/users/:id", Params{"id": "5"}},
		{"/users/:id", Params{"id": "a b"}},
		{"/users/:id", Params{"id": "x/y"}},
		{"/users/:id", Params{"id": "50%"}},
		{"/users/:id", Params{"id": "héllo"}},
		{"/users/:id", Params{"id": "q?#"}},
		{"/:org/repos/:repo", Params{"org": "acme", "repo": "road-runner"}},
		{"/files/:name.:ext", Params{"name": "report", "ext": "pdf"}},
		{"/static", Params{}},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			path, err := m.GeneratePath(tt.pattern, tt.params)
			require.NoError(t, err)

			match, err := m.Match(path, tt.pattern, Options{Exact: true})
			require.NoError(t, err)
			require.NotNil(t, match, "generated %q", path)
			assert.Equal(t, tt.params, match.Params)
		})
	}
}

func TestCacheStats(t *testing.T) {
	m := NewMatcher()

	_, err := m.Match("/a", "/a", Options{})
	require.NoError(t, err)
	_, err = m.Match("/a", "/a", Options{})
	require.NoError(t, err)
	_, err = m.Match("/a", "/a", Options{Exact: true})
	require.NoError(t, err)

	stats := m.Cache().Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(2), stats.Compiles)
	assert.Equal(t, int64(2), stats.Size)

	_, err = m.Match("/a", "/:", Options{})
	require.Error(t, err)
	assert.Equal(t, 2, m.Cache().Len())
}

func TestSharedCache(t *testing.T) {
	cache := NewCache()
	a := NewMatcher(WithCache(cache))
	b := NewMatcher(WithCache(cache))

	_, err := a.Match("/x", "/x", Options{})
	require.NoError(t, err)
	_, err = b.Match("/x", "/x", Options{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), cache.Stats().Hits)
}

func TestMatcherConcurrent(t *testing.T) {
	m := NewMatcher()
	patterns := []string{"/a/:id", "/b/:id", "/c/*"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := patterns[i%len(patterns)]
			for j := 0; j < 50; j++ {
				_, err := m.Match("/a/1", p, Options{})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, m.Cache().Len())
	assert.Equal(t, uint64(32*50), m.Cache().Stats().Hits+m.Cache().Stats().Misses)
}

func TestMatcherMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)
	m := NewMatcher(WithMetrics(metrics))

	_, _ = m.Match("/a", "/a", Options{})
	_, _ = m.Match("/a", "/a", Options{})
	_, _ = m.Match("/a", "/:", Options{})
	_, _ = m.SelectFirst("/a", []Route{{Paths: []string{"/a"}}}, nil)
	_, _ = m.SelectFirst("/z", []Route{{Paths: []string{"/a"}}}, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.compileErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.selections.WithLabelValues(outcomeMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.selections.WithLabelValues(outcomeNoMatch)))
}
