package router

import (
	"log/slog"

	"github.com/vango-dev/vroute/pkg/pathexp"
	"github.com/vango-dev/vroute/pkg/routepath"
)

// Recognizer matches pathnames for one route declaration.
type Recognizer interface {
	// Match returns the match for pathname, or nil.
	Match(pathname string) *Match

	// ParamNames returns the parameter names in capture order.
	ParamNames() []string
}

// Compiled is a pattern compiled with a fixed set of options.
type Compiled struct {
	Pattern string
	Options Options

	re *pathexp.Regexp
}

// ParamNames returns the parameter names in capture order.
func (c *Compiled) ParamNames() []string {
	return c.re.ParamNames()
}

// Match runs the pattern against pathname.
func (c *Compiled) Match(pathname string) *Match {
	consumed, values, ok := c.re.Exec(pathname)
	if !ok {
		return nil
	}

	url := consumed
	if c.Pattern == "/" && url == "" {
		url = "/"
	}
	isExact := pathname == url
	if c.Options.Exact && !isExact {
		return nil
	}

	params := make(Params, len(values))
	for i, v := range values {
		if !v.Matched {
			continue
		}
		params[c.re.Keys[i].Name] = routepath.DecodeParam(v.Raw)
	}

	return &Match{
		Path:    c.Pattern,
		URL:     url,
		IsExact: isExact,
		Params:  params,
	}
}

// rootRecognizer stands in for a declaration without a pattern.
type rootRecognizer struct{}

func (rootRecognizer) Match(pathname string) *Match { return RootMatch(pathname) }

func (rootRecognizer) ParamNames() []string { return nil }

// union tries each alternative in declared order.
type union []*Compiled

func (u union) Match(pathname string) *Match {
	for _, c := range u {
		if m := c.Match(pathname); m != nil {
			return m
		}
	}
	return nil
}

func (u union) ParamNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, c := range u {
		for _, name := range c.ParamNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithCache shares an existing cache.
func WithCache(c *Cache) MatcherOption {
	return func(m *Matcher) {
		m.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// WithMetrics records cache and selection metrics.
func WithMetrics(metrics *Metrics) MatcherOption {
	return func(m *Matcher) {
		m.metrics = metrics
	}
}

// Matcher compiles, matches, selects and generates paths. It owns the
// pattern cache, so an application creates one at start-up and shares it.
// A Matcher is safe for concurrent use.
type Matcher struct {
	cache   *Cache
	logger  *slog.Logger
	metrics *Metrics
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = NewCache()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Cache returns the pattern cache.
func (m *Matcher) Cache() *Cache {
	return m.cache
}

// Metrics returns the metrics, or nil.
func (m *Matcher) Metrics() *Metrics {
	return m.metrics
}

// Compile builds the recognizer for a declaration. No patterns yields the
// root recognizer, one pattern a *Compiled and several a union tried in
// order. Every pattern is compiled eagerly.
func (m *Matcher) Compile(patterns []string, opts Options) (Recognizer, error) {
	switch len(patterns) {
	case 0:
		return rootRecognizer{}, nil
	case 1:
		return m.compile(patterns[0], opts)
	}

	u := make(union, 0, len(patterns))
	for _, p := range patterns {
		c, err := m.compile(p, opts)
		if err != nil {
			return nil, err
		}
		u = append(u, c)
	}
	return u, nil
}

// MustCompile is like Compile but panics on error.
func (m *Matcher) MustCompile(patterns []string, opts Options) Recognizer {
	r, err := m.Compile(patterns, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// Match matches pathname against a single pattern. A nil result with a
// nil error means no match.
func (m *Matcher) Match(pathname, pattern string, opts Options) (*Match, error) {
	c, err := m.compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	return c.Match(pathname), nil
}

// MatchPath tries patterns in order and returns the first match. Patterns
// after the first match are not compiled. No patterns yields the root
// match.
func (m *Matcher) MatchPath(pathname string, patterns []string, opts Options) (*Match, error) {
	if len(patterns) == 0 {
		return RootMatch(pathname), nil
	}
	for _, p := range patterns {
		match, err := m.Match(pathname, p, opts)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, nil
}

// RouteMatch matches a single declaration. A declaration without patterns
// inherits parent.
func (m *Matcher) RouteMatch(pathname string, route Route, parent *Match) (*Match, error) {
	if !route.HasPattern() {
		return parent, nil
	}
	return m.MatchPath(pathname, route.Paths, route.Options)
}

// SelectFirst returns the first declaration in routes that matches
// pathname. Declarations without patterns take fallback. Evaluation stops
// at the first match, so later declarations are never compiled. The result
// is nil when nothing matches.
func (m *Matcher) SelectFirst(pathname string, routes []Route, fallback *Match) (*Selection, error) {
	for i, route := range routes {
		match, err := m.RouteMatch(pathname, route, fallback)
		if err != nil {
			m.metrics.observeSelection(outcomeError)
			return nil, err
		}
		if match != nil {
			m.metrics.observeSelection(outcomeMatched)
			return &Selection{Index: i, Route: route, Match: match}, nil
		}
	}
	m.metrics.observeSelection(outcomeNoMatch)
	return nil, nil
}

// GeneratePath fills pattern with params. Values are escaped for a path
// segment; wildcard values keep their slashes. The root pattern "/"
// always yields "/".
func (m *Matcher) GeneratePath(pattern string, params Params) (string, error) {
	if pattern == "/" {
		return pattern, nil
	}

	fn, hit, err := m.cache.pathFunc(pattern)
	if err != nil {
		m.metrics.observeCompileError()
		m.logger.Warn("invalid route pattern", "pattern", pattern, "error", err)
		return "", err
	}
	m.metrics.observeCache(hit, m.cache.Len())

	return fn.Render(params, true)
}

func (m *Matcher) compile(pattern string, opts Options) (*Compiled, error) {
	c, hit, err := m.cache.compiled(pattern, opts)
	if err != nil {
		m.metrics.observeCompileError()
		m.logger.Warn("invalid route pattern", "pattern", pattern, "error", err)
		return nil, err
	}
	m.metrics.observeCache(hit, m.cache.Len())
	if !hit {
		m.logger.Debug("compiled route pattern",
			"pattern", pattern,
			"exact", opts.Exact,
			"strict", opts.Strict,
			"sensitive", opts.Sensitive,
			"regexp", c.re.String(),
		)
	}
	return c, nil
}
