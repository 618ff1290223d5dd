package router

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vango-dev/vroute/pkg/history"
	"github.com/vango-dev/vroute/pkg/routepath"
)

// DefaultMaxRedirects bounds a chain of redirects triggered by one
// navigation.
const DefaultMaxRedirects = 10

// ErrRedirectLoop is reported when a navigation keeps redirecting.
var ErrRedirectLoop = errors.New("router: too many redirects")

// State is what the router currently shows.
type State struct {
	Location  history.Location `json:"location"`
	Action    history.Action   `json:"action"`
	Root      *Match           `json:"root"`
	Selection *Selection       `json:"selection,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMaxRedirects sets the redirect chain limit.
func WithMaxRedirects(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// WithRouterLogger sets the logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// Router keeps a route selection in sync with a history. Every history
// change selects the first matching route; redirect routes move the
// history on to their target.
type Router struct {
	history      history.History
	matcher      *Matcher
	logger       *slog.Logger
	maxRedirects int

	mu       sync.Mutex
	routes   []Route
	state    State
	err      error
	started  bool
	pending  *history.Update
	unlisten func()

	// redirect chain bookkeeping
	redirectTo    string
	redirectCount int

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewRouter creates a router over h. A nil m gets a fresh Matcher.
func NewRouter(h history.History, m *Matcher, routes []Route, opts ...RouterOption) *Router {
	if m == nil {
		m = NewMatcher()
	}
	r := &Router{
		history:      h,
		matcher:      m,
		maxRedirects: DefaultMaxRedirects,
		routes:       cloneRoutes(routes),
		subs:         make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Start subscribes to the history and resolves the current location.
// Changes that arrive while starting are applied in place of the initial
// location. The returned error is the outcome of that first resolution.
func (r *Router) Start() error {
	r.mu.Lock()
	if r.started || r.unlisten != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	unlisten := r.history.Listen(r.handle)
	u := history.Update{Action: r.history.Action(), Location: r.history.Location()}

	r.mu.Lock()
	r.unlisten = unlisten
	r.started = true
	if r.pending != nil {
		u = *r.pending
		r.pending = nil
	}
	r.mu.Unlock()

	r.logger.Info("router started", "path", u.Location.Path(), "routes", len(r.Routes()))
	r.handle(u)
	return r.Err()
}

// Stop unsubscribes from the history.
func (r *Router) Stop() {
	r.mu.Lock()
	unlisten := r.unlisten
	r.unlisten = nil
	r.started = false
	r.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
}

// State returns the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error of the last resolution, if any.
func (r *Router) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// History returns the underlying history.
func (r *Router) History() history.History {
	return r.history
}

// Matcher returns the matcher.
func (r *Router) Matcher() *Matcher {
	return r.matcher
}

// Routes returns a copy of the route table.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRoutes(r.routes)
}

// SetRoutes swaps the route table and re-resolves the current location.
func (r *Router) SetRoutes(routes []Route) error {
	r.mu.Lock()
	r.routes = cloneRoutes(routes)
	started := r.started
	r.mu.Unlock()

	r.logger.Info("route table replaced", "routes", len(routes))
	if !started {
		return nil
	}
	r.handle(history.Update{Action: r.history.Action(), Location: r.history.Location()})
	return r.Err()
}

// Subscribe registers fn for every settled state. The returned func
// cancels the subscription.
func (r *Router) Subscribe(fn func(State)) (cancel func()) {
	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

// Resolve selects the route for pathname without touching the history.
func (r *Router) Resolve(pathname string) (*Selection, error) {
	return r.matcher.SelectFirst(pathname, r.Routes(), RootMatch(pathname))
}

func (r *Router) handle(u history.Update) {
	r.mu.Lock()
	if !r.started {
		r.pending = &u
		r.mu.Unlock()
		return
	}

	chain := 0
	if r.redirectTo != "" && u.Location.Path() == r.redirectTo {
		chain = r.redirectCount
	}
	r.redirectTo = ""
	r.redirectCount = 0

	routes := r.routes
	r.mu.Unlock()

	loc := u.Location
	state := State{
		Location: loc,
		Action:   u.Action,
		Root:     RootMatch(loc.Pathname),
	}

	sel, err := r.matcher.SelectFirst(loc.Pathname, routes, state.Root)
	state.Selection = sel

	var target *history.Location
	if err == nil && sel != nil && sel.Route.Redirect != nil {
		target, err = r.redirectTarget(sel, loc)
		if err == nil && target != nil && chain >= r.maxRedirects {
			err = fmt.Errorf("%w: stopped at %q after %d redirects", ErrRedirectLoop, loc.Path(), chain)
			target = nil
		}
	}

	if err != nil {
		state.Error = err.Error()
		r.logger.Error("route resolution failed", "path", loc.Path(), "error", err)
	}

	r.mu.Lock()
	r.state = state
	r.err = err
	if target != nil {
		r.redirectTo = target.Path()
		r.redirectCount = chain + 1
	}
	r.mu.Unlock()

	if target != nil {
		r.matcher.metrics.observeRedirect()
		r.logger.Info("redirect",
			"from", loc.Path(),
			"to", target.Path(),
			"route", sel.Route.Name,
			"push", sel.Route.Redirect.Push,
		)
		if sel.Route.Redirect.Push {
			r.history.Push(target.Path(), target.State)
		} else {
			r.history.Replace(target.Path(), target.State)
		}
		return
	}

	r.publish(state)
}

// redirectTarget computes where a redirect route sends loc. It returns nil
// when the target is loc itself.
func (r *Router) redirectTarget(sel *Selection, loc history.Location) (*history.Location, error) {
	pathname, search, hash := routepath.ParsePath(sel.Route.Redirect.To)
	path := search + hash
	if pathname != "" {
		generated, err := r.matcher.GeneratePath(pathname, sel.Match.Params)
		if err != nil {
			return nil, fmt.Errorf("redirect %q: %w", sel.Route.Redirect.To, err)
		}
		path = routepath.CreatePath(generated, search, hash)
	}

	target := history.CreateLocation(path, nil, "", &loc)
	if history.SamePath(target, loc) {
		r.logger.Debug("redirect target is current location", "path", loc.Path())
		return nil, nil
	}
	return &target, nil
}

func (r *Router) publish(state State) {
	r.subsMu.Lock()
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.subs[id])
	}
	r.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func cloneRoutes(routes []Route) []Route {
	if routes == nil {
		return nil
	}
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}
