package router

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vango-dev/vroute/pkg/history"
	"github.com/vango-dev/vroute/pkg/routepath"
)

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// Params are query parameters to add to the URL.
	Params map[string]any

	// State is attached to the new history entry.
	State any

	// Canonical normalizes the target pathname: trailing slash removed,
	// repeated slashes collapsed, dot segments resolved.
	Canonical bool
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithParams adds query parameters to the navigation URL.
func WithParams(params map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Params = params
	}
}

// WithState attaches state to the new history entry.
func WithState(state any) NavigateOption {
	return func(o *NavigateOptions) {
		o.State = state
	}
}

// WithCanonicalPath normalizes the target pathname before navigating.
func WithCanonicalPath() NavigateOption {
	return func(o *NavigateOptions) {
		o.Canonical = true
	}
}

// NavigationRequest represents a pending navigation.
type NavigationRequest struct {
	Path    string
	Options NavigateOptions
}

// Navigator performs programmatic navigation.
type Navigator interface {
	// Navigate moves to the given path.
	Navigate(path string, opts ...NavigateOption) error

	// Back navigates back in history.
	Back()

	// Forward navigates forward in history.
	Forward()

	// Go moves n entries through history.
	Go(n int)
}

// BuildURL resolves the request against current and returns the target.
// Relative paths and bare "?query" or "#hash" targets are resolved the way
// a link would; absolute URLs are rejected. The pathname is kept as
// written unless Canonical is set.
func (nr *NavigationRequest) BuildURL(current history.Location) (string, error) {
	if err := routepath.ValidateNavTarget(nr.Path); err != nil {
		return "", fmt.Errorf("invalid path %q: %w", nr.Path, err)
	}

	loc := history.CreateLocation(nr.Path, nil, "", &current)
	pathname, search := loc.Pathname, loc.Search

	if nr.Options.Canonical {
		res, err := routepath.CanonicalizePath(pathname)
		if err != nil {
			return "", fmt.Errorf("invalid path %q: %w", nr.Path, err)
		}
		pathname = res.Path
	}

	if len(nr.Options.Params) > 0 {
		q, err := url.ParseQuery(strings.TrimPrefix(search, "?"))
		if err != nil {
			return "", fmt.Errorf("invalid query %q: %w", search, err)
		}
		for k, v := range nr.Options.Params {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		search = "?" + q.Encode()
	}

	return routepath.CreatePath(pathname, search, loc.Hash), nil
}

// Navigate pushes (or replaces) the history entry for path. Selection and
// redirects run synchronously before Navigate returns; their outcome is
// available from State.
func (r *Router) Navigate(path string, opts ...NavigateOption) error {
	req := NavigationRequest{Path: path}
	for _, opt := range opts {
		opt(&req.Options)
	}

	target, err := req.BuildURL(r.history.Location())
	if err != nil {
		return err
	}

	if req.Options.Replace {
		r.history.Replace(target, req.Options.State)
	} else {
		r.history.Push(target, req.Options.State)
	}
	return nil
}

// Back navigates back in history.
func (r *Router) Back() {
	r.history.Back()
}

// Forward navigates forward in history.
func (r *Router) Forward() {
	r.history.Forward()
}

// Go moves n entries through history.
func (r *Router) Go(n int) {
	r.history.Go(n)
}

var _ Navigator = (*Router)(nil)
