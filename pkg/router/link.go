package router

import (
	"github.com/vango-dev/vroute/pkg/history"
	"github.com/vango-dev/vroute/pkg/pathexp"
)

// Link is a resolved link target.
type Link struct {
	// Location is where following the link leads.
	Location history.Location `json:"location"`

	// Href is the rendered href, including the history's basename.
	Href string `json:"href"`
}

// ResolveLink resolves to against current and renders its href with h.
// An empty to points at the current location.
func ResolveLink(to string, current history.Location, h history.History) Link {
	loc := history.CreateLocation(to, nil, "", &current)
	return Link{
		Location: loc,
		Href:     h.CreateHref(loc),
	}
}

// IsActive reports whether a link to to is active at current. The link's
// pathname is matched literally, as a pattern with every special
// character escaped, using opts.
func (m *Matcher) IsActive(current history.Location, to string, opts Options) (bool, *Match, error) {
	target := history.CreateLocation(to, nil, "", &current)
	match, err := m.Match(current.Pathname, pathexp.EscapePattern(target.Pathname), opts)
	if err != nil {
		return false, nil, err
	}
	return match != nil, match, nil
}

// ActiveClass returns className with activeClassName appended when active.
func ActiveClass(className, activeClassName string, active bool) string {
	if !active || activeClassName == "" {
		return className
	}
	if className == "" {
		return activeClassName
	}
	return className + " " + activeClassName
}
