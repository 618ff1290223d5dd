// Package history keeps the stack of visited locations a router reads from.
//
// A History owns an ordered list of entries and a cursor into it. Push adds
// an entry after the cursor (dropping any forward entries), Replace swaps the
// entry under the cursor and Go moves the cursor. Every change is reported to
// listeners registered with Listen.
//
//	h := history.NewMemory(history.WithInitialEntries("/", "/about"))
//	stop := h.Listen(func(u history.Update) {
//	    log.Println(u.Action, u.Location.Pathname)
//	})
//	defer stop()
//	h.Push("/users/5", nil)
package history

import (
	"reflect"
	"strings"

	"github.com/vango-dev/vroute/pkg/routepath"
)

// Action is the kind of change that produced the current location.
type Action string

// Action values.
const (
	// Pop is a cursor move (Go, Back, Forward) or the initial location.
	Pop Action = "POP"

	// Push adds a new entry.
	Push Action = "PUSH"

	// Replace overwrites the current entry.
	Replace Action = "REPLACE"
)

// Location is a single history entry.
type Location struct {
	Pathname string `json:"pathname"`
	Search   string `json:"search,omitempty"`
	Hash     string `json:"hash,omitempty"`
	State    any    `json:"state,omitempty"`
	Key      string `json:"key,omitempty"`
}

// Path returns the location as "pathname?search#hash".
func (l Location) Path() string {
	return routepath.CreatePath(l.Pathname, l.Search, l.Hash)
}

// Update is delivered to listeners after every change.
type Update struct {
	Action   Action
	Location Location
}

// History is a navigation history.
type History interface {
	// Location returns the current entry.
	Location() Location

	// Action returns the action that produced the current entry.
	Action() Action

	// Len returns the number of entries.
	Len() int

	// Index returns the cursor position.
	Index() int

	// Push adds a new entry after the cursor and moves to it.
	// Relative targets resolve against the current pathname.
	Push(to string, state any)

	// Replace overwrites the current entry.
	Replace(to string, state any)

	// Go moves the cursor by n, clamped to the available entries.
	Go(n int)

	// Back is Go(-1).
	Back()

	// Forward is Go(1).
	Forward()

	// CanGo reports whether Go(n) would stay within the entries.
	CanGo(n int) bool

	// Listen registers fn for every subsequent change and returns a func
	// that removes it.
	Listen(fn func(Update)) (unlisten func())

	// CreateHref renders loc as an href, including the basename.
	CreateHref(loc Location) string

	// ParseHref returns the path an href from CreateHref points at.
	ParseHref(href string) string
}

// CreateLocation builds the location for navigating to path from current.
// An empty pathname keeps the current one and a relative pathname is
// resolved against it.
func CreateLocation(path string, state any, key string, current *Location) Location {
	pathname, search, hash := routepath.ParsePath(path)
	loc := Location{
		Pathname: pathname,
		Search:   search,
		Hash:     hash,
		State:    state,
		Key:      key,
	}

	switch {
	case current == nil:
		if loc.Pathname == "" {
			loc.Pathname = "/"
		} else if !strings.HasPrefix(loc.Pathname, "/") {
			loc.Pathname = routepath.ResolvePathname(loc.Pathname, "/")
		}
	case loc.Pathname == "":
		loc.Pathname = current.Pathname
	case !strings.HasPrefix(loc.Pathname, "/"):
		loc.Pathname = routepath.ResolvePathname(loc.Pathname, current.Pathname)
	}
	return loc
}

// LocationsEqual reports whether a and b are the same entry.
func LocationsEqual(a, b Location) bool {
	return a.Pathname == b.Pathname &&
		a.Search == b.Search &&
		a.Hash == b.Hash &&
		a.Key == b.Key &&
		reflect.DeepEqual(a.State, b.State)
}

// SamePath reports whether a and b point at the same path, ignoring key
// and state.
func SamePath(a, b Location) bool {
	return a.Pathname == b.Pathname && a.Search == b.Search && a.Hash == b.Hash
}

// HasBasename reports whether path lives under prefix. The comparison is
// case-insensitive and prefix must end at a path, query or hash boundary.
func HasBasename(path, prefix string) bool {
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.IndexByte("/?#", path[len(prefix)]) >= 0
}

// StripBasename removes prefix from path when path lives under it.
func StripBasename(path, prefix string) string {
	if prefix == "" || !HasBasename(path, prefix) {
		return path
	}
	return path[len(prefix):]
}

// NormalizeBasename adds a leading slash and drops a trailing one.
func NormalizeBasename(basename string) string {
	if basename == "" || basename == "/" {
		return ""
	}
	if !strings.HasPrefix(basename, "/") {
		basename = "/" + basename
	}
	return strings.TrimSuffix(basename, "/")
}
