package router

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vango-dev/vroute/pkg/pathexp"
)

// =============================================================================
// Route Table Conflicts
// =============================================================================

// ConflictType categorizes route table conflicts.
type ConflictType string

const (
	// ConflictDuplicate indicates a route that repeats the patterns and
	// options of an earlier route.
	// Example: two routes declaring "/users/:id" with no modifiers.
	ConflictDuplicate ConflictType = "DUPLICATE_ROUTE"

	// ConflictShadowed indicates a route that an earlier route beats on
	// every pathname it matches.
	// Example: a prefix route "/" declared before "/about".
	ConflictShadowed ConflictType = "SHADOWED_ROUTE"
)

// Conflict is a route that first-match-wins selection never picks.
type Conflict struct {
	// Type is the conflict category
	Type ConflictType `json:"type"`

	// Index is the position of the route that is never selected
	Index int `json:"index"`

	// By is the position of the earlier route that wins
	By int `json:"by"`

	// Message is the human-readable description
	Message string `json:"message"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: %s", c.Type, c.Message)
}

// Conflicts reports the routes of a table that can never be selected. Each
// route is reported once, against the first earlier route that beats it.
//
// Selection is assumed to run with a fallback match, as the Router does, so
// a route without patterns beats everything after it. Shadowing by a prefix
// route is only detected when every pattern of the later route is literal;
// routes with parameters are only reported as duplicates.
func (m *Matcher) Conflicts(routes []Route) ([]Conflict, error) {
	recognizers := make([]Recognizer, len(routes))
	for i, r := range routes {
		rec, err := m.Compile(r.Paths, r.Options)
		if err != nil {
			return nil, err
		}
		recognizers[i] = rec
	}

	var conflicts []Conflict
	for j := 1; j < len(routes); j++ {
		for i := 0; i < j; i++ {
			typ, ok := beats(routes[i], recognizers[i], routes[j])
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:    typ,
				Index:   j,
				By:      i,
				Message: conflictMessage(typ, routes, i, j),
			})
			break
		}
	}
	return conflicts, nil
}

// beats reports whether earlier wins every selection later could win.
func beats(earlier Route, rec Recognizer, later Route) (ConflictType, bool) {
	switch {
	case slices.Equal(earlier.Paths, later.Paths) && earlier.Options == later.Options:
		return ConflictDuplicate, true
	case !earlier.HasPattern():
		return ConflictShadowed, true
	case covers(earlier, rec, later):
		return ConflictShadowed, true
	}
	return "", false
}

// covers reports whether rec matches every pathname later can match.
func covers(earlier Route, rec Recognizer, later Route) bool {
	if !later.HasPattern() {
		return false
	}
	// A prefix route accepts pathnames an exact route rejects.
	if earlier.Exact && !later.Exact {
		return false
	}
	if earlier.Sensitive && !later.Sensitive {
		return false
	}

	for _, p := range later.Paths {
		lit, ok := literalPattern(p)
		if !ok {
			return false
		}
		for _, pathname := range pathnameVariants(lit, later.Strict) {
			if rec.Match(pathname) == nil {
				return false
			}
		}
	}
	return true
}

// literalPattern returns the pathname a pattern without parameters matches.
func literalPattern(pattern string) (string, bool) {
	tokens, err := pathexp.Parse(pattern)
	if err != nil {
		return "", false
	}
	var sb strings.Builder
	for _, t := range tokens {
		if t.IsParam() {
			return "", false
		}
		sb.WriteString(t.Literal)
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// pathnameVariants lists the pathnames a literal pattern matches exactly.
// Without Strict the trailing slash is optional.
func pathnameVariants(lit string, strict bool) []string {
	if strict || lit == "/" {
		return []string{lit}
	}
	base := strings.TrimSuffix(lit, "/")
	return []string{base, base + "/"}
}

func conflictMessage(typ ConflictType, routes []Route, i, j int) string {
	switch {
	case typ == ConflictDuplicate:
		return fmt.Sprintf("route %s declares the same patterns and options as route %s",
			routeLabel(j, routes[j]), routeLabel(i, routes[i]))
	case !routes[i].HasPattern():
		return fmt.Sprintf("route %s follows route %s, which has no pattern and matches every pathname",
			routeLabel(j, routes[j]), routeLabel(i, routes[i]))
	default:
		return fmt.Sprintf("route %s always loses to route %s (%s)",
			routeLabel(j, routes[j]), routeLabel(i, routes[i]), strings.Join(routes[i].Paths, " | "))
	}
}

func routeLabel(i int, r Route) string {
	if r.Name == "" {
		return fmt.Sprintf("%d", i)
	}
	return fmt.Sprintf("%d (%s)", i, r.Name)
}
