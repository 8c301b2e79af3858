// Package dispatch matches "/api" requests against an ordered rule table.
package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HandlerFunc receives the capture groups of the matched pattern.
type HandlerFunc func(c *gin.Context, args []string) error

// Route is one rule. Exactly one of Path (exact match) or Pattern
// (anchored regexp) is set.
type Route struct {
	Name    string
	Method  string
	Path    string
	Pattern *regexp.Regexp

	Privileged  bool
	AdminOnly   bool
	RateLimited bool
	// SelfService routes stay open to a session whose password must be
	// changed first.
	SelfService bool
	// Multipart accepts multipart/form-data bodies besides JSON.
	Multipart bool

	Handle HandlerFunc
}

// Table keeps rules in insertion order; the first match wins.
type Table struct {
	routes []Route
}

func NewTable(routes ...Route) (*Table, error) {
	t := &Table{}
	for _, r := range routes {
		if err := t.add(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func MustTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) add(r Route) error {
	switch {
	case r.Name == "":
		return fmt.Errorf("route %s %s: missing name", r.Method, r.Path)
	case r.Method == "":
		return fmt.Errorf("route %s: missing method", r.Name)
	case r.Handle == nil:
		return fmt.Errorf("route %s: missing handler", r.Name)
	case (r.Path == "") == (r.Pattern == nil):
		return fmt.Errorf("route %s: exactly one of path or pattern is required", r.Name)
	}

	if r.Pattern != nil {
		src := r.Pattern.String()
		if !strings.HasPrefix(src, "^") || !strings.HasSuffix(src, "$") {
			return fmt.Errorf("route %s: pattern %q must be anchored", r.Name, src)
		}
	}

	// admin implies a session
	if r.AdminOnly {
		r.Privileged = true
	}

	t.routes = append(t.routes, r)
	return nil
}

func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match returns the first rule for method and route.
func (t *Table) Match(method, route string) (Route, []string, bool) {
	for _, r := range t.routes {
		if r.Method != method {
			continue
		}

		if r.Pattern == nil {
			if r.Path == route {
				return r, nil, true
			}
			continue
		}

		if m := r.Pattern.FindStringSubmatch(route); m != nil {
			return r, m[1:], true
		}
	}
	return Route{}, nil, false
}

// RouteString turns the catch-all parameter into the matched route:
// leading slash, no trailing slash, "/" for the root.
func RouteString(path string) string {
	path = "/" + strings.Trim(path, "/")
	return path
}

// Segment builds the single-resource pattern for a collection, e.g.
// Segment("blog", "") is ^/blog/([^/]+)$.
func Segment(collection, suffix string) *regexp.Regexp {
	return regexp.MustCompile(`^/` + regexp.QuoteMeta(collection) + `/([^/]+)` + regexp.QuoteMeta(suffix) + `$`)
}
