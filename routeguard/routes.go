package routeguard

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Routes is the page route configuration of the site.
type Routes struct {
	// Enabled maps exact paths to whether the page is shown.
	Enabled map[string]bool

	// DynamicPrefixes are route roots whose sub-paths inherit the root's
	// Enabled flag, e.g. every post under /blog.
	DynamicPrefixes []string

	// Protected are glob patterns ('/' separated) of paths that require a
	// session. "/work/*" covers one level, "/work/**" any depth.
	Protected []string
}

// DefaultRoutes returns the site's route table.
func DefaultRoutes() Routes {
	return Routes{
		Enabled: map[string]bool{
			"/":             true,
			"/about":        true,
			"/work":         true,
			"/publications": true,
			"/gallery":      false,
			"/blog":         true,
		},
		DynamicPrefixes: []string{"/publications", "/work", "/blog"},
	}
}

// Matcher answers route questions for a compiled Routes.
type Matcher struct {
	enabled   map[string]bool
	prefixes  []string
	protected []glob.Glob
}

// Compile validates and compiles routes.
func Compile(routes Routes) (*Matcher, error) {
	m := &Matcher{
		enabled:  make(map[string]bool, len(routes.Enabled)),
		prefixes: make([]string, 0, len(routes.DynamicPrefixes)),
	}
	for path, on := range routes.Enabled {
		m.enabled[path] = on
	}
	for _, prefix := range routes.DynamicPrefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			return nil, oops.In("routeguard").Code("INVALID_ROUTE").Errorf("dynamic prefix cannot be empty")
		}
		m.prefixes = append(m.prefixes, prefix)
	}
	for _, pattern := range routes.Protected {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.In("routeguard").Code("INVALID_PATTERN").With("pattern", pattern).Wrap(err)
		}
		m.protected = append(m.protected, g)
	}
	return m, nil
}

// MustCompile is like Compile but panics on error. For static route tables.
func MustCompile(routes Routes) *Matcher {
	m, err := Compile(routes)
	if err != nil {
		panic(err)
	}
	return m
}

// Enabled reports whether the page at path is shown.
//
// An exact entry wins. Otherwise a path under a dynamic prefix takes the
// prefix's flag (false when the prefix has no entry). Unknown paths are
// enabled so the site can serve its own 404.
func (m *Matcher) Enabled(path string) bool {
	if on, ok := m.enabled[path]; ok {
		return on
	}
	for _, prefix := range m.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return m.enabled[prefix]
		}
	}
	return true
}

// Protected reports whether the page at path requires a session.
func (m *Matcher) Protected(path string) bool {
	for _, g := range m.protected {
		if g.Match(path) {
			return true
		}
	}
	return false
}
