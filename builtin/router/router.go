// Package router is a map-based duex.Router, grounded on gorox's
// hemi/contrib/routers/simple: a plain map keyed by criteria, with no
// wildcard or parameter matching.
package router

import "github.com/duex-go/duex"

// Map is a static duex.Router backed by a map, built once at startup and
// read-only afterwards (§3's criteria -> RouteEntry resolution).
type Map struct {
	routes map[string]duex.RouteEntry
}

// New builds an empty Map router.
func New() *Map {
	return &Map{routes: make(map[string]duex.RouteEntry)}
}

// Link registers entry under criteria (the trailing-slash-stripped
// pathname, §3). Calling Link twice for the same criteria overwrites the
// previous entry.
func (m *Map) Link(criteria string, entry duex.RouteEntry) *Map {
	m.routes[criteria] = entry
	return m
}

// Route implements duex.Router.
func (m *Map) Route(criteria string) (duex.RouteEntry, bool) {
	entry, ok := m.routes[criteria]
	return entry, ok
}
