package duex

// RouteEntry is the mapping keyed by criteria strings described in §3,
// including the reserved prefixes method.<verb>|*, accept.<media-type>,
// and content-type.<media-type>. Each key maps to the dispatcher(s) that
// should be spliced into the chain when that key wins negotiation.
type RouteEntry map[string][]Dispatcher

// Router is the external collaborator (§1: out of scope as a component)
// that resolves a request's criteria (its trailing-slash-stripped
// pathname) to a RouteEntry. The core only ever calls Route.
type Router interface {
	Route(criteria string) (RouteEntry, bool)
}
