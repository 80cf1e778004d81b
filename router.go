package kestrel

import (
	"fmt"
	"strings"
)

// Router maps (method, path) to a `Handler`, building one `trieBuilder`
// per HTTP method and serializing each into a `serializedTrie` for
// resolution, per `spec.md` §4.2.
type Router struct {
	builders    map[string]*trieBuilder
	tries       map[string]*serializedTrie
	patternsSet map[string]bool // "METHOD pattern" -> registered, for duplicate detection
}

// NewRouter returns an empty `Router`.
func NewRouter() *Router {
	return &Router{
		builders:    map[string]*trieBuilder{},
		tries:       map[string]*serializedTrie{},
		patternsSet: map[string]bool{},
	}
}

// Add registers handler for (method, pattern). A duplicate (method,
// pattern) pair is a programmer error and panics immediately rather than
// silently overwriting the earlier route, per `spec.md` §4.2.
func (r *Router) Add(method, pattern string, handler Handler) {
	method = strings.ToUpper(method)

	key := method + " " + pattern
	if r.patternsSet[key] {
		panic(fmt.Sprintf("kestrel: route already registered: %s %s", method, pattern))
	}

	r.patternsSet[key] = true

	b, ok := r.builders[method]
	if !ok {
		b = newTrieBuilder()
		r.builders[method] = b
	}

	route := handler
	b.insert(parsePattern(pattern), func(req *Request, res *Response) error {
		req.context.EndpointPath = pattern
		return route(req, res)
	})

	// Invalidate any previously serialized trie for this method; it is
	// rebuilt lazily on the next Resolve/Build call.
	delete(r.tries, method)
}

// Batch registers handler under pattern for every method in methods, a
// convenience the teacher's `air.go` exposes as `BATCH`.
func (r *Router) Batch(methods []string, pattern string, handler Handler) {
	for _, m := range methods {
		r.Add(m, pattern, handler)
	}
}

// Build serializes every method's trie builder that doesn't already have
// a cached `serializedTrie`. Called automatically by `Resolve`, but
// exposed so `Application.Serve` can pay the serialization cost once at
// startup instead of on the first request.
func (r *Router) Build() {
	for method, b := range r.builders {
		if _, ok := r.tries[method]; !ok {
			r.tries[method] = b.serialize()
		}
	}
}

// Resolve looks up (method, path), returning the matched handler and
// extracted parameters. A miss (unknown method or no matching route)
// returns ok == false.
func (r *Router) Resolve(method, path string) (Handler, *Parameters, bool) {
	r.Build()

	t, ok := r.tries[strings.ToUpper(method)]
	if !ok {
		return nil, nil, false
	}

	return t.Resolve(path)
}

// Respond implements the router's half of the `spec.md` §4.2 contract:
// resolve the request's (method, path), populate the context on a hit,
// and invoke the handler; raise `NotFound` on a miss.
func (r *Router) Respond(req *Request, res *Response) error {
	handler, params, ok := r.Resolve(req.Method, req.URI.Path)
	if !ok {
		return NotFound()
	}

	req.context.Parameters = params

	return handler(req, res)
}

