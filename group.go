package kestrel

import (
	"io"
	"net/http"
	"strings"
)

// RouteGroup is a middleware+router composite that prepends a path
// segment to its children's patterns and scopes a gas stack to only
// those children, per `spec.md` §4.2. It also carries prefix-relative
// static file registration (`File`/`Files`), matching the teacher's
// `group.go` `Static`/`File` delegation (supplemented feature, see
// SPEC_FULL.md §4).
type RouteGroup struct {
	router *Router
	prefix string
	gases  []Gas
}

// NewRouteGroup returns a `RouteGroup` rooted at prefix, registering
// routes on router and wrapping every handler with gases (in addition to
// whatever gases the caller wraps the whole application in).
func NewRouteGroup(router *Router, prefix string, gases ...Gas) *RouteGroup {
	return &RouteGroup{router: router, prefix: prefix, gases: gases}
}

// Group returns a sub-group rooted at g's prefix + prefix, inheriting g's
// gas stack and appending extra -- combined into a new slice each time so
// sibling groups never share (and corrupt) one another's backing array.
func (g *RouteGroup) Group(prefix string, extra ...Gas) *RouteGroup {
	gases := make([]Gas, 0, len(g.gases)+len(extra))
	gases = append(gases, g.gases...)
	gases = append(gases, extra...)

	return NewRouteGroup(g.router, g.prefix+prefix, gases...)
}

// Handle registers handler under method and pattern (relative to g's
// prefix), wrapped by g's inherited gas stack plus extra.
func (g *RouteGroup) Handle(method, pattern string, handler Handler, extra ...Gas) {
	gases := make([]Gas, 0, len(g.gases)+len(extra))
	gases = append(gases, g.gases...)
	gases = append(gases, extra...)

	g.router.Add(method, g.prefix+pattern, chain(gases, handler))
}

func (g *RouteGroup) GET(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodGet, pattern, handler, extra...)
}

func (g *RouteGroup) POST(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodPost, pattern, handler, extra...)
}

func (g *RouteGroup) PUT(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodPut, pattern, handler, extra...)
}

func (g *RouteGroup) PATCH(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodPatch, pattern, handler, extra...)
}

func (g *RouteGroup) DELETE(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodDelete, pattern, handler, extra...)
}

func (g *RouteGroup) HEAD(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodHead, pattern, handler, extra...)
}

func (g *RouteGroup) OPTIONS(pattern string, handler Handler, extra ...Gas) {
	g.Handle(http.MethodOptions, pattern, handler, extra...)
}

// Batch registers handler under pattern for every method in methods.
func (g *RouteGroup) Batch(methods []string, pattern string, handler Handler, extra ...Gas) {
	for _, m := range methods {
		g.Handle(m, pattern, handler, extra...)
	}
}

// File registers a single static file at pattern, served from fullPath --
// analogous to the teacher's `Group.File`.
func (g *RouteGroup) File(pattern, fullPath string) {
	g.GET(pattern, notFoundHandler, FileGas(FileGasConfig{
		Provider: singleFileProvider{fullPath: fullPath},
	}))
}

// Files mounts a `FileGas` for every path under prefix, delegating to
// cfg.Provider -- analogous to the teacher's `Group.Static`.
func (g *RouteGroup) Files(prefix string, cfg FileGasConfig) {
	g.GET(strings.TrimSuffix(prefix, "/")+"/**", notFoundHandler, FileGas(cfg))
}

// notFoundHandler is the terminal handler `File`/`Files` registers: it
// always raises `NotFound` so `FileGas`, wrapped around it, is the one
// that actually resolves the request.
func notFoundHandler(req *Request, res *Response) error {
	return NotFound()
}

// singleFileProvider adapts one fixed file path into a `FileProvider` so
// `RouteGroup.File` can reuse the `FileGas` machinery for a single-file
// registration.
type singleFileProvider struct {
	fullPath string
}

func (p singleFileProvider) GetFullPath(string) string { return p.fullPath }

func (p singleFileProvider) GetAttributes(fullPath string) (FileAttributes, bool) {
	return (&LocalFileProvider{}).GetAttributes(fullPath)
}

func (p singleFileProvider) Open(fullPath string, offset int64) (io.ReadCloser, error) {
	return (&LocalFileProvider{}).Open(fullPath, offset)
}
