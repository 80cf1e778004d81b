package kestrel

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteGroupPrefixing(t *testing.T) {
	r := NewRouter()
	g := NewRouteGroup(r, "/api")

	g.GET("/users", textHandler("users"))

	_, _, ok := r.Resolve(http.MethodGet, "/api/users")
	assert.True(t, ok)

	_, _, ok = r.Resolve(http.MethodGet, "/users")
	assert.False(t, ok)
}

func TestRouteGroupSubGroupInheritsGases(t *testing.T) {
	r := NewRouter()

	var trail []string
	outer := func(tag string) Gas {
		return func(next Handler) Handler {
			return func(req *Request, res *Response) error {
				trail = append(trail, tag)
				return next(req, res)
			}
		}
	}

	g := NewRouteGroup(r, "/api", outer("outer"))
	sub := g.Group("/v1", outer("inner"))
	sub.GET("/ping", textHandler("pong"))

	h, _, ok := r.Resolve(http.MethodGet, "/api/v1/ping")
	require.True(t, ok)

	ctx := newRequestContext(NewLogger("test"), http.MethodGet, "/api/v1/ping")
	res := newResponse(ctx)
	require.NoError(t, h(&Request{context: ctx}, res))

	assert.Equal(t, []string{"outer", "inner"}, trail)
}

func TestRouteGroupBatch(t *testing.T) {
	r := NewRouter()
	g := NewRouteGroup(r, "")

	g.Batch([]string{http.MethodGet, http.MethodPost}, "/thing", textHandler("ok"))

	_, _, okGet := r.Resolve(http.MethodGet, "/thing")
	_, _, okPost := r.Resolve(http.MethodPost, "/thing")
	assert.True(t, okGet)
	assert.True(t, okPost)
}

func TestRouteGroupFile(t *testing.T) {
	r := NewRouter()
	g := NewRouteGroup(r, "")

	g.File("/robots.txt", "/srv/robots.txt")

	h, _, ok := r.Resolve(http.MethodGet, "/robots.txt")
	require.True(t, ok)
	assert.NotNil(t, h)
}
