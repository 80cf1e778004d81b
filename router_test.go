package kestrel

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(s string) Handler {
	return func(_ *Request, res *Response) error {
		return res.WriteString(s)
	}
}

func resolve(t *testing.T, r *Router, method, path string) (*Parameters, string) {
	t.Helper()

	h, params, ok := r.Resolve(method, path)
	require.True(t, ok, "expected a match for %s %s", method, path)

	res := newResponse(newRequestContext(NewLogger("test"), method, path))
	require.NoError(t, h(&Request{context: res.context}, res))

	return params, string(res.Body.buffer)
}

func TestRouterStaticRoute(t *testing.T) {
	r := NewRouter()
	r.Add(http.MethodGet, "/", textHandler("root"))

	_, body := resolve(t, r, http.MethodGet, "/")
	assert.Equal(t, "root", body)

	_, _, ok := r.Resolve(http.MethodGet, "/foobar")
	assert.False(t, ok)

	_, _, ok = r.Resolve(http.MethodPost, "/")
	assert.False(t, ok)
}

func TestRouterCapture(t *testing.T) {
	r := NewRouter()
	r.Add(http.MethodGet, "/users/:id", textHandler("user"))

	params, _ := resolve(t, r, http.MethodGet, "/users/42")
	assert.Equal(t, "42", params.Value("id"))
}

func TestRouterDuplicateParamNameOverwrites(t *testing.T) {
	r := NewRouter()
	r.Add(http.MethodGet, "/a/:x/b/:x", textHandler("dup"))

	params, _ := resolve(t, r, http.MethodGet, "/a/one/b/two")
	assert.Equal(t, "two", params.Value("x"))
	assert.Len(t, params.Names(), 1)
}

func TestRouterWildcardAndRecursiveWildcard(t *testing.T) {
	r := NewRouter()
	r.Add(http.MethodGet, "/files/*", textHandler("wildcard"))
	r.Add(http.MethodGet, "/assets/**", textHandler("recursive"))

	params, _ := resolve(t, r, http.MethodGet, "/files/x")
	assert.Empty(t, params.Names())

	params, _ = resolve(t, r, http.MethodGet, "/assets/a/b/c")
	assert.Equal(t, "a/b/c", params.CatchAll())
}

func TestRouterPriorityStaticOverCapture(t *testing.T) {
	r := NewRouter()
	r.Add(http.MethodGet, "/a/b/c", textHandler("static"))
	r.Add(http.MethodGet, "/a/:x/d", textHandler("capture"))

	_, body := resolve(t, r, http.MethodGet, "/a/b/d")
	assert.Equal(t, "capture", body)

	_, body = resolve(t, r, http.MethodGet, "/a/b/c")
	assert.Equal(t, "static", body)
}

func TestRouterAddPanicsOnDuplicate(t *testing.T) {
	r := NewRouter()
	r.Add(http.MethodGet, "/x", textHandler("1"))

	assert.Panics(t, func() {
		r.Add(http.MethodGet, "/x", textHandler("2"))
	})
}

func TestRouterBatch(t *testing.T) {
	r := NewRouter()
	r.Batch([]string{http.MethodGet, http.MethodPost}, "/both", textHandler("both"))

	_, _, okGet := r.Resolve(http.MethodGet, "/both")
	_, _, okPost := r.Resolve(http.MethodPost, "/both")
	assert.True(t, okGet)
	assert.True(t, okPost)
}

func TestRouterRespondNotFound(t *testing.T) {
	r := NewRouter()

	ctx := newRequestContext(NewLogger("test"), http.MethodGet, "/missing")
	res := newResponse(ctx)
	req := &Request{Method: http.MethodGet, URI: &URI{Path: "/missing"}, context: ctx}

	err := r.Respond(req, res)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
