package kestrel

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResponse() *Response {
	ctx := newRequestContext(NewLogger("test"), http.MethodGet, "/")
	return newResponse(ctx)
}

func TestResponseWriteString(t *testing.T) {
	res := newTestResponse()
	require.NoError(t, res.WriteString("hello"))

	assert.Equal(t, "text/plain; charset=utf-8", res.Headers.First("Content-Type"))
	assert.Equal(t, bodyBuffer, res.Body.kind)
	assert.Equal(t, int64(5), res.Body.ContentLength())
}

func TestResponseWriteJSON(t *testing.T) {
	res := newTestResponse()
	require.NoError(t, res.WriteJSON(map[string]int{"a": 1}))

	assert.Equal(t, "application/json; charset=utf-8", res.Headers.First("Content-Type"))
}

func TestResponseSetCookieInvalidDropped(t *testing.T) {
	res := newTestResponse()
	res.SetCookie(&Cookie{Name: "bad name", Value: "v"})

	assert.Empty(t, res.Headers.Get("Set-Cookie"))
}

func TestResponseSetCookieValid(t *testing.T) {
	res := newTestResponse()
	res.SetCookie(&Cookie{Name: "sid", Value: "abc"})

	assert.Len(t, res.Headers.Get("Set-Cookie"), 1)
}

func TestResponseNoContent(t *testing.T) {
	res := newTestResponse()
	require.NoError(t, res.NoContent())

	assert.Equal(t, http.StatusNoContent, res.Status)
	assert.True(t, res.Body.IsEmpty())
}

func TestResponseRedirect(t *testing.T) {
	res := newTestResponse()
	require.NoError(t, res.Redirect(http.StatusFound, "/elsewhere"))

	assert.Equal(t, http.StatusFound, res.Status)
	assert.Equal(t, "/elsewhere", res.Headers.First("Location"))
}

func TestResponseApplyError(t *testing.T) {
	res := newTestResponse()
	res.applyError(NotFound())

	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Contains(t, string(res.Body.buffer), "Not Found")
}

func TestWriteResponseBuffer(t *testing.T) {
	res := newTestResponse()
	require.NoError(t, res.WriteString("hi"))

	rec := httptest.NewRecorder()
	require.NoError(t, writeResponse(rec, res))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("content-length"))
}

func TestWriteResponseStream(t *testing.T) {
	res := newTestResponse()
	res.Stream(-1, func(w BodyWriter) error {
		if err := w.Write([]byte("chunk1")); err != nil {
			return err
		}
		return w.Finish(nil)
	})

	rec := httptest.NewRecorder()
	require.NoError(t, writeResponse(rec, res))
	assert.Equal(t, "chunk1", rec.Body.String())
}
