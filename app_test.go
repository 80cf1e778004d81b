package kestrel

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationServeHTTPRoutesRequest(t *testing.T) {
	a := New("test-app")
	a.GET("/hello/:name", func(req *Request, res *Response) error {
		return res.WriteString("hello " + req.Param("name"))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hello/world", nil)

	a.serveHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Date"))
}

func TestApplicationServeHTTPNotFound(t *testing.T) {
	a := New("test-app")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)

	a.serveHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplicationServeHTTPPanicRecovered(t *testing.T) {
	a := New("test-app")
	a.GET("/boom", func(req *Request, res *Response) error {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)

	a.serveHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestApplicationHealthzHandler(t *testing.T) {
	a := New("test-app")
	a.GET("/healthz", a.HealthzHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	a.serveHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	a.shuttingDown.Store(true)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	a.serveHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestApplicationServerNameHeader(t *testing.T) {
	a := New("test-app")
	a.Config.ServerName = "kestrel"
	a.GET("/", textHandler("ok"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	a.serveHTTP(rec, req)

	require.Equal(t, "kestrel", rec.Header().Get("Server"))
}
