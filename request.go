package kestrel

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// URI is a request's pre-parsed target: scheme, host, port, path, and
// query parameters split out once at request construction instead of
// being re-parsed by every handler that touches them.
type URI struct {
	Scheme string
	Host   string
	Port   string
	Path   string

	RawQuery        string
	QueryParameters url.Values
}

// newURI builds a `URI` from an `*http.Request`, splitting host/port and
// parsing the query string once.
func newURI(r *http.Request) *URI {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	host := r.Host
	port := ""
	if h, p, err := net.SplitHostPort(r.Host); err == nil {
		host, port = h, p
	}

	return &URI{
		Scheme:          scheme,
		Host:            host,
		Port:            port,
		Path:            r.URL.Path,
		RawQuery:        r.URL.RawQuery,
		QueryParameters: r.URL.Query(),
	}
}

// Request is the per-request data model handlers and gases operate on:
// method, pre-parsed URI, headers, and a finite, single-consumer body.
// It wraps the standard library's `*http.Request` -- the wire-level
// collaborator -- without exposing it directly to ordinary handler code.
type Request struct {
	Method        string
	URI           *URI
	Headers       Headers
	Body          io.ReadCloser
	ContentLength int64
	RemoteAddr    string
	Proto         string

	context *RequestContext

	raw *http.Request
}

// newRequest adapts r into a `Request`, attaching ctx as its
// `RequestContext`.
func newRequest(r *http.Request, ctx *RequestContext) *Request {
	headers := make(Headers, len(r.Header))
	for k, v := range r.Header {
		headers.Set(k, v)
	}

	return &Request{
		Method:        r.Method,
		URI:           newURI(r),
		Headers:       headers,
		Body:          r.Body,
		ContentLength: r.ContentLength,
		RemoteAddr:    r.RemoteAddr,
		Proto:         r.Proto,
		context:       ctx,
		raw:           r,
	}
}

// Context returns the request's `RequestContext`.
func (r *Request) Context() *RequestContext {
	return r.context
}

// Param is a convenience accessor for `r.Context().Parameters.Value(name)`.
func (r *Request) Param(name string) string {
	return r.context.Parameters.Value(name)
}

// Cookie returns the named cookie from the request's Cookie header, or
// nil if absent.
func (r *Request) Cookie(name string) *Cookie {
	c, err := r.raw.Cookie(name)
	if err != nil {
		return nil
	}

	return &Cookie{Name: c.Name, Value: c.Value}
}

// Cookies parses and returns all cookies on the request.
func (r *Request) Cookies() []*Cookie {
	raw := r.raw.Cookies()

	cookies := make([]*Cookie, len(raw))
	for i, c := range raw {
		cookies[i] = &Cookie{Name: c.Name, Value: c.Value}
	}

	return cookies
}

// Decode reads the entire request body and decodes it into v using the
// `Decoder` selected for the request's Content-Type, returning a
// `*ParseError` when no decoder matches or decoding fails.
func (r *Request) Decode(v interface{}) error {
	d := r.context.Decoder()
	if d == nil {
		return &ParseError{What: "unsupported content type: " + r.Headers.First("Content-Type")}
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return &ParseError{What: "request body", Err: err}
	}

	if err := d.Decode(data, v); err != nil {
		return &ParseError{What: "request body", Err: err}
	}

	return nil
}

// HTTPRequest returns the underlying `*http.Request`, for interoperating
// with `http.Handler`-based collaborators.
func (r *Request) HTTPRequest() *http.Request {
	return r.raw
}

// acceptedMediaTypes parses the request's Accept header into an ordered
// list of media types (ignoring quality values beyond sorting by their
// presence order, matching the teacher's simple accept-negotiation).
func (r *Request) acceptedMediaTypes() []string {
	accept := r.Headers.First("Accept")
	if accept == "" {
		return nil
	}

	parts := strings.Split(accept, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if i := strings.IndexByte(p, ';'); i >= 0 {
			p = p[:i]
		}

		types = append(types, strings.TrimSpace(p))
	}

	return types
}

// contentLengthHeader renders n as a decimal string for the
// Content-Length header.
func contentLengthHeader(n int64) string {
	return strconv.FormatInt(n, 10)
}
