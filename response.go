package kestrel

import (
	"net/http"
)

// Response is the per-request outbound data model: a status code,
// headers, a lazy `ResponseBody`, and optional trailers, per `spec.md`
// §3. Handlers build one up and return it (or an error); `Application`'s
// dispatcher is the only thing that ever flushes one to the wire.
type Response struct {
	Status   int
	Headers  Headers
	Body     ResponseBody
	Trailers Headers

	context *RequestContext
}

// newResponse returns a `Response` defaulted to 200 with no body, bound
// to ctx.
func newResponse(ctx *RequestContext) *Response {
	return &Response{
		Status:  http.StatusOK,
		Headers: Headers{},
		Body:    EmptyBody(),
		context: ctx,
	}
}

// Context returns the response's `RequestContext`.
func (res *Response) Context() *RequestContext {
	return res.context
}

// SetCookie appends a Set-Cookie header for c. Invalid cookies (per
// `validCookieName`) are silently dropped, matching the teacher's
// `Response.SetCookie` behaviour.
func (res *Response) SetCookie(c *Cookie) {
	if v := c.String(); v != "" {
		res.Headers.Append("Set-Cookie", v)
	}
}

// WriteBytes sets res's body to a buffer containing data and its
// Content-Type to contentType, if non-empty.
func (res *Response) WriteBytes(contentType string, data []byte) error {
	if contentType != "" {
		res.Headers.Set("Content-Type", []string{contentType})
	}

	res.Body = BufferBody(data)

	return nil
}

// WriteString is a convenience wrapper over `WriteBytes` for
// "text/plain; charset=utf-8" bodies.
func (res *Response) WriteString(s string) error {
	return res.WriteBytes("text/plain; charset=utf-8", []byte(s))
}

// WriteHTML is a convenience wrapper over `WriteBytes` for "text/html;
// charset=utf-8" bodies.
func (res *Response) WriteHTML(s string) error {
	return res.WriteBytes("text/html; charset=utf-8", []byte(s))
}

// Encode renders v with the context's selected `Encoder` and writes the
// result as the body, setting Content-Type from the encoder. It returns
// a `*ParseError`-shaped error if no encoder was resolved (mirrors
// `Request.Decode`'s failure mode on the outbound side).
func (res *Response) Encode(v interface{}) error {
	e := res.context.Encoder()
	if e == nil {
		return &ParseError{What: "no encoder resolved for response"}
	}

	data, err := e.Encode(v)
	if err != nil {
		return &ParseError{What: "response body", Err: err}
	}

	return res.WriteBytes(e.ContentType(), data)
}

// WriteJSON encodes v as JSON and writes it as the body, regardless of
// the context's negotiated encoder -- a direct convenience matching the
// teacher's `Response.JSON`.
func (res *Response) WriteJSON(v interface{}) error {
	data, err := jsonCodec{}.Encode(v)
	if err != nil {
		return err
	}

	return res.WriteBytes(jsonCodec{}.ContentType(), data)
}

// Stream sets res's body to a producer-driven stream of the given
// (possibly unknown, -1) content length.
func (res *Response) Stream(contentLength int64, produce BodyProducer) {
	res.Body = StreamBody(contentLength, produce)
}

// NoContent sets a 204 status with an empty body.
func (res *Response) NoContent() error {
	res.Status = http.StatusNoContent
	res.Body = EmptyBody()

	return nil
}

// Redirect sets a redirect status and Location header.
func (res *Response) Redirect(status int, location string) error {
	res.Status = status
	res.Headers.Set("Location", []string{location})
	res.Body = EmptyBody()

	return nil
}

// applyError renders an `*HTTPError` into res: sets the status, and a
// JSON `{"error":{"message":"..."}}` body, except for a 500 that wraps an
// internal error, which is sent with an empty body.
func (res *Response) applyError(e *HTTPError) {
	res.Status = e.Code
	if e.Code == http.StatusInternalServerError && e.Internal != nil {
		res.Body = EmptyBody()
		return
	}

	res.Headers.Set("Content-Type", []string{"application/json; charset=utf-8"})
	res.Body = BufferBody(e.JSON())
}

// flusher narrows `http.ResponseWriter` to just the capability
// `httpBodyWriter` needs for mid-stream flushing.
type flusher interface {
	Flush()
}

// writeResponse flushes res to w: headers (Date/Server defaults filled
// in by the caller beforehand), status line, and body. Header names are
// written in canonical form. An empty body keeps a Content-Length the
// headers already carry (a HEAD response) and otherwise sends 0. Trailers
// are sent only for a stream body: once it has been written, the body
// writer sets them with the `http.TrailerPrefix` convention, either the
// ones the producer passed to Finish itself or else res.Trailers. No
// "Trailer" header is pre-declared, and res.Trailers on an empty or buffer
// body are not sent.
func writeResponse(w http.ResponseWriter, res *Response) error {
	header := w.Header()
	for name, values := range res.Headers {
		header[http.CanonicalHeaderKey(name)] = values
	}

	switch res.Body.kind {
	case bodyEmpty:
		if header.Get("Content-Length") == "" {
			header.Set("Content-Length", "0")
		}
		w.WriteHeader(res.Status)

		return nil

	case bodyBuffer:
		header.Set("Content-Length", contentLengthHeader(res.Body.contentLength))
		w.WriteHeader(res.Status)
		_, err := w.Write(res.Body.buffer)

		return err

	case bodyStream:
		if res.Body.contentLength >= 0 {
			header.Set("Content-Length", contentLengthHeader(res.Body.contentLength))
		}

		w.WriteHeader(res.Status)

		fl, _ := w.(flusher)
		bw := newHTTPBodyWriter(w, fl, func(key string, values []string) {
			header[key] = values
		})

		if err := res.Body.produce(bw); err != nil {
			return err
		}

		return bw.Finish(res.Trailers)
	}

	return nil
}
