package kestrel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError carries an HTTP status code and an optional message that the
// top-level responder installed by the `Application` converts into a wire
// response.
//
// Handlers, middlewares, and the router itself may return an `*HTTPError` to
// short-circuit the pipeline with a specific status instead of falling
// through to the generic 500 path.
type HTTPError struct {
	Code    int
	Message string

	// Internal, when set, is wrapped for logging but never serialized
	// into the response body.
	Internal error
}

// NewHTTPError returns a new `*HTTPError` with the code and an optional
// message. If no message is given, `http.StatusText(code)` is used.
func NewHTTPError(code int, message ...string) *HTTPError {
	e := &HTTPError{Code: code, Message: http.StatusText(code)}
	if len(message) > 0 {
		e.Message = message[0]
	}

	return e
}

// Error implements the `error` interface.
func (e *HTTPError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("kestrel: %d %s: %v", e.Code, e.Message, e.Internal)
	}

	return fmt.Sprintf("kestrel: %d %s", e.Code, e.Message)
}

// Unwrap supports `errors.Is`/`errors.As` against the wrapped internal error.
func (e *HTTPError) Unwrap() error {
	return e.Internal
}

// Wrap attaches an internal error to the e for logging purposes and returns
// the e for chaining.
func (e *HTTPError) Wrap(err error) *HTTPError {
	e.Internal = err
	return e
}

// JSON renders the e as the `{"error":{"message":"..."}}` envelope described
// in the error taxonomy.
func (e *HTTPError) JSON() []byte {
	b, _ := json.Marshal(struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}{
		Error: struct {
			Message string `json:"message"`
		}{Message: e.Message},
	})

	return b
}

// NotFound is the specialization of `HTTPError(404)` that the file
// middleware (C6) listens for: it only attempts to serve a static file when
// the downstream handler raised exactly this sentinel.
func NotFound(message ...string) *HTTPError {
	e := NewHTTPError(http.StatusNotFound, message...)
	return e
}

// IsNotFound reports whether err is (or wraps) a `NotFound` sentinel.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Code == http.StatusNotFound
}

// ParseError reports a malformed request artifact: invalid UTF-8, a
// malformed Range header, or a malformed media type. It is non-fatal and
// always surfaces as a 400 at the responder boundary.
type ParseError struct {
	What string
	Err  error
}

// Error implements the `error` interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kestrel: parse error: %s: %v", e.What, e.Err)
	}

	return fmt.Sprintf("kestrel: parse error: %s", e.What)
}

// Unwrap supports `errors.Is`/`errors.As`.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// HTTPError converts the e into a 400 `*HTTPError`.
func (e *ParseError) HTTPError() *HTTPError {
	return NewHTTPError(http.StatusBadRequest, e.What).Wrap(e)
}

// Cancelled is returned by body readers/writers and handlers when the
// request task is cancelled (client disconnect, graceful-shutdown deadline,
// or an explicit `context.Context` cancellation). It never produces a
// response; the connection is simply closed.
var Cancelled = fmt.Errorf("kestrel: cancelled")

// translateError converts any error returned from the middleware pipeline
// into a `*HTTPError`, following the propagation policy of the error
// taxonomy: `*HTTPError` passes through unchanged, `*ParseError` becomes a
// 400, everything else becomes a bodyless 500 logged at debug level.
func translateError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *HTTPError:
		return e
	case *ParseError:
		return e.HTTPError()
	default:
		return NewHTTPError(http.StatusInternalServerError).Wrap(err)
	}
}
