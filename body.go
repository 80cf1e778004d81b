package kestrel

import (
	"io"
	"sync"
)

// bodyKind distinguishes the three `ResponseBody` shapes from `spec.md`
// §4.3.
type bodyKind uint8

const (
	bodyEmpty bodyKind = iota
	bodyBuffer
	bodyStream
)

// BodyProducer writes a response body through a `BodyWriter`. It is
// called at most once, after headers have been committed.
type BodyProducer func(w BodyWriter) error

// ResponseBody is a lazy, finite, single-pass byte stream: either nothing
// (`Empty`), a fully materialized buffer (`Buffer`), or a producer
// closure that streams through a `BodyWriter` (`Stream`). Exactly one of
// these three shapes is active for a given `ResponseBody` value.
type ResponseBody struct {
	kind          bodyKind
	buffer        []byte
	contentLength int64 // -1 when unknown (stream, no declared length)
	produce       BodyProducer
}

// EmptyBody is the zero-length `ResponseBody`.
func EmptyBody() ResponseBody {
	return ResponseBody{kind: bodyEmpty, contentLength: 0}
}

// BufferBody returns a `ResponseBody` that serves data eagerly; its
// content length is known up front as len(data).
func BufferBody(data []byte) ResponseBody {
	return ResponseBody{kind: bodyBuffer, buffer: data, contentLength: int64(len(data))}
}

// StreamBody returns a `ResponseBody` that defers to produce, called
// exactly once with a live `BodyWriter`. contentLength may be -1 if the
// total size is not known ahead of time.
func StreamBody(contentLength int64, produce BodyProducer) ResponseBody {
	return ResponseBody{kind: bodyStream, contentLength: contentLength, produce: produce}
}

// IsEmpty reports whether b carries no body at all.
func (b ResponseBody) IsEmpty() bool {
	return b.kind == bodyEmpty
}

// ContentLength returns the body's declared length, or -1 if unknown
// (only possible for a `Stream` body).
func (b ResponseBody) ContentLength() int64 {
	return b.contentLength
}

// BodyWriter is the capability a `Stream` body's producer is handed:
// `Write` may be called any number of times (including zero); the
// concatenation of writes is the body. `Finish` must be called exactly
// once, after which `Write` is no longer valid. A `BodyWriter` has linear
// ownership -- it must not be shared across goroutines.
type BodyWriter interface {
	Write(chunk []byte) error
	Finish(trailers Headers) error
}

// httpBodyWriter is the concrete `BodyWriter` that flushes chunks to an
// underlying `io.Writer` (ultimately the `net/http` response writer), and
// records trailers for the server to emit after the body per the
// `http.ResponseWriter` trailer protocol (`TrailerPrefix`).
type httpBodyWriter struct {
	w         io.Writer
	flusher   interface{ Flush() }
	setHeader func(key string, values []string)
	finished  bool
}

func newHTTPBodyWriter(w io.Writer, flusher interface{ Flush() }, setHeader func(string, []string)) *httpBodyWriter {
	return &httpBodyWriter{w: w, flusher: flusher, setHeader: setHeader}
}

// Write implements `BodyWriter`.
func (w *httpBodyWriter) Write(chunk []byte) error {
	if w.finished {
		return Cancelled
	}

	if len(chunk) == 0 {
		return nil
	}

	if _, err := w.w.Write(chunk); err != nil {
		return err
	}

	if w.flusher != nil {
		w.flusher.Flush()
	}

	return nil
}

// Finish implements `BodyWriter`. Trailers are applied via setHeader
// using the "Trailer:" + name convention `net/http` requires for
// streamed trailers to be announced declared-but-deferred.
func (w *httpBodyWriter) Finish(trailers Headers) error {
	if w.finished {
		return nil
	}

	w.finished = true

	for name, values := range trailers {
		w.setHeader("Trailer:"+name, values)
	}

	return nil
}

// TransformWriter wraps a parent `BodyWriter`, letting a gas rewrite
// bytes (compression, checksumming, minification) as they flow through
// without materializing the whole body, per `spec.md` §4.3's body
// transformation mechanism. `ChecksumTransform` embeds a `baseTransform`;
// `GzipTransform` and `MinifyTransform` hold their parent writer directly.
// Each overrides `Write`/`Finish` as needed.
type TransformWriter interface {
	BodyWriter
}

// baseTransform forwards Write/Finish to the parent writer unchanged; it
// is embedded by concrete transforms that only need to intercept one of
// the two methods.
type baseTransform struct {
	parent BodyWriter
}

func (t *baseTransform) Write(chunk []byte) error {
	return t.parent.Write(chunk)
}

func (t *baseTransform) Finish(trailers Headers) error {
	return t.parent.Finish(trailers)
}

// chunkBufferPool holds 32 KiB byte buffers for chunked copies, mirroring
// the teacher's `sync.Pool`-backed buffer reuse in `logger.go` and
// `air.go`'s request/response pools. No code in this package takes
// buffers from it.
var chunkBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 32*1024)
		return &b
	},
}
