package kestrel

import (
	"bytes"
	"compress/gzip"

	"github.com/cespare/xxhash/v2"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

// GzipTransform wraps a `BodyWriter` so every chunk is compressed before
// reaching the parent writer, and the gzip trailer is flushed on Finish.
// It demonstrates the "wraps the body" mechanism of `spec.md` §4.3 using
// the standard library's `compress/gzip` -- no third-party gzip
// implementation appears anywhere in the retrieved example pack, so this
// one transform stays on the standard library (see DESIGN.md).
type GzipTransform struct {
	parent BodyWriter
	gz     *gzip.Writer
}

// NewGzipTransform returns a `TransformWriter` that gzip-compresses
// everything written to it before forwarding to parent.
func NewGzipTransform(parent BodyWriter) *GzipTransform {
	t := &GzipTransform{parent: parent}
	t.gz = gzip.NewWriter(gzipSink{t})

	return t
}

// gzipSink adapts `(*GzipTransform).parent.Write` to `io.Writer` for the
// `gzip.Writer` to target.
type gzipSink struct{ t *GzipTransform }

func (s gzipSink) Write(p []byte) (int, error) {
	if err := s.t.parent.Write(p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Write implements `BodyWriter`.
func (t *GzipTransform) Write(chunk []byte) error {
	_, err := t.gz.Write(chunk)
	return err
}

// Finish implements `BodyWriter`: flushes the gzip trailer, then forwards
// trailers to the parent.
func (t *GzipTransform) Finish(trailers Headers) error {
	if err := t.gz.Close(); err != nil {
		return err
	}

	return t.parent.Finish(trailers)
}

// ChecksumTransform wraps a `BodyWriter`, accumulating an xxhash digest
// of everything written, and appends it as an "X-Content-Xxhash"
// trailer on Finish -- grounded on the pack's `cespare/xxhash` dependency
// used where the teacher computes content digests.
type ChecksumTransform struct {
	baseTransform
	digest *xxhash.Digest
}

// NewChecksumTransform returns a `TransformWriter` that computes an
// xxhash digest of the body as it streams through.
func NewChecksumTransform(parent BodyWriter) *ChecksumTransform {
	return &ChecksumTransform{baseTransform: baseTransform{parent: parent}, digest: xxhash.New()}
}

// Write implements `BodyWriter`.
func (t *ChecksumTransform) Write(chunk []byte) error {
	t.digest.Write(chunk)
	return t.parent.Write(chunk)
}

// Finish implements `BodyWriter`: appends the digest trailer before
// forwarding to the parent.
func (t *ChecksumTransform) Finish(trailers Headers) error {
	if trailers == nil {
		trailers = Headers{}
	}

	sum := hexDigest(uint64ToBytes(t.digest.Sum64()))
	trailers.Set("X-Content-Xxhash", []string{sum})

	return t.parent.Finish(trailers)
}

// uint64ToBytes renders a uint64 as its 8 big-endian bytes, for feeding
// to `hexDigest`.
func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}

	return b
}

// minifiers is the shared `*minify.M` instance used by `MinifyTransform`,
// configured once at package init with the media types the teacher's
// `minifier.go` supported (`MinifierEnabled`), now expressed as a gas
// instead of a framework-wide flag per `SPEC_FULL.md` §3.4.
var minifiers = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("application/json", json.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	return m
}()

// MinifyTransform buffers the full body (minification requires full
// context, unlike gzip/checksum) and minifies it according to
// mediaType on Finish, before handing the single resulting chunk to the
// parent writer.
type MinifyTransform struct {
	parent    BodyWriter
	mediaType string
	buf       bytes.Buffer
}

// NewMinifyTransform returns a `TransformWriter` that minifies the
// accumulated body as mediaType once writing completes.
func NewMinifyTransform(parent BodyWriter, mediaType string) *MinifyTransform {
	return &MinifyTransform{parent: parent, mediaType: mediaType}
}

// Write implements `BodyWriter`: buffers, since minification needs the
// whole document.
func (t *MinifyTransform) Write(chunk []byte) error {
	_, err := t.buf.Write(chunk)
	return err
}

// Finish implements `BodyWriter`: minifies the buffered body and writes
// it through in one shot before forwarding to the parent.
func (t *MinifyTransform) Finish(trailers Headers) error {
	out, err := minifiers.Bytes(t.mediaType, t.buf.Bytes())
	if err != nil {
		// Malformed input for the chosen minifier: fall back to the
		// unminified bytes rather than failing the response.
		out = t.buf.Bytes()
	}

	if err := t.parent.Write(out); err != nil {
		return err
	}

	return t.parent.Finish(trailers)
}
