package kestrel

import (
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aofei/mimesniffer"
)

// FileGasConfig configures `FileGas`.
type FileGasConfig struct {
	Provider           FileProvider
	SearchForIndexHTML bool
	ChunkSize          int // default 128 KiB
	CacheControl       map[string]string // media type -> Cache-Control value
}

const defaultChunkSize = 128 * 1024

// FileGas returns a `Gas` implementing the static file delivery
// algorithm of `spec.md` §4.4: it only activates when the downstream
// handler raised `NotFound`, and otherwise passes the original error (or
// success) through untouched.
func FileGas(cfg FileGasConfig) Gas {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}

	return func(next Handler) Handler {
		return func(req *Request, res *Response) error {
			err := next(req, res)
			if err == nil || !IsNotFound(err) {
				return err
			}

			return serveFile(cfg, req, res, err)
		}
	}
}

// serveFile implements steps 1-9 of `spec.md` §4.4. original is the
// `NotFound` error that triggered the file gas, re-thrown unchanged when
// no file can be served.
func serveFile(cfg FileGasConfig, req *Request, res *Response, original error) error {
	decoded, err := url.PathUnescape(req.URI.Path)
	if err != nil {
		return NewHTTPError(http.StatusBadRequest, "malformed path").Wrap(err)
	}

	if strings.Contains(decoded, "..") {
		return NewHTTPError(http.StatusBadRequest, "path traversal rejected")
	}

	fullPath := cfg.Provider.GetFullPath(decoded)

	attrs, ok := cfg.Provider.GetAttributes(fullPath)
	if !ok {
		return original
	}

	if attrs.IsDir {
		if !cfg.SearchForIndexHTML {
			return original
		}

		indexPath := cfg.Provider.GetFullPath(strings.TrimSuffix(decoded, "/") + "/index.html")

		attrs, ok = cfg.Provider.GetAttributes(indexPath)
		if !ok {
			return original
		}

		fullPath = indexPath
	}

	eTag := weakETag(attrs.ModTime, attrs.Size)
	lastModified := formatRFC9110(attrs.ModTime)

	res.Headers.Set("Last-Modified", []string{lastModified})
	res.Headers.Set("ETag", []string{eTag})
	res.Headers.Set("Accept-Ranges", []string{"bytes"})

	if ct := contentTypeFor(fullPath, cfg.Provider, cfg.ChunkSize); ct != "" {
		res.Headers.Set("Content-Type", []string{ct})

		if directive, ok := cfg.CacheControl[mediaTypeOf(ct)]; ok {
			res.Headers.Set("Cache-Control", []string{directive})
		}
	}

	if matched, any := matchesIfNoneMatch(req, eTag); any && matched {
		res.Status = http.StatusNotModified
		res.Body = EmptyBody()

		return nil
	}

	if t, ok := parseRFC9110(req.Headers.First("If-Modified-Since")); ok && !attrs.ModTime.UTC().Truncate(time.Second).After(t) {
		res.Status = http.StatusNotModified
		res.Body = EmptyBody()

		return nil
	}

	lo, hi, hasRange, rangeErr := parseRange(req, attrs.Size)
	if rangeErr {
		res.Headers.Set("Content-Range", []string{"bytes */" + itoa(attrs.Size)})
		return NewHTTPError(http.StatusRequestedRangeNotSatisfiable)
	}

	if hasRange && !ifRangeSatisfied(req, eTag, lastModified) {
		hasRange = false
	}

	if hasRange {
		res.Status = http.StatusPartialContent
		res.Headers.Set("Content-Range", []string{"bytes " + itoa(lo) + "-" + itoa(hi) + "/" + itoa(attrs.Size)})

		length := hi - lo + 1

		if req.Method == http.MethodHead {
			res.Headers.Set("Content-Length", []string{itoa(length)})
			res.Body = EmptyBody()

			return nil
		}

		res.Body = StreamBody(length, fileProducer(cfg.Provider, fullPath, lo, length, cfg.ChunkSize))

		return nil
	}

	res.Status = http.StatusOK

	if req.Method == http.MethodHead {
		res.Headers.Set("Content-Length", []string{itoa(attrs.Size)})
		res.Body = EmptyBody()

		return nil
	}

	res.Body = StreamBody(attrs.Size, fileProducer(cfg.Provider, fullPath, 0, attrs.Size, cfg.ChunkSize))

	return nil
}

// fileProducer returns a `BodyProducer` that streams length bytes of
// fullPath starting at offset, in chunkSize pieces.
func fileProducer(provider FileProvider, fullPath string, offset, length int64, chunkSize int) BodyProducer {
	return func(w BodyWriter) error {
		r, err := provider.Open(fullPath, offset)
		if err != nil {
			return NewHTTPError(http.StatusNotFound).Wrap(err)
		}

		defer r.Close()

		buf := make([]byte, chunkSize)
		remaining := length

		for remaining > 0 {
			n := len(buf)
			if int64(n) > remaining {
				n = int(remaining)
			}

			read, err := r.Read(buf[:n])
			if read > 0 {
				if werr := w.Write(buf[:read]); werr != nil {
					return werr
				}

				remaining -= int64(read)
			}

			if err != nil {
				if remaining == 0 {
					break
				}

				return err
			}
		}

		return w.Finish(nil)
	}
}

// matchesIfNoneMatch reports whether the request's If-None-Match header
// (possibly a comma-separated list) contains eTag, and whether the
// header was present at all.
func matchesIfNoneMatch(req *Request, eTag string) (matched, present bool) {
	header := req.Headers.First("If-None-Match")
	if header == "" {
		return false, false
	}

	if header == "*" {
		return true, true
	}

	for _, v := range strings.Split(header, ",") {
		if strings.TrimSpace(v) == eTag {
			return true, true
		}
	}

	return false, true
}

// ifRangeSatisfied reports whether the request's If-Range header (if
// present) matches either eTag or lastModified; if the header is
// absent, the range is always honoured.
func ifRangeSatisfied(req *Request, eTag, lastModified string) bool {
	header := req.Headers.First("If-Range")
	if header == "" {
		return true
	}

	return header == eTag || header == lastModified
}

// parseRange parses a `Range: bytes=LO-HI` header against size, per
// `spec.md` §4.4 step 8. hasRange is false if no Range header was sent;
// rangeErr is true if one was sent but could not be parsed.
func parseRange(req *Request, size int64) (lo, hi int64, hasRange, rangeErr bool) {
	header := req.Headers.First("Range")
	if header == "" {
		return 0, 0, false, false
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false, true
	}

	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		// Multiple ranges aren't supported; treat as unsatisfiable
		// rather than silently serving only the first.
		return 0, 0, false, true
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, true
	}

	loStr, hiStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	switch {
	case loStr == "" && hiStr == "":
		return 0, 0, false, true

	case loStr == "":
		// `LO=""` means `0..HI`, per `spec.md` §4.4 step 8 -- not an
		// RFC 7233 suffix-range (the last N bytes).
		n, err := strconv.ParseInt(hiStr, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false, true
		}

		lo = 0
		hi = n

	case hiStr == "":
		n, err := strconv.ParseInt(loStr, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false, true
		}

		lo = n
		hi = size - 1

	default:
		loN, err1 := strconv.ParseInt(loStr, 10, 64)
		hiN, err2 := strconv.ParseInt(hiStr, 10, 64)
		if err1 != nil || err2 != nil || loN < 0 || hiN < loN {
			return 0, 0, false, true
		}

		lo, hi = loN, hiN
	}

	if hi >= size {
		hi = size - 1
	}

	if lo > hi || lo < 0 || size == 0 {
		return 0, 0, false, true
	}

	return lo, hi, true, false
}

// contentTypeFor derives the Content-Type for fullPath from its
// extension, falling back to sniffing the first chunk of the file via
// `mimesniffer` when the extension table misses -- matching the
// teacher's `response.go` `mimesniffer.Sniff` fallback.
func contentTypeFor(fullPath string, provider FileProvider, chunkSize int) string {
	if ct := mime.TypeByExtension(filepath.Ext(fullPath)); ct != "" {
		return ct
	}

	r, err := provider.Open(fullPath, 0)
	if err != nil {
		return ""
	}

	defer r.Close()

	head := make([]byte, 512)
	n, _ := r.Read(head)

	return mimesniffer.Sniff(head[:n])
}
