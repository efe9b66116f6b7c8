// Package middleware collects transport-level wrappers that sit in front
// of a duex.Gateway's HTTP handler, as opposed to duex.Dispatcher values
// that run inside the per-request chain.
package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// gzipResponseWriter grounds gorox's gzipReviser (hemi/builtin/revisers/gzip)
// in net/http terms: gorox revises the response Chain in place as it is
// drawn; net/http instead lets us wrap ResponseWriter.Write, so compression
// happens transparently to duex.View, which never knows its writes are
// being gzipped.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz            *gzip.Writer
	minLength     int
	onContentType []string
	buf           []byte
	decided       bool
	compress      bool
	wroteHeader   bool
	statusCode    int
}

// WriteHeader is buffered rather than forwarded immediately: decide() has
// not run yet (it needs the Content-Type the handler set before calling
// WriteHeader), and net/http freezes the header block the instant
// WriteHeader reaches the real ResponseWriter. Forwarding it here, before
// decide() has had a chance to set Content-Encoding/Vary/Content-Length,
// would lock in headers that describe the uncompressed body while the
// body written afterwards is gzipped underneath them.
func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.statusCode = statusCode
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	if !w.decided {
		w.buf = append(w.buf, p...)
		if len(w.buf) < w.minLength {
			return len(p), nil
		}
		w.decide() // writes the buffer, which already holds p
		return len(p), nil
	}
	if w.compress {
		return w.gz.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) decide() {
	w.decided = true
	w.compress = matchesContentType(w.Header().Get("Content-Type"), w.onContentType)
	if w.compress {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")
	}
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(w.statusCode)
	}
	if len(w.buf) > 0 {
		if w.compress {
			w.gz.Write(w.buf)
		} else {
			w.ResponseWriter.Write(w.buf)
		}
		w.buf = nil
	}
}

// Flush lets duex.View.flushHeadersLocked's http.Flusher type assertion
// still succeed when Gzip wraps the writer. View calls this right after
// WriteHeader, often before anything has been written (e.g. opening an SSE
// stream), so the buffered status still needs to reach the real
// ResponseWriter here, not just on the first Write. Compressing a live SSE
// stream defeats per-event flushing (gzip.Writer buffers), so
// OnContentTypes should exclude text/event-stream in practice;
// DefaultGzipOptions does.
func (w *gzipResponseWriter) Flush() {
	if !w.decided {
		w.decide()
	}
	if w.compress {
		w.gz.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *gzipResponseWriter) flush() {
	if !w.decided {
		w.decide()
	}
	if w.compress {
		w.gz.Close()
	}
}

func matchesContentType(contentType string, allow []string) bool {
	if contentType == "" {
		return false
	}
	for _, want := range allow {
		if strings.HasPrefix(contentType, want) {
			return true
		}
	}
	return false
}

// GzipOptions configures Gzip, mirroring gorox's gzipReviser's
// minLength/onContentTypes configuration fields. There is no compression
// level option; gzip.NewWriter's default level is used.
type GzipOptions struct {
	MinLength      int      // bytes; below this the body is sent uncompressed
	OnContentTypes []string // content-type prefixes eligible for compression
}

// DefaultGzipOptions compresses text/html and application/json responses,
// with no minimum length.
func DefaultGzipOptions() GzipOptions {
	return GzipOptions{OnContentTypes: []string{"text/html", "application/json"}}
}

// Gzip wraps next so that eligible responses are gzip-compressed when the
// client advertises Accept-Encoding: gzip.
func Gzip(opts GzipOptions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzip.NewWriter(w)
		gw := &gzipResponseWriter{
			ResponseWriter: w,
			gz:             gz,
			minLength:      opts.MinLength,
			onContentType:  opts.OnContentTypes,
		}
		next.ServeHTTP(gw, r)
		gw.flush()
	})
}
