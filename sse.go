package duex

import (
	"encoding/json"
	"net/http"
	"sync"
)

// sseStream is the lazily constructed object-mode transform backing
// View.Stream (§4.3). Each written object is stringified and framed as
// "data: <json>\n\n" (§6 wire format).
type sseStream struct {
	w      http.ResponseWriter
	logger Logger

	mu     sync.Mutex
	closed bool
}

func newSSEStream(w http.ResponseWriter, logger Logger) *sseStream {
	return &sseStream{w: w, logger: logger}
}

// Write encodes v as JSON and frames it as one SSE record. Encoder and
// write errors are returned as a KindChannelTransform error (§4.3/§7); the
// session's abortion token is not fired here.
func (s *sseStream) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewError(KindChannelClosed, http.StatusInternalServerError, "write to closed SSE stream")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return NewError(KindChannelTransform, http.StatusInternalServerError, "SSE encode failed").WithCause(err)
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return NewError(KindChannelTransform, http.StatusInternalServerError, "SSE write failed").WithCause(err)
	}
	if _, err := s.w.Write(data); err != nil {
		return NewError(KindChannelTransform, http.StatusInternalServerError, "SSE write failed").WithCause(err)
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return NewError(KindChannelTransform, http.StatusInternalServerError, "SSE write failed").WithCause(err)
	}
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// Close marks the stream as ended; the downstream itself is ended by the
// session's Present/PresentError call, never here, so that a dispatcher
// writing a stream can still be followed by further dispatchers in the
// chain (e.g. access logging) without double-ending the response.
func (s *sseStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
