package duex

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// validFieldNames is the fixed field set of the view façade (§4.3). Any
// access outside this set fails synchronously with KindPropertyNotReadable
// or KindPropertyNotWritable, carrying this list.
var validFieldNames = []string{"body", "headers", "status", "stream"}

// View is the outgoing-response façade owned by the Session (§4.3). Go has
// no dynamic-property trap, so the "strict guard" becomes: the only
// mutation surface dispatchers get is this fixed method set, plus the
// reflective Get/Set pair kept specifically so dispatcher code that only
// has a field name as a string (e.g. template-driven code) still observes
// the same PropertyNotReadable/PropertyNotWritable failures a dynamic
// trap would raise (see SPEC_FULL.md §4.3).
type View struct {
	mu sync.Mutex

	w      http.ResponseWriter
	logger Logger

	body        map[string]any
	status      int
	headersSent bool
	ended       bool

	stream *sseStream
}

func newView(w http.ResponseWriter, logger Logger) *View {
	return &View{w: w, logger: logger, body: make(map[string]any), status: http.StatusOK}
}

// Get implements the reflective property-style read. name must be one of
// validFieldNames.
func (v *View) Get(name string) (any, error) {
	switch name {
	case "body":
		return v.Body(), nil
	case "headers":
		return v.Headers(), nil
	case "status":
		return v.Status(), nil
	case "stream":
		return v.Stream(), nil
	default:
		return nil, NewError(KindPropertyNotReadable, http.StatusInternalServerError,
			fmt.Sprintf("view has no readable property %q; valid properties: %v", name, validFieldNames))
	}
}

// Set implements the reflective property-style write. Only "body" and
// "status" are writable; "headers" and "stream" are read-only handles.
func (v *View) Set(name string, value any) error {
	switch name {
	case "body":
		patch, ok := value.(map[string]any)
		if !ok {
			return NewError(KindPropertyNotWritable, http.StatusInternalServerError,
				fmt.Sprintf("view.body must be set from a map, got %T", value))
		}
		v.MergeBody(patch)
		return nil
	case "status":
		code, ok := value.(int)
		if !ok {
			return NewError(KindPropertyNotWritable, http.StatusInternalServerError,
				fmt.Sprintf("view.status must be set from an int, got %T", value))
		}
		v.SetStatus(code)
		return nil
	case "headers", "stream":
		return NewError(KindPropertyNotWritable, http.StatusInternalServerError,
			fmt.Sprintf("view.%s is read-only; valid writable properties: body, status", name))
	default:
		return NewError(KindPropertyNotWritable, http.StatusInternalServerError,
			fmt.Sprintf("view has no writable property %q; valid properties: %v", name, validFieldNames))
	}
}

// Body returns the current aggregate body.
func (v *View) Body() map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.body
}

// MergeBody deep-merges patch into the existing body (§4.3 body
// semantics): mappings merge key-wise, non-mapping values overwrite.
// Writing N times with partial objects yields the same result as one
// merged write of the union (§8 round-trip property).
func (v *View) MergeBody(patch map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	deepMergeInto(v.body, patch)
}

func deepMergeInto(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				deepMergeInto(dstMap, srcMap)
				continue
			}
			merged := make(map[string]any, len(srcMap))
			deepMergeInto(merged, srcMap)
			dst[key] = merged
			continue
		}
		dst[key] = value
	}
}

// Status returns the current outgoing status code.
func (v *View) Status() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// SetStatus records the status code. It is not sent to the transport
// immediately: it goes out when headers are flushed (Present, PresentError,
// Stream, FlushHeaders or WriteHead), and has no effect on the response
// once headers have been sent.
func (v *View) SetStatus(code int) {
	v.mu.Lock()
	v.status = code
	v.mu.Unlock()
}

// Headers returns the live headers façade.
func (v *View) Headers() *Headers { return &Headers{view: v} }

// Stream lazily constructs the SSE transform on first access (§4.3).
// Successive accesses return the same object (§8 round-trip property).
func (v *View) Stream() *sseStream {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stream != nil {
		return v.stream
	}
	v.w.Header().Set("Content-Type", "text/event-stream")
	v.flushHeadersLocked()
	v.stream = newSSEStream(v.w, v.logger)
	return v.stream
}

func (v *View) flushHeadersLocked() {
	if v.headersSent {
		return
	}
	v.headersSent = true
	v.w.WriteHeader(v.status)
	if flusher, ok := v.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// HeadersSent reports whether headers have already been flushed.
func (v *View) HeadersSent() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.headersSent
}

// Present writes the successful response exactly once (§4.3, §8
// invariant): a no-op if the downstream is already ended.
func (v *View) Present() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ended {
		return
	}
	v.ended = true
	if !v.headersSent && v.w.Header().Get("Content-Type") == "" {
		v.w.Header().Set("Content-Type", "application/json")
	}
	if !v.headersSent {
		v.headersSent = true
		v.w.WriteHeader(v.status)
	}
	_ = json.NewEncoder(v.w).Encode(v.body)
}

// errorBody is the wire format of §6: {status, error, code?, details?}.
type errorBody struct {
	Status  int      `json:"status"`
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// PresentError writes the error response at most once (§4.3, §7). It
// merges the error's headers (if any), defaults content-type, sets status
// from the error's own status or 500, and serializes the details chain.
func (v *View) PresentError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ended {
		return
	}
	v.ended = true

	de := asDispatchError(err)

	if !v.headersSent {
		for name, values := range de.Headers {
			for _, value := range values {
				v.w.Header().Add(name, value)
			}
		}
		if v.w.Header().Get("Content-Type") == "" {
			v.w.Header().Set("Content-Type", "application/json")
		}
		v.status = de.StatusCode()
		v.headersSent = true
		v.w.WriteHeader(v.status)
	}

	body := errorBody{
		Status:  v.status,
		Error:   de.Message,
		Code:    string(de.Code),
		Details: errorDetails(de.Err),
	}
	_ = json.NewEncoder(v.w).Encode(body)
}

// Headers is the live proxy over the transport's header table (§4.3).
type Headers struct{ view *View }

// Get falls back to the live transport header if not set locally —
// there is no local overlay in this implementation, so it always reads
// straight from the transport, which is equivalent.
func (h *Headers) Get(name string) string { return h.view.w.Header().Get(name) }

func (h *Headers) Values(name string) []string { return h.view.w.Header().Values(name) }

func (h *Headers) Set(name, value string) {
	if h.view.HeadersSent() {
		return
	}
	h.view.w.Header().Set(name, value)
}

func (h *Headers) Add(name, value string) {
	if h.view.HeadersSent() {
		return
	}
	h.view.w.Header().Add(name, value)
}

func (h *Headers) Del(name string) {
	if h.view.HeadersSent() {
		return
	}
	h.view.w.Header().Del(name)
}

// Names enumerates transport header names.
func (h *Headers) Names() []string {
	names := make([]string, 0, len(h.view.w.Header()))
	for name := range h.view.w.Header() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTrailer declares a trailer name ahead of writing it (net/http
// convention: prefixed with the TrailerPrefix magic, or pre-declared via
// the "Trailer" header).
func (h *Headers) AddTrailer(name string) {
	h.view.w.Header().Add("Trailer", name)
}

func (h *Headers) AppendHeader(name, value string) { h.Add(name, value) }

// FlushHeaders writes headers now if they have not been sent yet.
func (h *Headers) FlushHeaders() {
	h.view.mu.Lock()
	defer h.view.mu.Unlock()
	h.view.flushHeadersLocked()
}

// WriteEarlyHints sends a 103 Early Hints informational response carrying
// header, before the final headers are written.
func (h *Headers) WriteEarlyHints(header map[string][]string) {
	if h.view.HeadersSent() {
		return
	}
	for name, values := range header {
		for _, value := range values {
			h.view.w.Header().Add(name, value)
		}
	}
	h.view.w.WriteHeader(http.StatusEarlyHints)
}

// WriteHead forces headers to be sent with the given status now.
func (h *Headers) WriteHead(status int) {
	h.view.mu.Lock()
	defer h.view.mu.Unlock()
	if h.view.headersSent {
		return
	}
	h.view.status = status
	h.view.flushHeadersLocked()
}

// Sent reports whether headers have been flushed.
func (h *Headers) Sent() bool { return h.view.HeadersSent() }
