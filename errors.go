package duex

import (
	"fmt"
	"net/http"
)

// Kind is the stable vocabulary of error codes the core can raise. See §7.
type Kind string

const (
	KindNotAvailable        Kind = "E_NOT_AVAILABLE"
	KindUpstreamAborted     Kind = "E_UPSTREAM_ABORTED"
	KindUpstreamError       Kind = "E_UPSTREAM_ERROR"
	KindUpstreamClosed      Kind = "E_UPSTREAM_CLOSED"
	KindStreamClosed        Kind = "E_STREAM_CLOSED"
	KindDownstreamError     Kind = "E_DOWNSTREAM_ERROR"
	KindPropertyNotReadable Kind = "E_HTTP_SERVER_VIEW_MODEL_PROPERTY_NOT_READABLE"
	KindPropertyNotWritable Kind = "E_HTTP_SERVER_VIEW_MODEL_PROPERTY_NOT_WRITABLE"
	KindChannelTransform    Kind = "E_CHANNEL_TRANSFORM_FAILED"
	KindNoRoute             Kind = "E_NO_ROUTE"
	KindHeaderMissing       Kind = "E_HEADER_MISSING"
	KindInvalidBody         Kind = "E_INVALID_BODY"
	KindDispatchFailed      Kind = "E_DISPATCH_FAILED"

	// Additive kinds, see SPEC_FULL.md §7. Never reuse the status/behavior
	// of a spec-named kind above.
	KindUnauthenticated Kind = "E_UNAUTHENTICATED"
	KindChannelClosed   Kind = "E_CHANNEL_CLOSED"
)

// DispatchError is the error type carried through the chain, abortion token,
// and view presentation. Its Cause chain is walked by View.PresentError to
// build the response's "details" array.
type DispatchError struct {
	Message string
	Code    Kind
	Status  int   // HTTP status; 0 means "use the 500 default"
	Headers map[string][]string
	Err     error // wrapped cause, may itself be a *DispatchError or a plain error
}

func NewError(code Kind, status int, message string) *DispatchError {
	return &DispatchError{Message: message, Code: code, Status: status}
}

func (e *DispatchError) Error() string { return e.Message }
func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) WithCause(cause error) *DispatchError {
	e.Err = cause
	return e
}

func (e *DispatchError) WithHeader(name, value string) *DispatchError {
	if e.Headers == nil {
		e.Headers = make(map[string][]string)
	}
	e.Headers[name] = append(e.Headers[name], value)
	return e
}

func (e *DispatchError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// wrapDispatchFailed is used by the chain engine when a dispatcher rejects
// or panics with a plain error: the router-level failure is represented as
// KindDispatchFailed wrapping the dispatcher's own error.
func wrapDispatchFailed(cause error) *DispatchError {
	return &DispatchError{
		Message: "dispatcher failed",
		Code:    KindDispatchFailed,
		Err:     cause,
	}
}

// asDispatchError normalizes any error (including a plain error returned by
// third-party dispatcher code) into a *DispatchError suitable for presentation.
func asDispatchError(err error) *DispatchError {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DispatchError); ok {
		return de
	}
	return wrapDispatchFailed(err)
}

// CauseList lets a dispatcher attach several causes to one error (the
// "cause is a list" branch of §4.3's details algorithm). Each element is
// walked in order.
type CauseList []error

func (c CauseList) Error() string {
	if len(c) == 0 {
		return ""
	}
	return c[0].Error()
}

// errorDetails walks err and its cause chain per §4.3's presentError
// algorithm, breaking cycles with a visited set. err itself is the first
// entry, so View.PresentError passes the presented error's cause, not the
// presented error. Only *DispatchError is tracked for
// cycles: it's the only case that recurses through a stored field (Err), so
// it's the only dynamic type that can actually revisit itself. The visited
// set is keyed on the pointer itself rather than on the error interface
// value, since a CauseList is a slice and slices panic on use as a map key.
func errorDetails(err error) []string {
	var details []string
	visited := make(map[*DispatchError]bool)
	var walk func(cur error)
	walk = func(cur error) {
		if cur == nil {
			return
		}
		switch v := cur.(type) {
		case *DispatchError:
			if visited[v] {
				return
			}
			visited[v] = true
			details = append(details, fmt.Sprintf("%s - %s", v.Code, trimMessage(v.Message)))
			walk(v.Err)
		case CauseList:
			for _, elem := range v {
				walk(elem)
			}
		default:
			details = append(details, fmt.Sprintf("%v", cur))
		}
	}
	walk(err)
	return details
}

func trimMessage(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}
