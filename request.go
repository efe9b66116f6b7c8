package duex

import (
	"net/http"
	"net/url"
	"strings"
)

// PendingBody is the initial value of Request.Body: a pending value (§3)
// resolving to the raw upstream byte buffer. Session kicks off the buffer
// read in the background (§4.4 step 2); dispatchers that need raw bytes
// call Bytes, which blocks until buffering completes or the upstream
// errored/closed.
type PendingBody struct {
	done chan struct{}
	data []byte
	err  error
}

func newPendingBody() *PendingBody {
	return &PendingBody{done: make(chan struct{})}
}

func (p *PendingBody) resolve(data []byte, err error) {
	p.data, p.err = data, err
	close(p.done)
}

// Bytes blocks until the upstream body has been fully buffered.
func (p *PendingBody) Bytes() ([]byte, error) {
	<-p.done
	return p.data, p.err
}

// Request is the inbound request, immutable to dispatchers except for
// Body and Criteria (§3).
type Request struct {
	Method   string      // upper-case verb
	Headers  http.Header // case-insensitive mapping, value may be a list
	URL      *url.URL    // parsed absolute URL with Path and RawQuery/Query()
	Criteria string      // URL.Path with trailing slashes stripped

	// Body starts as a *PendingBody; middleware (e.g. the JSON decoder)
	// may replace it with the decoded value.
	Body any
}

// newRequest builds a Request from a parsed method/header/URL triple,
// computing Criteria per §3 ("the pathname with trailing slashes
// stripped").
func newRequest(method string, headers http.Header, u *url.URL) *Request {
	return &Request{
		Method:   strings.ToUpper(method),
		Headers:  headers,
		URL:      u,
		Criteria: stripTrailingSlashes(u.Path),
		Body:     newPendingBody(),
	}
}

func stripTrailingSlashes(path string) string {
	if path == "/" {
		return path
	}
	end := len(path)
	for end > 0 && path[end-1] == '/' {
		end--
	}
	if end == 0 {
		return "/"
	}
	return path[:end]
}
