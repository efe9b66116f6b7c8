package duex

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Session is the per-request record binding request, view, cancellation
// token, and chain (§3).
type Session struct {
	ID        string // base36-millis.base36-random, uppercased (§4.4)
	RequestID string

	view     *View
	abortion *Abortion
	chain    *Chain

	stats  *Stats
	logger Logger
	router Router

	request  *Request
	upstream io.ReadCloser
}

// NewSession builds a standalone Session around w, for dispatchers that
// want to unit test against the View/Abort surface directly without
// driving a full Gateway.
func NewSession(w http.ResponseWriter, logger Logger) *Session {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Session{view: newView(w, logger), abortion: newAbortion(), logger: logger}
}

// View exposes the session's outgoing-response façade.
func (s *Session) View() *View { return s.view }

// Abort fires the session's single-shot cancellation token with reason,
// the only dispatcher-facing way to abort (§4.2 contract, item d).
func (s *Session) Abort(reason error) { s.abortion.Abort(reason) }

// serveSession runs the full per-request flow of §4.4 for one HTTP
// request arriving over either the h1 or h2 engine.
func serveSession(ctx context.Context, w http.ResponseWriter, r *http.Request, router Router, stats *Stats, logger Logger, requestID string, keepAliveMillis int64) {
	sessionID := requestID // "<sessionID>.<index>": drop the index
	if i := strings.LastIndexByte(requestID, '.'); i > 0 {
		sessionID = requestID[:i]
	}
	sess := &Session{
		ID:        sessionID,
		RequestID: requestID,
		view:      newView(w, logger),
		abortion:  newAbortion(),
		stats:     stats,
		logger:    logger,
		router:    router,
		upstream:  r.Body,
	}
	req := newRequest(r.Method, r.Header, r.URL)
	sess.request = req

	// Step 2: kick off body buffering in the background.
	pending := req.Body.(*PendingBody)
	go func() {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			pending.resolve(nil, NewError(KindUpstreamClosed, http.StatusBadGateway, "upstream body read failed").WithCause(err))
			return
		}
		pending.resolve(data, nil)
	}()

	// Step 3: wire reactors. net/http unifies "upstream" and "downstream"
	// on one request context, so both the client-aborted-mid-body and the
	// connection-closed-after-headers cases surface as ctx.Done(); we
	// distinguish them by whether the body had finished buffering yet.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-pending.done:
				sess.abortion.Abort(NewError(KindStreamClosed, 0, "downstream closed"))
				logger.Logf("[duex] stream closed: method=%s path=%s", req.Method, req.URL.Path)
			default:
				sess.abortion.Abort(NewError(KindUpstreamAborted, 0, "upstream aborted"))
				logger.Logf("[duex] upstream aborted: method=%s path=%s", req.Method, req.URL.Path)
			}
		case <-done:
		}
	}()

	applyKeepAlive(w, r, keepAliveMillis)

	// Step 4: bump dispatched, ask the Router to dispatch.
	stats.bumpDispatched()

	abortedCh := sess.abortion.Done()
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- dispatchToRouter(sess, req)
	}()

	select {
	case err := <-resultCh:
		if err != nil {
			stats.bumpRejections()
			de := asDispatchError(err)
			logger.Logf("[duex] dispatch failed: code=%s message=%s", de.Code, de.Message)
			sess.view.PresentError(de.WithCause(de.Err))
		} else {
			stats.bumpCompleted()
			sess.view.Present()
		}
	case <-abortedCh:
		stats.bumpAbortions()
		reason := sess.abortion.reasonErr()
		if reason != nil {
			sess.view.PresentError(reason)
		} else {
			sess.view.Present()
		}
	}
}

// dispatchToRouter asks the external Router for a RouteEntry and runs the
// method-negotiation dispatcher seeded chain against it (§2 data flow,
// §4.2).
func dispatchToRouter(sess *Session, req *Request) error {
	entry, ok := sess.router.Route(req.Criteria)
	if !ok {
		return NewError(KindNoRoute, http.StatusNotFound, "no route for "+req.Criteria)
	}
	sess.chain = NewChain(MethodDispatcher(entry))
	return sess.chain.run(req, sess)
}

// applyKeepAlive implements §4.4's keep-alive echo: on Connection:
// keep-alive, set Keep-Alive: timeout=<floor(keepAliveMillis/1000)>; on
// Connection: close, emit nothing. The transport echoes Connection itself.
func applyKeepAlive(w http.ResponseWriter, r *http.Request, keepAliveMillis int64) {
	conn := r.Header.Get("Connection")
	if conn == "" {
		return
	}
	if strings.EqualFold(conn, "keep-alive") {
		seconds := keepAliveMillis / 1000
		w.Header().Set("Keep-Alive", "timeout="+strconv.FormatInt(seconds, 10))
	}
}
