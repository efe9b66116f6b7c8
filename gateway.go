package duex

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	"github.com/duex-go/duex/library/sniff"
)

// GatewayState is the Gateway's lifecycle state, §4.1:
// Uninitialized -> Bootstrapped -> Listening -> Closing -> Closed.
type GatewayState int32

const (
	GatewayUninitialized GatewayState = iota
	GatewayBootstrapped
	GatewayListening
	GatewayClosing
	GatewayClosed
)

// prefaceDeadline is the 1,000 ms hard deadline from connection acceptance
// to the 24-byte preface arriving (§4.1, §5).
const prefaceDeadline = 1000 * time.Millisecond

// Gateway is the single listening socket that multiplexes HTTP/1.1 and
// HTTP/2 onto one port (§4.1, C4).
type Gateway struct {
	cfg    *Config
	router Router
	logger Logger
	stats  Stats

	state    atomic.Int32
	listener net.Listener

	tlsConfig   *tls.Config
	certWatcher *certWatcher

	h2srv   *http2.Server
	h1srv   *http.Server
	handler http.Handler

	liveMu   sync.Mutex
	liveH2   map[net.Conn]struct{}
	subs     sync.WaitGroup
	acceptWG sync.WaitGroup
}

// NewGateway bootstraps a Gateway: validates cfg, prepares TLS if
// configured, and moves the state machine to Bootstrapped. This is the
// only constructor; there is no separate "bootstrap" call, since Go has
// no ambient global stage the way gorox's Stage does.
func NewGateway(cfg *Config, router Router, logger Logger) (*Gateway, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	cfg.validate(logger.Logf)

	g := &Gateway{
		cfg:    cfg,
		router: router,
		logger: logger,
		h2srv:  &http2.Server{},
		liveH2: make(map[net.Conn]struct{}),
	}

	if cfg.isTLS() {
		tlsConfig, err := buildTLSConfig(&cfg.Server)
		if err != nil {
			return nil, err
		}
		g.tlsConfig = tlsConfig
		if cfg.Server.WatchCert {
			cw, err := newCertWatcher(&cfg.Server, tlsConfig, logger)
			if err != nil {
				return nil, err
			}
			g.certWatcher = cw
		}
	}

	g.handler = http.HandlerFunc(g.serveHTTP)
	g.h1srv = &http.Server{
		Handler:     g.handler,
		ConnContext: connContext,
	}

	g.state.Store(int32(GatewayBootstrapped))
	return g, nil
}

// WrapHandler lets a caller install transport-level middleware (e.g.
// middleware.Gzip) around every request the gateway serves, on both the
// h1 and h2 engines. Valid only before Listen.
func (g *Gateway) WrapHandler(wrap func(http.Handler) http.Handler) error {
	if g.State() != GatewayBootstrapped {
		return NewError(KindNotAvailable, 0, "WrapHandler is only valid before Listen")
	}
	g.handler = wrap(g.handler)
	g.h1srv.Handler = g.handler
	return nil
}

// State returns the current lifecycle state.
func (g *Gateway) State() GatewayState { return GatewayState(g.state.Load()) }

// Stats exposes the dispatched/completed/abortions/rejections counters.
func (g *Gateway) Stats() *Stats { return &g.stats }

// Addr returns the bound listener address. Valid only once Listen has
// succeeded; used by tests to connect to a dynamically chosen port.
func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Listen binds port and begins accepting connections (§6). Valid only
// from Bootstrapped.
func (g *Gateway) Listen(addr string) error {
	if !g.state.CompareAndSwap(int32(GatewayBootstrapped), int32(GatewayListening)) {
		return NewError(KindNotAvailable, 0, "listen is only valid from the bootstrapped state")
	}

	ln, err := listenTCPReusePort(addr)
	if err != nil {
		g.state.Store(int32(GatewayBootstrapped))
		return err
	}
	g.listener = ln

	g.acceptWG.Add(1)
	go g.acceptLoop()
	return nil
}

func (g *Gateway) acceptLoop() {
	defer g.acceptWG.Done()
	for {
		conn, err := g.listener.Accept()
		if err != nil {
			if g.State() >= GatewayClosing {
				return
			}
			continue
		}
		go g.handleConn(conn)
	}
}

// handleConn implements the engine hand-off of §4.1: TLS-handshake if
// configured, then peek the preface and route to h1 or h2.
func (g *Gateway) handleConn(conn net.Conn) {
	if g.tlsConfig != nil {
		tlsConn := tls.Server(conn, g.effectiveTLSConfig())
		if err := tlsConn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
			tlsConn.Close()
			return
		}
		if err := tlsConn.Handshake(); err != nil {
			tlsConn.Close()
			return
		}
		_ = tlsConn.SetDeadline(time.Time{})
		g.routeConn(tlsConn)
		return
	}
	g.routeConn(conn)
}

// routeConn implements §4.1's preface sniffing: peek 24 bytes within
// 1,000 ms, un-shift them, and route to h2 on a literal preface match,
// h1 otherwise. ALPN may have already hinted at the protocol, but
// preface sniffing is authoritative (§4.1).
func (g *Gateway) routeConn(conn net.Conn) {
	peeked, prefix, err := sniff.Peek(conn, sniff.PrefaceLen, prefaceDeadline)
	if err != nil {
		conn.Close()
		return
	}
	if sniff.IsPreface(prefix) {
		g.serveH2(peeked)
		return
	}
	g.serveH1(peeked)
}

func (g *Gateway) serveH1(conn net.Conn) {
	ln := newOnceListener(conn)
	_ = g.h1srv.Serve(ln)
}

// serveH2 registers the connection in the live-session set (§3, §4.1)
// and runs the h2 frame engine on it until it closes.
func (g *Gateway) serveH2(conn net.Conn) {
	g.liveMu.Lock()
	g.liveH2[conn] = struct{}{}
	g.liveMu.Unlock()
	g.subs.Add(1)
	defer func() {
		g.subs.Done()
		g.liveMu.Lock()
		delete(g.liveH2, conn)
		g.liveMu.Unlock()
	}()

	g.h2srv.ServeConn(conn, &http2.ServeConnOpts{
		Context: connContext(context.Background(), conn),
		Handler: g.handler,
	})
}

func (g *Gateway) serveHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := newSessionID()
	cs, _ := r.Context().Value(connStateKey{}).(*connState)
	var requestID string
	if cs != nil {
		index := cs.index.Add(1)
		if r.ProtoMajor >= 2 {
			requestID = http2RequestID(sessionID, index)
		} else {
			requestID = http1RequestID(sessionID, index)
		}
	} else {
		// No per-connection counter available (e.g. a handler invoked
		// directly in tests, bypassing the gateway's ConnContext hook):
		// fall back to a process-wide counter for the request index.
		requestID = http1RequestID(sessionID, nextRequestIndex())
	}
	serveSession(r.Context(), w, r, g.router, &g.stats, g.logger, requestID, g.cfg.KeepAliveMillis)
}

func (g *Gateway) effectiveTLSConfig() *tls.Config {
	if g.certWatcher != nil {
		return g.certWatcher.tlsConfig()
	}
	return g.tlsConfig
}

// Close implements §4.1's shutdown protocol: stop accepting, wait for
// every tracked h2 session to close, resolve. Valid only from Listening.
func (g *Gateway) Close() error {
	if !g.state.CompareAndSwap(int32(GatewayListening), int32(GatewayClosing)) {
		return NewError(KindNotAvailable, 0, "close is only valid from the listening state")
	}

	if g.listener != nil {
		_ = g.listener.Close()
	}
	g.acceptWG.Wait()

	g.liveMu.Lock()
	live := make([]net.Conn, 0, len(g.liveH2))
	for conn := range g.liveH2 {
		live = append(live, conn)
	}
	g.liveMu.Unlock()
	for _, conn := range live {
		_ = conn.Close() // ask each live h2 session to close
	}
	g.subs.Wait() // wait for all tracked h2 sessions to close (ack via return from serveH2)

	if g.certWatcher != nil {
		g.certWatcher.close()
	}
	g.logger.Close()

	g.state.Store(int32(GatewayClosed))
	return nil
}

// connStateKey/connState carry a per-connection request counter, used to
// build the HTTP/1.1 "request index on that socket" and approximate an
// HTTP/2 per-connection ordinal (§4.4 identifiers). x/net/http2 does not
// expose the real wire stream ID to net/http handlers, so the ordinal is
// an approximation — see DESIGN.md.
type connStateKey struct{}

type connState struct {
	index atomic.Uint32
}

func connContext(ctx context.Context, _ net.Conn) context.Context {
	return context.WithValue(ctx, connStateKey{}, &connState{})
}
