package duex

import (
	"io"
	"net"
	"sync"
)

// onceListener adapts a single already-accepted net.Conn into a
// net.Listener so net/http.Server.Serve can own its request/response
// cycling (including HTTP/1.1 pipelining and keep-alive) without the
// gateway reimplementing RFC 9112 parsing itself (see SPEC_FULL.md §4.1
// for why we lean on net/http here instead of gorox's from-scratch
// parser). Serve's second Accept call blocks until the connection closes,
// then returns io.EOF so Serve exits cleanly.
type onceListener struct {
	conn   net.Conn
	served bool
	closed chan struct{}
}

func newOnceListener(conn net.Conn) *onceListener {
	l := &onceListener{closed: make(chan struct{})}
	l.conn = &closeSignalConn{Conn: conn, closed: l.closed}
	return l
}

func (l *onceListener) Accept() (net.Conn, error) {
	if !l.served {
		l.served = true
		return l.conn, nil
	}
	<-l.closed
	return nil, io.EOF
}

func (l *onceListener) Close() error   { return nil }
func (l *onceListener) Addr() net.Addr { return l.conn.LocalAddr() }

// closeSignalConn closes the "closed" channel exactly once when the
// connection is closed, so the owning onceListener's second Accept call
// can unblock.
type closeSignalConn struct {
	net.Conn
	once   sync.Once
	closed chan struct{}
}

func (c *closeSignalConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.closed) })
	return err
}
