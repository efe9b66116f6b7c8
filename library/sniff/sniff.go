// Package sniff implements the protocol-preface peek used by the gateway
// multiplexer (§4.1/§9): read the first bytes of a connection without
// consuming them from the downstream engine's point of view.
package sniff

import (
	"io"
	"net"
	"time"
)

// Preface is the 24-byte HTTP/2 client connection preface (RFC 9113 §3.4).
const Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// PrefaceLen is len(Preface), 24.
const PrefaceLen = len(Preface)

// Conn wraps a net.Conn and replays a peeked prefix before falling
// through to the underlying socket, so a peek never consumes bytes.
type Conn struct {
	net.Conn
	prefix []byte
	off    int
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.off < len(c.prefix) {
		n := copy(p, c.prefix[c.off:])
		c.off += n
		return n, nil
	}
	return c.Conn.Read(p)
}

// Peek reads exactly n bytes from conn within deadline and returns a
// *Conn that un-reads them: the next Read call on the returned Conn sees
// those bytes again. They are consumed from conn itself, so reading conn
// directly does not see them. If fewer than
// n bytes arrive before the deadline, err is non-nil and the caller
// should destroy the socket (§4.1: "If fewer than 24 bytes arrive within
// 1,000 ms, destroy the socket").
func Peek(conn net.Conn, n int, deadline time.Duration) (peeked *Conn, prefix []byte, err error) {
	if err := conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return nil, nil, err
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(conn, buf)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		return nil, buf[:read], err
	}
	return &Conn{Conn: conn, prefix: buf}, buf, nil
}

// IsPreface reports whether b equals the HTTP/2 client connection preface.
func IsPreface(b []byte) bool {
	return string(b) == Preface
}
