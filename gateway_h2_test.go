package duex

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

// TestGatewayServesHTTP2WithPriorKnowledge drives §4.1's core hand-off: a
// connection whose first 24 bytes are the HTTP/2 client preface must be
// routed to the h2 engine, and the same route must answer identically to
// an HTTP/1.1 client (§8 scenario 8, mixed h1/h2 identical bodies).
func TestGatewayServesHTTP2WithPriorKnowledge(t *testing.T) {
	router := mapRouter{
		"/ping": RouteEntry{
			"method.get": {DispatcherFunc(func(req *Request, sess *Session) error {
				sess.View().MergeBody(map[string]any{"pong": true})
				return nil
			})},
		},
	}
	gw, err := NewGateway(DefaultConfig(), router, noopLogger{})
	require.NoError(t, err)
	require.NoError(t, gw.Listen("127.0.0.1:0"))
	defer gw.Close()

	addr := gw.Addr().String()
	url := fmt.Sprintf("http://%s/ping", addr)

	// h2c with prior knowledge: dial plain TCP, skip the HTTP/1.1 Upgrade
	// dance entirely, and let http2.Transport write the preface itself.
	h2Transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, _ string, _ *tls.Config) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		},
	}
	h2Client := &http.Client{Transport: h2Transport, Timeout: 5 * time.Second}

	h2Resp, err := h2Client.Get(url)
	require.NoError(t, err)
	defer h2Resp.Body.Close()
	assert.Equal(t, "HTTP/2.0", h2Resp.Proto)
	assert.Equal(t, http.StatusOK, h2Resp.StatusCode)
	h2Body, err := io.ReadAll(h2Resp.Body)
	require.NoError(t, err)

	h1Client := &http.Client{Timeout: 5 * time.Second}
	h1Resp, err := h1Client.Get(url)
	require.NoError(t, err)
	defer h1Resp.Body.Close()
	assert.Equal(t, "HTTP/1.1", h1Resp.Proto)
	h1Body, err := io.ReadAll(h1Resp.Body)
	require.NoError(t, err)

	assert.Equal(t, string(h1Body), string(h2Body))
	assert.Contains(t, string(h2Body), `"pong":true`)
}
