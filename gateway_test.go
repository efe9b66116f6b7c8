package duex

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayServesPlainHTTP(t *testing.T) {
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

	url := fmt.Sprintf("http://%s/ping", gw.Addr().String())
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"pong":true`)
}

func TestGatewayLifecycleRejectsDoubleListen(t *testing.T) {
	gw, err := NewGateway(DefaultConfig(), mapRouter{}, noopLogger{})
	require.NoError(t, err)
	require.NoError(t, gw.Listen("127.0.0.1:0"))
	defer gw.Close()

	err = gw.Listen("127.0.0.1:0")
	require.Error(t, err)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindNotAvailable, de.Code)
}

func TestGatewayCloseDrainsStats(t *testing.T) {
	router := mapRouter{
		"/ping": RouteEntry{
			"method.get": {DispatcherFunc(func(req *Request, sess *Session) error { return nil })},
		},
	}
	gw, err := NewGateway(DefaultConfig(), router, noopLogger{})
	require.NoError(t, err)
	require.NoError(t, gw.Listen("127.0.0.1:0"))

	url := fmt.Sprintf("http://%s/ping", gw.Addr().String())
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, gw.Close())
	assert.True(t, gw.Stats().Drained())
	assert.Equal(t, GatewayClosed, gw.State())
}

func TestGatewayWrapHandlerRejectedAfterListen(t *testing.T) {
	gw, err := NewGateway(DefaultConfig(), mapRouter{}, noopLogger{})
	require.NoError(t, err)
	require.NoError(t, gw.Listen("127.0.0.1:0"))
	defer gw.Close()

	err = gw.WrapHandler(func(next http.Handler) http.Handler { return next })
	require.Error(t, err)
}
