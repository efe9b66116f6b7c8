package duex

import (
	"context"
	"net"
	"syscall"

	"github.com/duex-go/duex/library/sockopt"
)

// listenTCPReusePort binds addr with SO_REUSEPORT set, the way gorox's
// httpxGate.Open does via hemi/library/system.
func listenTCPReusePort(addr string) (net.Listener, error) {
	listenConfig := net.ListenConfig{
		Control: func(network, address string, rawConn syscall.RawConn) error {
			return sockopt.SetReusePort(rawConn)
		},
	}
	return listenConfig.Listen(context.Background(), "tcp", addr)
}
