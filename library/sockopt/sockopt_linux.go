//go:build linux

// Package sockopt sets listener socket options the way
// hemi/library/system does per-platform, generalized to the one option
// the gateway needs: SO_REUSEPORT on the listening socket.
package sockopt

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func SetReusePort(rawConn syscall.RawConn) (err error) {
	rawConn.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	return
}
