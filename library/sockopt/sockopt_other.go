//go:build !linux && !darwin

package sockopt

import "syscall"

// SetReusePort is a no-op on platforms without SO_REUSEPORT support wired
// in (e.g. Windows); the gateway still binds a single listener correctly.
func SetReusePort(rawConn syscall.RawConn) error { return nil }
