//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package discovery

import "syscall"

// reusePort is a no-op where port sharing is not available; a second
// listener on the same host fails to bind.
func reusePort(_, _ string, _ syscall.RawConn) error {
	return nil
}
