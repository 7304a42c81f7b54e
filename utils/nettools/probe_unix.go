//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"net"

	"golang.org/x/sys/unix"
)

func probe(c net.Conn) bool {
	rc := rawConn(c)
	if rc == nil {
		return true
	}
	alive := true
	err := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0) // zero timeout, never blocks
		if err != nil {
			return
		}
		if n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			alive = false
		}
	})
	if err != nil {
		return true
	}
	return alive
}
