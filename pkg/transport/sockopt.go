//go:build linux

package transport

import (
	"net"
	"golang.org/x/sys/unix"
)

// socketBufferBytes sizes the kernel send/receive buffers for the
// datagram socket well above the OS default, since a busy tick can burst
// hundreds of snapshot frames across many peers in a few milliseconds.
const socketBufferBytes = 4 << 20 // 4 MiB

// TuneSocketBuffers raises SO_SNDBUF/SO_RCVBUF on the listening socket.
// Best-effort: failures are not fatal, since the zero-config default
// still functions, just with more contention under load.
func TuneSocketBuffers(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferBytes); e != nil {
			sockErr = e
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferBytes)
	})
	if err != nil {
		return err
	}
	return sockErr
}
