//go:build linux

package socket

import "golang.org/x/sys/unix"

// peerShutdown reports whether the peer has sent its FIN, which a peek
// cannot tell apart from "no new bytes yet" while data is still queued.
func peerShutdown(fd int) bool {
	info, err := unix.GetsockoptTCPInfo(fd, unix.IPPROTO_TCP, unix.TCP_INFO)
	if err != nil {
		return false
	}
	switch info.State {
	case unix.BPF_TCP_CLOSE_WAIT, unix.BPF_TCP_LAST_ACK, unix.BPF_TCP_CLOSE:
		return true
	}
	return false
}
