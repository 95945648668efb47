//go:build !linux

package socket

// peerShutdown has no portable probe outside Linux; a partial line at
// shutdown then waits for the read deadline.
func peerShutdown(fd int) bool {
	return false
}
