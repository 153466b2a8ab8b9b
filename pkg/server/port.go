package server

import (
	"fmt"
	"net"
)

// FindFreePort asks the OS for an unused TCP port on the loopback interface.
// The port is released before returning, so another process may still grab it.
func FindFreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// isPortInUse checks if a TCP port is already bound on the given address.
func isPortInUse(ip string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(ip, fmt.Sprint(port)))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}
