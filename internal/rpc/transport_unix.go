//go:build !windows

package rpc

import (
	"net"
	"os"
	"time"
)

// listenRPC opens the Unix domain socket a worker connects to, adapted
// from the teacher's internal/rpc/transport_unix.go.
func listenRPC(socketPath string) (net.Listener, error) {
	return net.Listen("unix", socketPath)
}

// listenTCP opens an optional TCP listener, for a worker running on a
// different host than the daemon.
func listenTCP(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func dialRPC(socketPath string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", socketPath, timeout)
}

func dialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}

func endpointExists(socketPath string) bool {
	_, err := os.Stat(socketPath)
	return err == nil
}
