package utils

import (
	"fmt"
	"net"
	"time"
)

// IsPortListening reports whether something accepts TCP connections on localhost:port.
func IsPortListening(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
