package transport

import (
	"fmt"
	"net"

	"github.com/openlh/star/internal/protocol/frame"
)

// DialTCP connects to a simulated instrument listening on addr.
func DialTCP(addr string) (*Stream, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return NewStream(conn, frame.DefaultLimits()), nil
}
