package transport

import (
	"fmt"

	"go.bug.st/serial"

	"github.com/openlh/star/internal/protocol/frame"
)

// SerialConfig selects the serial link to a physical instrument.
type SerialConfig struct {
	Port string
	Baud int
}

// OpenSerial opens the instrument's serial port. The STAR-class USB CDC
// bridge ignores the baud rate but the mode still has to be set.
func OpenSerial(cfg SerialConfig) (*Stream, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %s: %w", cfg.Port, err)
	}
	return NewStream(port, frame.DefaultLimits()), nil
}
