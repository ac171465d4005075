package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a starter instrument config. It refuses to
// clobber an existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(instrumentTemplate), 0o600)
}

const instrumentTemplate = `name = "star"
channels = 8
timeout_secs = 30
monitor_addr = ":9200"
cors_origins = ["http://localhost:3000"]

[transport]
serial_port = "/dev/ttyUSB0"
baud = 9600
# Or drive a networked instrument (or the simulator) instead:
# tcp_addr = "127.0.0.1:2000"

[deck]
rails = 30

[[deck.carriers]]
preset = "tip_carrier_4"
name = "tips_carrier"
rail = 3

[[deck.carriers]]
preset = "plate_carrier_5"
name = "plates_carrier"
rail = 9

[[deck.labware]]
preset = "tip_rack_300ul"
name = "tips300"
carrier = "tips_carrier"
slot = 1

[[deck.labware]]
preset = "plate_96"
name = "plate1"
carrier = "plates_carrier"
slot = 1

[[deck.labware]]
preset = "trash"
name = "waste"
rail = 28
`
