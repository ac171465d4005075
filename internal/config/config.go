package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/openlh/star/internal/deck"
)

// InstrumentConfig describes one instrument connection plus the deck
// layout loaded onto it.
type InstrumentConfig struct {
	Name        string   `toml:"name"`
	Channels    int      `toml:"channels"`
	TimeoutSecs int      `toml:"timeout_secs"`
	MonitorAddr string   `toml:"monitor_addr"`
	CorsOrigins []string `toml:"cors_origins"`

	Transport TransportConfig `toml:"transport"`
	Deck      DeckConfig      `toml:"deck"`
}

// TransportConfig selects the wire. Exactly one of SerialPort and
// TCPAddr must be set.
type TransportConfig struct {
	SerialPort string `toml:"serial_port"`
	Baud       int    `toml:"baud"`
	TCPAddr    string `toml:"tcp_addr"`
}

type DeckConfig struct {
	Rails    int             `toml:"rails"`
	Carriers []CarrierConfig `toml:"carriers"`
	Labware  []LabwareConfig `toml:"labware"`
}

type CarrierConfig struct {
	Preset string `toml:"preset"`
	Name   string `toml:"name"`
	Rail   int    `toml:"rail"`
}

// LabwareConfig places labware either into a carrier slot or, for
// rail-mounted pieces like the trash, directly on a rail. Slot is
// 1-based in the layout file; slot 1 is the front-most physical slot.
type LabwareConfig struct {
	Preset  string `toml:"preset"`
	Name    string `toml:"name"`
	Carrier string `toml:"carrier"`
	Slot    int    `toml:"slot"`
	Rail    int    `toml:"rail"`
}

func LoadInstrumentConfig(path string) (InstrumentConfig, error) {
	var cfg InstrumentConfig
	if err := loadToml(path, &cfg); err != nil {
		return InstrumentConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "star"
	}
	if cfg.Channels == 0 {
		cfg.Channels = 8
	}
	if cfg.TimeoutSecs == 0 {
		cfg.TimeoutSecs = 30
	}
	if cfg.Transport.Baud == 0 {
		cfg.Transport.Baud = 9600
	}
	if cfg.Deck.Rails == 0 {
		cfg.Deck.Rails = 30
	}
	if err := ValidateInstrumentConfig(cfg); err != nil {
		return InstrumentConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateInstrumentConfig(cfg InstrumentConfig) error {
	if cfg.Channels < 1 {
		return fmt.Errorf("channels must be positive, got %d", cfg.Channels)
	}
	serial := strings.TrimSpace(cfg.Transport.SerialPort) != ""
	tcp := strings.TrimSpace(cfg.Transport.TCPAddr) != ""
	if serial == tcp {
		return fmt.Errorf("transport needs exactly one of serial_port and tcp_addr")
	}
	if cfg.Transport.Baud < 0 {
		return fmt.Errorf("baud must be positive, got %d", cfg.Transport.Baud)
	}
	for i, carrier := range cfg.Deck.Carriers {
		if strings.TrimSpace(carrier.Name) == "" {
			return fmt.Errorf("carrier[%d] invalid: name is required", i)
		}
		if carrier.Rail < 1 || carrier.Rail > cfg.Deck.Rails {
			return fmt.Errorf("carrier[%d] %q invalid: rail %d outside 1..%d",
				i, carrier.Name, carrier.Rail, cfg.Deck.Rails)
		}
	}
	for i, lw := range cfg.Deck.Labware {
		if err := validateLabwareEntry(lw, cfg.Deck.Rails); err != nil {
			return fmt.Errorf("labware[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func validateLabwareEntry(lw LabwareConfig, rails int) error {
	if strings.TrimSpace(lw.Name) == "" {
		return fmt.Errorf("name is required")
	}
	onCarrier := strings.TrimSpace(lw.Carrier) != ""
	if onCarrier == (lw.Rail != 0) {
		return fmt.Errorf("%q needs exactly one of carrier and rail", lw.Name)
	}
	if onCarrier && lw.Slot < 1 {
		return fmt.Errorf("%q needs a slot on carrier %q", lw.Name, lw.Carrier)
	}
	if !onCarrier && (lw.Rail < 1 || lw.Rail > rails) {
		return fmt.Errorf("%q rail %d outside 1..%d", lw.Name, lw.Rail, rails)
	}
	return nil
}

// Timeout converts the configured command timeout.
func (c InstrumentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// BuildDeck materializes the configured layout. Carriers mount on
// their rails first so labware entries can refer to them by name.
func BuildDeck(cfg InstrumentConfig) (*deck.Deck, error) {
	d := deck.New(cfg.Deck.Rails)
	for _, carrier := range cfg.Deck.Carriers {
		r, err := deck.NewStandardResource(carrier.Preset, carrier.Name)
		if err != nil {
			return nil, fmt.Errorf("carrier %q: %w", carrier.Name, err)
		}
		if err := d.Assign(r, carrier.Rail); err != nil {
			return nil, fmt.Errorf("carrier %q: %w", carrier.Name, err)
		}
	}
	for _, lw := range cfg.Deck.Labware {
		r, err := deck.NewStandardResource(lw.Preset, lw.Name)
		if err != nil {
			return nil, fmt.Errorf("labware %q: %w", lw.Name, err)
		}
		if lw.Carrier == "" {
			if err := d.Assign(r, lw.Rail); err != nil {
				return nil, fmt.Errorf("labware %q: %w", lw.Name, err)
			}
			continue
		}
		// Layout slots are 1-based, the deck indexes slots from 0.
		if err := d.AssignToSlot(lw.Carrier, r, lw.Slot-1); err != nil {
			return nil, fmt.Errorf("labware %q: %w", lw.Name, err)
		}
	}
	return d, nil
}
