// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Scan policies for tags already present in the tray.
const (
	ScanPolicyIncrement = "increment"
	ScanPolicyReject    = "reject"
)

// Reader transport modes.
const (
	ReaderModeSerial = "serial"
	ReaderModeTCP    = "tcp"
)

// Config holds configuration knobs for the HTTP server, producers, and
// pricing policies.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogMode         string        `env:"LOG_MODE" envDefault:"dev"`

	CatalogPath   string `env:"CATALOG_PATH" envDefault:"catalog.json"`
	InventoryPath string `env:"INVENTORY_PATH" envDefault:"inventory.json"`

	ScanPolicy          string        `env:"SCAN_POLICY" envDefault:"increment"`
	ResetClearsDiscount bool          `env:"RESET_CLEARS_DISCOUNT" envDefault:"false"`
	IndicatorDwell      time.Duration `env:"INDICATOR_DWELL" envDefault:"3s"`
	ActuatorTimeout     time.Duration `env:"ACTUATOR_TIMEOUT" envDefault:"1s"`

	SimulatorEnabled  bool          `env:"SIMULATOR_ENABLED" envDefault:"false"`
	SimulatorInterval time.Duration `env:"SIMULATOR_INTERVAL" envDefault:"1s"`

	ReaderEnabled bool          `env:"READER_ENABLED" envDefault:"false"`
	ReaderMode    string        `env:"READER_MODE" envDefault:"serial"`
	ReaderPort    string        `env:"READER_PORT" envDefault:"/dev/ttyUSB0"`
	ReaderBaud    int           `env:"READER_BAUD" envDefault:"9600"`
	ReaderAddr    string        `env:"READER_ADDR" envDefault:"127.0.0.1:7001"`
	ReaderTimeout time.Duration `env:"READER_TIMEOUT" envDefault:"1s"`
}

// Load collects configuration from environment with defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ScanPolicy {
	case ScanPolicyIncrement, ScanPolicyReject:
	default:
		return fmt.Errorf("invalid SCAN_POLICY %q", c.ScanPolicy)
	}
	switch c.ReaderMode {
	case ReaderModeSerial, ReaderModeTCP:
	default:
		return fmt.Errorf("invalid READER_MODE %q", c.ReaderMode)
	}
	if c.IndicatorDwell <= 0 {
		return fmt.Errorf("INDICATOR_DWELL must be positive, got %s", c.IndicatorDwell)
	}
	if c.SimulatorInterval <= 0 {
		return fmt.Errorf("SIMULATOR_INTERVAL must be positive, got %s", c.SimulatorInterval)
	}
	return nil
}
