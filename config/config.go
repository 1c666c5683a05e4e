package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the farmd service configuration.
type Config struct {
	// RPCAddress is the listen address for the JSON HTTP API.
	RPCAddress string `toml:"RPCAddress"`
	// MetricsAddress is the listen address for the Prometheus endpoint.
	MetricsAddress string `toml:"MetricsAddress"`
	// DataDir holds the LevelDB database.
	DataDir string `toml:"DataDir"`
	// Environment selects the log output format ("production" or
	// "development").
	Environment string `toml:"Environment"`
	// DefaultMinDeposit applies to seeds whose first farm did not set an
	// explicit minimum. Decimal string.
	DefaultMinDeposit string `toml:"DefaultMinDeposit"`
}

const defaultConfigContent = `RPCAddress = ":8645"
MetricsAddress = ":9095"
DataDir = "./farmd-data"
Environment = "production"
DefaultMinDeposit = "1000000000000000000"
`

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write default config %s: %w", path, err)
	}

	cfg := &Config{}
	if _, err := toml.Decode(defaultConfigContent, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8645"
	}
	if strings.TrimSpace(c.MetricsAddress) == "" {
		c.MetricsAddress = ":9095"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./farmd-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "production"
	}
	if strings.TrimSpace(c.DefaultMinDeposit) == "" {
		c.DefaultMinDeposit = "1000000000000000000"
	}
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	switch c.Environment {
	case "production", "development":
	default:
		return fmt.Errorf("config: unknown environment %q", c.Environment)
	}
	if _, err := c.MinDeposit(); err != nil {
		return err
	}
	return nil
}

// MinDeposit parses the configured default minimum deposit.
func (c *Config) MinDeposit() (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(c.DefaultMinDeposit), 10)
	if !ok || value.Sign() <= 0 {
		return nil, fmt.Errorf("config: invalid DefaultMinDeposit %q", c.DefaultMinDeposit)
	}
	return value, nil
}
