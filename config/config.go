package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Records   RecordsConfig   `yaml:"records"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Log       LogConfig       `yaml:"log"`
}

type DeviceConfig struct {
	Address        string `yaml:"address"`
	PollInterval   string `yaml:"poll_interval"`
	RequestTimeout string `yaml:"request_timeout"`
}

type RecordsConfig struct {
	CSVPath string `yaml:"csv_path"`
}

type SimulatorConfig struct {
	Listen    string `yaml:"listen"`
	IPAddress string `yaml:"ip_address"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads a YAML config, expanding environment variables first. A
// missing file is not an error: the panel runs on defaults and asks for
// the device address at startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Device.PollInterval == "" {
		c.Device.PollInterval = "2s"
	}
	if c.Device.RequestTimeout == "" {
		c.Device.RequestTimeout = "5s"
	}
	if c.Records.CSVPath == "" {
		c.Records.CSVPath = "plants.csv"
	}
	if c.Simulator.Listen == "" {
		c.Simulator.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
}

// PollIntervalOr falls back to def when the configured value does
// not parse or is not positive.
func (c DeviceConfig) PollIntervalOr(def time.Duration) (time.Duration, error) {
	return durationOr(c.PollInterval, def)
}

func (c DeviceConfig) RequestTimeoutOr(def time.Duration) (time.Duration, error) {
	return durationOr(c.RequestTimeout, def)
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
