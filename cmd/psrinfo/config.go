package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the psrinfo configuration file (~/.config/psrio/config.yaml).
// Booleans are pointers so we can distinguish "not set" from false.
type Config struct {
	Weights          string `yaml:"weights"`
	NoScales         *bool  `yaml:"no_scales"`
	SplitHistoryRows *bool  `yaml:"split_history_rows"`
	EphemerisCommand string `yaml:"ephemeris_command"`
	Compress         *bool  `yaml:"compress"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "psrio", "config.yaml")
}

// applyReadConfig applies config file defaults to the read flags that were
// not set on the command line.
func applyReadConfig(c *cli.Command, cfg Config) {
	if cfg.Weights != "" && !c.IsSet("weights") {
		weights = cfg.Weights
	}
	if cfg.NoScales != nil && !c.IsSet("no-scales") {
		noScales = *cfg.NoScales
	}
	if cfg.SplitHistoryRows != nil && !c.IsSet("split-history") {
		splitHistory = *cfg.SplitHistoryRows
	}
	if cfg.EphemerisCommand != "" && !c.IsSet("ephemeris-command") {
		ephemerisTmpl = cfg.EphemerisCommand
	}
}

func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	cfg, err := loadConfigFrom(path)
	if err != nil {
		return Config{}
	}
	return cfg
}

func loadConfigFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
