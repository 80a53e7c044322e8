package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/woozymasta/rasterblock"
)

var errConfig = errors.New("invalid configuration")

// config holds the settings shared by every command. A YAML file supplies
// defaults; flags set on the command line win.
type config struct {
	Format        string   `yaml:"format"`
	MaxTile       int      `yaml:"max_tile"`
	Shape         string   `yaml:"shape"`
	Type          string   `yaml:"type"`
	CreateOptions []string `yaml:"create_options"`
	History       string   `yaml:"history"`
	LogLevel      string   `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Format:   rasterblock.DefaultOutputFormat,
		MaxTile:  rasterblock.DefaultMaxTileExtent,
		Shape:    "square",
		LogLevel: "info",
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", errConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", errConfig, path, err)
	}

	return cfg, nil
}

// settings is a validated config.
type settings struct {
	format    string
	maxTile   int
	shape     rasterblock.BlockShape
	outType   rasterblock.DataType
	createOpt []string
	history   string
	logLevel  slog.Level
}

func (c config) settings() (settings, error) {
	s := settings{
		format:    c.Format,
		maxTile:   c.MaxTile,
		createOpt: c.CreateOptions,
		history:   c.History,
	}
	if c.MaxTile < 0 {
		return s, fmt.Errorf("%w: max_tile %d", errConfig, c.MaxTile)
	}

	var err error
	if s.shape, err = rasterblock.ParseBlockShape(c.Shape); err != nil {
		return s, err
	}
	if c.Type != "" {
		if s.outType, err = rasterblock.ParseDataType(c.Type); err != nil {
			return s, err
		}
	}
	if err := s.logLevel.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return s, fmt.Errorf("%w: log_level: %v", errConfig, err)
	}
	if _, err := rasterblock.ParseCreateOptions(c.CreateOptions); err != nil {
		return s, err
	}

	return s, nil
}
