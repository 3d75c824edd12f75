package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Engine        string  `koanf:"engine"`         // "speaker" or "mock"
	SampleRate    int     `koanf:"sample_rate"`    // speaker output rate in Hz
	BufferMs      int     `koanf:"buffer_ms"`      // speaker buffer length
	MaxChannels   int     `koanf:"max_channels"`   // simultaneous instances per source
	DefaultVolume float64 `koanf:"default_volume"` // initial volume for played instances
	Interrupt     string  `koanf:"interrupt"`      // default interrupt policy name
	LogLevel      string  `koanf:"log_level"`      // "debug", "info", "warn", "error"
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.applyBounds()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Engine:        "speaker",
		SampleRate:    44100,
		BufferMs:      100,
		MaxChannels:   16,
		DefaultVolume: 1,
		Interrupt:     "none",
		LogLevel:      "warn",
	}
}

// applyBounds pulls out-of-range values back to usable ones.
func (c *Config) applyBounds() {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.BufferMs <= 0 {
		c.BufferMs = 100
	}
	if c.MaxChannels <= 0 {
		c.MaxChannels = 16
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		c.DefaultVolume = 1
	}
	if c.Engine == "" {
		c.Engine = "speaker"
	}
}

func getConfigPaths() []string {
	paths := []string{
		filepath.Join(xdg.ConfigHome, "chime", "config.toml"),
	}

	// ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}
