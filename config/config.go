package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/kilianp07/dischargectl/core/metrics"
	"github.com/kilianp07/dischargectl/infra/kel"
	"github.com/kilianp07/dischargectl/infra/mqtt"
	"github.com/kilianp07/dischargectl/simulator"
)

type Config struct {
	Device    kel.Config         `json:"device"`
	Run       RunConfig          `json:"run"`
	Metrics   coremetrics.Config `json:"metrics"`
	MQTT      mqtt.Config        `json:"mqtt"`
	Simulator simulator.Config   `json:"simulator"`
}

// Default returns a Config with every section at its defaults.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads a YAML or JSON config file with optional K_-prefixed environment
// overrides, e.g. K_RUN__MIN_VOLTAGE=3.0.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides. The provider unflattens on "__", so
	// the callback must keep that delimiter for the keys to nest.
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "k_")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Device.SetDefaults()
	c.Run.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Simulator.SetDefaults()
}

// Validate checks every section. The device port is validated separately when
// a run actually opens hardware.
func (c *Config) Validate() error {
	if err := c.Run.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.MQTT.Validate()
}
