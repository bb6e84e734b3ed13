package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmewes/devtools/internal/timeline"
)

type Config struct {
	// FallbackRefreshRate is used when the refresh-rate source is absent
	// or unusable.
	FallbackRefreshRate float64 `yaml:"fallback_refresh_rate"`

	// ProfileUISelections controls whether selecting a UI event issues a
	// sampling request for the event's window.
	ProfileUISelections bool `yaml:"profile_ui_selections"`

	// StateBufferSize is the per-subscriber buffer for state changes.
	StateBufferSize int `yaml:"state_buffer_size"`
}

func (c *Config) fillDefault() {
	if c.FallbackRefreshRate <= 0 {
		c.FallbackRefreshRate = timeline.DefaultDisplayRefreshRate
	}
	if c.StateBufferSize <= 0 {
		c.StateBufferSize = 16
	}
}

func ParseConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: failed to open %s: %w", path, err)
	}
	defer file.Close()

	conf := &Config{}
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(conf); err != nil {
		return nil, fmt.Errorf("session: failed to parse %s: %w", path, err)
	}
	conf.fillDefault()
	return conf, nil
}
