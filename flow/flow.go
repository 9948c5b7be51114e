// Package flow holds the business-flow configuration table. Each flow maps a
// BPMN process identifier to the flow type tag stamped onto entities produced
// for that flow; batches for unconfigured flows are skipped entirely.
package flow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Flow is one configured business flow.
type Flow struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// Config is the flow lookup table.
type Config struct {
	Flows []Flow `yaml:"flows"`

	byID map[string]Flow
}

// Load reads the flow configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses flow configuration YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse flow config: %w", err)
	}
	cfg.index()
	return &cfg, nil
}

// NewConfig builds a Config from an in-memory flow list.
func NewConfig(flows ...Flow) *Config {
	cfg := &Config{Flows: flows}
	cfg.index()
	return cfg
}

func (c *Config) index() {
	c.byID = make(map[string]Flow, len(c.Flows))
	for _, f := range c.Flows {
		c.byID[f.ID] = f
	}
}

// Find returns the flow configured for the given identifier.
func (c *Config) Find(id string) (Flow, bool) {
	f, ok := c.byID[id]
	return f, ok
}
