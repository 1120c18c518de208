// Package sidecar stores the out-of-band parameters an extractor needs next
// to the stego image as YAML.
package sidecar

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xob0t/edgestego/pkg/payload"
	"github.com/xob0t/edgestego/pkg/stego"
)

// Meta is everything that has to travel alongside a stego image.
type Meta struct {
	Carrier string        `yaml:"carrier,omitempty" json:"carrier,omitempty"`
	Config  stego.Config  `yaml:"config" json:"config"`
	Payload payload.Shape `yaml:"payload" json:"payload"`
}

// PathFor returns the sidecar path for an image: "<image>.yaml".
func PathFor(imagePath string) string {
	return imagePath + ".yaml"
}

// Save writes m to path.
func Save(path string, m Meta) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the sidecar at path.
func Load(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("read %s: %w", path, err)
	}
	m := Meta{Config: stego.DefaultConfig()}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Meta{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks the config and that the shape describes a known layout.
func (m Meta) Validate() error {
	if err := m.Config.Validate(); err != nil {
		return err
	}
	if _, err := m.Payload.ByteCount(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a bare stego.Config from a YAML file. Keys left out keep
// their default values. A sidecar file is accepted as well: its config
// section is used.
func LoadConfig(path string) (stego.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stego.Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var doc struct {
		Config *yaml.Node `yaml:"config"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return stego.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := stego.DefaultConfig()
	if doc.Config != nil {
		err = doc.Config.Decode(&cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return stego.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return stego.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
