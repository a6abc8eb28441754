package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteYAML encodes c in the same layout the config file is read from.
// Secrets tagged yaml:"-" are left out.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config as YAML: %w", err)
	}
	return enc.Close()
}
