// package config loads the YAML description of an analysis: the
// dataset with its event sources, the cross-validation options, the
// booked methods and the output location. The structs are passive;
// commands assemble the run from them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level analysis description.
type Config struct {
	Dataset         Dataset         `yaml:"dataset"`
	CrossValidation CrossValidation `yaml:"cross_validation"`
	Methods         []Method        `yaml:"methods"`
	Output          Output          `yaml:"output"`
}

// Dataset describes the event sample.
type Dataset struct {
	Name       string   `yaml:"name"`
	Variables  []string `yaml:"variables"`
	Spectators []string `yaml:"spectators"`
	// Prepare is the option string handed to dataset.Prepare; empty
	// skips the train/test carving.
	Prepare    string `yaml:"prepare"`
	Signal     Source `yaml:"signal"`
	Background Source `yaml:"background"`
}

// Source names where one class's events come from: a parquet file or a
// toy generation block. Exactly one of Path and Gen must be set.
type Source struct {
	Path string `yaml:"path"`
	Gen  *Gen   `yaml:"gen"`
	// Weight is the per-tree weight, defaulting to 1.
	Weight float64 `yaml:"weight"`
}

// Gen describes a Gaussian toy sample.
type Gen struct {
	N      int     `yaml:"n"`
	Offset float64 `yaml:"offset"`
	// Scale defaults to 1.
	Scale float64 `yaml:"scale"`
	Seed  uint64  `yaml:"seed"`
}

// CrossValidation carries the run name and the engine option string.
type CrossValidation struct {
	Name    string `yaml:"name"`
	Options string `yaml:"options"`
}

// Method is one booking.
type Method struct {
	Kind    string `yaml:"kind"`
	Name    string `yaml:"name"`
	Options string `yaml:"options"`
}

// Output names where run artifacts go. Empty means no artifacts.
type Output struct {
	Dir string `yaml:"dir"`
}

// Load reads and validates a config file. Unknown YAML fields are an
// error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for _, src := range []*Source{&c.Dataset.Signal, &c.Dataset.Background} {
		if src.Weight == 0 {
			src.Weight = 1
		}
		if src.Gen != nil && src.Gen.Scale == 0 {
			src.Gen.Scale = 1
		}
	}
	for i := range c.Methods {
		if c.Methods[i].Name == "" {
			c.Methods[i].Name = c.Methods[i].Kind
		}
	}
}

// Validate checks the description is complete enough to run.
func (c *Config) Validate() error {
	if len(c.Dataset.Variables) == 0 {
		return errors.New("dataset declares no variables")
	}
	seen := make(map[string]bool)
	for _, v := range append(append([]string(nil), c.Dataset.Variables...), c.Dataset.Spectators...) {
		if v == "" {
			return errors.New("empty field name")
		}
		if seen[v] {
			return fmt.Errorf("field %q declared twice", v)
		}
		seen[v] = true
	}
	if err := c.Dataset.Signal.validate("signal"); err != nil {
		return err
	}
	if err := c.Dataset.Background.validate("background"); err != nil {
		return err
	}
	if len(c.Methods) == 0 {
		return errors.New("no methods configured")
	}
	names := make(map[string]bool, len(c.Methods))
	for _, m := range c.Methods {
		if m.Kind == "" {
			return errors.New("method without a kind")
		}
		if names[m.Name] {
			return fmt.Errorf("method name %q used twice", m.Name)
		}
		names[m.Name] = true
	}
	return nil
}

func (s *Source) validate(class string) error {
	switch {
	case s.Path == "" && s.Gen == nil:
		return fmt.Errorf("%s source needs a path or a gen block", class)
	case s.Path != "" && s.Gen != nil:
		return fmt.Errorf("%s source has both a path and a gen block", class)
	}
	if s.Weight <= 0 {
		return fmt.Errorf("%s source has non-positive weight %v", class, s.Weight)
	}
	if s.Gen != nil {
		if s.Gen.N <= 0 {
			return fmt.Errorf("%s gen block with %d events", class, s.Gen.N)
		}
		if s.Gen.Scale <= 0 {
			return fmt.Errorf("%s gen block with non-positive scale %v", class, s.Gen.Scale)
		}
	}
	return nil
}
