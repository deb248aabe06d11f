// Package config loads and validates the ballast YAML configuration.
//
// The file is validated against an embedded CUE schema before it is
// decoded, so constraint violations surface with positions instead of as
// zero values deep in the runtime.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Duration is a time.Duration that decodes from YAML strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full ballast runtime configuration.
type Config struct {
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`

	Pool struct {
		Size int `yaml:"size"`
	} `yaml:"pool"`

	Replication struct {
		Replicas int      `yaml:"replicas"`
		Interval Duration `yaml:"interval"`
	} `yaml:"replication"`

	Backup struct {
		Dir           string   `yaml:"dir"`
		Interval      Duration `yaml:"interval"`
		RetentionDays int      `yaml:"retention_days"`
	} `yaml:"backup"`

	Writes struct {
		MaxPerSecond int      `yaml:"max_per_second"`
		Backoff      Duration `yaml:"backoff"`
	} `yaml:"writes"`
}

// Retention returns the backup retention period.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// Default returns the stock configuration: three replicas synced every
// five seconds, a backup every minute with thirty-day retention, 95
// writes per second through a pool of twenty connections.
func Default() *Config {
	var c Config
	c.Name = "ballast"
	c.DataDir = "./data"
	c.Pool.Size = 20
	c.Replication.Replicas = 3
	c.Replication.Interval = Duration(5 * time.Second)
	c.Backup.Dir = "./backups"
	c.Backup.Interval = Duration(60 * time.Second)
	c.Backup.RetentionDays = 30
	c.Writes.MaxPerSecond = 95
	c.Writes.Backoff = Duration(10 * time.Millisecond)
	return &c
}

// Load reads, validates and decodes the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// validate unifies the YAML document with the embedded #Config schema.
func validate(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("config schema missing #Config: %w", err)
	}

	unified := def.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
