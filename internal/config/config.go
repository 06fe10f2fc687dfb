// Package config loads the flowtail service configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when no config file is found.
var ErrNoConfig = errors.New("no flowtail config file found")

// Config is the parsed flowtail configuration.
type Config struct {
	// Addr the API server listens on. Default: ":8084".
	Addr string `yaml:"addr" toml:"addr" json:"addr"`

	// MetadataURL is the base URL of the workflow metadata service (required).
	MetadataURL string `yaml:"metadata_url" toml:"metadata_url" json:"metadata_url"`

	// Namespace scopes task lookups. Empty means the global namespace.
	Namespace string `yaml:"namespace" toml:"namespace" json:"namespace"`

	// RequestTimeout for metadata service calls. Default: 30s.
	RequestTimeout Duration `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`

	// CacheDB is the SQLite path for the cache store. Empty selects an
	// in-memory LRU store; ":memory:" selects in-memory SQLite.
	CacheDB string `yaml:"cache_db" toml:"cache_db" json:"cache_db"`

	// CacheEntries bounds the in-memory store. Ignored when CacheDB is set.
	CacheEntries int `yaml:"cache_entries" toml:"cache_entries" json:"cache_entries"`

	// S3 configures the datastore holding legacy log blobs. Optional;
	// legacy log locations cannot be loaded without it.
	S3 S3 `yaml:"s3" toml:"s3" json:"s3"`
}

// S3 is the object store section of the config.
type S3 struct {
	Endpoint        string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" toml:"region" json:"region"`
	Bucket          string `yaml:"bucket" toml:"bucket" json:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key" json:"secret_access_key"`
}

// Enabled reports whether an object store is configured.
func (s S3) Enabled() bool {
	return s.Bucket != "" || s.Endpoint != ""
}

// Duration wraps time.Duration for custom parsing.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(dur)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Load finds and parses a flowtail config file from the given directory.
func Load(dir string) (*Config, string, error) {
	candidates := []struct {
		name   string
		parser func([]byte, *Config) error
	}{
		{"flowtail.yaml", parseYAML},
		{"flowtail.yml", parseYAML},
		{"flowtail.toml", parseTOML},
		{"flowtail.json", parseJSON},
	}

	for _, c := range candidates {
		path := filepath.Join(dir, c.name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue // File doesn't exist, try next
		}

		var cfg Config
		if err := c.parser(data, &cfg); err != nil {
			return nil, c.name, fmt.Errorf("parse %s: %w", c.name, err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, c.name, fmt.Errorf("validate %s: %w", c.name, err)
		}

		cfg.applyDefaults()

		return &cfg, c.name, nil
	}

	return nil, "", ErrNoConfig
}

func parseYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict: error on unknown fields
	return decoder.Decode(cfg)
}

func parseTOML(data []byte, cfg *Config) error {
	_, err := toml.Decode(string(data), cfg)
	return err
}

func parseJSON(data []byte, cfg *Config) error {
	return json.Unmarshal(data, cfg)
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.MetadataURL == "" {
		return errors.New("metadata_url is required")
	}
	if c.CacheEntries < 0 {
		return errors.New("cache_entries must be non-negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8084"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(30 * time.Second)
	}
}
