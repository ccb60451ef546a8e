// Package config provides configuration loading for the ldquad command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/twinfer/ldquad/jsonld"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the complete ldquad configuration
type Config struct {
	// Base is the document base IRI used to resolve relative references.
	Base string `yaml:"base"`
	// Context is the file or IRI of the context used for compaction.
	Context string `yaml:"context"`
	// NativeTypes compacts xsd:integer, xsd:double and xsd:boolean to JSON values.
	NativeTypes bool `yaml:"native_types"`
	// RDFType keeps rdf:type as a property instead of @type.
	RDFType bool `yaml:"rdf_type"`
	// AutoCompact derives a context from the prefixes of the source.
	AutoCompact bool `yaml:"auto_compact"`
	// Embed is the blank node embedding policy: "never" or "single".
	Embed string `yaml:"embed"`
	// Indent is the indentation of written JSON-LD; empty writes one line.
	Indent string `yaml:"indent"`

	Store    StoreConfig    `yaml:"store"`
	Contexts ContextsConfig `yaml:"contexts"`
}

// StoreConfig selects the quad store used by load and dump.
type StoreConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver string `yaml:"driver"`
	// DSN is the SQLite path or the PostgreSQL connection string.
	DSN string `yaml:"dsn"`
}

// ContextsConfig configures where remote contexts are read from.
type ContextsConfig struct {
	// Root is the directory relative context references are read below.
	Root string `yaml:"root"`
	// Map maps context IRIs to local files.
	Map map[string]string `yaml:"map,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Embed:  "never",
		Indent: "  ",
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "ldquad.db",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be one of %s, %s or %s, got %q",
			DriverSQLite, DriverPostgres, DriverMemory, c.Store.Driver)
	}
	if _, err := jsonld.ParseEmbedPolicy(c.Embed); err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	return nil
}

// EmbedPolicy returns the parsed embed setting. Call Validate first.
func (c *Config) EmbedPolicy() jsonld.EmbedPolicy {
	p, _ := jsonld.ParseEmbedPolicy(c.Embed)
	return p
}

// Resolver returns a caching file resolver for the contexts section.
func (c *Config) Resolver() jsonld.Resolver {
	return jsonld.NewCachingResolver(jsonld.FileResolver{
		Root:  c.Contexts.Root,
		Files: c.Contexts.Map,
	})
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.apply(path); err != nil {
		return nil, err
	}
	return config, nil
}

// apply overlays the keys present in the YAML file at path. Unknown keys
// are an error.
func (c *Config) apply(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
