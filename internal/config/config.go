// Package config loads the service configuration from YAML and validates it
// against an embedded JSON schema before overlaying it on the defaults.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/biomegen/internal/world"
)

// ErrSchema wraps schema violations.
var ErrSchema = errors.New("config schema violation")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "biomegen://config.schema.json"

var schema = mustCompile()

func mustCompile() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("config schema: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// API holds HTTP harness settings.
type API struct {
	Port           int      `yaml:"port"`
	MapRatePerHour int      `yaml:"map_rate_per_hour"`
	TrustedProxies []string `yaml:"trusted_proxies"` // IPs or CIDRs allowed to set X-Forwarded-For
}

// Config is the full service configuration.
type Config struct {
	Generator world.Config `yaml:"generator"`
	Workers   int          `yaml:"workers"`
	DBPath    string       `yaml:"db_path"`
	API       API          `yaml:"api"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Generator: world.DefaultConfig(),
		DBPath:    "data/biomegen.db",
		API: API{
			Port:           8080,
			MapRatePerHour: 120,
		},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates a YAML document and overlays it on Default. Fields the
// document omits keep their default values.
func Parse(raw []byte) (Config, error) {
	if err := Validate(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Generator.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a YAML document against the schema.
func Validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees JSON value types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
