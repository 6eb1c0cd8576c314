// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"redcapprep/internal/domain"
	"redcapprep/internal/redcap"
	"redcapprep/internal/workspace"
)

// Config is the on-disk configuration. Every field is optional.
type Config struct {
	// Delimiter overrides the source delimiter; empty keeps each source
	// type's default.
	Delimiter       string                `yaml:"delimiter"`
	TemplateVariant string                `yaml:"template_variant"`
	HistoryDB       string                `yaml:"history_db"`
	PrefixRules     []domain.PrefixRule   `yaml:"prefix_rules"`
	FallbackFormID  string                `yaml:"fallback_form_id"`
	Paths           workspace.PathSpec    `yaml:"paths"`
	Exports         []domain.ExportTarget `yaml:"exports"`
	Schedule        string                `yaml:"schedule"`
	SecretStore     string                `yaml:"secret_store"` // "env" (default) or "keychain"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TemplateVariant: string(redcap.VariantPinned),
		HistoryDB:       DefaultHistoryDB(),
		PrefixRules:     domain.DefaultPrefixRules(),
		FallbackFormID:  domain.DefaultFormID,
	}
}

// DefaultHistoryDB is ~/.local/share/redcapprep/history.db.
func DefaultHistoryDB() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "redcapprep", "history.db")
}

// Load reads path over the defaults. An empty path returns the defaults.
// A prefix_rules list in the file replaces the built-in rules.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewNotFound("config file", path)
		}
		return nil, domain.NewIO("read", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &domain.ParseError{Format: "yaml", Message: err.Error(), Err: err}
	}
	return cfg.Validate()
}

// Validate checks rules, variant, delimiter and export drivers.
func (c *Config) Validate() error {
	for i, r := range c.PrefixRules {
		if r.Prefix == "" || r.Acronym == "" || r.FormID == "" {
			return domain.NewParse("config", "", fmt.Sprintf("prefix_rules[%d]: prefix, acronym and form_id are required", i))
		}
	}
	if c.FallbackFormID == "" {
		c.FallbackFormID = domain.DefaultFormID
	}
	if _, err := redcap.ParseVariant(c.TemplateVariant); err != nil {
		return err
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	switch c.SecretStore {
	case "", "env", "keychain":
	default:
		return domain.NewUnsupported("secret store", c.SecretStore)
	}
	for i, e := range c.Exports {
		if !e.Driver.Valid() {
			return domain.NewUnsupported("export driver", fmt.Sprintf("exports[%d]: %q", i, e.Driver))
		}
		if e.DSN == "" {
			return domain.NewParse("config", "", fmt.Sprintf("exports[%d]: dsn is required", i))
		}
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 when unset.
// "\t" and "tab" both select a tab.
func (c *Config) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if size != len(c.Delimiter) || r == '"' || r == '\n' || r == '\r' {
		return 0, domain.NewParse("config", "", fmt.Sprintf("invalid delimiter %q", c.Delimiter))
	}
	return r, nil
}

// Variant returns the parsed template variant.
func (c *Config) Variant() redcap.Variant {
	v, err := redcap.ParseVariant(c.TemplateVariant)
	if err != nil {
		return redcap.VariantPinned
	}
	return v
}
