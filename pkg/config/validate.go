package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path must be set when history is enabled")
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Directory == "" {
		return errors.New("directory must be set")
	}
	if c.Pattern == "" {
		return errors.New("pattern must be set")
	}
	if strings.ContainsRune(c.Pattern, filepath.Separator) {
		return fmt.Errorf("pattern %q must not contain a path separator", c.Pattern)
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return fmt.Errorf("pattern %q: %w", c.Pattern, err)
	}
	return nil
}

func (c *Config) validateNaming() error {
	switch c.Naming {
	case NamingExtension, NamingSubstring:
	default:
		return fmt.Errorf("naming must be %q or %q, got %q", NamingExtension, NamingSubstring, c.Naming)
	}
	if c.Naming == NamingSubstring && c.SourceExt() == "" {
		return fmt.Errorf("naming %q needs a pattern with an extension, got %q", NamingSubstring, c.Pattern)
	}
	if !strings.HasPrefix(c.TargetExt, ".") || len(c.TargetExt) < 2 {
		return fmt.Errorf("target_ext must start with a dot, got %q", c.TargetExt)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

// SourceExt returns the literal extension the substring naming strategy
// replaces, taken from the pattern (".jpeg" for "*.jpeg").
func (c *Config) SourceExt() string {
	return filepath.Ext(c.Pattern)
}
