package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Naming strategies for deriving a destination path from a source path.
const (
	NamingExtension = "extension"
	NamingSubstring = "substring"
)

// Color modes for console output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// History controls the optional DuckDB conversion ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config is the full set of options for one batch run.
type Config struct {
	Directory string  `toml:"directory"`
	Pattern   string  `toml:"pattern"`
	Naming    string  `toml:"naming"`
	TargetExt string  `toml:"target_ext"`
	LogLevel  string  `toml:"log_level"`
	LogFormat string  `toml:"log_format"`
	LogFile   string  `toml:"log_file"`
	Color     string  `toml:"color"`
	History   History `toml:"history"`
}

// Default returns the built-in configuration: scan "data" for *.jpeg and
// write .png siblings.
func Default() Config {
	return Config{
		Directory: "data",
		Pattern:   "*.jpeg",
		Naming:    NamingExtension,
		TargetExt: ".png",
		LogLevel:  "info",
		LogFormat: "console",
		Color:     ColorAuto,
		History: History{
			Enabled: false,
			Path:    "jpegpng.db",
		},
	}
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jpegpng/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error; defaults are returned instead.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jpegpng.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Normalize trims string fields, lowercases enumerations and expands "~" in
// file paths.
func (c *Config) Normalize() error {
	c.Directory = strings.TrimSpace(c.Directory)
	c.Pattern = strings.TrimSpace(c.Pattern)
	c.Naming = strings.ToLower(strings.TrimSpace(c.Naming))
	c.TargetExt = strings.TrimSpace(c.TargetExt)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))

	var err error
	if c.Directory, err = expandPath(c.Directory); err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	if c.LogFile, err = expandPath(strings.TrimSpace(c.LogFile)); err != nil {
		return fmt.Errorf("log_file: %w", err)
	}
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(pathValue, "~")), nil
	}
	return pathValue, nil
}
