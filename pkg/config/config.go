// Package config defines the runtime configuration: the two roots from
// the command line plus the operator preferences that can also live in
// an optional JSON config file. Flag values override file values; the
// file only provides defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/treeline-tools/ddiff/pkg/dlog"
)

// ConfigFileName is the name of the optional configuration file, looked
// up under the user config directory.
const ConfigFileName = "ddiff.config.json"

type Config struct {
	// Left and Right come from the positional arguments, never from the
	// file; a config file naming roots would silently compare the wrong
	// trees from a different working directory.
	Left  string `json:"-"`
	Right string `json:"-"`

	// Editor is the shell fragment used to diff two files.
	Editor string `json:"editor"`
	// Workers is the number of comparison threads.
	Workers int `json:"workers"`
	// Excludes are regular expressions matched against entry names.
	Excludes []string `json:"excludes"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel"`
}

// NewDefault returns the built-in defaults.
func NewDefault() Config {
	return Config{
		Editor:   "$EDITOR -d",
		Workers:  4,
		LogLevel: "info",
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(base, "ddiff", ConfigFileName), nil
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file is the normal case and yields the defaults;
// file values overwrite defaults field by field, so a partial file is
// fine.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", path, err)
	}
	defer file.Close()

	dlog.Info("loading configuration", "path", path)
	config := NewDefault()
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the configuration for logical errors and canonicalizes
// the root paths. Both roots must name existing directories.
func (c *Config) Validate() error {
	if c.Left == "" || c.Right == "" {
		return fmt.Errorf("both LEFT and RIGHT directories are required")
	}

	var err error
	if c.Left, err = checkRoot("left", c.Left); err != nil {
		return err
	}
	if c.Right, err = checkRoot("right", c.Right); err != nil {
		return err
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := c.ExcludePatterns(); err != nil {
		return err
	}
	if !knownLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unknown log level '%s'", c.LogLevel)
	}
	return nil
}

// knownLogLevels guards against typos before the name reaches the
// logger, which silently ignores unknown levels.
var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ExcludePatterns compiles the exclusion regexes.
func (c *Config) ExcludePatterns() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(c.Excludes))
	for _, expr := range c.Excludes {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

func checkRoot(side, path string) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", fmt.Errorf("could not expand %s path: %w", side, err)
	}
	expanded = filepath.Clean(expanded)

	info, err := os.Stat(expanded)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s path '%s' does not exist", side, expanded)
	}
	if err != nil {
		return "", fmt.Errorf("could not stat %s path '%s': %w", side, expanded, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s path '%s' is not a directory", side, expanded)
	}
	return expanded, nil
}

// expandPath resolves a leading tilde against the user's home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
