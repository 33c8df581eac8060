package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name searched for in the working directory and
// in ConfigDir.
const FileName = "azone.yaml"

// Load loads configuration with priority: defaults < file < flags, and
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		filepath.Join(".", FileName),
		filepath.Join(ConfigDir(), FileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "azone")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "azone")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "azone")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "azone")
	}
}

// loadFromFile merges a YAML file into cfg. Unknown keys are rejected, and
// relative directories are resolved against the file's own directory.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fromFile := *cfg
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fromFile); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	base := filepath.Dir(path)
	if fromFile.Data.EQDir != cfg.Data.EQDir {
		fromFile.Data.EQDir = resolve(base, fromFile.Data.EQDir)
	}
	if fromFile.Output.Dir != cfg.Output.Dir {
		fromFile.Output.Dir = resolve(base, fromFile.Output.Dir)
	}
	if fromFile.Logging.LogFile != cfg.Logging.LogFile {
		fromFile.Logging.LogFile = resolve(base, fromFile.Logging.LogFile)
	}

	*cfg = fromFile
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
