// Package config handles compiler configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"
)

// Config holds all compiler settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds game data locations.
type DataConfig struct {
	EQDir string `yaml:"eq_dir"` // Directory holding the .s3d and .eqg archives
}

// OutputConfig holds where compiled maps are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// BuildConfig holds compiler settings.
type BuildConfig struct {
	SwapXY  bool `yaml:"swap_xy"` // Exchange X and Y of every emitted vertex
	Workers int  `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			EQDir: ".",
		},
		Output: OutputConfig{
			Dir: "maps",
		},
		Build: BuildConfig{
			SwapXY:  false,
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the compiler cannot run with.
func (c *Config) Validate() error {
	if c.Data.EQDir == "" {
		return errors.New("data.eq_dir is empty")
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir is empty")
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("build.workers must be at least 1, got %d", c.Build.Workers)
	}
	return nil
}
