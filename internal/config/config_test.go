package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Data.EQDir != "." {
		t.Errorf("expected eq dir '.', got %s", cfg.Data.EQDir)
	}
	if cfg.Output.Dir != "maps" {
		t.Errorf("expected output dir 'maps', got %s", cfg.Output.Dir)
	}
	if cfg.Build.SwapXY {
		t.Error("expected swap_xy to be false by default")
	}
	if cfg.Build.Workers != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), cfg.Build.Workers)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty eq dir", func(c *Config) { c.Data.EQDir = "" }, true},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }, true},
		{"zero workers", func(c *Config) { c.Build.Workers = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
data:
  eq_dir: "/games/everquest"

output:
  dir: "out/maps"

build:
  swap_xy: true
  workers: 3

logging:
  level: "debug"
  log_file: "azone.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Data.EQDir != "/games/everquest" {
		t.Errorf("expected absolute eq dir kept, got %s", cfg.Data.EQDir)
	}
	if want := filepath.Join(tmpDir, "out", "maps"); cfg.Output.Dir != want {
		t.Errorf("expected output dir %s, got %s", want, cfg.Output.Dir)
	}
	if !cfg.Build.SwapXY {
		t.Error("expected swap_xy to be true")
	}
	if cfg.Build.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Build.Workers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if want := filepath.Join(tmpDir, "azone.log"); cfg.Logging.LogFile != want {
		t.Errorf("expected log file %s, got %s", want, cfg.Logging.LogFile)
	}
}

func TestLoadFromFileKeepsUnsetDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, []byte("build:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Output.Dir != "maps" || cfg.Data.EQDir != "." {
		t.Errorf("defaults should not be resolved against the file: %+v", cfg)
	}
	if cfg.Build.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Build.Workers)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad syntax", "build:\n  workers: not a number\n  invalid syntax here\n"},
		{"unknown key", "graphics:\n  width: 1280\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Errorf("empty file should load cleanly: %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/azone.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("build:\n  workers: 1\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find azone.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "eqdir flag",
			setup: func() { *flagEQDir = "/eq" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Data.EQDir != "/eq" {
					t.Errorf("expected eq dir /eq, got %s", cfg.Data.EQDir)
				}
			},
			teardown: func() { *flagEQDir = "" },
		},
		{
			name:  "out flag",
			setup: func() { *flagOut = "build" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Dir != "build" {
					t.Errorf("expected output dir build, got %s", cfg.Output.Dir)
				}
			},
			teardown: func() { *flagOut = "" },
		},
		{
			name:  "swapxy flag",
			setup: func() { *flagSwapXY = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Build.SwapXY {
					t.Error("expected swap_xy to be true with swapxy flag")
				}
			},
			teardown: func() { *flagSwapXY = false },
		},
		{
			name:  "workers and log flags",
			setup: func() { *flagWorkers = 16; *flagLog = "run.log" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Build.Workers != 16 {
					t.Errorf("expected 16 workers, got %d", cfg.Build.Workers)
				}
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() { *flagWorkers = 0; *flagLog = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
output:
  dir: "/srv/maps"
build:
  workers: 4
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWorkers = 8
	defer func() {
		*flagConfig = ""
		*flagWorkers = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Workers from flag, output dir from file.
	if cfg.Build.Workers != 8 {
		t.Errorf("expected 8 workers from flag, got %d", cfg.Build.Workers)
	}
	if cfg.Output.Dir != "/srv/maps" {
		t.Errorf("expected output dir /srv/maps from file, got %s", cfg.Output.Dir)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Data.EQDir = "/eq"
	cfg.Build.SwapXY = true
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if loaded.Data.EQDir != "/eq" || !loaded.Build.SwapXY {
		t.Errorf("saved config did not round trip: %+v", loaded)
	}
}
