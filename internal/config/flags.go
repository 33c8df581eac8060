package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagEQDir   = flag.String("eqdir", "", "Directory holding the zone archives")
	flagOut     = flag.String("out", "", "Output directory for map files")
	flagSwapXY  = flag.Bool("swapxy", false, "Swap X and Y of every vertex")
	flagWorkers = flag.Int("workers", 0, "Number of zones compiled in parallel")
	flagLog     = flag.String("log", "", "Log file path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagEQDir != "" {
		cfg.Data.EQDir = *flagEQDir
	}
	if *flagOut != "" {
		cfg.Output.Dir = *flagOut
	}
	if *flagSwapXY {
		cfg.Build.SwapXY = true
	}
	if *flagWorkers > 0 {
		cfg.Build.Workers = *flagWorkers
	}
	if *flagLog != "" {
		cfg.Logging.LogFile = *flagLog
	}
}
