// Package main is the entry point for the azone map compiler.
//
// Usage:
//
//	azone [flags] <zone> [zone...]
//
// Each zone is compiled from the archives in the data directory and written
// to <out>/<zone>.map.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/batch"
	"github.com/Faultbox/azone/internal/config"
	"github.com/Faultbox/azone/internal/logger"
)

func main() {
	flag.Usage = usage
	config.ParseFlags()

	zones := config.Args()
	if len(zones) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== azone map compiler ===",
		zap.String("eq_dir", cfg.Data.EQDir),
		zap.String("out", cfg.Output.Dir),
		zap.Int("zones", len(zones)))
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := batch.Run(ctx, zones, batch.Options{
		DataDir:   cfg.Data.EQDir,
		OutputDir: cfg.Output.Dir,
		SwapXY:    cfg.Build.SwapXY,
		Workers:   cfg.Build.Workers,
		Logger:    logger.Named("build"),
	})

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		fmt.Printf("%-16s %s  collide %d/%d  non-collide %d/%d  tiles %d  (%s)\n",
			r.Zone, r.Output,
			r.Stats.CollideVertices, r.Stats.CollideIndices/3,
			r.Stats.NonCollideVertices, r.Stats.NonCollideIndices/3,
			r.Stats.Tiles, r.Duration.Round(time.Millisecond))
	}

	failed := batch.Failed(results)
	for _, r := range failed {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", r.Zone, r.Err)
	}
	if len(failed) > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `azone - EverQuest zone map compiler

Usage:
  azone [flags] <zone> [zone...]

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  azone -eqdir ~/everquest qeynos freporte
  azone -eqdir ~/everquest -out maps -workers 8 -swapxy tox
`)
}
