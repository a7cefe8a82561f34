// Package main is the entry point for the cirrus bridge: an MCP server
// reachable over SSE-shaped polling, hosting weather tools backed by the
// US National Weather Service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/cirrustream/cirrus/config"
	"github.com/cirrustream/cirrus/service"
)

const (
	Version = "0.1.0"
	appName = "cirrus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader().Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	// The flag wins over both the file and defaults.
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	slog.Info("Starting cirrus MCP bridge",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"session_backend", cfg.Session.Backend)

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("service setup: %w", err)
	}

	return svc.Run(context.Background())
}
