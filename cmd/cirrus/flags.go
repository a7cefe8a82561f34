package main

import (
	"flag"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("CIRRUS_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: CIRRUS_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CIRRUS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: CIRRUS_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CIRRUS_LOG_FORMAT", "json"),
		"Log format: json, text (env: CIRRUS_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Parse()
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
