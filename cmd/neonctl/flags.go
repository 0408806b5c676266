package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration shared by all commands.
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Address     string
	Timeout     time.Duration
	ShowVersion bool
	ShowHelp    bool
}

// parseFlags parses global flags; the remaining arguments are the
// command and its operands.
func parseFlags() (*CLIConfig, []string) {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("NEONCTL_CONFIG", ""),
		"Path to YAML configuration file (env: NEONCTL_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("NEONCTL_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: NEONCTL_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("NEONCTL_LOG_FORMAT", "text"),
		"Log format: json, text (env: NEONCTL_LOG_FORMAT)")

	flag.StringVar(&cfg.Address, "address",
		getEnv("NEONCTL_ADDRESS", ""),
		"Device address host[:port]; empty means discover (env: NEONCTL_ADDRESS)")

	flag.DurationVar(&cfg.Timeout, "timeout",
		getEnvDuration("NEONCTL_TIMEOUT", 10*time.Second),
		"Overall command timeout (env: NEONCTL_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp
	flag.Parse()

	return cfg, flag.Args()
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", cfg.Timeout)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - eye tracker control

Usage: %s [options] <command> [args]

Commands:
  discover           List devices answering mDNS on the local network
  status             Print the device status
  record <id>        Start a recording (empty id generates one)
  stop               Stop the active recording
  gaze <n>           Stream n gaze samples to stdout

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Find devices on the network
  %s discover

  # Stream 100 samples from a known device
  %s --address=192.168.1.50 gaze 100

  # Record for the duration of an experiment script
  %s --address=192.168.1.50 record session-04

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
