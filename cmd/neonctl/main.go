// Package main implements neonctl, a command-line tool for discovering
// and controlling Pupil Labs eye trackers: list devices on the
// network, inspect status, start and stop recordings, and stream gaze
// samples to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/connection"
	"github.com/michaelhil/open-neon-go/discovery"
	"github.com/michaelhil/open-neon-go/gaze"
	"github.com/michaelhil/open-neon-go/pkg/retry"
	"github.com/michaelhil/open-neon-go/simple"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "neonctl"

	// connectAttempts bounds the handshake retry for one-shot commands.
	connectAttempts = 3
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
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, args := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp || len(args) == 0 {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, cliCfg.Timeout)
	defer timeoutCancel()

	switch cmd := args[0]; cmd {
	case "discover":
		return runDiscover(ctx, cfg)
	case "status":
		return runStatus(ctx, cliCfg, cfg)
	case "record":
		id := ""
		if len(args) > 1 {
			id = args[1]
		}
		return runRecord(ctx, cliCfg, cfg, id)
	case "stop":
		return runStop(ctx, cliCfg, cfg)
	case "gaze":
		count := 10
		if len(args) > 1 {
			count, err = strconv.Atoi(args[1])
			if err != nil || count < 1 {
				return fmt.Errorf("invalid sample count: %s", args[1])
			}
		}
		return runGaze(ctx, cliCfg, cfg, count)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// loadConfig reads the YAML config when given, defaults otherwise.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connect resolves the target device — the --address flag when set,
// first discovery answer otherwise — and retries the handshake a few
// times. One-shot commands handle retry here instead of through
// background reconnection.
func connect(ctx context.Context, cliCfg *CLIConfig, cfg config.Config) (*connection.Connection, error) {
	cfg.DisableAutoReconnect = true
	cfg.ApplyDefaults()

	conn, err := resolveTarget(ctx, cliCfg, cfg)
	if err != nil {
		return nil, err
	}
	err = retry.Do(ctx, retry.Fixed(connectAttempts, cfg.ReconnectInterval.Std()), func() error {
		return conn.Connect(ctx)
	})
	if err != nil {
		_ = conn.Disconnect()
		return nil, err
	}
	return conn, nil
}

func resolveTarget(ctx context.Context, cliCfg *CLIConfig, cfg config.Config) (*connection.Connection, error) {
	if cliCfg.Address != "" {
		return connection.New(cliCfg.Address, cfg)
	}

	slog.Info("no address given, discovering")
	desc, err := discovery.New(cfg).DiscoverFirst(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("device found", "name", desc.Name, "addr", desc.Address())
	return connection.NewFromDescriptor(&desc, cfg)
}

func runDiscover(ctx context.Context, cfg config.Config) error {
	found, err := discovery.New(cfg).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(found) == 0 {
		fmt.Println("no devices found")
		return nil
	}
	for _, desc := range found {
		fmt.Printf("%s\t%s\t%s\n", desc.Name, desc.Model, desc.Address())
	}
	return nil
}

func runStatus(ctx context.Context, cliCfg *CLIConfig, cfg config.Config) error {
	conn, err := connect(ctx, cliCfg, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	desc, err := conn.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	return printJSON(desc)
}

func runRecord(ctx context.Context, cliCfg *CLIConfig, cfg config.Config, id string) error {
	conn, err := connect(ctx, cliCfg, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	started, err := conn.StartRecording(ctx, id)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	fmt.Println(started)
	return nil
}

func runStop(ctx context.Context, cliCfg *CLIConfig, cfg config.Config) error {
	conn, err := connect(ctx, cliCfg, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	if err := conn.StopRecording(ctx); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	return nil
}

func runGaze(ctx context.Context, cliCfg *CLIConfig, cfg config.Config, count int) error {
	if cliCfg.Address == "" {
		desc, err := discovery.New(cfg).DiscoverFirst(ctx)
		if err != nil {
			return err
		}
		cliCfg.Address = desc.Address()
	}

	dev, err := simple.Connect(ctx, cliCfg.Address, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return nil
		}
		sample, err := dev.ReceiveGaze(5 * time.Second)
		if err != nil {
			return fmt.Errorf("receive gaze: %w", err)
		}
		if err := printSample(sample); err != nil {
			return err
		}
	}
	return nil
}

func printSample(sample gaze.Sample) error {
	return printJSON(sample)
}

func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
