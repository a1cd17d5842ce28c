// Package main implements the entry point for the stompflow daemon.
// Stompflow consumes request frames from a STOMP message broker, routes
// them to registered controllers, and sends their replies back through
// the broker's temporary reply queues.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/stompflow/broker"
	"github.com/c360/stompflow/config"
	"github.com/c360/stompflow/controller"
	"github.com/c360/stompflow/engine"
	"github.com/c360/stompflow/metric"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "stompflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	// Setup metrics
	metricsRegistry, metricsServer, err := setupMetrics(cfg, cliCfg)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			if stopErr := metricsServer.Stop(); stopErr != nil {
				slog.Error("Error stopping metrics server", "error", stopErr)
			}
		}()
	}

	// Build the engine
	eng, err := buildEngine(cfg, logger, metricsRegistry)
	if err != nil {
		return err
	}

	// Run with signal handling
	return runWithSignalHandling(eng, cliCfg.Once)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting stompflow (STOMP request engine)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// setupMetrics creates the metrics registry and, when enabled, the
// exposition server
func setupMetrics(cfg *config.Config, cliCfg *CLIConfig) (*metric.Registry, *metric.Server, error) {
	registry := metric.NewRegistry()

	if !cfg.Metrics.Enabled && cliCfg.MetricsPort == 0 {
		return registry, nil, nil
	}

	port := cfg.Metrics.Port
	if cliCfg.MetricsPort != 0 {
		port = cliCfg.MetricsPort
	}

	server := metric.NewServer(port, cfg.Metrics.Path, registry)
	if err := server.Start(); err != nil {
		return nil, nil, fmt.Errorf("start metrics server: %w", err)
	}
	slog.Info("Metrics server started", "addr", server.Addr())

	return registry, server, nil
}

// buildEngine assembles the roster, controller registry, and engine from
// configuration
func buildEngine(cfg *config.Config, logger *slog.Logger, metricsRegistry *metric.Registry) (*engine.Engine, error) {
	roster, err := engine.NewRoster(cfg.Endpoints())
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}

	registry := engine.NewRegistry()
	if err := registerControllers(registry); err != nil {
		return nil, fmt.Errorf("register controllers: %w", err)
	}
	slog.Info("Controllers registered", "routes", registry.Routes())

	opts := []engine.Option{
		engine.WithTriesPerServer(cfg.Tries()),
		engine.WithConnectRetryDelay(cfg.RetryDelay()),
		engine.WithSubscribeHeaders(cfg.SubscribeHeaders),
		engine.WithUTF8(cfg.UTF8),
	}
	if cfg.Login != "" || cfg.Passcode != "" {
		opts = append(opts, engine.WithDialer(credentialedDialer(cfg)))
	}

	eng, err := engine.New(roster, registry, logger, metricsRegistry, opts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}

// registerControllers wires the built-in controllers to their routes
func registerControllers(registry *engine.Registry) error {
	return registry.Register("CatalystPing", controller.NewPing())
}

// credentialedDialer returns a dialer that authenticates the CONNECT
// handshake with the configured login and passcode
func credentialedDialer(cfg *config.Config) engine.Dialer {
	return func(ctx context.Context, ep broker.Endpoint) (engine.Conn, error) {
		return broker.Dial(ctx, ep,
			broker.WithCredentials(cfg.Login, cfg.Passcode),
			broker.WithUTF8(cfg.UTF8))
	}
}

// runWithSignalHandling runs the engine until a shutdown signal arrives
func runWithSignalHandling(eng *engine.Engine, once bool) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	slog.Info("Engine starting", "once", once)

	var err error
	if once {
		err = eng.RunOnce(signalCtx)
	} else {
		err = eng.Run(signalCtx)
	}
	if err != nil && signalCtx.Err() == nil {
		return fmt.Errorf("engine stopped: %w", err)
	}

	slog.Info("Stompflow shutdown complete")
	return nil
}

// loadConfig loads configuration from the specified file path
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
