// Package main is the entry point for the reqhudd request overlay daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/joho/godotenv"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/display"
	"github.com/jmylchreest/reqhud/internal/theme"
	"github.com/jmylchreest/reqhud/internal/tui"
)

const (
	appID   = "io.github.jmylchreest.reqhudd"
	appName = "reqhudd"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (default: user config dir)")
	envFile := flag.String("env-file", "", "Load environment variables from a dotenv file before reading config")
	stdio := flag.Bool("stdio", false, "Also read host events from stdin and write responses to stdout as JSON lines")
	frontend := flag.String("frontend", "", "Override display.frontend (gtk, tui, none)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := loadEnvFile(*envFile); err != nil {
		logger.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	path := *configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			logger.Error("failed to get config path", "error", err)
			os.Exit(1)
		}
		path = p
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	if *frontend != "" {
		cfg.Display.Frontend = *frontend
		if err := cfg.Validate(); err != nil {
			logger.Error("invalid frontend", "error", err)
			os.Exit(1)
		}
	}
	if *stdio && config.Frontend(cfg.Display.Frontend) == config.FrontendTUI {
		logger.Error("--stdio cannot be combined with the tui frontend, both use the terminal")
		os.Exit(1)
	}

	logger.Info("starting reqhudd", "version", version, "config", path, "frontend", cfg.Display.Frontend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := startServices(ctx, cfg, path, *stdio, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	status := 0
	switch config.Frontend(cfg.Display.Frontend) {
	case config.FrontendGTK:
		status = runGTK(ctx, svc, cfg, logger)
	case config.FrontendTUI:
		if err := tui.Run(ctx, svc.ctrl, cfg); err != nil {
			logger.Error("tui exited with error", "error", err)
			status = 1
		}
	default:
		logger.Info("running headless, waiting for signal")
		<-ctx.Done()
	}

	svc.shutdown()
	logger.Info("reqhudd stopped")
	os.Exit(status)
}

// loadEnvFile loads a dotenv file. An empty path tries ./.env and ignores
// its absence.
func loadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(path)
}

// runGTK runs the layer-shell overlay until ctx is cancelled and returns
// the application exit status.
func runGTK(ctx context.Context, svc *services, cfg *config.Config, logger *slog.Logger) int {
	app := adw.NewApplication(appID, 0)

	var (
		themeLoader    *theme.Loader
		displayManager *display.Manager
	)

	go func() {
		<-ctx.Done()
		glib.IdleAdd(func() {
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if displayManager != nil {
			logger.Warn("application already running")
			return
		}

		themeLoader = theme.NewLoader(logger)
		themeLoader.Load(cfg.Theme.Name)
		themeLoader.UpdateConfig(cfg)
		themeLoader.Watch(ctx)

		displayManager = display.NewManager(&app.Application, svc.ctrl, themeLoader, cfg, logger)
		if err := displayManager.Start(); err != nil {
			logger.Error("failed to start display manager", "error", err)
			app.Quit()
			return
		}
		svc.onReload(displayManager.UpdateConfig)

		logger.Info("reqhudd ready", "listen", svc.server.Addr())
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if themeLoader != nil {
			themeLoader.Stop()
		}
		if displayManager != nil {
			displayManager.Stop()
		}
	})

	// GApplication parses its own arguments; ours were consumed by flag.
	status := app.Run([]string{os.Args[0]})
	if status != 0 {
		logger.Error("application exited with error", "status", status)
	}
	return status
}
