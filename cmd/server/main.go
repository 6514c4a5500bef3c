package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knadh/koanf"

	"github.com/mr-karan/wgmesh/internal/audit"
	"github.com/mr-karan/wgmesh/internal/httpapi"
	"github.com/mr-karan/wgmesh/internal/provisioning"
	"github.com/mr-karan/wgmesh/internal/runtimeadapter"
	"github.com/mr-karan/wgmesh/internal/state"
	"github.com/mr-karan/wgmesh/internal/wgcrypto"
)

// buildString is injected at build time.
var buildString = "unknown"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ko := initConfig("config.sample.toml", "WGMESH_")
	logger := initLogger(ko)

	logger.Info("starting wgmesh server", slog.String("version", buildString))

	cfg, err := parseConfig(ko)
	if err != nil {
		logger.Error("config error", slog.Any("error", err))
		os.Exit(1)
	}

	store := state.New(cfg.State.Path, cfg.State.LockPath)
	runtime := runtimeadapter.NewWGCtl(logger, cfg.Runtime.WGBin, cfg.Runtime.IPBin)
	auditRing := audit.New()
	svc := provisioning.New(store, runtime, auditRing, logger)

	pskFunc := wgcrypto.DeterministicPSK
	if cfg.Mesh.PSKMode == "random" {
		pskFunc = wgcrypto.RandomPSK
	}

	apiServer := httpapi.NewServer(httpapi.Config{
		ListenAddr:     cfg.HTTP.ListenAddr,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, logger, svc, pskFunc)

	done := make(chan error, 1)
	go func() {
		done <- apiServer.Start(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	select {
	case err := <-done:
		if err != nil {
			logger.Error("http server error", "error", err)
		}
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timeout exceeded")
	}

	logger.Info("shutdown complete")
}

// Config represents the application configuration.
type Config struct {
	App struct {
		Verbose   bool   `toml:"verbose"`
		LogLevel  string `toml:"log_level"`
		LogFormat string `toml:"log_format"`
	} `toml:"app"`

	HTTP struct {
		ListenAddr     string   `toml:"listen_addr"`
		AllowedOrigins []string `toml:"allowed_origins"`
	} `toml:"http"`

	State struct {
		Path     string `toml:"path"`
		LockPath string `toml:"lock_path"`
	} `toml:"state"`

	Runtime struct {
		WGBin string `toml:"wg_bin"`
		IPBin string `toml:"ip_bin"`
	} `toml:"runtime"`

	Mesh struct {
		PSKMode string `toml:"psk_mode"` // "deterministic" (default) or "random"
	} `toml:"mesh"`
}

// parseConfig parses and validates the configuration.
func parseConfig(ko *koanf.Koanf) (*Config, error) {
	var cfg Config

	cfg.App.Verbose = ko.Bool("app.verbose")
	cfg.App.LogLevel = ko.String("app.log_level")
	cfg.App.LogFormat = ko.String("app.log_format")
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "text"
	}

	cfg.HTTP.ListenAddr = ko.String("http.listen_addr")
	if cfg.HTTP.ListenAddr == "" {
		cfg.HTTP.ListenAddr = ":8080"
	}
	cfg.HTTP.AllowedOrigins = ko.Strings("http.allowed_origins")

	cfg.State.Path = ko.String("state.path")
	if cfg.State.Path == "" {
		cfg.State.Path = "/var/lib/wgmesh/state.json"
	}
	cfg.State.LockPath = ko.String("state.lock_path")

	cfg.Runtime.WGBin = ko.String("runtime.wg_bin")
	cfg.Runtime.IPBin = ko.String("runtime.ip_bin")

	cfg.Mesh.PSKMode = ko.String("mesh.psk_mode")
	if cfg.Mesh.PSKMode == "" {
		cfg.Mesh.PSKMode = "deterministic"
	}
	if cfg.Mesh.PSKMode != "deterministic" && cfg.Mesh.PSKMode != "random" {
		return nil, fmt.Errorf("mesh.psk_mode must be \"deterministic\" or \"random\", got %q", cfg.Mesh.PSKMode)
	}

	return &cfg, nil
}
