// irie - a query-routing gateway over conversational AI providers.
//
// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rootsline/irie/internal/config"
	"github.com/rootsline/irie/internal/history"
	"github.com/rootsline/irie/internal/orchestrator"
	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/responder"
	"github.com/rootsline/irie/internal/server"
	"github.com/rootsline/irie/internal/telemetry"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default ~/.irie/config.toml)")
		port        = flag.Int("port", 0, "listen port (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("irie %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	// Load configuration
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
		if err != nil {
			return err
		}
		config.SetGlobal(cfg)
	} else {
		cfg = config.Global()
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}

	// Reference data must be internally consistent before serving anything.
	if err := registry.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}

	// Telemetry request log
	var recorder *telemetry.Recorder
	if cfg.Telemetry.Enabled {
		dbPath := cfg.Telemetry.DatabasePath
		if dbPath == "" {
			dbPath, err = config.DefaultTelemetryPath()
			if err != nil {
				return err
			}
		}
		recorder, err = telemetry.NewRecorder(dbPath)
		if err != nil {
			return fmt.Errorf("telemetry setup failed: %w", err)
		}
		defer recorder.Close()
		log.Printf("TELEMETRY_ENABLED | path=%s", dbPath)
	}

	// Routing engine
	dispatch := responder.Dispatch{}
	callTimeout := time.Duration(cfg.Routing.CallTimeoutSecs) * time.Second
	for key, r := range responder.NewMockDispatch() {
		dispatch[key] = responder.WithTimeout(r, callTimeout)
	}

	engine, err := orchestrator.New(dispatch, history.NewStore(), recorder)
	if err != nil {
		return err
	}

	// HTTP server
	opts := []server.Option{
		server.WithAddr(cfg.Server.Host, cfg.Server.Port),
		server.WithRateLimit(cfg.Server.RateLimitPerMinute),
		server.WithDefaultUserID(cfg.Routing.DefaultUserID),
		server.WithTimeouts(
			time.Duration(cfg.Server.ReadTimeoutSecs)*time.Second,
			time.Duration(cfg.Server.WriteTimeoutSecs)*time.Second,
		),
	}
	if cfg.Server.AuthToken != "" {
		opts = append(opts, server.WithAuth(&server.AuthConfig{
			Enabled:     true,
			BearerToken: cfg.Server.AuthToken,
		}))
	}
	if len(cfg.Server.TrustedProxies) > 0 {
		opts = append(opts, server.WithTrustedProxies(cfg.Server.TrustedProxies))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := server.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		opts = append(opts, server.WithCORS(cors))
	}

	srv := server.NewServer(engine, opts...)

	// Hot-reload the config file when it changes on disk.
	watchPath := configPath
	if watchPath == "" {
		if p, pathErr := config.ConfigPathTOML(); pathErr == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				watchPath = p
			}
		}
	}
	if watchPath != "" {
		startWatcher(watchPath)
	}

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("SIGNAL_RECEIVED | signal=%v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// startWatcher starts the config hot-reload watcher. Failure to watch is
// logged, not fatal; the server keeps its startup configuration.
func startWatcher(path string) {
	w, err := config.NewWatcher(path, config.DefaultDebounce, nil)
	if err != nil {
		log.Printf("CONFIG_WATCH_UNAVAILABLE | path=%s error=%v", path, err)
		return
	}
	if err := w.Watch(); err != nil {
		log.Printf("CONFIG_WATCH_UNAVAILABLE | path=%s error=%v", path, err)
		w.Close()
		return
	}
	log.Printf("CONFIG_WATCHING | path=%s", path)
}
