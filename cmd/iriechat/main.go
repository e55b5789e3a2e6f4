// iriechat - interactive terminal client for the irie routing engine.
//
// Runs the full routing pipeline in-process: no server required. Each
// query is analyzed, routed to a provider, and rendered with its voice
// persona and routing metadata.
//
// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rootsline/irie/internal/config"
	"github.com/rootsline/irie/internal/history"
	"github.com/rootsline/irie/internal/orchestrator"
	"github.com/rootsline/irie/internal/responder"
	"github.com/rootsline/irie/internal/telemetry"
)

func main() {
	var (
		userID      = flag.String("user", "", "user id for conversation history (default from config)")
		noTelemetry = flag.Bool("no-telemetry", false, "disable the local request log")
	)
	flag.Parse()

	if err := run(*userID, *noTelemetry); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(userID string, noTelemetry bool) error {
	// Routing log lines would corrupt the alt-screen display.
	log.SetOutput(io.Discard)

	cfg := config.Global()
	if userID == "" {
		userID = cfg.Routing.DefaultUserID
	}

	var recorder *telemetry.Recorder
	if cfg.Telemetry.Enabled && !noTelemetry {
		dbPath := cfg.Telemetry.DatabasePath
		if dbPath == "" {
			var err error
			dbPath, err = config.DefaultTelemetryPath()
			if err != nil {
				return err
			}
		}
		var err error
		recorder, err = telemetry.NewRecorder(dbPath)
		if err != nil {
			// Chat works fine without the request log.
			recorder = nil
		} else {
			defer recorder.Close()
		}
	}

	engine, err := orchestrator.New(responder.NewMockDispatch(), history.NewStore(), recorder)
	if err != nil {
		return err
	}

	program := tea.NewProgram(newChatModel(engine, userID), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
