// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rootsline/irie/internal/history"
	"github.com/rootsline/irie/internal/orchestrator"
	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/responder"
)

func newTestModel(t *testing.T) chatModel {
	t.Helper()
	engine, err := orchestrator.New(responder.NewMockDispatch(), history.NewStore(), nil)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	m := newChatModel(engine, "u")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(chatModel)
}

func TestStatusLineShowsProviderAndVoice(t *testing.T) {
	m := newTestModel(t)

	voice, ok := registry.GetVoice(registry.VoiceDamienMarley)
	if !ok {
		t.Fatal("GetVoice failed for damien_marley")
	}
	env := orchestrator.Envelope{
		Text:          "Blessings.",
		SelectedModel: registry.ProviderClaude,
		VoiceModel:    &voice,
	}
	updated, _ := m.handleEnvelope(envelopeMsg{query: "hi", envelope: env})
	m = updated.(chatModel)

	view := m.View()
	if !strings.Contains(view, "claude") {
		t.Errorf("status line missing provider: %q", view)
	}
	if !strings.Contains(view, voice.Name) {
		t.Errorf("status line missing voice %q: %q", voice.Name, view)
	}
}

func TestStatusLineWithoutVoice(t *testing.T) {
	m := newTestModel(t)

	env := orchestrator.Envelope{
		Text:          "degraded",
		SelectedModel: registry.ProviderFallback,
		Error:         "outage",
	}
	updated, _ := m.handleEnvelope(envelopeMsg{query: "hi", envelope: env})
	m = updated.(chatModel)

	if !strings.Contains(m.View(), "last: fallback") {
		t.Errorf("status line missing fallback provider: %q", m.View())
	}
}

func TestMetaLineFallbackError(t *testing.T) {
	m := newTestModel(t)

	line := m.metaLine(orchestrator.Envelope{
		ProcessingTime: 0.1,
		Confidence:     0.5,
		Error:          "outage",
	})
	if !strings.Contains(line, "fallback: outage") {
		t.Errorf("metaLine = %q, want it to surface the error", line)
	}
}
