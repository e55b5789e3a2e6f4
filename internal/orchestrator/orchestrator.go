// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator composes the routing pipeline: analyze the query,
// select a provider, call its responder, attach persona metadata.
//
// RouteQuery is the sole entry point a transport layer should call. It is
// total: for any input it returns a well-formed envelope and never errors.
// Responder failures surface as the fallback envelope, not as an error.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/rootsline/irie/internal/history"
	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/responder"
	"github.com/rootsline/irie/internal/router"
	"github.com/rootsline/irie/internal/telemetry"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the full routed answer returned to the caller.
//
// On the success path VoiceModel and ModelInfo carry the persona and
// provider records for the selected model. The fallback envelope reports
// "fallback" as the selected model and carries neither.
type Envelope struct {
	Text            string               `json:"text"`
	SelectedModel   registry.ProviderKey `json:"selected_model"`
	ProcessingTime  float64              `json:"processing_time"`
	Confidence      float64              `json:"confidence"`
	CulturalContext bool                 `json:"cultural_context"`
	Error           string               `json:"error,omitempty"`
	VoiceModel      *registry.Voice      `json:"voice_model,omitempty"`
	ModelInfo       *registry.Provider   `json:"model_info,omitempty"`
}

// fallbackText is the canned answer served when a provider call fails.
const fallbackText = "Irie! Thanks for your question about '%s'. While I'm having some technical difficulties connecting with my full consciousness right now, I want you to know that every question deserves respect and consideration. Please try again in a moment, and I'll be better prepared to share some real insights with you."

const (
	fallbackProcessingTime = 0.1
	fallbackConfidence     = 0.5
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns the routing pipeline and its collaborators. Construct one at
// process start and share it; RouteQuery is safe for concurrent use.
type Engine struct {
	dispatch responder.Dispatch
	history  *history.Store
	recorder *telemetry.Recorder
}

// New builds an engine over the given dispatch table. The registry and the
// dispatch table are cross-checked here; drift between them is a fatal
// configuration error, not something to discover per request.
//
// recorder may be nil to disable telemetry.
func New(dispatch responder.Dispatch, store *history.Store, recorder *telemetry.Recorder) (*Engine, error) {
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	if err := dispatch.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch validation failed: %w", err)
	}
	if store == nil {
		store = history.NewStore()
	}
	return &Engine{dispatch: dispatch, history: store, recorder: recorder}, nil
}

// RouteQuery answers one query. It never fails; callers detect the
// degraded path by SelectedModel == "fallback" or a non-empty Error.
func (e *Engine) RouteQuery(ctx context.Context, query string, rctx router.Context, userID string) Envelope {
	analysis := router.Analyze(query)
	key := router.Select(analysis, rctx)

	res, err := e.dispatch.Call(ctx, key, responder.Request{
		Query:   query,
		Context: rctx,
		UserID:  userID,
	})
	if err != nil {
		log.Printf("RESPONDER_FAILED | provider=%s user=%s error=%v", key, userID, err)
		env := fallbackEnvelope(query, err)
		e.record(ctx, userID, analysis, env)
		return env
	}

	env := Envelope{
		Text:            res.Text,
		SelectedModel:   key,
		ProcessingTime:  res.ProcessingTime,
		Confidence:      res.Confidence,
		CulturalContext: res.CulturalContext,
	}
	// Both lookups are guaranteed by the startup cross-check.
	if p, ok := registry.GetProvider(key); ok {
		env.ModelInfo = &p
	}
	if v, ok := registry.VoiceFor(key); ok {
		env.VoiceModel = &v
	}

	log.Printf("ROUTE | provider=%s complexity=%s topics=%d user=%s", key, analysis.Complexity, len(analysis.Topics), userID)
	e.record(ctx, userID, analysis, env)
	return env
}

// History returns the recorded exchanges for userID, oldest first.
func (e *Engine) History(userID string) []history.Entry {
	return e.history.Get(userID)
}

// Stats aggregates the request log. Returns zero stats when telemetry is
// disabled.
func (e *Engine) Stats(ctx context.Context) (telemetry.Stats, error) {
	if e.recorder == nil {
		return telemetry.Stats{ByProvider: map[string]int{}}, nil
	}
	return e.recorder.Stats(ctx)
}

// record writes the routing outcome to the request log. Best effort; a
// telemetry failure never affects the response.
func (e *Engine) record(ctx context.Context, userID string, analysis router.QueryAnalysis, env Envelope) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.Record(ctx, telemetry.RequestRecord{
		UserID:         userID,
		Provider:       env.SelectedModel.String(),
		Complexity:     analysis.Complexity.String(),
		Fallback:       env.SelectedModel == registry.ProviderFallback,
		ProcessingTime: env.ProcessingTime,
		Confidence:     env.Confidence,
	})
	if err != nil {
		log.Printf("TELEMETRY_RECORD_FAILED | error=%v", err)
	}
}

// fallbackEnvelope builds the canned degraded answer. It must never fail.
func fallbackEnvelope(query string, err error) Envelope {
	return Envelope{
		Text:            fmt.Sprintf(fallbackText, query),
		SelectedModel:   registry.ProviderFallback,
		ProcessingTime:  fallbackProcessingTime,
		Confidence:      fallbackConfidence,
		CulturalContext: true,
		Error:           err.Error(),
	}
}
