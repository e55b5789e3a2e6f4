// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package responder defines the upstream-call capability the gateway
// dispatches to once a provider has been selected.
//
// One Responder implementation exists per provider key. The orchestrator
// never branches on provider names; it looks the key up in a Dispatch map
// and calls whatever it finds. Adding a provider is a registry entry plus
// one implementation, nothing else.
package responder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/router"
)

// =============================================================================
// CONTRACT TYPES
// =============================================================================

// Request carries one upstream call.
type Request struct {
	Query   string
	Context router.Context
	UserID  string
}

// Result is the minimum shape every provider call must return.
// ProcessingTime is an opaque cost signal, not a measured duration.
type Result struct {
	Text            string  `json:"text"`
	ProcessingTime  float64 `json:"processing_time"`
	Confidence      float64 `json:"confidence"`
	CulturalContext bool    `json:"cultural_context"`
}

// Responder turns a query into model output for one provider. A call may
// fail with any error; the caller converts failures into the fallback
// envelope and never retries.
type Responder interface {
	Call(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to the Responder interface.
type Func func(ctx context.Context, req Request) (Result, error)

// Call implements Responder.
func (f Func) Call(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// =============================================================================
// DISPATCH
// =============================================================================

// ErrUnknownProvider is returned when a dispatch lookup misses. Reaching it
// at request time means the dispatch table and the provider registry have
// drifted apart, which Validate is meant to catch at startup.
var ErrUnknownProvider = errors.New("no responder registered for provider")

// Dispatch maps each provider key to its Responder implementation.
type Dispatch map[registry.ProviderKey]Responder

// Call routes one request to the responder for key.
func (d Dispatch) Call(ctx context.Context, key registry.ProviderKey, req Request) (Result, error) {
	r, ok := d[key]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownProvider, key)
	}
	return r.Call(ctx, req)
}

// Validate checks that every registered provider has a responder and that
// no responder is keyed by an unregistered provider. Drift either way is a
// configuration error and should abort startup.
func (d Dispatch) Validate() error {
	for key := range registry.Providers() {
		if _, ok := d[registry.ProviderKey(key)]; !ok {
			return fmt.Errorf("provider %q has no responder", key)
		}
	}
	for key := range d {
		if !key.IsValid() {
			return fmt.Errorf("responder registered for unknown provider %q", key)
		}
	}
	return nil
}

// =============================================================================
// TIMEOUT WRAPPER
// =============================================================================

// DefaultCallTimeout bounds a single upstream call.
const DefaultCallTimeout = 30 * time.Second

// WithTimeout wraps r so every call runs under a deadline. Errors from the
// wrapped responder pass through unchanged; there is no retry.
func WithTimeout(r Responder, timeout time.Duration) Responder {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return Func(func(ctx context.Context, req Request) (Result, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return r.Call(ctx, req)
	})
}
