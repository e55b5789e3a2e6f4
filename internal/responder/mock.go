// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package responder

import (
	"context"
	"fmt"

	"github.com/rootsline/irie/internal/registry"
)

// =============================================================================
// MOCK RESPONDERS
// =============================================================================

// The live provider integrations are not wired yet. Each provider answers
// with a persona template in its voice, plus fixed cost and confidence
// signals, so the full routing and presentation path can run end to end.

// mock is a template-backed Responder for one provider.
type mock struct {
	key            registry.ProviderKey
	processingTime float64
	confidence     float64
	render         func(query string) string
}

// Call implements Responder. It honors context cancellation so the timeout
// wrapper behaves the same over mocks as it will over network calls.
func (m *mock) Call(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{
		Text:            m.render(req.Query),
		ProcessingTime:  m.processingTime,
		Confidence:      m.confidence,
		CulturalContext: true,
	}, nil
}

func renderClaude(query string) string {
	return fmt.Sprintf("As a conscious artist and cultural messenger, I see your question about '%s' as an opportunity to share some deeper reasoning. In our culture, we believe that every question carries the seed of greater understanding.\n\n"+
		"From the perspective of conscious reggae and Jamaican wisdom, this topic connects to our rich heritage of music, spirituality, and cultural resistance. The roots of our music run deep, carrying messages of unity, love, and social consciousness that resonate across the world.\n\n"+
		"Let me share some insights that come from the heart of our musical tradition and the wisdom of our ancestors...", query)
}

func renderGPT4(query string) string {
	return fmt.Sprintf("Hey there! Shensea here, and your question about '%s' got me thinking creatively!\n\n"+
		"You know what I love about this topic? It gives me the chance to blend traditional Jamaican vibes with that modern energy we bring to dancehall today. We're always pushing boundaries while staying true to our roots.\n\n"+
		"Let me break this down for you with some fresh perspective and contemporary flair that captures the spirit of modern Jamaica...", query)
}

func renderGemini(query string) string {
	return fmt.Sprintf("Greetings! As Barrington Levy, with decades of experience in reggae music, I can tell you that '%s' touches on something important in our musical heritage. Let me share what I've learned through years of performing and living this culture...", query)
}

func renderGrok(query string) string {
	return fmt.Sprintf("Hey there! Jaz Elise here, and you know what? Your question about '%s' got me thinking in a whole different way. Let me break this down with some fresh perspective and maybe a little artistic flair...", query)
}

func renderQwen(query string) string {
	return fmt.Sprintf("Yow! Jada Kingdom speaking, and your question '%s' is hitting different! Let me give you the real talk from a contemporary perspective, mixing traditional wisdom with modern vibes...", query)
}

func renderMeta(query string) string {
	return fmt.Sprintf("Blessed love! Buju Banton here, and your inquiry about '%s' resonates with the spiritual vibration. From my journey through music and life, let me share some wisdom that comes from the heart and soul of our people...", query)
}

// NewMockDispatch builds the template-backed dispatch table covering every
// registered provider.
func NewMockDispatch() Dispatch {
	return Dispatch{
		registry.ProviderClaude: &mock{registry.ProviderClaude, 2.3, 0.95, renderClaude},
		registry.ProviderGPT4:   &mock{registry.ProviderGPT4, 1.8, 0.92, renderGPT4},
		registry.ProviderGemini: &mock{registry.ProviderGemini, 1.5, 0.88, renderGemini},
		registry.ProviderGrok:   &mock{registry.ProviderGrok, 2.1, 0.85, renderGrok},
		registry.ProviderQwen:   &mock{registry.ProviderQwen, 1.9, 0.87, renderQwen},
		registry.ProviderMeta:   &mock{registry.ProviderMeta, 2.0, 0.90, renderMeta},
	}
}
