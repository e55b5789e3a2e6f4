// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry holds the static reference data for the irie gateway:
// the closed set of upstream AI providers and the voice personas attached
// to them for downstream speech synthesis.
//
// Both registries are fixed at process start. Nothing is ever added or
// removed at runtime; callers get read-only views.
package registry

import "fmt"

// =============================================================================
// PROVIDER KEYS
// =============================================================================

// ProviderKey identifies an upstream AI provider.
type ProviderKey string

const (
	// ProviderClaude is Anthropic Claude.
	ProviderClaude ProviderKey = "claude"
	// ProviderGPT4 is OpenAI GPT-4.
	ProviderGPT4 ProviderKey = "gpt4"
	// ProviderGemini is Google Gemini.
	ProviderGemini ProviderKey = "gemini"
	// ProviderGrok is xAI Grok.
	ProviderGrok ProviderKey = "grok"
	// ProviderQwen is Alibaba Qwen.
	ProviderQwen ProviderKey = "qwen"
	// ProviderMeta is Meta AI.
	ProviderMeta ProviderKey = "meta"

	// ProviderFallback is the reserved key reported when a provider call
	// failed and the canned fallback answer was served. It is not a real
	// provider and never appears in the registry.
	ProviderFallback ProviderKey = "fallback"
)

// String returns the wire form of the provider key.
func (k ProviderKey) String() string { return string(k) }

// IsValid reports whether the key names a registered provider.
// ProviderFallback is not a registered provider.
func (k ProviderKey) IsValid() bool {
	_, ok := providers[k]
	return ok
}

// =============================================================================
// VOICE KEYS
// =============================================================================

// VoiceKey identifies a voice persona.
type VoiceKey string

const (
	VoiceDamienMarley   VoiceKey = "damien_marley"
	VoiceShensea        VoiceKey = "shensea"
	VoiceBarringtonLevy VoiceKey = "barrington_levy"
	VoiceJazElise       VoiceKey = "jaz_elise"
	VoiceJadaKingdom    VoiceKey = "jada_kingdom"
	VoiceBujuBanton     VoiceKey = "buju_banton"
)

// String returns the wire form of the voice key.
func (k VoiceKey) String() string { return string(k) }

// IsValid reports whether the key names a registered voice.
func (k VoiceKey) IsValid() bool {
	_, ok := voices[k]
	return ok
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// Provider describes one upstream conversational AI backend.
type Provider struct {
	Key         ProviderKey `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Personality string      `json:"personality"`
	VoiceID     VoiceKey    `json:"voice_id"`
}

// Voice describes one speech-synthesis persona.
type Voice struct {
	Key    VoiceKey `json:"key"`
	Name   string   `json:"name"`
	Style  string   `json:"style"`
	Accent string   `json:"accent"`
	Tempo  string   `json:"tempo"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// providers is the closed provider set. Each provider references exactly
// one voice; Validate checks the references resolve at startup.
var providers = map[ProviderKey]Provider{
	ProviderClaude: {
		Key:         ProviderClaude,
		Name:        "Claude (Anthropic)",
		Description: "Excellent for detailed analysis and cultural insights",
		Personality: "Thoughtful, analytical, culturally aware",
		VoiceID:     VoiceDamienMarley,
	},
	ProviderGPT4: {
		Key:         ProviderGPT4,
		Name:        "GPT-4 (OpenAI)",
		Description: "Great for creative writing and general conversation",
		Personality: "Creative, versatile, engaging",
		VoiceID:     VoiceShensea,
	},
	ProviderGemini: {
		Key:         ProviderGemini,
		Name:        "Gemini (Google)",
		Description: "Strong at research and factual information",
		Personality: "Informative, precise, helpful",
		VoiceID:     VoiceBarringtonLevy,
	},
	ProviderGrok: {
		Key:         ProviderGrok,
		Name:        "Grok (xAI)",
		Description: "Humorous and unconventional perspectives",
		Personality: "Witty, rebellious, insightful",
		VoiceID:     VoiceJazElise,
	},
	ProviderQwen: {
		Key:         ProviderQwen,
		Name:        "Qwen (Alibaba)",
		Description: "Multilingual support and cultural diversity",
		Personality: "Multicultural, inclusive, wise",
		VoiceID:     VoiceJadaKingdom,
	},
	ProviderMeta: {
		Key:         ProviderMeta,
		Name:        "Meta AI",
		Description: "Social and community-focused responses",
		Personality: "Social, community-minded, relatable",
		VoiceID:     VoiceBujuBanton,
	},
}

// voices is the closed voice-persona set.
var voices = map[VoiceKey]Voice{
	VoiceDamienMarley: {
		Key:    VoiceDamienMarley,
		Name:   "Damien Marley",
		Style:  "conscious, thoughtful, spiritual",
		Accent: "jamaican_patois",
		Tempo:  "moderate",
	},
	VoiceShensea: {
		Key:    VoiceShensea,
		Name:   "Shensea",
		Style:  "energetic, contemporary, confident",
		Accent: "modern_jamaican",
		Tempo:  "fast",
	},
	VoiceBarringtonLevy: {
		Key:    VoiceBarringtonLevy,
		Name:   "Barrington Levy",
		Style:  "classic, smooth, experienced",
		Accent: "traditional_jamaican",
		Tempo:  "moderate",
	},
	VoiceJazElise: {
		Key:    VoiceJazElise,
		Name:   "Jaz Elise",
		Style:  "modern, expressive, artistic",
		Accent: "contemporary_jamaican",
		Tempo:  "moderate_fast",
	},
	VoiceJadaKingdom: {
		Key:    VoiceJadaKingdom,
		Name:   "Jada Kingdom",
		Style:  "bold, contemporary, powerful",
		Accent: "dancehall_jamaican",
		Tempo:  "fast",
	},
	VoiceBujuBanton: {
		Key:    VoiceBujuBanton,
		Name:   "Buju Banton",
		Style:  "spiritual, wise, authoritative",
		Accent: "deep_jamaican",
		Tempo:  "slow_moderate",
	},
}

// =============================================================================
// LOOKUPS
// =============================================================================

// GetProvider returns the provider record for key.
func GetProvider(key ProviderKey) (Provider, bool) {
	p, ok := providers[key]
	return p, ok
}

// GetVoice returns the voice record for key.
func GetVoice(key VoiceKey) (Voice, bool) {
	v, ok := voices[key]
	return v, ok
}

// VoiceFor returns the voice persona attached to a registered provider.
func VoiceFor(key ProviderKey) (Voice, bool) {
	p, ok := providers[key]
	if !ok {
		return Voice{}, false
	}
	return GetVoice(p.VoiceID)
}

// Providers returns a copy of the provider registry keyed by wire key.
// The copy keeps callers from mutating the reference data.
func Providers() map[string]Provider {
	out := make(map[string]Provider, len(providers))
	for k, p := range providers {
		out[k.String()] = p
	}
	return out
}

// Voices returns a copy of the voice registry keyed by wire key.
func Voices() map[string]Voice {
	out := make(map[string]Voice, len(voices))
	for k, v := range voices {
		out[k.String()] = v
	}
	return out
}

// ProviderCount returns the number of registered providers.
func ProviderCount() int { return len(providers) }

// VoiceCount returns the number of registered voice personas.
func VoiceCount() int { return len(voices) }

// =============================================================================
// STARTUP VALIDATION
// =============================================================================

// Validate checks registry integrity: every provider's voice reference must
// resolve to a registered voice. A failure is a programmer error in the
// reference data and should abort startup.
func Validate() error {
	for key, p := range providers {
		if p.Key != key {
			return fmt.Errorf("provider %q: key field %q does not match map key", key, p.Key)
		}
		if _, ok := voices[p.VoiceID]; !ok {
			return fmt.Errorf("provider %q: voice reference %q does not resolve", key, p.VoiceID)
		}
	}
	for key, v := range voices {
		if v.Key != key {
			return fmt.Errorf("voice %q: key field %q does not match map key", key, v.Key)
		}
	}
	return nil
}
