// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"github.com/rootsline/irie/internal/registry"
)

// =============================================================================
// PROVIDER SELECTION
// =============================================================================

// Select maps a query analysis to exactly one provider key.
//
// The decision table is evaluated top to bottom and the first match wins.
// The order is the contract - do not reorder:
//
//  1. cultural context with a music_culture topic -> claude
//  2. creative                                    -> gpt4
//  3. factual without cultural context            -> gemini
//  4. high complexity                             -> claude
//  5. default                                     -> gpt4
//
// Select is pure and total: it always returns a registered provider key
// and never fails. ctx is accepted for forward compatibility but no rule
// inspects it today; nil is fine.
//
// Under these rules grok, qwen, and meta are never selected even though
// they are registered and individually callable. That is a property of
// the reference behavior and is preserved deliberately.
func Select(analysis QueryAnalysis, ctx Context) registry.ProviderKey {
	_ = ctx

	// Cultural/music queries -> Claude (Damien Marley voice)
	if analysis.CulturalContext && analysis.HasTopic(TopicMusicCulture) {
		return registry.ProviderClaude
	}

	// Creative writing -> GPT-4 (Shensea voice)
	if analysis.Creative {
		return registry.ProviderGPT4
	}

	// Factual/research queries -> Gemini (Barrington Levy voice)
	if analysis.Factual && !analysis.CulturalContext {
		return registry.ProviderGemini
	}

	// Complex analytical queries -> Claude
	if analysis.Complexity == ComplexityHigh {
		return registry.ProviderClaude
	}

	// Default to GPT-4 for general conversation
	return registry.ProviderGPT4
}
