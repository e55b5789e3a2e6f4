// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "strings"

// =============================================================================
// TOPIC RULES
// =============================================================================

// topicRule maps a keyword set to a topic tag and the flags it raises.
// Matching is substring containment against the lowercased query, not
// whole-word matching: "what happened" inside a longer sentence matches.
type topicRule struct {
	topic    Topic
	keywords []string
	cultural bool
	creative bool
	factual  bool
}

// topicRules is evaluated in order; a query may match any number of rules.
// The order only fixes the Topics output ordering, never the selection.
var topicRules = []topicRule{
	{
		topic:    TopicMusicCulture,
		keywords: []string{"reggae", "jamaica", "rastafari", "bob marley", "dancehall"},
		cultural: true,
	},
	{
		topic:    TopicHistorical,
		keywords: []string{"history", "when", "where", "who", "what happened"},
		factual:  true,
	},
	{
		topic:    TopicCreative,
		keywords: []string{"write", "create", "compose", "lyrics", "poem", "story"},
		creative: true,
	},
	{
		topic:    TopicEducational,
		keywords: []string{"explain", "how", "why", "what is", "define"},
		factual:  true,
	},
}

// Complexity thresholds by whitespace-delimited word count.
const (
	highComplexityWords = 20 // strictly more than this is high
	lowComplexityWords  = 5  // strictly fewer than this is low
)

// wordCount returns the number of whitespace-delimited words in a string.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// =============================================================================
// ANALYZE
// =============================================================================

// Analyze derives the routing feature set from raw query text.
//
// Pure function of its input with no side effects; it never fails. The
// empty string yields the all-false default with low complexity (zero
// words fall into the short bucket). Keyword matching is case-insensitive;
// the original casing is untouched and echoed back by later stages.
func Analyze(query string) QueryAnalysis {
	q := strings.ToLower(query)

	analysis := QueryAnalysis{Complexity: ComplexityMedium}

	for _, rule := range topicRules {
		if !containsAny(q, rule.keywords) {
			continue
		}
		analysis.Topics = append(analysis.Topics, rule.topic)
		if rule.cultural {
			analysis.CulturalContext = true
		}
		if rule.creative {
			analysis.Creative = true
		}
		if rule.factual {
			analysis.Factual = true
		}
	}

	wc := wordCount(query)
	switch {
	case wc > highComplexityWords:
		analysis.Complexity = ComplexityHigh
	case wc < lowComplexityWords:
		analysis.Complexity = ComplexityLow
	}

	return analysis
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
