// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "fmt"

// =============================================================================
// TOPIC TAGS
// =============================================================================

// Topic is a keyword-triggered classification label attached to a query.
type Topic string

const (
	// TopicMusicCulture covers reggae, dancehall, and Jamaican culture.
	TopicMusicCulture Topic = "music_culture"
	// TopicHistorical covers history and who/when/where fact questions.
	TopicHistorical Topic = "historical"
	// TopicCreative covers writing, lyrics, poems, and stories.
	TopicCreative Topic = "creative"
	// TopicEducational covers explanations, how/why, and definitions.
	TopicEducational Topic = "educational"
)

// String returns the wire form of the topic tag.
func (t Topic) String() string { return string(t) }

// =============================================================================
// COMPLEXITY BUCKETS
// =============================================================================

// Complexity is the coarse query-length bucket used as a routing signal.
type Complexity int

const (
	// ComplexityLow is a short query, fewer than 5 words.
	ComplexityLow Complexity = iota
	// ComplexityMedium is the default bucket, 5 to 20 words.
	ComplexityMedium
	// ComplexityHigh is a long query, more than 20 words.
	ComplexityHigh
)

// String returns the human-readable name of the complexity bucket.
func (c Complexity) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	default:
		return fmt.Sprintf("Complexity(%d)", c)
	}
}

// =============================================================================
// QUERY ANALYSIS
// =============================================================================

// QueryAnalysis is the per-request feature set derived from query text.
// It has no identity and is never persisted.
type QueryAnalysis struct {
	// Topics holds the matched topic tags in rule order.
	Topics []Topic `json:"topics"`
	// Complexity is the word-count bucket of the query.
	Complexity Complexity `json:"complexity"`
	// CulturalContext is set when a music/culture keyword matched.
	CulturalContext bool `json:"cultural_context"`
	// Creative is set when a creative-writing keyword matched.
	Creative bool `json:"creative"`
	// Factual is set when a historical or educational keyword matched.
	Factual bool `json:"factual"`
}

// HasTopic reports whether the analysis carries the given topic tag.
func (a QueryAnalysis) HasTopic(t Topic) bool {
	for _, topic := range a.Topics {
		if topic == t {
			return true
		}
	}
	return false
}

// String returns a compact summary for log lines.
func (a QueryAnalysis) String() string {
	return fmt.Sprintf("topics=%v complexity=%s cultural=%v creative=%v factual=%v",
		a.Topics, a.Complexity, a.CulturalContext, a.Creative, a.Factual)
}

// =============================================================================
// ROUTING CONTEXT
// =============================================================================

// Context is the caller-supplied routing context. No selection rule reads
// it today; it is accepted for forward compatibility and selection must
// tolerate a nil or empty map.
type Context map[string]string
