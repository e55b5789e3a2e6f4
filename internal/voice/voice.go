// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice stubs speech synthesis for the persona registry.
//
// No audio is produced. Synthesize validates the persona, estimates a
// duration from text length, and returns a deterministic audio URL the
// player tier can poll once real synthesis lands.
package voice

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/rootsline/irie/internal/registry"
)

// ErrInvalidVoice is returned when the requested persona is not registered.
var ErrInvalidVoice = errors.New("invalid voice model")

// DefaultVoice is used when a synthesis request names no persona.
const DefaultVoice = registry.VoiceDamienMarley

// secondsPerChar is the rough speech-duration estimate.
const secondsPerChar = 0.1

// Synthesis describes one stubbed synthesis result.
type Synthesis struct {
	AudioURL string         `json:"audio_url"`
	Voice    registry.Voice `json:"voice_model"`
	Duration float64        `json:"duration"`
	Text     string         `json:"text"`
}

// Synthesize produces the stub result for text in the given persona's
// voice. An empty key selects DefaultVoice.
func Synthesize(text string, key registry.VoiceKey) (Synthesis, error) {
	if key == "" {
		key = DefaultVoice
	}
	v, ok := registry.GetVoice(key)
	if !ok {
		return Synthesis{}, fmt.Errorf("%w: %s", ErrInvalidVoice, key)
	}

	return Synthesis{
		AudioURL: fmt.Sprintf("/api/voice/audio/%s/%d", key, textHash(text)),
		Voice:    v,
		Duration: float64(len(text)) * secondsPerChar,
		Text:     text,
	}, nil
}

// textHash gives a stable id for the text so repeated requests map to the
// same audio resource.
func textHash(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
