// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"errors"
	"strings"
	"testing"

	"github.com/rootsline/irie/internal/registry"
)

func TestSynthesizeKnownVoice(t *testing.T) {
	const text = "Greetings from the island"

	s, err := Synthesize(text, registry.VoiceBujuBanton)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if s.Voice.Key != registry.VoiceBujuBanton {
		t.Errorf("Voice.Key = %q, want %q", s.Voice.Key, registry.VoiceBujuBanton)
	}
	if s.Text != text {
		t.Errorf("Text = %q, want %q", s.Text, text)
	}
	if want := float64(len(text)) * 0.1; s.Duration != want {
		t.Errorf("Duration = %v, want %v", s.Duration, want)
	}
	if !strings.HasPrefix(s.AudioURL, "/api/voice/audio/buju_banton/") {
		t.Errorf("AudioURL = %q", s.AudioURL)
	}
}

func TestSynthesizeEmptyKeyUsesDefault(t *testing.T) {
	s, err := Synthesize("hello", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if s.Voice.Key != DefaultVoice {
		t.Errorf("Voice.Key = %q, want %q", s.Voice.Key, DefaultVoice)
	}
}

func TestSynthesizeInvalidVoice(t *testing.T) {
	_, err := Synthesize("hello", registry.VoiceKey("robot"))
	if !errors.Is(err, ErrInvalidVoice) {
		t.Fatalf("error = %v, want ErrInvalidVoice", err)
	}
}

func TestSynthesizeDeterministicURL(t *testing.T) {
	a, err := Synthesize("same text", registry.VoiceShensea)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	b, err := Synthesize("same text", registry.VoiceShensea)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if a.AudioURL != b.AudioURL {
		t.Errorf("AudioURL not stable: %q vs %q", a.AudioURL, b.AudioURL)
	}

	c, err := Synthesize("other text", registry.VoiceShensea)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if c.AudioURL == a.AudioURL {
		t.Errorf("different text mapped to same AudioURL %q", a.AudioURL)
	}
}
