// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rootsline/irie/internal/history"
	"github.com/rootsline/irie/internal/orchestrator"
	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/responder"
)

func newTestServer(t *testing.T, dispatch responder.Dispatch, opts ...Option) *Server {
	t.Helper()
	if dispatch == nil {
		dispatch = responder.NewMockDispatch()
	}
	engine, err := orchestrator.New(dispatch, history.NewStore(), nil)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	return NewServer(engine, opts...)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// ============================================================================
// CHAT
// ============================================================================

func TestChatRoutesQuery(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s.Handler(), "/api/chat", ChatRequest{
		Message: "Tell me about dancehall and reggae",
		UserID:  "ava",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	if resp.Response.SelectedModel != registry.ProviderClaude {
		t.Errorf("SelectedModel = %q, want claude", resp.Response.SelectedModel)
	}
	if resp.Response.VoiceModel == nil || resp.Response.VoiceModel.Key != registry.VoiceDamienMarley {
		t.Errorf("VoiceModel = %+v", resp.Response.VoiceModel)
	}
	if resp.Timestamp == 0 {
		t.Error("Timestamp = 0")
	}
}

func TestChatMissingMessage(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty_object", "{}"},
		{"empty_message", `{"message": ""}`},
		{"not_json", "not json at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if resp["error"] != "Message is required" {
				t.Errorf("error = %q", resp["error"])
			}
		})
	}
}

func TestChatFallbackOverHTTP(t *testing.T) {
	d := responder.NewMockDispatch()
	d[registry.ProviderGPT4] = responder.Func(func(context.Context, responder.Request) (responder.Result, error) {
		return responder.Result{}, errors.New("outage")
	})
	s := newTestServer(t, d)

	w := postJSON(t, s.Handler(), "/api/chat", ChatRequest{Message: "hello there friend"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (fallback is not an HTTP error)", w.Code)
	}

	var resp ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Response.SelectedModel != registry.ProviderFallback {
		t.Errorf("SelectedModel = %q, want fallback", resp.Response.SelectedModel)
	}
	if resp.Response.Error != "outage" {
		t.Errorf("Error = %q, want outage", resp.Response.Error)
	}
}

// ============================================================================
// MODELS
// ============================================================================

func TestModels(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s.Handler(), "/api/models")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != "active" {
		t.Errorf("Status = %q, want active", resp.Status)
	}
	if len(resp.Models) != registry.ProviderCount() {
		t.Errorf("len(Models) = %d, want %d", len(resp.Models), registry.ProviderCount())
	}
	if len(resp.Voices) != registry.VoiceCount() {
		t.Errorf("len(Voices) = %d, want %d", len(resp.Voices), registry.VoiceCount())
	}
	if _, ok := resp.Models["claude"]; !ok {
		t.Error("Models missing claude")
	}
}

// ============================================================================
// VOICE
// ============================================================================

func TestVoiceSynthesize(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s.Handler(), "/api/voice/synthesize", SynthesizeRequest{
		Text:    "Blessed love",
		VoiceID: "buju_banton",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SynthesizeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	if resp.Voice.Key != registry.VoiceBujuBanton {
		t.Errorf("Voice.Key = %q", resp.Voice.Key)
	}
	if want := float64(len("Blessed love")) * 0.1; resp.Duration != want {
		t.Errorf("Duration = %v, want %v", resp.Duration, want)
	}
}

func TestVoiceSynthesizeErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    SynthesizeRequest
		wantErr string
	}{
		{"missing_text", SynthesizeRequest{VoiceID: "shensea"}, "Text is required"},
		{"invalid_voice", SynthesizeRequest{Text: "hi", VoiceID: "robot"}, "Invalid voice model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, s.Handler(), "/api/voice/synthesize", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if resp["error"] != tt.wantErr {
				t.Errorf("error = %q, want %q", resp["error"], tt.wantErr)
			}
		})
	}
}

// ============================================================================
// HISTORY
// ============================================================================

func TestHistoryUnknownUser(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s.Handler(), "/api/conversation/history/stranger")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Success bool            `json:"success"`
		History []history.Entry `json:"history"`
		UserID  string          `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	if len(resp.History) != 0 {
		t.Errorf("History = %v, want empty", resp.History)
	}
	if resp.UserID != "stranger" {
		t.Errorf("UserID = %q", resp.UserID)
	}
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s.Handler(), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.ModelsAvailable != registry.ProviderCount() || resp.VoicesAvailable != registry.VoiceCount() {
		t.Errorf("counts = %d/%d", resp.ModelsAvailable, resp.VoicesAvailable)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s.Handler(), "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.TotalRequests != 0 {
		t.Errorf("TotalRequests = %d", resp.TotalRequests)
	}
}

// ============================================================================
// MIDDLEWARE
// ============================================================================

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil, WithAuth(&AuthConfig{Enabled: true, BearerToken: "secret"}))
	handler := s.Handler()

	w := get(t, handler, "/api/models")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, nil, WithRateLimit(3))
	handler := s.Handler()

	var last int
	for i := 0; i < 5; i++ {
		w := get(t, handler, "/health")
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s.Handler(), "/health")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestValidateBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
		want     bool
	}{
		{"match", "abc", "abc", true},
		{"mismatch", "abc", "abd", false},
		{"empty_token", "", "abc", false},
		{"empty_expected", "abc", "", false},
		{"both_empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateBearerToken(tt.token, tt.expected); got != tt.want {
				t.Errorf("ValidateBearerToken(%q, %q) = %v, want %v", tt.token, tt.expected, got, tt.want)
			}
		})
	}
}

func TestGetClientIPUntrustedIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	req.Header.Set("X-Forwarded-For", "10.1.2.3")

	if got := GetClientIP(req); got != "203.0.113.9" {
		t.Errorf("GetClientIP = %q, want 203.0.113.9", got)
	}
}

func TestGetClientIPTrustedProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	if got := GetClientIP(req); got != "198.51.100.7" {
		t.Errorf("GetClientIP = %q, want 198.51.100.7", got)
	}
}

// Operator-configured proxy ranges must take effect: before registration a
// public proxy's forwarded header is ignored, after registration it is
// honored.
func TestGetClientIPConfiguredProxyRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.18.0.5:1234"
	req.Header.Set("X-Forwarded-For", "9.9.9.9")

	if got := GetClientIP(req); got != "198.18.0.5" {
		t.Fatalf("GetClientIP before registration = %q, want 198.18.0.5", got)
	}

	AddTrustedProxies([]string{"198.18.0.0/15"})

	if got := GetClientIP(req); got != "9.9.9.9" {
		t.Errorf("GetClientIP after registration = %q, want 9.9.9.9", got)
	}
}

func TestWithTrustedProxiesOption(t *testing.T) {
	newTestServer(t, nil, WithTrustedProxies([]string{"100.64.0.0/10"}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "100.64.0.9:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.77")

	if got := GetClientIP(req); got != "203.0.113.77" {
		t.Errorf("GetClientIP = %q, want 203.0.113.77", got)
	}
}
