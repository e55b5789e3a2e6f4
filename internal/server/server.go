// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP API for the irie gateway.
//
// Endpoints:
//   - POST /api/chat                            - Route a query and answer it
//   - GET  /api/models                          - List providers and voices
//   - POST /api/voice/synthesize                - Stubbed speech synthesis
//   - GET  /api/conversation/history/{user_id}  - Per-user exchange history
//   - GET  /health                              - Health check
//   - GET  /stats                               - Request-log statistics
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rootsline/irie/internal/orchestrator"
	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/router"
	"github.com/rootsline/irie/internal/voice"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8764

	// MaxQueryLength caps a single message to prevent abuse.
	MaxQueryLength = 100000

	// MaxRequestBodySize caps the request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP API server over the routing engine.
type Server struct {
	host   string
	port   int
	mux    *http.ServeMux
	server *http.Server

	engine *orchestrator.Engine
	auth   *AuthConfig
	cors   *CORSConfig

	rateLimit     int
	defaultUserID string
	readTimeout   time.Duration
	writeTimeout  time.Duration

	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(host string, port int) Option {
	return func(s *Server) {
		if host != "" {
			s.host = host
		}
		if port != 0 {
			s.port = port
		}
	}
}

// WithAuth enables bearer-token authentication.
func WithAuth(config *AuthConfig) Option {
	return func(s *Server) { s.auth = config }
}

// WithCORS enables CORS for the given origins.
func WithCORS(config *CORSConfig) Option {
	return func(s *Server) { s.cors = config }
}

// WithRateLimit sets the per-IP requests-per-minute cap (0 = unlimited).
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit = perMinute }
}

// WithDefaultUserID sets the user id used when a request names none.
func WithDefaultUserID(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.defaultUserID = id
		}
	}
}

// WithTimeouts sets the per-exchange read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithTrustedProxies registers extra CIDR ranges whose X-Forwarded-For and
// X-Real-IP headers are honored for client IP resolution.
func WithTrustedProxies(cidrs []string) Option {
	return func(s *Server) {
		if len(cidrs) > 0 {
			AddTrustedProxies(cidrs)
		}
	}
}

// NewServer creates a Server over engine.
func NewServer(engine *orchestrator.Engine, opts ...Option) *Server {
	s := &Server{
		host:          "127.0.0.1",
		port:          DefaultPort,
		mux:           http.NewServeMux(),
		engine:        engine,
		auth:          DefaultAuthConfig(),
		rateLimit:     120,
		defaultUserID: "anonymous",
		readTimeout:   30 * time.Second,
		writeTimeout:  60 * time.Second,
		startTime:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("POST /api/voice/synthesize", s.handleVoiceSynthesize)
	s.mux.HandleFunc("GET /api/conversation/history/{user_id}", s.handleHistory)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the full handler with the middleware chain applied.
// Exposed for tests.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
	}
	if s.rateLimit > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(NewRateLimiter(s.rateLimit, time.Minute)))
	}
	if s.cors != nil {
		middlewares = append(middlewares, CORSMiddleware(s.cors))
	}

	handler := Chain(middlewares...)(s.mux)
	if s.auth != nil && s.auth.Enabled {
		handler = AuthMiddleware(s.auth)(handler)
	}
	return handler
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// ChatRequest is the POST /api/chat request body.
type ChatRequest struct {
	Message string            `json:"message"`
	UserID  string            `json:"user_id,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// ChatResponse is the POST /api/chat response body.
type ChatResponse struct {
	Success   bool                  `json:"success"`
	Response  orchestrator.Envelope `json:"response"`
	Timestamp float64               `json:"timestamp"`
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Invalid request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if len(req.Message) > MaxQueryLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Message exceeds maximum length of %d", MaxQueryLength))
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = s.defaultUserID
	}

	env := s.engine.RouteQuery(r.Context(), req.Message, router.Context(req.Context), userID)

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Success:   true,
		Response:  env,
		Timestamp: unixNow(),
	})
}

// ============================================================================
// MODELS HANDLER
// ============================================================================

// ModelsResponse is the GET /api/models response body.
type ModelsResponse struct {
	Models map[string]registry.Provider `json:"models"`
	Voices map[string]registry.Voice    `json:"voices"`
	Status string                       `json:"status"`
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ModelsResponse{
		Models: registry.Providers(),
		Voices: registry.Voices(),
		Status: "active",
	})
}

// ============================================================================
// VOICE HANDLER
// ============================================================================

// SynthesizeRequest is the POST /api/voice/synthesize request body.
type SynthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// SynthesizeResponse is the POST /api/voice/synthesize response body.
type SynthesizeResponse struct {
	Success  bool           `json:"success"`
	AudioURL string         `json:"audio_url"`
	Voice    registry.Voice `json:"voice_model"`
	Duration float64        `json:"duration"`
	Text     string         `json:"text"`
}

// handleVoiceSynthesize handles POST /api/voice/synthesize.
func (s *Server) handleVoiceSynthesize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Invalid request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	syn, err := voice.Synthesize(req.Text, registry.VoiceKey(req.VoiceID))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid voice model")
		return
	}

	s.writeJSON(w, http.StatusOK, SynthesizeResponse{
		Success:  true,
		AudioURL: syn.AudioURL,
		Voice:    syn.Voice,
		Duration: syn.Duration,
		Text:     syn.Text,
	})
}

// ============================================================================
// HISTORY HANDLER
// ============================================================================

// handleHistory handles GET /api/conversation/history/{user_id}.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": s.engine.History(userID),
		"user_id": userID,
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse is the GET /health response body.
type HealthResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	ModelsAvailable int     `json:"models_available"`
	VoicesAvailable int     `json:"voices_available"`
	Timestamp       float64 `json:"timestamp"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Version:         Version,
		ModelsAvailable: registry.ProviderCount(),
		VoicesAvailable: registry.VoiceCount(),
		Timestamp:       unixNow(),
	})
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// StatsResponse is the GET /stats response body.
type StatsResponse struct {
	TotalRequests int            `json:"total_requests"`
	Fallbacks     int            `json:"fallbacks"`
	ByProvider    map[string]int `json:"by_provider"`
	AvgConfidence float64        `json:"avg_confidence"`
	UptimeSeconds int64          `json:"uptime_seconds"`
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		log.Printf("STATS_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "Statistics unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests: stats.TotalRequests,
		Fallbacks:     stats.Fallbacks,
		ByProvider:    stats.ByProvider,
		AvgConfidence: stats.AvgConfidence,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server. Blocks until the server exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", s.Addr(), Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// unixNow returns the current time as fractional Unix seconds.
func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
