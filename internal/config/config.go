// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for irie.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.irie/config.toml
//   - ~/.irie/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/rootsline/irie/internal/registry"
	"github.com/rootsline/irie/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete irie configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Routing configuration
	Routing RoutingConfig `toml:"routing" json:"routing"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// Voice configuration
	Voice VoiceConfig `toml:"voice" json:"voice"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the listen address. Default binds loopback only.
	Host string `toml:"host" json:"host"`
	// Port is the listen port.
	Port int `toml:"port" json:"port"`
	// AuthToken, when set, requires a Bearer token on every /api route.
	AuthToken string `toml:"auth_token" json:"auth_token"`
	// RateLimitPerMinute caps requests per client IP (0 = unlimited).
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	// CORSOrigins lists allowed CORS origins (empty = CORS disabled).
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored.
	TrustedProxies []string `toml:"trusted_proxies" json:"trusted_proxies"`
	// ReadTimeoutSecs / WriteTimeoutSecs bound one HTTP exchange.
	ReadTimeoutSecs  int `toml:"read_timeout_secs" json:"read_timeout_secs"`
	WriteTimeoutSecs int `toml:"write_timeout_secs" json:"write_timeout_secs"`
	// ShutdownTimeoutSecs bounds graceful drain on exit.
	ShutdownTimeoutSecs int `toml:"shutdown_timeout_secs" json:"shutdown_timeout_secs"`
}

// RoutingConfig contains query routing configuration.
type RoutingConfig struct {
	// CallTimeoutSecs bounds a single upstream provider call.
	CallTimeoutSecs int `toml:"call_timeout_secs" json:"call_timeout_secs"`
	// DefaultUserID is used when a chat request names no user.
	DefaultUserID string `toml:"default_user_id" json:"default_user_id"`
}

// TelemetryConfig contains request-log configuration.
type TelemetryConfig struct {
	// Enabled toggles the SQLite request log.
	Enabled bool `toml:"enabled" json:"enabled"`
	// DatabasePath is where the request log lives (empty = ~/.irie/requests.db).
	DatabasePath string `toml:"database_path" json:"database_path"`
}

// VoiceConfig contains speech-synthesis configuration.
type VoiceConfig struct {
	// DefaultVoice is the persona used when a synthesis request names none.
	DefaultVoice string `toml:"default_voice" json:"default_voice"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Host:                "127.0.0.1",
			Port:                8764,
			RateLimitPerMinute:  120,
			ReadTimeoutSecs:     30,
			WriteTimeoutSecs:    60,
			ShutdownTimeoutSecs: 10,
		},
		Routing: RoutingConfig{
			CallTimeoutSecs: 30,
			DefaultUserID:   "anonymous",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Voice: VoiceConfig{
			DefaultVoice: "damien_marley",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the irie configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".irie"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultTelemetryPath returns the default request-log location.
func DefaultTelemetryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "requests.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect the auth token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies env overrides, defaults, and validation to a loaded config.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = defaults.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = defaults.Server.WriteTimeoutSecs
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = defaults.Server.ShutdownTimeoutSecs
	}

	if cfg.Routing.CallTimeoutSecs == 0 {
		cfg.Routing.CallTimeoutSecs = defaults.Routing.CallTimeoutSecs
	}
	if cfg.Routing.DefaultUserID == "" {
		cfg.Routing.DefaultUserID = defaults.Routing.DefaultUserID
	}

	if cfg.Voice.DefaultVoice == "" {
		cfg.Voice.DefaultVoice = defaults.Voice.DefaultVoice
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# irie configuration file")
	fmt.Fprintln(file, "# Generated by irie - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be 1-65535, got %d", c.Server.Port),
		})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_minute",
			Message: "cannot be negative",
		})
	}
	if c.Server.ReadTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.read_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Server.ReadTimeoutSecs),
		})
	}
	if c.Server.WriteTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.write_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Server.WriteTimeoutSecs),
		})
	}

	if c.Routing.CallTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "routing.call_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Routing.CallTimeoutSecs),
		})
	}
	if c.Routing.DefaultUserID == "" {
		errs = append(errs, ValidationError{
			Field:   "routing.default_user_id",
			Message: "cannot be empty",
		})
	}

	if !registry.VoiceKey(c.Voice.DefaultVoice).IsValid() {
		errs = append(errs, ValidationError{
			Field:   "voice.default_voice",
			Message: fmt.Sprintf("unknown voice '%s'", c.Voice.DefaultVoice),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - IRIE_HOST: overrides server.host
//   - IRIE_PORT: overrides server.port
//   - IRIE_AUTH_TOKEN: overrides server.auth_token
//   - IRIE_TELEMETRY: enables/disables the request log
//   - IRIE_TELEMETRY_DB: overrides telemetry.database_path
//   - IRIE_DEFAULT_VOICE: overrides voice.default_voice
//   - IRIE_CALL_TIMEOUT_SECS: overrides routing.call_timeout_secs
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("IRIE_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("IRIE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if token := os.Getenv("IRIE_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}
	if tel := os.Getenv("IRIE_TELEMETRY"); tel != "" {
		c.Telemetry.Enabled = tel == "1" || strings.EqualFold(tel, "true")
	}
	if db := os.Getenv("IRIE_TELEMETRY_DB"); db != "" {
		c.Telemetry.DatabasePath = db
	}
	if voice := os.Getenv("IRIE_DEFAULT_VOICE"); voice != "" {
		c.Voice.DefaultVoice = voice
	}
	if secs := os.Getenv("IRIE_CALL_TIMEOUT_SECS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			c.Routing.CallTimeoutSecs = s
		}
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
