// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Routing.CallTimeoutSecs = -1
	cfg.Routing.DefaultUserID = ""
	cfg.Voice.DefaultVoice = "robot"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}

	errs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("error type %T, want ValidateErrors", err)
	}
	if len(errs) != 4 {
		t.Errorf("got %d errors, want 4: %v", len(errs), errs)
	}

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"server.port", "routing.call_timeout_secs", "routing.default_user_id", "voice.default_voice"} {
		if !fields[want] {
			t.Errorf("missing validation error for %s", want)
		}
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1"

[server]
host = "0.0.0.0"
port = 9000

[routing]
call_timeout_secs = 5
default_user_id = "guest"

[voice]
default_voice = "shensea"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Routing.CallTimeoutSecs != 5 || cfg.Routing.DefaultUserID != "guest" {
		t.Errorf("Routing = %+v", cfg.Routing)
	}
	if cfg.Voice.DefaultVoice != "shensea" {
		t.Errorf("DefaultVoice = %q", cfg.Voice.DefaultVoice)
	}
	// Unset fields fall back to defaults.
	if cfg.Server.ReadTimeoutSecs != Default().Server.ReadTimeoutSecs {
		t.Errorf("ReadTimeoutSecs = %d, want default", cfg.Server.ReadTimeoutSecs)
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server": {"port": 9100}, "voice": {"default_voice": "buju_banton"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Voice.DefaultVoice != "buju_banton" {
		t.Errorf("DefaultVoice = %q", cfg.Voice.DefaultVoice)
	}
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[voice]\ndefault_voice = \"robot\"\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("LoadFromPath with bad voice = nil error")
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Port = 9200
	cfg.Server.AuthToken = "secret"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("config file mode = %o, want 0600", mode)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.Port != 9200 || loaded.Server.AuthToken != "secret" {
		t.Errorf("round trip lost data: %+v", loaded.Server)
	}
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("version = \"1\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("config file mode after load = %o, want 0600", mode)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("IRIE_HOST", "10.0.0.5")
	t.Setenv("IRIE_PORT", "9300")
	t.Setenv("IRIE_AUTH_TOKEN", "tok")
	t.Setenv("IRIE_TELEMETRY", "false")
	t.Setenv("IRIE_DEFAULT_VOICE", "jada_kingdom")
	t.Setenv("IRIE_CALL_TIMEOUT_SECS", "7")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Host != "10.0.0.5" || cfg.Server.Port != 9300 || cfg.Server.AuthToken != "tok" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false")
	}
	if cfg.Voice.DefaultVoice != "jada_kingdom" {
		t.Errorf("DefaultVoice = %q", cfg.Voice.DefaultVoice)
	}
	if cfg.Routing.CallTimeoutSecs != 7 {
		t.Errorf("CallTimeoutSecs = %d, want 7", cfg.Routing.CallTimeoutSecs)
	}
}

func TestApplyEnvOverridesIgnoresBadPort(t *testing.T) {
	t.Setenv("IRIE_PORT", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
}

func TestValidateErrorsMessage(t *testing.T) {
	errs := ValidateErrors{
		{Field: "server.port", Message: "must be 1-65535, got 0"},
		{Field: "voice.default_voice", Message: "unknown voice 'robot'"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "server.port") || !strings.Contains(msg, "voice.default_voice") {
		t.Errorf("Error() = %q", msg)
	}
}

// TestGlobalConcurrentAccess checks Global, SetGlobal, and readers do not
// race. Run with -race.
func TestGlobalConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	SetGlobal(Default())
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
