// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.Key = "secret-key"
	cfg.API.Model = "gemini-1.5-pro"
	cfg.Generation.Temperature = 0.7
	cfg.UI.Lang = "ja"
	cfg.Storage.Backend = "sqlite"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.API.Key != "secret-key" {
		t.Errorf("key = %q", loaded.API.Key)
	}
	if loaded.API.Model != "gemini-1.5-pro" {
		t.Errorf("model = %q", loaded.API.Model)
	}
	if loaded.Generation.Temperature != 0.7 {
		t.Errorf("temperature = %g", loaded.Generation.Temperature)
	}
	if loaded.UI.Lang != "ja" {
		t.Errorf("lang = %q", loaded.UI.Lang)
	}
	if loaded.Storage.Backend != "sqlite" {
		t.Errorf("backend = %q", loaded.Storage.Backend)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.API.BaseURL = "https://proxy.example.com"
	cfg.API.ProxyPassword = "pw"

	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.API.BaseURL != "https://proxy.example.com" {
		t.Errorf("base url = %q", loaded.API.BaseURL)
	}
	if loaded.API.ProxyPassword != "pw" {
		t.Errorf("proxy password = %q", loaded.API.ProxyPassword)
	}
}

func TestSavedFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions after load = %o, want 0600", perm)
	}
}

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.API.Model == "" {
		t.Error("model default not applied")
	}
	if cfg.API.TimeoutSecs != 30 {
		t.Errorf("timeout = %d", cfg.API.TimeoutSecs)
	}
	if cfg.UI.Lang != "en" {
		t.Errorf("lang = %q", cfg.UI.Lang)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
}

func TestVoiceParametersClamped(t *testing.T) {
	cfg := Default()
	cfg.Voice.TTSRate = 9.5
	cfg.Voice.TTSPitch = 0.1
	cfg.SetDefaults()

	if cfg.Voice.TTSRate != 2.0 {
		t.Errorf("rate = %g, want clamped 2.0", cfg.Voice.TTSRate)
	}
	if cfg.Voice.TTSPitch != 0.5 {
		t.Errorf("pitch = %g, want clamped 0.5", cfg.Voice.TTSPitch)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Generation.Temperature = 3.5
	cfg.UI.ChatLayout = "spiral"
	cfg.Storage.Backend = "redis"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	errs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("expected ValidateErrors, got %T", err)
	}
	if len(errs) != 3 {
		t.Errorf("got %d errors: %v", len(errs), errs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMCHAT_API_KEY", "env-key")
	t.Setenv("GEMCHAT_MODEL", "gemini-env")
	t.Setenv("GEMCHAT_LANG", "ko")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.Key != "env-key" {
		t.Errorf("key = %q", cfg.API.Key)
	}
	if cfg.API.Model != "gemini-env" {
		t.Errorf("model = %q", cfg.API.Model)
	}
	if cfg.UI.Lang != "ko" {
		t.Errorf("lang = %q", cfg.UI.Lang)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("api.model", "gemini-1.5-flash"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := cfg.Get("api.model")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "gemini-1.5-flash" {
		t.Errorf("got %v", got)
	}

	// String input converted to the field's type.
	if err := cfg.Set("generation.temperature", "0.3"); err != nil {
		t.Fatalf("Set float from string: %v", err)
	}
	if cfg.Generation.Temperature != 0.3 {
		t.Errorf("temperature = %g", cfg.Generation.Temperature)
	}
	if err := cfg.Set("storage.autosave", "false"); err != nil {
		t.Fatalf("Set bool from string: %v", err)
	}
	if cfg.Storage.Autosave {
		t.Error("autosave should be false")
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("api.nothing", "x"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestGetAllKeysResolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("key %q not resolvable: %v", key, err)
		}
	}
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "super-secret"
	cfg.API.ProxyPassword = "also-secret"

	s := cfg.String()
	if strings.Contains(s, "super-secret") || strings.Contains(s, "also-secret") {
		t.Error("secrets leaked into String() output")
	}
	// Redaction must not mutate the original.
	if cfg.API.Key != "super-secret" {
		t.Error("String() mutated the config")
	}
}

func TestStatePathByBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "sqlite"
	p, err := cfg.StatePath()
	if err != nil {
		t.Fatalf("StatePath: %v", err)
	}
	if filepath.Base(p) != "state.db" {
		t.Errorf("sqlite path = %q", p)
	}

	cfg.Storage.Backend = "file"
	p, _ = cfg.StatePath()
	if filepath.Base(p) != "state.json" {
		t.Errorf("file path = %q", p)
	}

	cfg.Storage.Path = "/tmp/custom.json"
	p, _ = cfg.StatePath()
	if p != "/tmp/custom.json" {
		t.Errorf("override path = %q", p)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	var mu sync.Mutex
	var got *Config
	reloaded := make(chan struct{}, 1)

	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	changed := Default()
	changed.API.Model = "gemini-reloaded"
	if err := SaveTOML(changed, path); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire")
	}

	mu.Lock()
	defer mu.Unlock()
	if got.API.Model != "gemini-reloaded" {
		t.Errorf("reloaded model = %q", got.API.Model)
	}
}
