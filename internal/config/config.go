// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for gemchat.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.gemchat/config.toml
//   - ~/.gemchat/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/gemchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gemchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API configuration
	API APIConfig `toml:"api" json:"api"`

	// Generation parameters
	Generation GenerationConfig `toml:"generation" json:"generation"`

	// Voice options. Stored and editable but not acted on by the shell;
	// kept so the config file round-trips with clients that do speech.
	Voice VoiceConfig `toml:"voice" json:"voice"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// APIConfig contains Gemini API connection settings.
type APIConfig struct {
	// Key is the Gemini API key.
	Key string `toml:"key" json:"key"`
	// BaseURL overrides the Google endpoint; set it to route through an
	// API proxy.
	BaseURL string `toml:"base_url" json:"base_url"`
	// ProxyPassword is the access password expected by an API proxy.
	ProxyPassword string `toml:"proxy_password" json:"proxy_password"`
	// Model is the default model for chat and summarization.
	Model string `toml:"model" json:"model"`
	// TimeoutSecs is the timeout for non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries bounds retries on transient failures.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RequestsPerMinute limits outbound request rate client-side.
	// Zero disables the limiter.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// GenerationConfig contains model generation parameters.
type GenerationConfig struct {
	// Temperature in [0, 2]. Clamped on load.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TopP in [0, 1]. Clamped on load.
	TopP float64 `toml:"top_p" json:"top_p"`
	// TopK sampling cutoff; zero means provider default.
	TopK int `toml:"top_k" json:"top_k"`
	// MaxOutputTokens caps response length; zero means provider default.
	MaxOutputTokens int `toml:"max_output_tokens" json:"max_output_tokens"`
}

// VoiceConfig contains text-to-speech and speech-recognition options.
type VoiceConfig struct {
	// TTSVoice is the preferred synthesis voice name.
	TTSVoice string `toml:"tts_voice" json:"tts_voice"`
	// TTSRate is the speech rate multiplier, [0.5, 2.0].
	TTSRate float64 `toml:"tts_rate" json:"tts_rate"`
	// TTSPitch is the speech pitch multiplier, [0.5, 2.0].
	TTSPitch float64 `toml:"tts_pitch" json:"tts_pitch"`
	// STTLang is the BCP-47 recognition language tag.
	STTLang string `toml:"stt_lang" json:"stt_lang"`
}

// UIConfig contains presentation configuration.
type UIConfig struct {
	// Lang is the BCP-47 UI language tag; generated titles are requested
	// in this language.
	Lang string `toml:"lang" json:"lang"`
	// ChatLayout is the default display mode for new conversations:
	// "chat" or "doc".
	ChatLayout string `toml:"chat_layout" json:"chat_layout"`
	// TitlePreviewLen is the title column width in the conversation table.
	TitlePreviewLen int `toml:"title_preview_len" json:"title_preview_len"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// Backend selects the persistence backend: "file" or "sqlite".
	Backend string `toml:"backend" json:"backend"`
	// Path overrides the state file/database location (empty = default
	// under ~/.gemchat).
	Path string `toml:"path" json:"path"`
	// Autosave persists after every mutating command when true.
	Autosave bool `toml:"autosave" json:"autosave"`
	// AutosaveIntervalSecs additionally saves on a timer; zero disables
	// the timer.
	AutosaveIntervalSecs int `toml:"autosave_interval_secs" json:"autosave_interval_secs"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			Key:               "",
			BaseURL:           "",
			Model:             "gemini-2.0-flash",
			TimeoutSecs:       30,
			MaxRetries:        3,
			RequestsPerMinute: 0,
		},

		Generation: GenerationConfig{
			Temperature:     1.0,
			TopP:            0.95,
			TopK:            0,
			MaxOutputTokens: 0,
		},

		Voice: VoiceConfig{
			TTSVoice: "",
			TTSRate:  1.0,
			TTSPitch: 1.0,
			STTLang:  "en-US",
		},

		UI: UIConfig{
			Lang:            "en",
			ChatLayout:      "chat",
			TitlePreviewLen: 40,
		},

		Storage: StorageConfig{
			Backend:              "file",
			Path:                 "",
			Autosave:             true,
			AutosaveIntervalSecs: 0,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gemchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gemchat"), nil
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

// StatePath returns the persistence location for the given backend
// kind, honoring an explicit override.
func (c *Config) StatePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == "sqlite" {
		return filepath.Join(dir, "state.db"), nil
	}
	return filepath.Join(dir, "state.json"), nil
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
// Config files hold the API key, so anything wider than 0600 is fixed.
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
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON is detected by extension; everything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := loadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := loadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
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

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Permissions must be correct even when the file already existed.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# gemchat configuration file")
	fmt.Fprintln(file, "# Generated by gemchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file, written atomically
// with 0600 permissions.
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

	if c.API.BaseURL != "" {
		if _, err := url.Parse(c.API.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.API.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_minute",
			Message: "must be non-negative",
		})
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Generation.Temperature),
		})
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "generation.top_p",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.Generation.TopP),
		})
	}
	if c.Generation.TopK < 0 {
		errs = append(errs, ValidationError{
			Field:   "generation.top_k",
			Message: "must be non-negative",
		})
	}
	if c.Generation.MaxOutputTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "generation.max_output_tokens",
			Message: "must be non-negative",
		})
	}

	validLayouts := map[string]bool{"chat": true, "doc": true}
	if !validLayouts[strings.ToLower(c.UI.ChatLayout)] {
		errs = append(errs, ValidationError{
			Field:   "ui.chat_layout",
			Message: fmt.Sprintf("invalid layout '%s', must be one of: chat, doc", c.UI.ChatLayout),
		})
	}

	validBackends := map[string]bool{"file": true, "sqlite": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend),
		})
	}
	if c.Storage.AutosaveIntervalSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.autosave_interval_secs",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields
// and clamps out-of-range voice parameters rather than rejecting them.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.API.Model == "" {
		c.API.Model = defaults.API.Model
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = defaults.API.MaxRetries
	}

	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = defaults.Generation.Temperature
	}
	if c.Generation.TopP == 0 {
		c.Generation.TopP = defaults.Generation.TopP
	}

	// Voice rate/pitch are clamped, not rejected: a slightly off value
	// from a hand-edited file should not block startup.
	if c.Voice.TTSRate == 0 {
		c.Voice.TTSRate = defaults.Voice.TTSRate
	}
	c.Voice.TTSRate = clamp(c.Voice.TTSRate, 0.5, 2.0)
	if c.Voice.TTSPitch == 0 {
		c.Voice.TTSPitch = defaults.Voice.TTSPitch
	}
	c.Voice.TTSPitch = clamp(c.Voice.TTSPitch, 0.5, 2.0)
	if c.Voice.STTLang == "" {
		c.Voice.STTLang = defaults.Voice.STTLang
	}

	if c.UI.Lang == "" {
		c.UI.Lang = defaults.UI.Lang
	}
	if c.UI.ChatLayout == "" {
		c.UI.ChatLayout = defaults.UI.ChatLayout
	}
	if c.UI.TitlePreviewLen == 0 {
		c.UI.TitlePreviewLen = defaults.UI.TitlePreviewLen
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GEMCHAT_API_KEY: overrides api.key
//   - GEMCHAT_BASE_URL: overrides api.base_url
//   - GEMCHAT_PROXY_PASSWORD: overrides api.proxy_password
//   - GEMCHAT_MODEL: overrides api.model
//   - GEMCHAT_LANG: overrides ui.lang
//   - GEMCHAT_STORAGE: overrides storage.backend
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMCHAT_API_KEY"); key != "" {
		c.API.Key = key
	}
	if base := os.Getenv("GEMCHAT_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if pw := os.Getenv("GEMCHAT_PROXY_PASSWORD"); pw != "" {
		c.API.ProxyPassword = pw
	}
	if model := os.Getenv("GEMCHAT_MODEL"); model != "" {
		c.API.Model = model
	}
	if lang := os.Getenv("GEMCHAT_LANG"); lang != "" {
		c.UI.Lang = lang
	}
	if backend := os.Getenv("GEMCHAT_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g.
// "api.model").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g. "api.model").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}
	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with
// string type conversion, so "settings set" can pass raw user input.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.EqualFold(strVal, "true") || strings.EqualFold(strVal, "yes")
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.key",
		"api.base_url",
		"api.proxy_password",
		"api.model",
		"api.timeout_secs",
		"api.max_retries",
		"api.requests_per_minute",
		"generation.temperature",
		"generation.top_p",
		"generation.top_k",
		"generation.max_output_tokens",
		"voice.tts_voice",
		"voice.tts_rate",
		"voice.tts_pitch",
		"voice.stt_lang",
		"ui.lang",
		"ui.chat_layout",
		"ui.title_preview_len",
		"storage.backend",
		"storage.path",
		"storage.autosave",
		"storage.autosave_interval_secs",
	}
}

// Clone creates a copy of the configuration. All fields are value
// types, so a struct copy is a full copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a representation of the config for display. The API
// key and proxy password are redacted so they never land in logs or
// terminal scrollback.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Key != "" {
		safe.API.Key = "[REDACTED]"
	}
	if safe.API.ProxyPassword != "" {
		safe.API.ProxyPassword = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
