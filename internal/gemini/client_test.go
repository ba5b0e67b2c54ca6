// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListModels(t *testing.T) {
	var gotKey, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotKey = r.Header.Get("x-goog-api-key")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-2.0-flash","displayName":"Gemini 2.0 Flash"},
			{"name":"models/gemini-1.5-pro","displayName":"Gemini 1.5 Pro"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL, Password: "hunter2"})
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "models/gemini-2.0-flash" {
		t.Errorf("unexpected first model %q", models[0].Name)
	}
	if gotKey != "test-key" {
		t.Errorf("API key header = %q", gotKey)
	}
	if gotAuth != "Bearer hunter2" {
		t.Errorf("proxy password header = %q", gotAuth)
	}
}

func TestListModelsNotConfigured(t *testing.T) {
	client := NewClient(ClientConfig{})
	_, err := client.ListModels(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		errType  ErrorType
	}{
		{"auth 401", http.StatusUnauthorized, `{"error":{"code":401,"message":"API key not valid"}}`, ErrAuthFailed, ErrTypeAuth},
		{"auth 403", http.StatusForbidden, `{}`, ErrAuthFailed, ErrTypeAuth},
		{"model not found", http.StatusNotFound, `{"error":{"message":"model not found"}}`, ErrModelNotFound, ErrTypeModelNotFound},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited, ErrTypeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: 1})
			_, err := client.ListModels(context.Background())
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected sentinel for status %d, got %v", tt.status, err)
			}
			var cerr *ClientError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *ClientError, got %T", err)
			}
			if cerr.Type != tt.errType {
				t.Errorf("error type = %d, want %d", cerr.Type, tt.errType)
			}
		})
	}
}

func TestErrorMessagePropagated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "bad", BaseURL: server.URL})
	_, err := client.ListModels(context.Background())
	var cerr *ClientError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ClientError, got %v", err)
	}
	if cerr.Message != "API key not valid" {
		t.Errorf("message = %q", cerr.Message)
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(context.Canceled) {
		t.Error("context.Canceled should not be retryable")
	}
	if !isRetryable(&ClientError{Type: ErrTypeRateLimited, Cause: ErrRateLimited}) {
		t.Error("rate limiting should be retryable")
	}
	if !isRetryable(&ClientError{Type: ErrTypeConnection}) {
		t.Error("connection errors should be retryable")
	}
	if isRetryable(&ClientError{Type: ErrTypeAuth, Cause: ErrAuthFailed}) {
		t.Error("auth errors should not be retryable")
	}
}

func TestBackoffCapped(t *testing.T) {
	if backoff(0) != retryBaseDelay {
		t.Errorf("backoff(0) = %v", backoff(0))
	}
	if backoff(1) != 2*retryBaseDelay {
		t.Errorf("backoff(1) = %v", backoff(1))
	}
	if backoff(20) != retryMaxDelay {
		t.Errorf("backoff(20) = %v, want cap %v", backoff(20), retryMaxDelay)
	}
}

func TestDefaultsApplied(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "k"})
	if client.config.BaseURL != DefaultBaseURL {
		t.Errorf("base URL = %q", client.config.BaseURL)
	}
	if client.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v", client.config.Timeout)
	}
	if client.config.MaxRetries != DefaultMaxRetries {
		t.Errorf("retries = %d", client.config.MaxRetries)
	}
	if client.limiter != nil {
		t.Error("limiter should be nil when RequestsPerMinute is zero")
	}
}
