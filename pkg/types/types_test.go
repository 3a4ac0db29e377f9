// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"not configured", fmt.Errorf("answer: %w", ErrNotConfigured), KindNotConfigured},
		{"timeout", fmt.Errorf("polling op: %w", ErrTimeout), KindTimeout},
		{"not found wins over remote", fmt.Errorf("%w: %w", ErrRemoteRequestFailed, ErrNotFound), KindNotFound},
		{"remote", fmt.Errorf("upload: %w", ErrRemoteRequestFailed), KindRemoteRequest},
		{"malformed", ErrMalformedResponse, KindMalformedResponse},
		{"staging", fmt.Errorf("copy: %w", ErrStagingFailed), KindStaging},
		{"canceled", fmt.Errorf("poll: %w", context.Canceled), KindCanceled},
		{"other", errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{APIKey: "k"}.WithDefaults()

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultMappingFile, cfg.MappingFile)
	assert.Equal(t, DefaultDisplayName, cfg.DisplayName)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 120*time.Second, cfg.PollTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.DeleteDelay)

	custom := Config{Model: "models/other", PollInterval: time.Second}.WithDefaults()
	assert.Equal(t, "models/other", custom.Model)
	assert.Equal(t, time.Second, custom.PollInterval)

	bare := Config{Model: "gemini-2.5-flash"}.WithDefaults()
	assert.Equal(t, "models/gemini-2.5-flash", bare.Model)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{APIKey: "k"}.WithDefaults(), ""},
		{"missing key", Config{}.WithDefaults(), "API key not set"},
		{"negative delay", Config{APIKey: "k", DeleteDelay: -time.Second}, "must not be negative"},
		{"interval above timeout", Config{APIKey: "k", PollInterval: time.Minute, PollTimeout: time.Second}, "exceeds poll_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigYAMLInlineHTTP(t *testing.T) {
	in := `
model: models/gemini-2.5-flash
store_name: fileSearchStores/kb-1
base_url: http://localhost:9999
poll_interval: 2s
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(in), &cfg))
	assert.Equal(t, "models/gemini-2.5-flash", cfg.Model)
	assert.Equal(t, "fileSearchStores/kb-1", cfg.StoreName)
	assert.Equal(t, "http://localhost:9999", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestOperationFailed(t *testing.T) {
	assert.False(t, Operation{Name: "op"}.Failed())
	assert.False(t, Operation{Name: "op", Done: true}.Failed())
	assert.True(t, Operation{Name: "op", Done: true, Error: &Status{Code: 13, Message: "internal"}}.Failed())
}
