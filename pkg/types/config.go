// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultModel        = "models/gemini-2.5-pro"
	DefaultMappingFile  = "file_mappings.json"
	DefaultDisplayName  = "wikipedia-knowledge-base"
	DefaultBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultUserAgent    = "rag-filesearch/0.1"
	DefaultJournalPath  = ".rag-filesearch/journal.db"
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 120 * time.Second
	DefaultDeleteDelay  = 500 * time.Millisecond
	DefaultHTTPTimeout  = 120 * time.Second
	DefaultTemperature  = 0.7
)

// HTTPConfig holds shared HTTP settings for calls to the remote service.
type HTTPConfig struct {
	// BaseURL is the API root (scheme and host, no version path).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses (0 = default).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// Config is the explicit configuration passed to every constructor.
type Config struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey authenticates against the remote service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the generation model resource name.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// StoreName is the persisted store reference; empty means unresolved.
	StoreName string `json:"store_name,omitempty" yaml:"store_name,omitempty" mapstructure:"store_name"`

	// MappingFile is the path of the local mapping ledger.
	MappingFile string `json:"mapping_file" yaml:"mapping_file" mapstructure:"mapping_file"`

	// JournalPath is the SQLite ingest journal; empty disables it.
	JournalPath string `json:"journal_path" yaml:"journal_path" mapstructure:"journal_path"`

	// PollInterval is the fixed wait between operation status checks.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// PollTimeout is the total polling budget per upload.
	PollTimeout time.Duration `json:"poll_timeout" yaml:"poll_timeout" mapstructure:"poll_timeout"`

	// DisplayName is used when a new store is created.
	DisplayName string `json:"display_name" yaml:"display_name" mapstructure:"display_name"`

	// DeleteDelay is the pause between document deletions in a cascade.
	DeleteDelay time.Duration `json:"delete_delay" yaml:"delete_delay" mapstructure:"delete_delay"`
}

// WithDefaults returns a copy of c with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if !strings.HasPrefix(c.Model, "models/") {
		c.Model = "models/" + c.Model
	}
	if c.MappingFile == "" {
		c.MappingFile = DefaultMappingFile
	}
	if c.DisplayName == "" {
		c.DisplayName = DefaultDisplayName
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultHTTPTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.DeleteDelay == 0 {
		c.DeleteDelay = DefaultDeleteDelay
	}
	return c
}

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("API key not set (GOOGLE_API_KEY)")

// Validate reports configuration that makes every remote call fail.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.PollInterval < 0 || c.PollTimeout < 0 || c.DeleteDelay < 0 {
		return fmt.Errorf("durations must not be negative (poll_interval=%v poll_timeout=%v delete_delay=%v)",
			c.PollInterval, c.PollTimeout, c.DeleteDelay)
	}
	if c.PollTimeout > 0 && c.PollInterval > c.PollTimeout {
		return fmt.Errorf("poll_interval %v exceeds poll_timeout %v", c.PollInterval, c.PollTimeout)
	}
	return nil
}
