// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/rag-filesearch/internal/secrets"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

func setConfigDefaults() {
	viper.SetDefault("base_url", types.DefaultBaseURL)
	viper.SetDefault("timeout", types.DefaultHTTPTimeout)
	viper.SetDefault("user_agent", types.DefaultUserAgent)
	viper.SetDefault("max_retries", 0)
	viper.SetDefault("api_key", "")
	viper.SetDefault("model", types.DefaultModel)
	viper.SetDefault("store_name", "")
	viper.SetDefault("mapping_file", types.DefaultMappingFile)
	viper.SetDefault("journal_path", types.DefaultJournalPath)
	viper.SetDefault("poll_interval", types.DefaultPollInterval)
	viper.SetDefault("poll_timeout", types.DefaultPollTimeout)
	viper.SetDefault("display_name", types.DefaultDisplayName)
	viper.SetDefault("delete_delay", types.DefaultDeleteDelay)
}

// bindConfigSources maps the environment names the tool has always used,
// and the global flags, onto config keys.
func bindConfigSources() {
	viper.BindEnv("api_key", "RAG_FILESEARCH_API_KEY", "GOOGLE_API_KEY")
	viper.BindEnv("model", "RAG_FILESEARCH_MODEL", "GEMINI_MODEL")
	viper.BindEnv("store_name", "RAG_FILESEARCH_STORE_NAME", "STORE_NAME")

	pf := rootCmd.PersistentFlags()
	viper.BindPFlag("store_name", pf.Lookup("store"))
	viper.BindPFlag("model", pf.Lookup("model"))
	viper.BindPFlag("mapping_file", pf.Lookup("mapping-file"))
	viper.BindPFlag("journal_path", pf.Lookup("journal"))
}

// loadConfig assembles the configuration. The secrets directory is the
// last source consulted for the API key.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = loadedSecrets[secrets.APIKeyFile]
	}
	return cfg.WithDefaults(), nil
}

// requireConfig is loadConfig plus validation, for commands that call the
// remote service.
func requireConfig() (types.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return types.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}
