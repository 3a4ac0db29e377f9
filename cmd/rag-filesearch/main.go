// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rag-filesearch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/rag-filesearch/internal/logging"
	"github.com/pdiddy/rag-filesearch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds values loaded from the secrets directory at startup.
	loadedSecrets map[string]string

	// logger is built in PersistentPreRunE from --verbose.
	logger = zap.NewNop()
)

// rootCmd is the base command for the rag-filesearch CLI.
var rootCmd = &cobra.Command{
	Use:   "rag-filesearch",
	Short: "Ask questions about your documents using Gemini File Search",
	Long: `rag-filesearch uploads a directory of documents into a Gemini File Search
store and answers questions against it, citing the documents it used.

Filenames may contain any Unicode. Each document is uploaded under an ASCII
identifier derived from its title; file_mappings.json records which
identifier belongs to which original file.

Configuration comes from flags, environment variables (GOOGLE_API_KEY,
GEMINI_MODEL, STORE_NAME, or RAG_FILESEARCH_*), a .env file,
rag-filesearch.yaml, and .secrets/google-api-key, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := logging.New(verbose)
		if err != nil {
			return err
		}
		logger = l

		envFile, _ := cmd.Flags().GetString("env-file")
		env, err := secrets.LoadEnvFile(envFile)
		if err != nil {
			return err
		}
		applied, err := secrets.ApplyEnv(env)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			logger.Debug("loaded environment file", zap.String("path", envFile), zap.Strings("keys", applied))
		}

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./rag-filesearch.yaml or ~/.config/rag-filesearch/config.yaml)")
	pf.String("env-file", ".env", "dotenv file to load before reading the environment")
	pf.String("secrets-dir", ".secrets", "directory of secret files (google-api-key)")
	pf.String("store", "", "File Search store name (overrides STORE_NAME)")
	pf.String("model", "", "generation model (overrides GEMINI_MODEL)")
	pf.String("mapping-file", "", "mapping file path (default file_mappings.json)")
	pf.String("journal", "", "ingest journal database (default .rag-filesearch/journal.db)")
	pf.BoolP("verbose", "v", false, "debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rag-filesearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rag-filesearch"))
		}
	}

	viper.SetEnvPrefix("RAG_FILESEARCH")
	viper.AutomaticEnv()
	setConfigDefaults()
	bindConfigSources()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
