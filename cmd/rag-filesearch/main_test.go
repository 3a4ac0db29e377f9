// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rag-filesearch/internal/confirm"
	"github.com/pdiddy/rag-filesearch/internal/gemini/geminitest"
	"github.com/pdiddy/rag-filesearch/internal/mapping"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// env describes an isolated CLI run: a temp working area and a fake API.
type env struct {
	dir         string
	srv         *geminitest.Server
	mappingFile string
	journal     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	srv := geminitest.NewServer(t)
	srv.APIKey = "test-key"

	for _, k := range []string{"GOOGLE_API_KEY", "GEMINI_MODEL", "STORE_NAME"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("RAG_FILESEARCH_BASE_URL", srv.URL)
	t.Setenv("RAG_FILESEARCH_POLL_INTERVAL", "1ms")
	t.Setenv("RAG_FILESEARCH_POLL_TIMEOUT", "2s")
	t.Setenv("RAG_FILESEARCH_DELETE_DELAY", "1ms")

	return &env{
		dir:         dir,
		srv:         srv,
		mappingFile: filepath.Join(dir, "file_mappings.json"),
		journal:     filepath.Join(dir, "journal.db"),
	}
}

// run executes the CLI with args plus flags isolating it from the working
// directory, and returns combined stdout and the error.
func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetCommandState(rootCmd)

	full := append([]string{}, args...)
	full = append(full,
		"--env-file", filepath.Join(e.dir, ".env"),
		"--secrets-dir", filepath.Join(e.dir, ".secrets"),
		"--mapping-file", e.mappingFile,
		"--journal", e.journal,
	)

	var out bytes.Buffer
	rootCmd.SetArgs(full)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetCommandState(cmd *cobra.Command) {
	viper.Reset()
	loadedSecrets = nil
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(cmd)
}

func writeDataDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("# "+n+"\n"), 0o644))
	}
	return dir
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rag-filesearch dev")
}

func TestMissingAPIKey(t *testing.T) {
	e := newEnv(t)
	os.Unsetenv("GOOGLE_API_KEY")

	_, err := e.run(t, "", "query", "hello")
	assert.ErrorIs(t, err, types.ErrMissingAPIKey)
}

func TestAPIKeyFromSecretsDir(t *testing.T) {
	e := newEnv(t)
	os.Unsetenv("GOOGLE_API_KEY")
	require.NoError(t, os.MkdirAll(filepath.Join(e.dir, ".secrets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, ".secrets", "google-api-key"), []byte("test-key\n"), 0o600))
	store := e.srv.AddStore("kb")
	t.Setenv("STORE_NAME", store)

	out, err := e.run(t, "", "query", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestStoreNameFromEnvFile(t *testing.T) {
	e := newEnv(t)
	store := e.srv.AddStore("kb")
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, ".env"), []byte("STORE_NAME="+store+"\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("STORE_NAME") })

	out, err := e.run(t, "", "store", "info")
	require.NoError(t, err)
	assert.Contains(t, out, store)
	assert.Contains(t, out, "active")
}

func TestIngestCreatesStoreAndSavesMapping(t *testing.T) {
	e := newEnv(t)
	data := writeDataDir(t, "Go.md", "機械学習.md", "notes.txt")

	out, err := e.run(t, "", "ingest", "--data-dir", data)
	require.NoError(t, err)
	assert.Contains(t, out, "STORE_NAME=fileSearchStores/")
	assert.Contains(t, out, "Ingest summary: 2 uploaded, 0 skipped, 0 failed (total: 2)")

	m, err := mapping.Load(e.mappingFile)
	require.NoError(t, err)
	assert.Len(t, m, 2)

	stores := e.srv.SortedStoreNames()
	require.Len(t, stores, 1)
	assert.Len(t, e.srv.Documents(stores[0]), 2)

	hist, err := e.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, hist, "機械学習")
	assert.Contains(t, hist, "uploaded")
}

func TestIngestReportsFailures(t *testing.T) {
	e := newEnv(t)
	e.srv.FailUpload = map[string]int{"bad": http.StatusBadRequest}
	store := e.srv.AddStore("kb")
	t.Setenv("STORE_NAME", store)
	data := writeDataDir(t, "bad.md", "good.md")

	out, err := e.run(t, "", "ingest", "--data-dir", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 file(s) failed")
	assert.Contains(t, out, "failed:    bad.md")

	m, err := mapping.Load(e.mappingFile)
	require.NoError(t, err)
	assert.Len(t, m, 1)
}

func TestIngestResetNeedsConfirmation(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, mapping.Save(e.mappingFile, types.Mapping{"wiki_x.md": {Title: "x"}}))
	data := writeDataDir(t, "a.md")

	_, err := e.run(t, "", "ingest", "--data-dir", data, "--reset")
	assert.ErrorIs(t, err, types.ErrConfirmationRequired)
	assert.Empty(t, e.srv.Calls())
}

func TestMappingResetKeepsRemote(t *testing.T) {
	e := newEnv(t)
	store := e.srv.AddStore("kb", "doc")
	t.Setenv("STORE_NAME", store)
	require.NoError(t, mapping.Save(e.mappingFile, types.Mapping{"wiki_x.md": {Title: "x"}}))

	_, err := e.run(t, "", "mapping", "reset")
	assert.ErrorIs(t, err, types.ErrConfirmationRequired)
	_, statErr := os.Stat(e.mappingFile)
	require.NoError(t, statErr)

	out, err := e.run(t, "", "mapping", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "still in the remote store")
	_, statErr = os.Stat(e.mappingFile)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, e.srv.Calls())
	assert.True(t, e.srv.HasStore(store))
}

func TestMappingListAndExport(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, mapping.Save(e.mappingFile, types.Mapping{
		"wiki_0123456789abcdef.md": {OriginalFilename: "機械学習.md", Title: "機械学習", UploadDate: "2026-01-01T00:00:00", OperationName: "op"},
	}))

	out, err := e.run(t, "", "mapping", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1. 機械学習")
	assert.Contains(t, out, "wiki_0123456789abcdef.md")

	out, err = e.run(t, "", "mapping", "export", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"identifier": "wiki_0123456789abcdef.md"`)
	assert.Contains(t, out, `"title": "機械学習"`)
}

func TestStoreListAndDelete(t *testing.T) {
	e := newEnv(t)
	keep := e.srv.AddStore("keep")
	doomed := e.srv.AddStore("doomed", "a", "b")

	out, err := e.run(t, "", "store", "list")
	require.NoError(t, err)
	assert.Contains(t, out, keep)
	assert.Contains(t, out, doomed)

	_, err = e.run(t, "", "store", "delete", doomed)
	assert.ErrorIs(t, err, types.ErrConfirmationRequired)
	assert.True(t, e.srv.HasStore(doomed))

	out, err = e.run(t, "", "store", "delete", doomed, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted (2 documents removed)")
	assert.False(t, e.srv.HasStore(doomed))
	assert.True(t, e.srv.HasStore(keep))
}

func TestStoreDeleteMissingStoreFails(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "store", "delete", "fileSearchStores/gone", "--yes")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestQuerySingleShot(t *testing.T) {
	e := newEnv(t)
	store := e.srv.AddStore("kb")
	t.Setenv("STORE_NAME", store)
	e.srv.Generate = func([]byte) (int, string) {
		return http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Tokyo."}]},
			"groundingMetadata":{"groundingChunks":[{"retrievedContext":{"title":"日本"}}]}}]}`
	}

	out, err := e.run(t, "", "query", "capital", "of", "Japan?")
	require.NoError(t, err)
	assert.Contains(t, out, "Tokyo.\n\nSources:\n1. 日本\n")
	assert.Contains(t, string(e.srv.GenerateBodies()[0]), "capital of Japan?")
}

func TestQueryNotConfigured(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "query", "anything")
	assert.ErrorIs(t, err, types.ErrNotConfigured)
	assert.Empty(t, e.srv.Calls())
}

func TestQueryInteractive(t *testing.T) {
	e := newEnv(t)
	store := e.srv.AddStore("kb")
	t.Setenv("STORE_NAME", store)

	out, err := e.run(t, "first question\n\ndebug on\nsecond\ndebug off\nq\nnever asked\n", "query")
	require.NoError(t, err)
	assert.Contains(t, out, "Debug mode on.")
	assert.Contains(t, out, "Debug mode off.")
	assert.Contains(t, out, "Bye.")
	assert.Len(t, e.srv.GenerateBodies(), 2)
}

func TestConfigFile(t *testing.T) {
	e := newEnv(t)
	store := e.srv.AddStore("kb")
	cfgPath := filepath.Join(e.dir, "rag-filesearch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store_name: "+store+"\ndisplay_name: from-file\n"), 0o600))

	out, err := e.run(t, "", "store", "info", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, store)
	assert.Contains(t, out, "from-file")

	// Environment wins over the config file.
	t.Setenv("STORE_NAME", "fileSearchStores/from-env")
	out, err = e.run(t, "", "store", "info", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "fileSearchStores/from-env")
}

func TestMappingResetStepsNeedTypedToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"single yes", "y\n", confirm.ErrAborted},
		{"wrong token", "yes\nreset\n", confirm.ErrAborted},
		{"declined", "n\nRESET\n", confirm.ErrAborted},
		{"yes and token", "y\nRESET\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := confirm.New(strings.NewReader(tt.input), &out)
			p.Interactive = true

			err := p.RequireDestructive(false, mappingResetSteps("file_mappings.json")...)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
