// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/rag-filesearch/internal/gemini"
	"github.com/pdiddy/rag-filesearch/internal/gemini/geminitest"
	"github.com/pdiddy/rag-filesearch/internal/identity"
	"github.com/pdiddy/rag-filesearch/internal/journal"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.Local)

func testConfig(srv *geminitest.Server) types.Config {
	return types.Config{
		APIKey:       "k",
		HTTPConfig:   types.HTTPConfig{BaseURL: srv.URL},
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
	}
}

func writeDocs(t *testing.T, names ...string) []SourceDocument {
	t.Helper()
	dir := t.TempDir()
	docs := make([]SourceDocument, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("# "+name+"\n"), 0o644))
		doc, err := NewSourceDocument(path)
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return docs
}

func newOrchestrator(t *testing.T, srv *geminitest.Server, out *bytes.Buffer) *Orchestrator {
	t.Helper()
	cfg := testConfig(srv)
	client := gemini.New(cfg, zaptest.NewLogger(t)).WithHTTPClient(srv.Client())
	o := New(client, cfg, zaptest.NewLogger(t), out)
	o.StagingRoot = t.TempDir()
	o.Now = func() time.Time { return fixedNow }
	return o
}

func assertStagingEmpty(t *testing.T, o *Orchestrator) {
	t.Helper()
	entries, err := os.ReadDir(o.StagingRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be removed")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.md", "機械学習.md", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.md"), 0o755))

	docs, err := Discover(dir, "")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a.md", docs[0].Filename)
	assert.Equal(t, "b.md", docs[1].Filename)
	assert.Equal(t, "機械学習", docs[2].Title)
	assert.Equal(t, ".md", docs[2].Ext)
	assert.Equal(t, int64(1), docs[2].Size)

	txt, err := Discover(dir, "*.txt")
	require.NoError(t, err)
	require.Len(t, txt, 1)
	assert.Equal(t, "notes", txt[0].Title)
}

func TestDiscoverEmptyAndMissing(t *testing.T) {
	docs, err := Discover(t.TempDir(), "*.md")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = Discover(filepath.Join(t.TempDir(), "missing"), "*.md")
	assert.Error(t, err)
}

func TestIngestAllSucceed(t *testing.T) {
	srv := geminitest.NewServer(t)
	srv.PollsUntilDone = 2
	store := srv.AddStore("kb")
	var out bytes.Buffer
	o := newOrchestrator(t, srv, &out)

	docs := writeDocs(t, "Go.md", "機械学習.md", "Ærø.md")
	input := types.Mapping{}
	report := o.Ingest(context.Background(), docs, types.StoreRef{Name: store}, input)

	require.NoError(t, report.Err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, report.Mapping, 3)
	assert.Empty(t, input, "input mapping must not be modified")
	assert.NotEmpty(t, report.RunID)

	id := identity.MapIdentifier("機械学習", ".md")
	rec, ok := report.Mapping[id]
	require.True(t, ok)
	assert.Equal(t, "機械学習.md", rec.OriginalFilename)
	assert.Equal(t, "機械学習", rec.Title)
	assert.Equal(t, "2026-05-04T10:30:00", rec.UploadDate)
	assert.Contains(t, rec.OperationName, "/upload/operations/")
	assert.Equal(t, docs[1].Size, rec.FileSize)

	uploads := srv.Uploads()
	require.Len(t, uploads, 3)
	for i, up := range uploads {
		assert.Equal(t, docs[i].Title, up.DisplayName)
		assert.Equal(t, docs[i].Identifier(), up.Filename)
	}
	assert.Len(t, srv.Documents(store), 3)

	assertStagingEmpty(t, o)
	assert.Contains(t, out.String(), "Ingest summary: 3 uploaded, 0 skipped, 0 failed (total: 3)")
}

func TestIngestFailureDoesNotAbortBatch(t *testing.T) {
	srv := geminitest.NewServer(t)
	srv.FailUpload = map[string]int{"b": http.StatusInternalServerError}
	store := srv.AddStore("kb")
	var out bytes.Buffer
	o := newOrchestrator(t, srv, &out)

	docs := writeDocs(t, "a.md", "b.md", "c.md", "d.md")
	report := o.Ingest(context.Background(), docs, types.StoreRef{Name: store}, nil)

	require.NoError(t, report.Err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b.md", report.Failures[0].Filename)
	assert.Equal(t, docs[1].Identifier(), report.Failures[0].Identifier)
	assert.ErrorIs(t, report.Failures[0].Err, types.ErrRemoteRequestFailed)
	assert.NotContains(t, report.Mapping, docs[1].Identifier())

	assertStagingEmpty(t, o)
	assert.Contains(t, out.String(), "failed:    b.md")
}

func TestIngestOperationError(t *testing.T) {
	srv := geminitest.NewServer(t)
	srv.PollsUntilDone = 1
	srv.FailOperation = map[string]string{"a": "unsupported file"}
	store := srv.AddStore("kb")
	o := newOrchestrator(t, srv, &bytes.Buffer{})

	report := o.Ingest(context.Background(), writeDocs(t, "a.md"), types.StoreRef{Name: store}, nil)

	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, types.KindRemoteRequest, types.KindOf(report.Failures[0].Err))
	assert.Contains(t, report.Failures[0].Err.Error(), "unsupported file")
}

func TestIngestTimeout(t *testing.T) {
	srv := geminitest.NewServer(t)
	srv.NeverFinish = map[string]bool{"slow": true}
	store := srv.AddStore("kb")
	o := newOrchestrator(t, srv, &bytes.Buffer{})
	o.pollTimeout = 30 * time.Millisecond

	report := o.Ingest(context.Background(), writeDocs(t, "slow.md", "fast.md"), types.StoreRef{Name: store}, nil)

	require.NoError(t, report.Err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.ErrorIs(t, report.Failures[0].Err, types.ErrTimeout)
	assertStagingEmpty(t, o)
}

func TestIngestNoStore(t *testing.T) {
	srv := geminitest.NewServer(t)
	o := newOrchestrator(t, srv, &bytes.Buffer{})

	report := o.Ingest(context.Background(), writeDocs(t, "a.md", "b.md"), types.StoreRef{}, nil)

	assert.ErrorIs(t, report.Err, types.ErrNotConfigured)
	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, srv.Calls())
}

func TestIngestSkipExisting(t *testing.T) {
	srv := geminitest.NewServer(t)
	store := srv.AddStore("kb")
	o := newOrchestrator(t, srv, &bytes.Buffer{})
	o.SkipExisting = true

	docs := writeDocs(t, "a.md", "b.md")
	existing := types.Mapping{docs[0].Identifier(): {OriginalFilename: "a.md", Title: "a", OperationName: "op"}}
	report := o.Ingest(context.Background(), docs, types.StoreRef{Name: store}, existing)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, srv.Uploads(), 1)
	assert.Equal(t, "op", report.Mapping[docs[0].Identifier()].OperationName)
}

func TestIngestReuploadsByDefault(t *testing.T) {
	srv := geminitest.NewServer(t)
	store := srv.AddStore("kb")
	o := newOrchestrator(t, srv, &bytes.Buffer{})

	docs := writeDocs(t, "a.md")
	existing := types.Mapping{docs[0].Identifier(): {OriginalFilename: "a.md", Title: "a", OperationName: "old"}}
	report := o.Ingest(context.Background(), docs, types.StoreRef{Name: store}, existing)

	assert.Equal(t, 1, report.Succeeded)
	assert.NotEqual(t, "old", report.Mapping[docs[0].Identifier()].OperationName)
	assert.Len(t, report.Mapping, 1)
}

func TestIngestJournal(t *testing.T) {
	srv := geminitest.NewServer(t)
	srv.FailUpload = map[string]int{"b": http.StatusBadRequest}
	store := srv.AddStore("kb")
	o := newOrchestrator(t, srv, &bytes.Buffer{})

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()
	o.Recorder = j

	report := o.Ingest(context.Background(), writeDocs(t, "a.md", "b.md"), types.StoreRef{Name: store}, nil)

	s, err := j.Summary(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Uploaded)
	assert.Equal(t, 1, s.Failed)

	recent, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, journal.StatusFailed, recent[0].Status)
	assert.Equal(t, string(types.KindRemoteRequest), recent[0].ErrorKind)
	assert.Equal(t, store, recent[0].Store)
}

// scriptedUploader returns pending operations and runs onPoll on every
// status check.
type scriptedUploader struct {
	upload types.Operation
	onPoll func()
	polls  int
}

func (u *scriptedUploader) UploadToStore(ctx context.Context, ref types.StoreRef, path, displayName string) (types.Operation, error) {
	if _, err := os.Stat(path); err != nil {
		return types.Operation{}, err
	}
	return u.upload, nil
}

func (u *scriptedUploader) GetOperation(ctx context.Context, name string) (types.Operation, error) {
	u.polls++
	if u.onPoll != nil {
		u.onPoll()
	}
	if err := ctx.Err(); err != nil {
		return types.Operation{}, err
	}
	return types.Operation{Name: name}, nil
}

func TestIngestCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up := &scriptedUploader{upload: types.Operation{Name: "ops/1"}, onPoll: cancel}
	var out bytes.Buffer
	o := New(up, types.Config{PollInterval: time.Millisecond, PollTimeout: time.Minute}, zaptest.NewLogger(t), &out)
	o.StagingRoot = t.TempDir()

	report := o.Ingest(ctx, writeDocs(t, "a.md", "b.md", "c.md"), types.StoreRef{Name: "fileSearchStores/kb"}, nil)

	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, context.Canceled)
	assert.False(t, errors.Is(report.Failures[0].Err, types.ErrTimeout))
	assert.Contains(t, out.String(), "interrupted: 2 of 3 documents not attempted")
	assertStagingEmpty(t, o)
}

func TestIngestUnknownOperationName(t *testing.T) {
	up := &scriptedUploader{upload: types.Operation{Done: true}}
	o := New(up, types.Config{}, nil, nil)
	o.StagingRoot = t.TempDir()

	docs := writeDocs(t, "a.md")
	report := o.Ingest(context.Background(), docs, types.StoreRef{Name: "fileSearchStores/kb"}, nil)

	require.Equal(t, 1, report.Succeeded)
	assert.Equal(t, types.UnknownOperation, report.Mapping[docs[0].Identifier()].OperationName)
	assert.Equal(t, 0, up.polls)
}

func TestIngestStagingFailure(t *testing.T) {
	up := &scriptedUploader{upload: types.Operation{Done: true, Name: "ops/1"}}
	o := New(up, types.Config{}, nil, nil)
	o.StagingRoot = t.TempDir()

	docs := writeDocs(t, "a.md", "b.md")
	require.NoError(t, os.Remove(docs[0].Path))

	report := o.Ingest(context.Background(), docs, types.StoreRef{Name: "fileSearchStores/kb"}, nil)

	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, types.ErrStagingFailed)
	assertStagingEmpty(t, o)
}

func TestNewReplacesNonPositivePolling(t *testing.T) {
	o := New(&scriptedUploader{}, types.Config{PollInterval: -time.Second, PollTimeout: -time.Minute}, nil, nil)
	assert.Equal(t, types.DefaultPollInterval, o.pollInterval)
	assert.Equal(t, types.DefaultPollTimeout, o.pollTimeout)
}

func TestIngestNegativePollIntervalReportsTimeout(t *testing.T) {
	up := &scriptedUploader{upload: types.Operation{Name: "ops/1"}}
	o := New(up, types.Config{}, nil, nil)
	o.StagingRoot = t.TempDir()
	o.pollInterval = -time.Second
	o.pollTimeout = 20 * time.Millisecond

	var report Report
	require.NotPanics(t, func() {
		report = o.Ingest(context.Background(), writeDocs(t, "a.md"), types.StoreRef{Name: "fileSearchStores/kb"}, nil)
	})

	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, types.ErrTimeout)
	assertStagingEmpty(t, o)
}
