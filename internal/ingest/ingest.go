// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest uploads local documents into a File Search store. Each
// document is staged under its opaque identifier, uploaded with its original
// title as display name, and polled until the indexing operation finishes.
// Documents are processed one at a time; a failed document is counted and
// the batch moves on.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/rag-filesearch/internal/journal"
	"github.com/pdiddy/rag-filesearch/internal/mapping"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// Uploader is the part of the remote client the orchestrator needs.
type Uploader interface {
	UploadToStore(ctx context.Context, ref types.StoreRef, path, displayName string) (types.Operation, error)
	GetOperation(ctx context.Context, name string) (types.Operation, error)
}

// Recorder receives one attempt per processed document.
type Recorder interface {
	Record(ctx context.Context, a journal.Attempt) error
}

// DocumentFailure is one document that did not make it into the store.
type DocumentFailure struct {
	Filename   string
	Identifier string
	Err        error
}

// Report is the outcome of an ingest run. Mapping is the input mapping
// with a record upserted for every successful upload.
type Report struct {
	RunID     string
	Succeeded int
	Failed    int
	Skipped   int
	Mapping   types.Mapping
	Failures  []DocumentFailure

	// Err is set when the run stopped early: cancellation, a missing
	// store, or an unusable staging directory.
	Err error
}

// Total returns the number of documents processed.
func (r Report) Total() int {
	return r.Succeeded + r.Failed + r.Skipped
}

// HasFailures reports whether any document failed.
func (r Report) HasFailures() bool {
	return r.Failed > 0
}

// Orchestrator runs ingest batches.
type Orchestrator struct {
	uploader     Uploader
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
	out          io.Writer

	// SkipExisting skips documents whose identifier already has a record.
	SkipExisting bool

	// Recorder, when set, journals every attempt.
	Recorder Recorder

	// StagingRoot is the parent of the per-run staging directory; empty
	// uses the system temp directory.
	StagingRoot string

	// Now stamps upload dates. Tests replace it.
	Now func() time.Time
}

// New creates an orchestrator using cfg's polling settings. Progress lines
// go to w.
func New(uploader Uploader, cfg types.Config, logger *zap.Logger, w io.Writer) *Orchestrator {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if w == nil {
		w = io.Discard
	}
	return &Orchestrator{
		uploader:     uploader,
		pollInterval: positiveOr(cfg.PollInterval, types.DefaultPollInterval),
		pollTimeout:  positiveOr(cfg.PollTimeout, types.DefaultPollTimeout),
		logger:       logger,
		out:          w,
		Now:          time.Now,
	}
}

// Ingest processes docs in order against store. The input mapping is not
// modified; the updated copy is returned in the report.
func (o *Orchestrator) Ingest(ctx context.Context, docs []SourceDocument, store types.StoreRef, m types.Mapping) Report {
	report := Report{
		RunID:   journal.NewRunID(),
		Mapping: maps.Clone(m),
	}
	if report.Mapping == nil {
		report.Mapping = types.Mapping{}
	}

	if store.IsZero() {
		report.Err = types.ErrNotConfigured
		for _, doc := range docs {
			report.fail(doc, types.ErrNotConfigured)
		}
		o.printSummary(report)
		return report
	}

	stagingDir, err := os.MkdirTemp(o.StagingRoot, "rag-filesearch-staging-*")
	if err != nil {
		report.Err = fmt.Errorf("%w: creating staging directory: %w", types.ErrStagingFailed, err)
		for _, doc := range docs {
			report.fail(doc, report.Err)
		}
		o.printSummary(report)
		return report
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			o.logger.Warn("removing staging directory",
				zap.String("dir", stagingDir), zap.Error(fmt.Errorf("%w: %w", types.ErrStagingFailed, err)))
		}
	}()

	o.logger.Info("ingest started",
		zap.String("run_id", report.RunID),
		zap.String("store", store.Name),
		zap.Int("documents", len(docs)))

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			report.Err = err
			fmt.Fprintf(o.out, "interrupted: %d of %d documents not attempted\n", len(docs)-i, len(docs))
			break
		}

		id := doc.Identifier()
		started := o.Now()

		if _, ok := report.Mapping[id]; ok && o.SkipExisting {
			fmt.Fprintf(o.out, "skipped:   %s (already in mapping)\n", doc.Filename)
			report.Skipped++
			o.record(ctx, report.RunID, store, doc, id, journal.StatusSkipped, "", 0, started, nil)
			continue
		}

		fmt.Fprintf(o.out, "uploading: %s -> %s\n", doc.Filename, id)
		rec, err := o.ingestOne(ctx, stagingDir, doc, id, store)
		if err != nil {
			fmt.Fprintf(o.out, "failed:    %s (%v)\n", doc.Filename, err)
			o.logger.Warn("upload failed",
				zap.String("file", doc.Filename),
				zap.String("identifier", id),
				zap.String("kind", string(types.KindOf(err))),
				zap.Error(err))
			report.fail(doc, err)
			o.record(ctx, report.RunID, store, doc, id, journal.StatusFailed, "", 0, started, err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				report.Err = ctx.Err()
				if report.Err == nil {
					report.Err = err
				}
				if remaining := len(docs) - i - 1; remaining > 0 {
					fmt.Fprintf(o.out, "interrupted: %d of %d documents not attempted\n", remaining, len(docs))
				}
				break
			}
			continue
		}

		mapping.Upsert(report.Mapping, id, rec)
		report.Succeeded++
		fmt.Fprintf(o.out, "uploaded:  %s (%s)\n", doc.Filename, rec.OperationName)
		o.record(ctx, report.RunID, store, doc, id, journal.StatusUploaded, rec.OperationName, rec.FileSize, started, nil)
	}

	o.printSummary(report)
	return report
}

// ingestOne stages, uploads, and polls a single document. The staged file
// is removed before it returns.
func (o *Orchestrator) ingestOne(ctx context.Context, stagingDir string, doc SourceDocument, id string, store types.StoreRef) (types.MappingRecord, error) {
	staged := filepath.Join(stagingDir, id)
	size, err := stage(doc.Path, staged)
	defer o.unstage(staged)
	if err != nil {
		return types.MappingRecord{}, err
	}

	op, err := o.uploader.UploadToStore(ctx, store, staged, doc.Title)
	if err != nil {
		return types.MappingRecord{}, err
	}

	op, err = o.wait(ctx, op)
	if err != nil {
		return types.MappingRecord{}, err
	}
	if op.Failed() {
		return types.MappingRecord{}, fmt.Errorf("%w: operation %s: %s (code %d)",
			types.ErrRemoteRequestFailed, op.Name, op.Error.Message, op.Error.Code)
	}

	opName := op.Name
	if opName == "" {
		opName = types.UnknownOperation
	}
	return types.MappingRecord{
		OriginalFilename: doc.Filename,
		Title:            doc.Title,
		UploadDate:       o.Now().Format(types.UploadDateLayout),
		OperationName:    opName,
		FileSize:         size,
	}, nil
}

// stage copies src to dst and returns the number of bytes written.
func stage(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %w", types.ErrStagingFailed, src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", types.ErrStagingFailed, dst, err)
	}
	n, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return 0, fmt.Errorf("%w: copying %s: %w", types.ErrStagingFailed, src, err)
	}
	return n, nil
}

func (o *Orchestrator) unstage(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("removing staged file",
			zap.String("path", path), zap.Error(fmt.Errorf("%w: %w", types.ErrStagingFailed, err)))
	}
}

func (o *Orchestrator) record(ctx context.Context, runID string, store types.StoreRef, doc SourceDocument, id string,
	status journal.Status, opName string, size int64, started time.Time, err error) {
	if o.Recorder == nil {
		return
	}
	a := journal.Attempt{
		RunID:            runID,
		Identifier:       id,
		OriginalFilename: doc.Filename,
		Title:            doc.Title,
		Store:            store.Name,
		Status:           status,
		OperationName:    opName,
		Bytes:            size,
		StartedAt:        started,
		Duration:         o.Now().Sub(started),
	}
	if err != nil {
		a.ErrorKind = string(types.KindOf(err))
		a.Error = err.Error()
	}
	// Cancelled runs are still journaled.
	if rerr := o.Recorder.Record(context.WithoutCancel(ctx), a); rerr != nil {
		o.logger.Warn("journal write failed", zap.String("identifier", id), zap.Error(rerr))
	}
}

func (o *Orchestrator) printSummary(r Report) {
	fmt.Fprintf(o.out, "\nIngest summary: %d uploaded, %d skipped, %d failed (total: %d)\n",
		r.Succeeded, r.Skipped, r.Failed, r.Total())
}

func (r *Report) fail(doc SourceDocument, err error) {
	r.Failed++
	r.Failures = append(r.Failures, DocumentFailure{
		Filename:   doc.Filename,
		Identifier: doc.Identifier(),
		Err:        err,
	})
}
