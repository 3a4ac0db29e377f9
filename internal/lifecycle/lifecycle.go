// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lifecycle creates, lists, and tears down File Search stores.
//
// Two operations look alike and must not be confused. DeleteCascade removes
// a remote store and every document in it. ResetLocalMapping removes only
// the local mapping file; the remote store and its documents are untouched.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/rag-filesearch/internal/mapping"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// Remote is the part of the remote client the manager needs.
type Remote interface {
	CreateStore(ctx context.Context, displayName string) (types.Store, error)
	ListStores(ctx context.Context) ([]types.Store, error)
	ListDocuments(ctx context.Context, ref types.StoreRef) ([]types.Document, error)
	DeleteDocument(ctx context.Context, name string, force bool) error
	DeleteStore(ctx context.Context, ref types.StoreRef, force bool) error
}

// DocumentFailure is a document the cascade could not delete.
type DocumentFailure struct {
	Name string
	Err  error
}

// DeleteResult is the outcome of DeleteCascade. Deleted reflects the store
// deletion only; document failures do not clear it.
type DeleteResult struct {
	Store            types.StoreRef
	Documents        int
	DocumentsDeleted int
	DocumentFailures []DocumentFailure
	Deleted          bool
	Err              error
}

// Manager runs store lifecycle operations.
type Manager struct {
	remote      Remote
	displayName string
	deleteDelay time.Duration
	logger      *zap.Logger
	out         io.Writer
}

// New creates a manager. Progress lines go to w.
func New(remote Remote, cfg types.Config, logger *zap.Logger, w io.Writer) *Manager {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if w == nil {
		w = io.Discard
	}
	return &Manager{
		remote:      remote,
		displayName: cfg.DisplayName,
		deleteDelay: cfg.DeleteDelay,
		logger:      logger,
		out:         w,
	}
}

// GetOrCreate returns existing unchanged, without a remote call, when it is
// set. Otherwise it creates a store and reports created=true; the caller is
// expected to tell the user how to persist the new name.
func (m *Manager) GetOrCreate(ctx context.Context, existing types.StoreRef) (ref types.StoreRef, created bool, err error) {
	if !existing.IsZero() {
		return existing, false, nil
	}
	store, err := m.remote.CreateStore(ctx, m.displayName)
	if err != nil {
		return types.StoreRef{}, false, err
	}
	m.logger.Info("store created", zap.String("store", store.Name), zap.String("display_name", store.DisplayName))
	return store.Ref(), true, nil
}

// List returns every store visible to the credentials; none is an empty slice.
func (m *Manager) List(ctx context.Context) ([]types.Store, error) {
	stores, err := m.remote.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	if stores == nil {
		stores = []types.Store{}
	}
	return stores, nil
}

// DeleteCascade deletes every document in store with force, pausing
// DeleteDelay between deletions, then force-deletes the store. A failed
// listing counts as zero documents; failed document deletions are logged
// and counted. Errors are carried in the result.
func (m *Manager) DeleteCascade(ctx context.Context, store types.StoreRef) DeleteResult {
	res := DeleteResult{Store: store}
	if store.IsZero() {
		res.Err = types.ErrNotConfigured
		return res
	}

	docs, err := m.remote.ListDocuments(ctx, store)
	if err != nil {
		m.logger.Warn("listing documents failed; deleting store without per-document cleanup",
			zap.String("store", store.Name), zap.Error(err))
		fmt.Fprintf(m.out, "warning: could not list documents (%v)\n", err)
		docs = nil
	}
	res.Documents = len(docs)
	if len(docs) > 0 {
		fmt.Fprintf(m.out, "Deleting %d documents from %s\n", len(docs), store.Name)
	}

	limiter := newDeleteLimiter(m.deleteDelay)
	for i, doc := range docs {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = fmt.Errorf("deleting documents: %w", err)
			return res
		}
		if err := m.remote.DeleteDocument(ctx, doc.Name, true); err != nil {
			m.logger.Warn("document deletion failed", zap.String("document", doc.Name), zap.Error(err))
			fmt.Fprintf(m.out, "  [%d/%d] failed:  %s (%v)\n", i+1, len(docs), docLabel(doc), err)
			res.DocumentFailures = append(res.DocumentFailures, DocumentFailure{Name: doc.Name, Err: err})
			continue
		}
		res.DocumentsDeleted++
		fmt.Fprintf(m.out, "  [%d/%d] deleted: %s\n", i+1, len(docs), docLabel(doc))
	}

	if err := m.remote.DeleteStore(ctx, store, true); err != nil {
		res.Err = err
		fmt.Fprintf(m.out, "store deletion failed: %s (%v)\n", store.Name, err)
		return res
	}
	res.Deleted = true
	m.logger.Info("store deleted",
		zap.String("store", store.Name),
		zap.Int("documents_deleted", res.DocumentsDeleted),
		zap.Int("document_failures", len(res.DocumentFailures)))
	fmt.Fprintf(m.out, "store deleted: %s (%d/%d documents deleted)\n", store.Name, res.DocumentsDeleted, res.Documents)
	return res
}

// newDeleteLimiter allows one deletion immediately and then one per delay.
func newDeleteLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func docLabel(d types.Document) string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name
}

// ResetLocalMapping deletes the local mapping file at path and nothing else.
// removed is false when there was no file.
func ResetLocalMapping(path string) (removed bool, err error) {
	return mapping.Reset(path)
}

// ListFiles returns the mapping file's view of what was uploaded, which may
// differ from the remote store's actual contents.
func ListFiles(path string) ([]mapping.Entry, error) {
	m, err := mapping.Load(path)
	if err != nil {
		return nil, err
	}
	return mapping.Entries(m), nil
}

// Summary is a one-line description of res for the CLI.
func (r DeleteResult) Summary() string {
	failed := len(r.DocumentFailures)
	switch {
	case r.Deleted && failed == 0:
		return fmt.Sprintf("Store %s deleted (%d documents removed)", r.Store.Name, r.DocumentsDeleted)
	case r.Deleted:
		return fmt.Sprintf("Store %s deleted; %d of %d documents could not be deleted individually",
			r.Store.Name, failed, r.Documents)
	default:
		return fmt.Sprintf("Store %s was not deleted: %v", r.Store.Name, r.Err)
	}
}
