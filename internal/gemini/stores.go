// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

type listStoresResponse struct {
	FileSearchStores []types.Store `json:"fileSearchStores"`
	NextPageToken    string        `json:"nextPageToken"`
}

type listDocumentsResponse struct {
	Documents     []types.Document `json:"documents"`
	NextPageToken string           `json:"nextPageToken"`
}

// CreateStore creates an empty store with the given display name.
func (c *Client) CreateStore(ctx context.Context, displayName string) (types.Store, error) {
	var store types.Store
	body := map[string]string{"displayName": displayName}
	if err := c.doJSON(ctx, http.MethodPost, "fileSearchStores", nil, body, &store); err != nil {
		return types.Store{}, fmt.Errorf("creating store: %w", err)
	}
	if store.Name == "" {
		return types.Store{}, fmt.Errorf("creating store: %w: response has no name", types.ErrRemoteRequestFailed)
	}
	return store, nil
}

// GetStore fetches a single store.
func (c *Client) GetStore(ctx context.Context, ref types.StoreRef) (types.Store, error) {
	var store types.Store
	if err := c.doJSON(ctx, http.MethodGet, ref.Name, nil, nil, &store); err != nil {
		return types.Store{}, fmt.Errorf("getting store %s: %w", ref.Name, err)
	}
	return store, nil
}

// ListStores returns every store visible to the credentials, following
// pagination. No stores yields an empty slice.
func (c *Client) ListStores(ctx context.Context) ([]types.Store, error) {
	stores := []types.Store{}
	pageToken := ""
	for {
		q := url.Values{"pageSize": {listPageSize}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var page listStoresResponse
		if err := c.doJSON(ctx, http.MethodGet, "fileSearchStores", q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing stores: %w", err)
		}
		stores = append(stores, page.FileSearchStores...)
		if page.NextPageToken == "" {
			return stores, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteStore deletes a store. With force, remaining documents and their
// index data are removed too; without it the service rejects non-empty stores.
func (c *Client) DeleteStore(ctx context.Context, ref types.StoreRef, force bool) error {
	if err := c.doJSON(ctx, http.MethodDelete, ref.Name, forceQuery(force), nil, nil); err != nil {
		return fmt.Errorf("deleting store %s: %w", ref.Name, err)
	}
	return nil
}

// ListDocuments returns every document in the store, following pagination.
func (c *Client) ListDocuments(ctx context.Context, ref types.StoreRef) ([]types.Document, error) {
	docs := []types.Document{}
	pageToken := ""
	for {
		q := url.Values{"pageSize": {listPageSize}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var page listDocumentsResponse
		if err := c.doJSON(ctx, http.MethodGet, ref.Name+"/documents", q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing documents in %s: %w", ref.Name, err)
		}
		docs = append(docs, page.Documents...)
		if page.NextPageToken == "" {
			return docs, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteDocument deletes one document. With force, its chunks are removed too.
func (c *Client) DeleteDocument(ctx context.Context, name string, force bool) error {
	if err := c.doJSON(ctx, http.MethodDelete, name, forceQuery(force), nil, nil); err != nil {
		return fmt.Errorf("deleting document %s: %w", name, err)
	}
	return nil
}

// GetOperation fetches the current state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (types.Operation, error) {
	var op types.Operation
	if err := c.doJSON(ctx, http.MethodGet, name, nil, nil, &op); err != nil {
		return types.Operation{}, fmt.Errorf("getting operation %s: %w", name, err)
	}
	return op, nil
}

func forceQuery(force bool) url.Values {
	if !force {
		return nil
	}
	return url.Values{"force": {"true"}}
}
