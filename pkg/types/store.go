// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the rag-filesearch client:
// configuration, the local mapping ledger, remote store and operation views,
// and the error kinds every stage reports.
package types

import (
	"encoding/json"
	"time"
)

// StoreRef is an opaque, server-assigned File Search store name such as
// "fileSearchStores/wikipediaknowledgebase-abc123". It carries no behavior.
type StoreRef struct {
	Name string `json:"name" yaml:"name"`
}

// IsZero reports whether no store has been resolved.
func (r StoreRef) IsZero() bool { return r.Name == "" }

func (r StoreRef) String() string { return r.Name }

// Store is the listing view of a remote File Search store.
type Store struct {
	// Name is the server-assigned resource name.
	Name string `json:"name" yaml:"name"`

	// DisplayName is the human-readable name given at creation time.
	DisplayName string `json:"displayName,omitempty" yaml:"display_name,omitempty"`

	CreateTime time.Time `json:"createTime,omitempty" yaml:"create_time,omitempty"`
	UpdateTime time.Time `json:"updateTime,omitempty" yaml:"update_time,omitempty"`

	// Document counters are reported by the service as int64 strings.
	ActiveDocumentsCount  int64 `json:"activeDocumentsCount,string,omitempty" yaml:"active_documents_count"`
	PendingDocumentsCount int64 `json:"pendingDocumentsCount,string,omitempty" yaml:"pending_documents_count"`
	FailedDocumentsCount  int64 `json:"failedDocumentsCount,string,omitempty" yaml:"failed_documents_count"`
	SizeBytes             int64 `json:"sizeBytes,string,omitempty" yaml:"size_bytes"`
}

// Ref returns the store's reference.
func (s Store) Ref() StoreRef { return StoreRef{Name: s.Name} }

// Document is the listing view of a document inside a store.
type Document struct {
	Name        string    `json:"name" yaml:"name"`
	DisplayName string    `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	State       string    `json:"state,omitempty" yaml:"state,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,string,omitempty" yaml:"size_bytes"`
	MimeType    string    `json:"mimeType,omitempty" yaml:"mime_type,omitempty"`
	CreateTime  time.Time `json:"createTime,omitempty" yaml:"create_time,omitempty"`
}

// Status is the error payload carried by a finished operation.
type Status struct {
	Code    int    `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Operation is an asynchronous unit of remote work. A pending operation has
// Done false; a finished one has Done true and either Error or Response set.
// The service offers no cancellation.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done,omitempty"`
	Error    *Status         `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Failed reports whether the operation finished with an error.
func (o Operation) Failed() bool { return o.Done && o.Error != nil }
