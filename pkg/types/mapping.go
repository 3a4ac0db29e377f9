// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// UnknownOperation is recorded when an upload's operation reference is absent.
const UnknownOperation = "unknown"

// UploadDateLayout is the ISO-8601 layout used for MappingRecord.UploadDate.
const UploadDateLayout = "2006-01-02T15:04:05"

// MappingRecord describes one uploaded artifact in the local ledger.
type MappingRecord struct {
	// OriginalFilename is the source filename, possibly non-ASCII.
	OriginalFilename string `json:"original_filename" yaml:"original_filename"`

	// Title is the display title sent with the upload (the filename stem).
	Title string `json:"title" yaml:"title"`

	// UploadDate is the local time of a successful upload (UploadDateLayout).
	UploadDate string `json:"upload_date" yaml:"upload_date"`

	// OperationName references the remote upload operation, or UnknownOperation.
	OperationName string `json:"operation_name" yaml:"operation_name"`

	// FileSize is the source size in bytes.
	FileSize int64 `json:"file_size" yaml:"file_size"`
}

// Mapping is the local ledger keyed by opaque identifier. It records what
// this client has pushed; it is not guaranteed to match remote state.
type Mapping map[string]MappingRecord
