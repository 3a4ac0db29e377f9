// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapping persists the local ledger of uploaded documents: one JSON
// object keyed by opaque identifier.
//
// The ledger assumes a single process and a single writer. There is no file
// locking; two concurrent ingest runs against the same file can lose each
// other's records.
package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// Load reads the ledger at path. A missing file yields an empty mapping.
func Load(path string) (types.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Mapping{}, nil
		}
		return nil, fmt.Errorf("reading mapping %s: %w", path, err)
	}

	m := types.Mapping{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mapping %s: %w", path, err)
	}
	return m, nil
}

// Save overwrites the ledger at path. The data is written to a temp file in
// the same directory, synced, and renamed over the target so a crash never
// leaves a truncated ledger.
func Save(path string, m types.Mapping) error {
	data, err := encode(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating mapping directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".mapping-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	syncErr := tmpFile.Sync()
	closeErr := tmpFile.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing mapping: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the record for id.
func Upsert(m types.Mapping, id string, rec types.MappingRecord) {
	if rec.OperationName == "" {
		rec.OperationName = types.UnknownOperation
	}
	m[id] = rec
}

// Reset deletes the ledger file only. Remote documents are untouched.
// removed is false when there was no file to delete.
func Reset(path string) (removed bool, err error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("removing mapping %s: %w", path, err)
	}
	return true, nil
}

// encode marshals with two-space indent and without escaping non-ASCII or
// HTML characters, so titles stay readable in the file.
func encode(m types.Mapping) ([]byte, error) {
	if m == nil {
		m = types.Mapping{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("marshaling mapping: %w", err)
	}
	return buf.Bytes(), nil
}
