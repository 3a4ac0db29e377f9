// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/rag-filesearch/internal/identity"
)

// DefaultPattern selects the source documents in a data directory.
const DefaultPattern = "*.md"

// SourceDocument is a local file waiting to be ingested. Filename may hold
// any Unicode; Title is its stem and becomes the remote display name.
type SourceDocument struct {
	Path     string
	Filename string
	Title    string
	Ext      string
	Size     int64
}

// Identifier returns the document's opaque identifier.
func (d SourceDocument) Identifier() string {
	return identity.MapIdentifier(d.Title, d.Ext)
}

// NewSourceDocument describes the file at path.
func NewSourceDocument(path string) (SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceDocument{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return SourceDocument{}, fmt.Errorf("%s is not a regular file", path)
	}
	name := filepath.Base(path)
	title, ext := identity.SplitFilename(name)
	return SourceDocument{
		Path:     path,
		Filename: name,
		Title:    title,
		Ext:      ext,
		Size:     info.Size(),
	}, nil
}

// Discover lists the regular files in dir matching pattern, sorted by
// filename. A missing directory is an error; no matches is an empty slice.
func Discover(dir, pattern string) ([]SourceDocument, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", pattern, err)
	}
	sort.Strings(matches)

	docs := make([]SourceDocument, 0, len(matches))
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		doc, err := NewSourceDocument(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
