// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// Entry is one ledger record together with its identifier.
type Entry struct {
	Identifier string `json:"identifier" yaml:"identifier"`

	types.MappingRecord `yaml:",inline"`
}

// Entries returns the ledger ordered by upload date, then identifier.
func Entries(m types.Mapping) []Entry {
	entries := make([]Entry, 0, len(m))
	for id, rec := range m {
		entries = append(entries, Entry{Identifier: id, MappingRecord: rec})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UploadDate != entries[j].UploadDate {
			return entries[i].UploadDate < entries[j].UploadDate
		}
		return entries[i].Identifier < entries[j].Identifier
	})
	return entries
}

// Format selects an export encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Export writes the ledger entries to w in the given format, sorted by
// identifier so exports of the same ledger diff cleanly.
func Export(m types.Mapping, w io.Writer, format Format) error {
	entries := Entries(m)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Identifier < entries[j].Identifier
	})

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}
