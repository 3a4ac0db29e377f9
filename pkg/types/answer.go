// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MaxCitations caps the number of citations attached to an answer.
const MaxCitations = 5

// AnnotatedAnswer is a generated answer plus the citations extracted from
// the response's grounding metadata.
type AnnotatedAnswer struct {
	// Text is the user-facing answer, including the sources section when
	// at least one citation was found.
	Text string `json:"text" yaml:"text"`

	// RawText is the model output without the sources section.
	RawText string `json:"raw_text" yaml:"raw_text"`

	// Citations are deduplicated in first-seen order, at most MaxCitations.
	Citations []string `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// StoreStatus describes whether the answer service has a store to query.
type StoreStatus string

const (
	StatusNotConfigured StoreStatus = "not_configured"
	StatusActive        StoreStatus = "active"
)

// StoreInfo is a local view of the configured store. It does not call the
// remote service.
type StoreInfo struct {
	StoreName   string      `json:"store_name,omitempty" yaml:"store_name,omitempty"`
	DisplayName string      `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Status      StoreStatus `json:"status" yaml:"status"`
}
