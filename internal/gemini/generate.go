// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// GenerateRequest is a single-turn grounded generation request.
type GenerateRequest struct {
	Model       string
	Prompt      string
	StoreNames  []string
	Temperature float64
}

type generateContentRequest struct {
	Contents         []Content         `json:"contents"`
	Tools            []tool            `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type tool struct {
	FileSearch *fileSearchTool `json:"fileSearch,omitempty"`
}

type fileSearchTool struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// GenerateResponse is the response schema. Optional fields are pointers or
// slices; a nil value means the service did not send the field.
type GenerateResponse struct {
	Candidates    []Candidate `json:"candidates,omitempty"`
	ModelVersion  string      `json:"modelVersion,omitempty"`
	UsageMetadata *Usage      `json:"usageMetadata,omitempty"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content           *Content           `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part carries text; other part kinds are ignored.
type Part struct {
	Text *string `json:"text,omitempty"`
}

// Usage reports token counts.
type Usage struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

// GroundingMetadata is the attribution attached to a grounded answer.
type GroundingMetadata struct {
	GroundingChunks   []GroundingChunk   `json:"groundingChunks,omitempty"`
	GroundingSupports []GroundingSupport `json:"groundingSupports,omitempty"`
	RetrievalMetadata *RetrievalMetadata `json:"retrievalMetadata,omitempty"`
}

// GroundingChunk references retrieved material: a store context or a web page.
type GroundingChunk struct {
	RetrievedContext *RetrievedContext `json:"retrievedContext,omitempty"`
	Web              *WebSource        `json:"web,omitempty"`
}

// RetrievedContext is a chunk retrieved from a File Search store.
type RetrievedContext struct {
	URI             *string `json:"uri,omitempty"`
	Title           *string `json:"title,omitempty"`
	Text            *string `json:"text,omitempty"`
	FileSearchStore *string `json:"fileSearchStore,omitempty"`
}

// WebSource is a chunk retrieved from the web.
type WebSource struct {
	URI   *string `json:"uri,omitempty"`
	Title *string `json:"title,omitempty"`
}

// GroundingSupport ties a segment of the answer to grounding chunks.
type GroundingSupport struct {
	Segment               *Segment  `json:"segment,omitempty"`
	GroundingChunkIndices []int     `json:"groundingChunkIndices,omitempty"`
	ConfidenceScores      []float64 `json:"confidenceScores,omitempty"`
}

// Segment is a span of the generated text.
type Segment struct {
	PartIndex  int     `json:"partIndex,omitempty"`
	StartIndex int     `json:"startIndex,omitempty"`
	EndIndex   int     `json:"endIndex,omitempty"`
	Text       *string `json:"text,omitempty"`
}

// RetrievalMetadata carries retrieval-level sources when the service sends them.
type RetrievalMetadata struct {
	Sources []RetrievalSource `json:"sources,omitempty"`
}

// RetrievalSource is one retrieval-level source.
type RetrievalSource struct {
	Title *string `json:"title,omitempty"`
	URI   *string `json:"uri,omitempty"`
}

// Text concatenates the text parts of the first candidate. ok is false when
// there is no candidate, no content, or no text part at all.
func (r *GenerateResponse) Text() (text string, ok bool) {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return "", false
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != nil {
			ok = true
			b.WriteString(*p.Text)
		}
	}
	return b.String(), ok
}

// Grounding returns the first candidate's grounding metadata, or nil.
func (r *GenerateResponse) Grounding() *GroundingMetadata {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].GroundingMetadata
}

// GenerateContent runs one grounded generation call scoped to the stores.
func (c *Client) GenerateContent(ctx context.Context, in GenerateRequest) (*GenerateResponse, error) {
	temp := in.Temperature
	req := generateContentRequest{
		Contents: []Content{{
			Role:  "user",
			Parts: []Part{{Text: &in.Prompt}},
		}},
		GenerationConfig: &generationConfig{Temperature: &temp},
	}
	if len(in.StoreNames) > 0 {
		req.Tools = []tool{{FileSearch: &fileSearchTool{FileSearchStoreNames: in.StoreNames}}}
	}

	var resp GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, in.Model+":generateContent", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("generating content with %s: %w", in.Model, err)
	}
	return &resp, nil
}
