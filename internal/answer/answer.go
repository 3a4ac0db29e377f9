// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer runs grounded queries against a File Search store and turns
// the response into an answer annotated with its sources.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/rag-filesearch/internal/gemini"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// Generator issues generation requests.
type Generator interface {
	GenerateContent(ctx context.Context, in gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// Service answers queries. It never touches the mapping file.
type Service struct {
	gen         Generator
	model       string
	displayName string
	logger      *zap.Logger

	// Debug logs the grounding structure of every response at info level.
	Debug bool
}

// New creates a service using cfg's model.
func New(gen Generator, cfg types.Config, logger *zap.Logger) *Service {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gen:         gen,
		model:       cfg.Model,
		displayName: cfg.DisplayName,
		logger:      logger,
	}
}

// Answer sends query to the model with File Search scoped to store.
func (s *Service) Answer(ctx context.Context, query string, store types.StoreRef, temperature float64) (types.AnnotatedAnswer, error) {
	if store.IsZero() {
		return types.AnnotatedAnswer{}, types.ErrNotConfigured
	}
	if strings.TrimSpace(query) == "" {
		return types.AnnotatedAnswer{}, fmt.Errorf("query is empty")
	}
	if temperature < 0 || temperature > 1 {
		return types.AnnotatedAnswer{}, fmt.Errorf("temperature %v outside [0, 1]", temperature)
	}

	resp, err := s.gen.GenerateContent(ctx, gemini.GenerateRequest{
		Model:       s.model,
		Prompt:      query,
		StoreNames:  []string{store.Name},
		Temperature: temperature,
	})
	if err != nil {
		return types.AnnotatedAnswer{}, err
	}

	text, ok := resp.Text()
	if !ok {
		reason := "no candidates"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = "finish reason " + resp.Candidates[0].FinishReason
		}
		return types.AnnotatedAnswer{}, fmt.Errorf("%w: response has no text (%s)", types.ErrMalformedResponse, reason)
	}

	if s.Debug {
		s.logGrounding(resp.Grounding())
	}

	citations, warnings := ExtractCitations(resp)
	for _, w := range warnings {
		s.logger.Warn("skipping citation", zap.Error(w))
	}

	return types.AnnotatedAnswer{
		Text:      FormatAnswer(text, citations),
		RawText:   text,
		Citations: citations,
	}, nil
}

// Info describes the configured store without calling the service: a
// non-empty reference is reported active.
func (s *Service) Info(store types.StoreRef) types.StoreInfo {
	if store.IsZero() {
		return types.StoreInfo{Status: types.StatusNotConfigured}
	}
	return types.StoreInfo{
		StoreName:   store.Name,
		DisplayName: s.displayName,
		Status:      types.StatusActive,
	}
}

// FormatAnswer appends a numbered sources section when citations is non-empty.
func FormatAnswer(text string, citations []string) string {
	if len(citations) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nSources:\n")
	for i, c := range citations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return b.String()
}

func (s *Service) logGrounding(g *gemini.GroundingMetadata) {
	if g == nil {
		s.logger.Info("response has no grounding metadata")
		return
	}
	fields := []zap.Field{
		zap.Int("chunks", len(g.GroundingChunks)),
		zap.Int("supports", len(g.GroundingSupports)),
		zap.Bool("retrieval_metadata", g.RetrievalMetadata != nil),
	}
	s.logger.Info("grounding metadata", fields...)

	for i, chunk := range g.GroundingChunks {
		if i == 3 {
			break
		}
		if rc := chunk.RetrievedContext; rc != nil {
			s.logger.Info("grounding chunk",
				zap.Int("index", i),
				zap.String("title", deref(rc.Title)),
				zap.String("uri", deref(rc.URI)),
				zap.Int("text_len", len(deref(rc.Text))))
		} else if web := chunk.Web; web != nil {
			s.logger.Info("grounding chunk",
				zap.Int("index", i),
				zap.String("web_uri", deref(web.URI)),
				zap.String("web_title", deref(web.Title)))
		}
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
