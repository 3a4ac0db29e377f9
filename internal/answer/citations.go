// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"fmt"

	"github.com/pdiddy/rag-filesearch/internal/gemini"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// excerptRunes is the length of a supporting-segment excerpt.
const excerptRunes = 100

// ExtractCitations collects citations from the first candidate's grounding
// metadata. Sources are scanned in order: grounding chunks (store context
// title or URI, web URI or title), supporting segments (as excerpts), then
// retrieval sources. Results are deduplicated in first-seen order and capped
// at types.MaxCitations. Entries carrying nothing usable are skipped and
// reported as warnings.
func ExtractCitations(resp *gemini.GenerateResponse) (citations []string, warnings []error) {
	g := resp.Grounding()
	if g == nil {
		return nil, nil
	}

	c := collector{seen: map[string]bool{}}

	for i, chunk := range g.GroundingChunks {
		switch {
		case chunk.RetrievedContext != nil:
			rc := chunk.RetrievedContext
			if !c.addFirst(rc.Title, rc.URI) {
				warnings = append(warnings, fmt.Errorf("grounding chunk %d: retrieved context has no title or uri", i))
			}
		case chunk.Web != nil:
			if !c.addFirst(chunk.Web.URI, chunk.Web.Title) {
				warnings = append(warnings, fmt.Errorf("grounding chunk %d: web source has no uri or title", i))
			}
		default:
			warnings = append(warnings, fmt.Errorf("grounding chunk %d: no retrieved context or web source", i))
		}
	}

	for i, support := range g.GroundingSupports {
		if support.Segment == nil || support.Segment.Text == nil {
			warnings = append(warnings, fmt.Errorf("grounding support %d: no segment text", i))
			continue
		}
		c.add(Excerpt(*support.Segment.Text))
	}

	if g.RetrievalMetadata != nil {
		for i, src := range g.RetrievalMetadata.Sources {
			if !c.addFirst(src.Title) {
				warnings = append(warnings, fmt.Errorf("retrieval source %d: no title", i))
			}
		}
	}

	return c.out, warnings
}

// Excerpt renders segment text as a citation, truncated to 100 characters.
func Excerpt(text string) string {
	r := []rune(text)
	if len(r) > excerptRunes {
		r = r[:excerptRunes]
	}
	return "Excerpt: " + string(r) + "..."
}

type collector struct {
	seen map[string]bool
	out  []string
}

// add appends v unless it is empty, already present, or the cap is reached.
func (c *collector) add(v string) {
	if v == "" || c.seen[v] || len(c.out) >= types.MaxCitations {
		return
	}
	c.seen[v] = true
	c.out = append(c.out, v)
}

// addFirst adds the first non-empty candidate and reports whether one existed.
func (c *collector) addFirst(candidates ...*string) bool {
	for _, p := range candidates {
		if p != nil && *p != "" {
			c.add(*p)
			return true
		}
	}
	return false
}
