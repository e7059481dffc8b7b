package ui

import (
	"fmt"
	"strings"

	"github.com/docfuse/docfuse/internal/index"
	"github.com/docfuse/docfuse/internal/search"
)

// Renderer writes human-readable command output.
type Renderer struct {
	styles Styles
}

// NewRenderer creates a renderer; noColor disables all styling.
func NewRenderer(noColor bool) *Renderer {
	return &Renderer{styles: GetStyles(noColor)}
}

// SearchResults renders fused hits, best first.
func (r *Renderer) SearchResults(results []search.Result) string {
	if len(results) == 0 {
		return r.styles.Dim.Render("no results") + "\n"
	}

	var b strings.Builder
	for i, res := range results {
		title := res.Title
		if title == "" {
			title = res.ChunkID
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			r.styles.Header.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Title.Render(title),
			r.styles.Score.Render(fmt.Sprintf("(score %.4f)", res.Score)))

		if res.DocPath != "" {
			fmt.Fprintf(&b, "    %s\n", r.styles.Label.Render(res.DocPath))
		}
		if res.Snippet != "" {
			for _, line := range strings.Split(res.Snippet, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
		fmt.Fprintf(&b, "    %s\n",
			r.styles.Dim.Render(legSummary(res.TextRank, res.VecRank)))
		if i < len(results)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func legSummary(textRank, vecRank int) string {
	switch {
	case textRank > 0 && vecRank > 0:
		return fmt.Sprintf("keyword #%d, vector #%d", textRank, vecRank)
	case textRank > 0:
		return fmt.Sprintf("keyword #%d", textRank)
	case vecRank > 0:
		return fmt.Sprintf("vector #%d", vecRank)
	default:
		return "unranked"
	}
}

// IngestSummary renders the outcome of an ingest or import run.
func (r *Renderer) IngestSummary(s *index.IngestSummary) string {
	var b strings.Builder

	line := fmt.Sprintf("%d chunks from %d documents in %s",
		s.Chunks, s.Documents, s.Elapsed.Round(1e6))
	if s.Documents == 0 {
		line = fmt.Sprintf("%d chunks in %s", s.Chunks, s.Elapsed.Round(1e6))
	}
	b.WriteString(r.styles.Header.Render(line) + "\n")

	fmt.Fprintf(&b, "  %s %d\n", r.styles.Success.Render("indexed:"), s.Succeeded)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  %s %d\n", r.styles.Error.Render("failed:"), s.Failed)
		for _, id := range s.FailedIDs {
			fmt.Fprintf(&b, "    %s\n", r.styles.Dim.Render(id))
		}
	}
	return b.String()
}

// Status renders the cross-store reconciliation view.
func (r *Renderer) Status(st *index.Status) string {
	var b strings.Builder

	b.WriteString(r.styles.Header.Render("index status") + "\n")
	fmt.Fprintf(&b, "  %s %s/%s (%d dims)\n",
		r.styles.Label.Render("embedding:"), st.Provider, st.Model, st.Dimension)
	fmt.Fprintf(&b, "  %s %s\n", r.styles.Label.Render("text backend:"), st.TextBackend)
	fmt.Fprintf(&b, "  %s %d\n", r.styles.Label.Render("vector chunks:"), st.VectorCount)
	fmt.Fprintf(&b, "  %s %d\n", r.styles.Label.Render("text chunks:"), st.TextCount)

	if st.InSync {
		fmt.Fprintf(&b, "  %s\n", r.styles.Success.Render("stores in sync"))
		return b.String()
	}

	fmt.Fprintf(&b, "  %s\n", r.styles.Warning.Render("stores diverged"))
	if len(st.VectorOnly) > 0 {
		fmt.Fprintf(&b, "  %s %d\n", r.styles.Label.Render("vector only:"), len(st.VectorOnly))
		for _, id := range st.VectorOnly {
			fmt.Fprintf(&b, "    %s\n", r.styles.Dim.Render(id))
		}
	}
	if len(st.TextOnly) > 0 {
		fmt.Fprintf(&b, "  %s %d\n", r.styles.Label.Render("text only:"), len(st.TextOnly))
		for _, id := range st.TextOnly {
			fmt.Fprintf(&b, "    %s\n", r.styles.Dim.Render(id))
		}
	}
	return b.String()
}
