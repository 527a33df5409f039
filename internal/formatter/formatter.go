// Package formatter renders retrieved sources and the question into a
// single bounded prompt. Pure string assembly: deterministic, no I/O.
package formatter

import (
	"fmt"
	"strings"

	"research-rag/internal/domain"
)

const (
	instruction = "Answer the research question using only the sources above. " +
		"Cite sources by their identifier in square brackets, e.g. [1706.03762]. " +
		"If the sources do not contain the answer, say so explicitly."

	noSourcesNote = "No supporting sources were retrieved for this question. " +
		"Answer from general knowledge and state clearly that no sources were available."

	sourcesHeader = "Sources:"
	separator     = "\n\n"
	ellipsis      = "..."
)

// Format builds the prompt from the question and the relevance-ordered
// sources, keeping the output within maxContextLen characters. Sources are
// dropped from the lowest-relevance end first; if even the single
// highest-relevance source exceeds the remaining budget, its excerpt is
// truncated so the citation stays present. The question is always appended
// last and is never dropped, so the length guarantee holds whenever the
// budget covers the question frame itself.
func Format(question string, sources []domain.RetrievedSource, maxContextLen int) string {
	frame := frameFor(question, len(sources) == 0)
	budget := maxContextLen - len(frame) - len(sourcesHeader) - 2*len(separator)

	if len(sources) == 0 || budget <= 0 {
		return frame
	}

	blocks := make([]string, 0, len(sources))
	used := 0
	for i, src := range sources {
		block := renderSource(src)
		cost := len(block)
		if len(blocks) > 0 {
			cost += len(separator)
		}
		if used+cost > budget {
			if i == 0 {
				block = truncateBlock(src, budget)
				if block == "" {
					break
				}
				blocks = append(blocks, block)
				used += len(block)
			}
			break
		}
		blocks = append(blocks, block)
		used += cost
	}

	if len(blocks) == 0 {
		return frame
	}
	return sourcesHeader + separator + strings.Join(blocks, separator) + separator + frame
}

func frameFor(question string, noSources bool) string {
	var sb strings.Builder
	if noSources {
		sb.WriteString(noSourcesNote)
	} else {
		sb.WriteString(instruction)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func renderSource(src domain.RetrievedSource) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s]", src.ID))
	if src.Title != "" {
		sb.WriteString(" ")
		sb.WriteString(src.Title)
	}
	if src.URL != "" {
		sb.WriteString("\nURL: ")
		sb.WriteString(src.URL)
	}
	sb.WriteString("\n")
	sb.WriteString(src.Excerpt)
	return sb.String()
}

// truncateBlock shortens the source's excerpt until the rendered block fits
// the budget. Returns "" when not even the header line fits.
func truncateBlock(src domain.RetrievedSource, budget int) string {
	full := renderSource(src)
	if len(full) <= budget {
		return full
	}
	overflow := len(full) - budget + len(ellipsis)
	keep := len(src.Excerpt) - overflow
	if keep <= 0 {
		return ""
	}
	src.Excerpt = src.Excerpt[:keep] + ellipsis
	return renderSource(src)
}
