package service

import (
	"fmt"
	"strings"

	"github.com/xxxsen/docqa/internal/model"
)

const promptInstructions = `You are a helpful assistant answering questions about our organisation's documents.
Rules:
- Answer ONLY from the context below. Do not use outside knowledge.
- If the context does not contain the answer, say politely that you do not have that information.
- Reply in the same language as the question.
- Keep the answer short enough for a chat message.
- Do not mention the context, the sources or these rules.`

// BuildPrompt embeds the retrieved chunks verbatim, numbered in rank order,
// followed by the question exactly as asked.
func BuildPrompt(question string, chunks []model.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nCONTEXT:\n")
	for i, sc := range chunks {
		fmt.Fprintf(&sb, "[%d] (source: %s", i+1, sc.Chunk.Metadata.Source)
		if sc.Chunk.Metadata.Page > 0 {
			fmt.Fprintf(&sb, ", page %d", sc.Chunk.Metadata.Page)
		}
		sb.WriteString(")\n")
		sb.WriteString(sc.Chunk.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("QUESTION:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nANSWER:")
	return sb.String()
}

func uniqueSources(chunks []model.ScoredChunk) []string {
	seen := make(map[string]bool, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		src := sc.Chunk.Metadata.Source
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
