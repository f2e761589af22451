package chat

import (
	"fmt"
	"strings"
)

// Match is one knowledge document selected for a query, either by vector
// search (Score set) or by relational expansion (Score zero).
type Match struct {
	ID          string
	Name        string
	Type        string
	Description string
	Score       float32
}

// Knowledge is the retrieval context handed to the prompt builder.
type Knowledge struct {
	Matches []Match
	Related []Match
}

// BuildPrompt assembles the grounded prompt: persona, conversation history,
// semantic-search context, related-item context, then the current question.
// history must not include the current question.
func BuildPrompt(query string, kn *Knowledge, history History) string {
	var sb strings.Builder

	sb.WriteString("You are an expert travel assistant for Vietnam. Use ONLY the provided context below " +
		"to answer the user's question. Be concise and helpful. If the context does not contain the answer, say so.\n\n")

	sb.WriteString("## Conversation History:\n")
	if len(history) == 0 {
		sb.WriteString("No previous messages.\n")
	} else {
		for _, t := range history {
			sb.WriteString(roleLabel(t.Role) + ": " + t.Text + "\n")
		}
	}

	sb.WriteString("\n## Context from Semantic Search (most relevant):\n")
	if kn == nil || len(kn.Matches) == 0 {
		sb.WriteString("No search results found.\n")
	} else {
		for _, m := range kn.Matches {
			fmt.Fprintf(&sb, "- %s (%s, Score: %.2f): %s\n", m.Name, m.Type, m.Score, truncate(m.Description, 120))
		}
	}

	sb.WriteString("\n## Context from Related Items:\n")
	if kn == nil || len(kn.Related) == 0 {
		sb.WriteString("No related items found.\n")
	} else {
		for _, m := range kn.Related {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", m.Name, m.Type, truncate(m.Description, 120))
		}
	}

	sb.WriteString("\nBased on all available information, answer the user's current question.\n")
	fmt.Fprintf(&sb, "User's Current Question: %q\n", query)

	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
