package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPromptEmptyContext(t *testing.T) {
	p := BuildPrompt("Best time to visit Hanoi?", nil, nil)

	require.Contains(t, p, "expert travel assistant for Vietnam")
	require.Contains(t, p, "No previous messages.")
	require.Contains(t, p, "No search results found.")
	require.Contains(t, p, "No related items found.")
	require.Contains(t, p, `User's Current Question: "Best time to visit Hanoi?"`)
}

func TestBuildPromptRendersHistoryAndContext(t *testing.T) {
	history := History{
		{Role: RoleSummary, Text: "The user wants a food-focused trip."},
		{Role: RoleUser, Text: "Where should I eat in Hanoi?"},
		{Role: RoleAssistant, Text: "Try the Old Quarter."},
	}
	kn := &Knowledge{
		Matches: []Match{{ID: "dish_pho", Name: "Pho", Type: "dish", Description: "Noodle soup.", Score: 0.91}},
		Related: []Match{{ID: "city_hanoi", Name: "Hanoi", Type: "city", Description: "Capital of Vietnam."}},
	}

	p := BuildPrompt("What about street food?", kn, history)

	require.Contains(t, p, "Summary of earlier conversation: The user wants a food-focused trip.")
	require.Contains(t, p, "User: Where should I eat in Hanoi?")
	require.Contains(t, p, "Assistant: Try the Old Quarter.")
	require.Contains(t, p, "- Pho (dish, Score: 0.91): Noodle soup.")
	require.Contains(t, p, "- Hanoi (city): Capital of Vietnam.")

	// History precedes search context, which precedes the question.
	histIdx := strings.Index(p, "## Conversation History:")
	searchIdx := strings.Index(p, "## Context from Semantic Search")
	questionIdx := strings.Index(p, "User's Current Question")
	require.Less(t, histIdx, searchIdx)
	require.Less(t, searchIdx, questionIdx)
}

func TestBuildPromptTruncatesLongDescriptions(t *testing.T) {
	long := strings.Repeat("x", 200)
	kn := &Knowledge{Matches: []Match{{Name: "N", Type: "t", Description: long, Score: 1}}}

	p := BuildPrompt("q", kn, nil)
	require.Contains(t, p, strings.Repeat("x", 120)+"...")
	require.NotContains(t, p, strings.Repeat("x", 121))
}
