package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGen struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// pairedHistory builds n user/assistant exchanges.
func pairedHistory(n int) History {
	h := make(History, 0, 2*n)
	for i := 1; i <= n; i++ {
		h = append(h,
			Turn{Role: RoleUser, Text: fmt.Sprintf("question %d", i)},
			Turn{Role: RoleAssistant, Text: fmt.Sprintf("answer %d", i)},
		)
	}
	return h
}

func TestMaybeCompactBelowThresholdUnchanged(t *testing.T) {
	gen := &fakeGen{response: "should not be called"}
	c := NewCompactor(gen, CompactorConfig{})

	h := pairedHistory(5) // exactly 5 user turns: no compaction
	out, compacted := c.MaybeCompact(context.Background(), h)
	require.False(t, compacted)
	require.Equal(t, h, out)
	require.Empty(t, gen.prompts)
}

func TestMaybeCompactSixExchanges(t *testing.T) {
	gen := &fakeGen{response: "The user is planning a two-week trip through Vietnam."}
	c := NewCompactor(gen, CompactorConfig{})

	h := pairedHistory(6) // 12 entries, 6 user turns
	out, compacted := c.MaybeCompact(context.Background(), h)
	require.True(t, compacted)

	// 1 summary turn + the last 3 raw turns.
	require.Len(t, out, 4)
	require.Equal(t, RoleSummary, out[0].Role)
	require.Equal(t, gen.response, out[0].Text)
	require.Equal(t, h[len(h)-3:], out[1:])

	// The summarization prompt covers every folded turn and none of the
	// preserved ones.
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "question 1")
	require.Contains(t, gen.prompts[0], "answer 4")
	require.NotContains(t, gen.prompts[0], "answer 5")
	require.NotContains(t, gen.prompts[0], "question 6")
}

func TestMaybeCompactAfterSixthUserTurnAppended(t *testing.T) {
	gen := &fakeGen{response: "summary"}
	c := NewCompactor(gen, CompactorConfig{})

	// 5 paired exchanges plus a freshly appended 6th question.
	h := append(pairedHistory(5), Turn{Role: RoleUser, Text: "question 6"})
	out, compacted := c.MaybeCompact(context.Background(), h)
	require.True(t, compacted)
	require.Len(t, out, 4)
	require.Equal(t, RoleSummary, out[0].Role)
	// The new question survives verbatim at the end.
	require.Equal(t, Turn{Role: RoleUser, Text: "question 6"}, out[len(out)-1])
}

func TestMaybeCompactDoesNotMutateInput(t *testing.T) {
	c := NewCompactor(&fakeGen{response: "summary"}, CompactorConfig{})

	h := pairedHistory(6)
	snapshot := h.Clone()
	_, compacted := c.MaybeCompact(context.Background(), h)
	require.True(t, compacted)
	require.Equal(t, snapshot, h)
}

func TestMaybeCompactFailureReturnsInputUnchanged(t *testing.T) {
	gen := &fakeGen{err: errors.New("model unavailable")}
	c := NewCompactor(gen, CompactorConfig{})

	h := pairedHistory(6)
	out, compacted := c.MaybeCompact(context.Background(), h)
	require.False(t, compacted)
	require.Equal(t, h, out)
}

func TestSummaryTurnsDoNotCountTowardTrigger(t *testing.T) {
	gen := &fakeGen{response: "should not be called"}
	c := NewCompactor(gen, CompactorConfig{})

	// A previously compacted history: 1 summary + 3 user turns paired.
	h := History{{Role: RoleSummary, Text: "earlier summary"}}
	h = append(h, pairedHistory(3)...)
	out, compacted := c.MaybeCompact(context.Background(), h)
	require.False(t, compacted)
	require.Equal(t, h, out)
}

func TestOldSummaryIsFoldedIntoNextSummary(t *testing.T) {
	gen := &fakeGen{response: "combined summary"}
	c := NewCompactor(gen, CompactorConfig{})

	h := History{{Role: RoleSummary, Text: "earlier travel intent"}}
	h = append(h, pairedHistory(6)...)
	out, compacted := c.MaybeCompact(context.Background(), h)
	require.True(t, compacted)
	require.Len(t, out, 4)
	// The previous summary sat in the older window, so it went into the
	// summarization prompt.
	require.Contains(t, gen.prompts[0], "earlier travel intent")
	require.Equal(t, 1, strings.Count(gen.prompts[0], "Summary of earlier conversation"))
}

func TestMaybeCompactRespectsCustomConfig(t *testing.T) {
	gen := &fakeGen{response: "summary"}
	c := NewCompactor(gen, CompactorConfig{MaxUserTurns: 2, KeepRecent: 2})

	out, compacted := c.MaybeCompact(context.Background(), pairedHistory(3))
	require.True(t, compacted)
	require.Len(t, out, 3) // summary + 2 kept turns
}
