package chat

import (
	"context"
	"log/slog"
	"strings"
)

const summaryInstruction = "Summarize the user's travel intent in 2-3 sentences, " +
	"so the conversation can continue with the summary in place of the original messages:"

// Generator maps a prompt to generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CompactorConfig carries the compaction knobs.
type CompactorConfig struct {
	// MaxUserTurns triggers compaction once the count of raw user turns
	// exceeds it. Summary turns do not count.
	MaxUserTurns int
	// KeepRecent is how many trailing turns survive verbatim. Everything
	// before them, including any earlier summary turn, is folded into the
	// new summary.
	KeepRecent int
}

func (c CompactorConfig) normalized() CompactorConfig {
	if c.MaxUserTurns <= 0 {
		c.MaxUserTurns = 5
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = 3
	}
	return c
}

// Compactor bounds history growth by summarizing older turns.
type Compactor struct {
	gen Generator
	cfg CompactorConfig
}

func NewCompactor(gen Generator, cfg CompactorConfig) *Compactor {
	return &Compactor{gen: gen, cfg: cfg.normalized()}
}

// MaybeCompact re-checks the trigger on every call: once the history holds
// more than MaxUserTurns user turns, everything except the last KeepRecent
// turns is replaced by a single summary turn. The input is never mutated;
// the returned bool reports whether compaction happened. If summarization
// fails the input history is returned unchanged; unbounded growth is
// preferred over losing context.
func (c *Compactor) MaybeCompact(ctx context.Context, h History) (History, bool) {
	if h.UserTurns() <= c.cfg.MaxUserTurns || len(h) <= c.cfg.KeepRecent {
		return h, false
	}

	older := h[:len(h)-c.cfg.KeepRecent]
	recent := h[len(h)-c.cfg.KeepRecent:]

	var sb strings.Builder
	sb.WriteString(summaryInstruction)
	sb.WriteString("\n\n")
	for _, t := range older {
		sb.WriteString(roleLabel(t.Role) + ": " + t.Text + "\n")
	}

	summary, err := c.gen.Generate(ctx, sb.String())
	if err != nil {
		slog.Warn("history compaction failed, keeping full history", "err", err)
		return h, false
	}

	out := make(History, 0, 1+len(recent))
	out = append(out, Turn{Role: RoleSummary, Text: strings.TrimSpace(summary)})
	out = append(out, recent...)

	slog.Info("history compacted",
		"folded_turns", len(older), "kept_turns", len(recent), "summary_len", len(summary))
	return out, true
}

func roleLabel(r Role) string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSummary:
		return "Summary of earlier conversation"
	default:
		return string(r)
	}
}
