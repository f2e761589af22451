// Package chat holds the conversation model, the context compactor, and the
// answer engine that composes cache, retrieval and generation.
package chat

// Role labels a turn's author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSummary marks the synthetic turn a compaction produces. Summary
	// turns never count as user turns for the compaction trigger.
	RoleSummary Role = "summary"
)

// Turn is one message within a conversation.
type Turn struct {
	Role Role
	Text string
}

// History is the ordered conversation, oldest first. It is owned by the
// session/caller; engine operations return new slices and never mutate a
// caller-held copy in place.
type History []Turn

// UserTurns counts the raw user-authored turns.
func (h History) UserTurns() int {
	n := 0
	for _, t := range h {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}
