package store

import "context"

// ChatSession is a single conversation thread.
type ChatSession struct {
	ID    int32
	UID   string
	Title string
	// Summary holds the compacted form of older history. Empty until the
	// first compaction.
	Summary   string
	CreatedTs int64
	UpdatedTs int64
}

// ChatMessage is one turn within a session.
type ChatMessage struct {
	ID        int32
	SessionID int32
	Role      string // "user" | "assistant"
	Content   string
	CreatedTs int64
}

// FindChatSession filters for ListChatSessions.
type FindChatSession struct {
	UID *string
}

// UpdateChatSession carries the mutable session fields.
type UpdateChatSession struct {
	UID     string
	Title   *string
	Summary *string
}

// FindChatMessage filters for ListChatMessages.
type FindChatMessage struct {
	SessionID int32
}

// CreateChatMessage is the payload for CreateChatMessage.
type CreateChatMessage struct {
	SessionID int32
	Role      string
	Content   string
}

// CreateChatSession creates a new chat session.
func (s *Store) CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error) {
	return s.driver.CreateChatSession(ctx, create)
}

// ListChatSessions lists sessions matching the given filter, most recently
// updated first.
func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}

// GetChatSession returns the first session matching the filter, or nil.
func (s *Store) GetChatSession(ctx context.Context, find *FindChatSession) (*ChatSession, error) {
	list, err := s.driver.ListChatSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateChatSession updates a session's mutable fields.
func (s *Store) UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error) {
	return s.driver.UpdateChatSession(ctx, update)
}

// DeleteChatSession deletes a session and all its messages.
func (s *Store) DeleteChatSession(ctx context.Context, uid string) error {
	return s.driver.DeleteChatSession(ctx, uid)
}

// CreateChatMessage persists a new message.
func (s *Store) CreateChatMessage(ctx context.Context, create *CreateChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

// ListChatMessages returns a session's messages, oldest first.
func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

// DeleteChatMessages deletes all messages for a session. Used when
// compaction rewrites the stored history.
func (s *Store) DeleteChatMessages(ctx context.Context, sessionID int32) error {
	return s.driver.DeleteChatMessages(ctx, sessionID)
}
