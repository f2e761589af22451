// Package store persists chat sessions, messages and the travel place
// catalog behind a narrow driver interface.
package store

import "context"

// Driver is the storage backend contract. Only a sqlite implementation
// ships; the assistant is a single-user local service.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error)
	DeleteChatSession(ctx context.Context, uid string) error
	CreateChatMessage(ctx context.Context, create *CreateChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
	DeleteChatMessages(ctx context.Context, sessionID int32) error

	UpsertPlace(ctx context.Context, place *Place) error
	ListPlaces(ctx context.Context, find *FindPlace) ([]*Place, error)
	CountPlaces(ctx context.Context) (int64, error)
	DeleteAllPlaces(ctx context.Context) error
}

// Store is the facade the rest of the program talks to.
type Store struct {
	driver Driver
}

func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Migrate creates the schema if needed.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
