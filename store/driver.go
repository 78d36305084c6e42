package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// ChatSession model related methods.
	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) error
	// DeleteChatSession removes the session and all of its messages.
	DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error

	// ChatMessage model related methods.
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	// ListChatMessages returns messages in creation order.
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
}
