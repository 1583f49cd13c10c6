package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatSession is an ongoing conversation between a staff member and the
// assistant. Sessions are never hard-deleted while messages reference them;
// Archived marks them read-only.
type ChatSession struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	UserID    uuid.UUID
	Title     string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one persisted turn. Messages within a session form a total
// order by CreatedAt; persisted messages are never reordered or mutated.
type ChatMessage struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	SessionID uuid.UUID
	Role      MessageRole
	Content   string
	// ToolCalls holds the serialized tool-call payloads the model attached
	// to this turn, if any. Stored verbatim for replay and audit.
	ToolCalls json.RawMessage
	CreatedAt time.Time
}

type ChatSessionRepository interface {
	Create(ctx context.Context, s *ChatSession) error
	GetByID(ctx context.Context, schoolID, id uuid.UUID) (*ChatSession, error)
	ListByUser(ctx context.Context, schoolID, userID uuid.UUID) ([]*ChatSession, error)
	Touch(ctx context.Context, schoolID, id uuid.UUID) error
	Archive(ctx context.Context, schoolID, id uuid.UUID) error
}

type ChatMessageRepository interface {
	Append(ctx context.Context, m *ChatMessage) error
	ListBySession(ctx context.Context, schoolID, sessionID uuid.UUID) ([]*ChatMessage, error)
	CountBySession(ctx context.Context, schoolID, sessionID uuid.UUID) (int64, error)
}
