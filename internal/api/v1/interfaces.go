package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/campusops/aula/internal/chat"
	"github.com/campusops/aula/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Schools() domain.SchoolRepository
	Users() domain.UserRepository
	Students() domain.StudentRepository
	Invoices() domain.InvoiceRepository
	Facilities() domain.FacilityRepository
	Documents() domain.DocumentRepository
	Knowledge() domain.KnowledgeNoteRepository
	Approvals() domain.ApprovalRepository
	Audit() domain.AuditRepository
	ChatSessions() domain.ChatSessionRepository
	ChatMessages() domain.ChatMessageRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, schoolID uuid.UUID, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, schoolID uuid.UUID, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// ChatService abstracts the conversation pipeline for handler testing.
// *chat.Orchestrator satisfies this interface.
type ChatService interface {
	SubmitUserTurn(ctx context.Context, schoolID, userID uuid.UUID, role string, sessionID uuid.UUID, text string) (*chat.TurnResult, error)
}

// ExecutionEngine abstracts the approved-mutation applier for handler
// testing. *chat.Executor satisfies this interface.
type ExecutionEngine interface {
	Apply(ctx context.Context, schoolID, requestID, actorID uuid.UUID) error
}

// EventPublisher pushes lifecycle events to WebSocket subscribers.
// *ws.Hub satisfies this interface.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
