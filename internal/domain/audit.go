package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreate          AuditAction = "create"
	AuditActionUpdate          AuditAction = "update"
	AuditActionDelete          AuditAction = "delete"
	AuditActionKnowledgeUpdate AuditAction = "knowledge_update"
)

// AuditEntry is an immutable record of an applied change. Entries are
// created exactly once per executed mutation and never updated or deleted.
// IDs are ULIDs so the log sorts by creation time.
type AuditEntry struct {
	ID        string // ULID
	SchoolID  uuid.UUID
	ActorID   uuid.UUID
	ActorType string // "user" for direct API use, "pipeline" for approved proposals
	Action    AuditAction
	Entity    EntityType
	EntityID  uuid.UUID
	Before    map[string]any // nil for create
	After     map[string]any // nil for delete
	CreatedAt time.Time
}

// AuditRepository exposes no update or delete: the log is append-only.
type AuditRepository interface {
	Record(ctx context.Context, e *AuditEntry) error
	ListBySchool(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
	ListByEntity(ctx context.Context, schoolID uuid.UUID, entity EntityType, entityID uuid.UUID) ([]*AuditEntry, error)
}
