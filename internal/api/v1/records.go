package v1

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/ids"
	"github.com/campusops/aula/internal/server/middleware"
)

// canWrite reports whether the role may mutate records directly, bypassing
// the proposal pipeline. Staff cannot.
func canWrite(role string) bool {
	return role == domain.RoleAdmin || role == domain.RoleApprover
}

// writerFromContext extracts school, user, and role and checks write access.
// Returns ok=false when the context is incomplete or the role is read-only.
func writerFromContext(ctx context.Context) (schoolID, userID uuid.UUID, ok bool) {
	schoolID, ok = middleware.SchoolIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok = middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	role, _ := middleware.RoleFromContext(ctx)
	if !canWrite(role) {
		return uuid.Nil, uuid.Nil, false
	}
	return schoolID, userID, true
}

// recordAudit appends an audit entry for a direct API mutation. The mutation
// has already committed, so a failed audit write is logged rather than
// surfaced to the caller.
func recordAudit(ctx context.Context, audit domain.AuditRepository, schoolID, actorID uuid.UUID, action domain.AuditAction, entity domain.EntityType, entityID uuid.UUID, before, after map[string]any) {
	entry := &domain.AuditEntry{
		ID:        ids.New(),
		SchoolID:  schoolID,
		ActorID:   actorID,
		ActorType: "user",
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Before:    before,
		After:     after,
		CreatedAt: time.Now(),
	}
	if err := audit.Record(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("entity", string(entity)).
			Str("entity_id", entityID.String()).
			Msg("audit write failed for direct mutation")
	}
}

// snapshotRecord converts a record into a field map for audit before/after
// images. Round-trips through JSON to avoid reflecting on each type.
func snapshotRecord(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
