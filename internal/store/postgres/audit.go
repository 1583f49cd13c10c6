package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

// AuditRepo is append-only: no UPDATE or DELETE statement exists here.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Record(ctx context.Context, e *domain.AuditEntry) error {
	before, err := json.Marshal(e.Before)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: marshal before: %w", err)
	}
	after, err := json.Marshal(e.After)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: marshal after: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_log (id, school_id, actor_id, actor_type, action, entity, entity_id, before, after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.SchoolID, e.ActorID, e.ActorType, e.Action, e.Entity, e.EntityID, before, after, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListBySchool(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, actor_id, actor_type, action, entity, entity_id, before, after, created_at
		 FROM audit_log WHERE school_id = $1
		 ORDER BY id DESC
		 LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListBySchool: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows, "auditRepo.ListBySchool")
}

func (r *AuditRepo) ListByEntity(ctx context.Context, schoolID uuid.UUID, entity domain.EntityType, entityID uuid.UUID) ([]*domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, actor_id, actor_type, action, entity, entity_id, before, after, created_at
		 FROM audit_log WHERE school_id = $1 AND entity = $2 AND entity_id = $3
		 ORDER BY id DESC`,
		schoolID, entity, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByEntity: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows, "auditRepo.ListByEntity")
}

func scanAuditEntries(rows pgx.Rows, caller string) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var before, after []byte

		if err := rows.Scan(
			&e.ID, &e.SchoolID, &e.ActorID, &e.ActorType, &e.Action,
			&e.Entity, &e.EntityID, &before, &after, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(before, &e.Before); err != nil {
			return nil, fmt.Errorf("%s: unmarshal before: %w", caller, err)
		}
		if err := json.Unmarshal(after, &e.After); err != nil {
			return nil, fmt.Errorf("%s: unmarshal after: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
