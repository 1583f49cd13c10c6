package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

type KnowledgeRepo struct {
	pool *pgxpool.Pool
}

func NewKnowledgeRepo(pool *pgxpool.Pool) *KnowledgeRepo {
	return &KnowledgeRepo{pool: pool}
}

func (r *KnowledgeRepo) Create(ctx context.Context, n *domain.KnowledgeNote) error {
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("knowledgeRepo.Create: marshal tags: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO knowledge_notes (id, school_id, title, body, tags, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.SchoolID, n.Title, n.Body, tags, n.UpdatedBy, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("knowledgeRepo.Create: %w", err)
	}

	return nil
}

func (r *KnowledgeRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.KnowledgeNote, error) {
	var n domain.KnowledgeNote
	var tags []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, school_id, title, body, tags, updated_by, created_at, updated_at
		 FROM knowledge_notes WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(&n.ID, &n.SchoolID, &n.Title, &n.Body, &tags, &n.UpdatedBy, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("knowledgeRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledgeRepo.GetByID: %w", err)
	}

	if err := json.Unmarshal(tags, &n.Tags); err != nil {
		return nil, fmt.Errorf("knowledgeRepo.GetByID: unmarshal tags: %w", err)
	}

	return &n, nil
}

func (r *KnowledgeRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.KnowledgeNote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, school_id, title, body, tags, updated_by, created_at, updated_at
		 FROM knowledge_notes WHERE school_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledgeRepo.List: %w", err)
	}
	defer rows.Close()

	var notes []*domain.KnowledgeNote
	for rows.Next() {
		var n domain.KnowledgeNote
		var tags []byte

		if err := rows.Scan(&n.ID, &n.SchoolID, &n.Title, &n.Body, &tags, &n.UpdatedBy, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("knowledgeRepo.List: scan: %w", err)
		}
		if err := json.Unmarshal(tags, &n.Tags); err != nil {
			return nil, fmt.Errorf("knowledgeRepo.List: unmarshal tags: %w", err)
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledgeRepo.List: rows: %w", err)
	}

	return notes, nil
}

func (r *KnowledgeRepo) Update(ctx context.Context, n *domain.KnowledgeNote) error {
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("knowledgeRepo.Update: marshal tags: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE knowledge_notes SET title = $1, body = $2, tags = $3, updated_by = $4, updated_at = $5
		 WHERE school_id = $6 AND id = $7`,
		n.Title, n.Body, tags, n.UpdatedBy, n.UpdatedAt, n.SchoolID, n.ID,
	)
	if err != nil {
		return fmt.Errorf("knowledgeRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("knowledgeRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *KnowledgeRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM knowledge_notes WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("knowledgeRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("knowledgeRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
