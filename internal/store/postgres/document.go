package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusops/aula/internal/domain"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `id, school_id, title, category, student_id, storage_path, mime_type, created_at, updated_at`

func (r *DocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, school_id, title, category, student_id, storage_path, mime_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.SchoolID, d.Title, d.Category, d.StudentID, d.StoragePath, d.MimeType, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}

	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, schoolID, id uuid.UUID) (*domain.Document, error) {
	var d domain.Document

	err := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(&d.ID, &d.SchoolID, &d.Title, &d.Category, &d.StudentID, &d.StoragePath, &d.MimeType, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("documentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}

	return &d, nil
}

func (r *DocumentRepo) List(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM documents WHERE school_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.List: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows, "documentRepo.List")
}

func (r *DocumentRepo) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM documents WHERE school_id = $1 AND student_id = $2
		 ORDER BY created_at DESC`,
		schoolID, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListByStudent: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows, "documentRepo.ListByStudent")
}

func (r *DocumentRepo) Update(ctx context.Context, d *domain.Document) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET title = $1, category = $2, student_id = $3, storage_path = $4, mime_type = $5, updated_at = $6
		 WHERE school_id = $7 AND id = $8`,
		d.Title, d.Category, d.StudentID, d.StoragePath, d.MimeType, d.UpdatedAt, d.SchoolID, d.ID,
	)
	if err != nil {
		return fmt.Errorf("documentRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documentRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM documents WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documentRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanDocuments(rows pgx.Rows, caller string) ([]*domain.Document, error) {
	var documents []*domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.SchoolID, &d.Title, &d.Category, &d.StudentID, &d.StoragePath, &d.MimeType, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		documents = append(documents, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return documents, nil
}
